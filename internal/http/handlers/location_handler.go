// Location HTTP handlers.
//
// This file exposes REST endpoints for the supported service locations:
//   - GET /cities               (list known cities)
//   - GET /cities/{name}/areas  (list areas within one city)
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/docline/go-doctor-backend/internal/domain"
)

// ListCitiesResponse wraps the list of supported cities.
type ListCitiesResponse struct {
	Cities []domain.City `json:"cities"`
}

// ListAreasResponse wraps the areas of a single city.
type ListAreasResponse struct {
	City  string        `json:"city"`
	Areas []domain.Area `json:"areas"`
}

// ListCities godoc
// @ID          listCities
// @Summary     List supported cities
// @Description Returns every city the directory currently serves.
// @Tags        Locations
// @Produce     json
//
// @Success     200  {object} handlers.ListCitiesResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /cities [get]
func (h *Handlers) ListCities(c *gin.Context) {
	cities, err := h.locSvc.ListCities(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListCitiesResponse{Cities: cities})
}

// ListCityAreas godoc
// @ID          listCityAreas
// @Summary     List areas within a city
// @Description Returns the known areas of the named city. City matching is
// @Description case-insensitive.
// @Tags        Locations
// @Produce     json
//
// @Param       name  path  string  true  "City name"  example(Pune)
//
// @Success     200  {object} handlers.ListAreasResponse
// @Failure     404  {object} handlers.ErrorResponse "City not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /cities/{name}/areas [get]
func (h *Handlers) ListCityAreas(c *gin.Context) {
	ctx := c.Request.Context()
	name := strings.TrimSpace(c.Param("name"))

	valid, err := h.locSvc.IsValidCity(ctx, name)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	if !valid {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "city not found")
		return
	}

	areas, err := h.locSvc.ListAreas(ctx, name)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListAreasResponse{City: name, Areas: areas})
}
