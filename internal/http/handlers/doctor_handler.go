// Doctor directory HTTP handlers.
//
// This file exposes REST endpoints for the doctor directory:
//   - GET /doctors        (list, filterable, paginated, ETag support)
//   - GET /doctors/{id}   (fetch one doctor)
//
// Filtering is expressed through query parameters and mapped onto a single
// repository filter value; the handlers never build SQL themselves.
package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/docline/go-doctor-backend/internal/domain"
	"github.com/docline/go-doctor-backend/internal/repo"
	"github.com/docline/go-doctor-backend/internal/services"
)

// ListDoctorsResponse wraps a page of doctors and pagination information.
type ListDoctorsResponse struct {
	Doctors    []domain.Doctor `json:"doctors"`
	Pagination Pagination      `json:"pagination"`
}

// DoctorResponse wraps a single doctor resource.
type DoctorResponse struct {
	Doctor *domain.Doctor `json:"doctor"`
}

// doctorFilterFromQuery maps list query parameters onto a repository filter.
// Unknown or malformed optional values degrade to "no filter" rather than
// failing the request.
func doctorFilterFromQuery(c *gin.Context) repo.DoctorFilter {
	f := repo.DoctorFilter{
		Search:    strings.TrimSpace(c.Query("search")),
		Specialty: strings.TrimSpace(c.Query("specialty")),
		City:      strings.TrimSpace(c.Query("city")),
		Area:      strings.TrimSpace(c.Query("area")),
	}
	if v := c.Query("min_rating"); v != "" {
		if r, err := strconv.ParseFloat(v, 64); err == nil && r > 0 {
			f.MinRating = r
		}
	}
	if v := c.Query("available"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			f.Available = &b
		}
	}
	return f
}

// ListDoctors godoc
// @ID          listDoctors
// @Summary     List doctors (filtered, paginated)
// @Description Returns a page of doctors matching the given filters, ordered by
// @Description rating (best first). Supports weak ETag via If-None-Match and may return 304.
// @Tags        Doctors
// @Produce     json
//
// @Param       search         query   string  false "Free-text match on name, specialty, area, or city"
// @Param       specialty      query   string  false "Exact specialty (case-insensitive)"  example(Cardiology)
// @Param       city           query   string  false "Exact city (case-insensitive)"       example(Pune)
// @Param       area           query   string  false "Exact area (case-insensitive)"       example(Kothrud)
// @Param       min_rating     query   number  false "Minimum rating (1–5)"                example(4.0)
// @Param       available      query   boolean false "Only doctors currently accepting patients"
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"          example(W/\"abc123\")
// @Param       page           query   int     false "Page number"                          minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"                       minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListDoctorsResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /doctors [get]
func (h *Handlers) ListDoctors(c *gin.Context) {
	ctx := c.Request.Context()
	page, pageSize := clampPagination(c)
	filter := doctorFilterFromQuery(c)

	// ETag pre-check (best effort). The tag covers the whole directory; any
	// doctor update invalidates every filtered view, which keeps it simple
	// and always correct.
	var db *gorm.DB
	if svc, ok := h.dirSvc.(*services.DirectoryService); ok {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.DoctorsStats(ctx, db)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"doctors:%d:%d"`, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.dirSvc.ListPage(ctx, filter, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListDoctorsResponse{
		Doctors: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// GetDoctor godoc
// @ID          getDoctor
// @Summary     Get a doctor
// @Description Returns the full profile of a single doctor.
// @Tags        Doctors
// @Produce     json
//
// @Param       id  path  string  true  "Doctor ID (UUID)"  format(uuid) example(fa4dfbe0-c3bf-47bd-b32f-d7de221cf43b)
//
// @Success     200  {object} handlers.DoctorResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Doctor not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /doctors/{id} [get]
func (h *Handlers) GetDoctor(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "doctor id must be a UUID")
		return
	}

	d, err := h.dirSvc.Get(c.Request.Context(), id)
	if err != nil {
		switch err {
		case services.ErrDoctorNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "doctor not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, DoctorResponse{Doctor: d})
}
