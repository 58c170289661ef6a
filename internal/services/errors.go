// Package services defines the business logic for the conversation resolver,
// the doctor directory, location resolution, and feedback. This file
// centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import "errors"

var (
	// ErrSessionNotFound indicates that the requested chat session does not exist.
	ErrSessionNotFound = errors.New("session not found")

	// ErrEmptyMessage is returned when an inbound chat turn contains an
	// empty or whitespace-only message.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrMessageTooLong is returned when an inbound chat turn exceeds the
	// maximum configured length limit.
	ErrMessageTooLong = errors.New("message too long")

	// ErrDoctorNotFound indicates that the requested doctor does not exist.
	ErrDoctorNotFound = errors.New("doctor not found")

	// ErrInvalidFeedback is returned when a feedback value is outside the
	// allowed set (currently -1 or 1).
	ErrInvalidFeedback = errors.New("feedback value must be -1 or 1")

	// ErrMessageNotFound indicates that the requested chat log entry does
	// not exist.
	ErrMessageNotFound = errors.New("message not found")

	// ErrDuplicateFeedback is returned when a user attempts to leave feedback
	// on a message that they have already rated.
	ErrDuplicateFeedback = errors.New("feedback already exists")
)
