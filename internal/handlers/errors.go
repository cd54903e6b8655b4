package handlers

import (
	"errors"
	"net/http"

	"linkup-service/internal/geo"
	"linkup-service/internal/repositories"
)

// statusForError maps repository sentinel errors onto HTTP statuses.
// Anything unrecognized is an infrastructure fault and surfaces as 500.
func statusForError(err error) int {
	switch {
	case errors.Is(err, repositories.ErrPostNotFound),
		errors.Is(err, repositories.ErrReplyNotFound),
		errors.Is(err, repositories.ErrChatNotFound):
		return http.StatusNotFound
	case errors.Is(err, repositories.ErrNotPostAuthor),
		errors.Is(err, repositories.ErrNotParticipant):
		return http.StatusForbidden
	case errors.Is(err, repositories.ErrPostExpired),
		errors.Is(err, repositories.ErrReplyQuotaExceeded),
		errors.Is(err, repositories.ErrAcceptQuotaExceeded),
		errors.Is(err, repositories.ErrDuplicateReply),
		errors.Is(err, repositories.ErrInvalidTransition),
		errors.Is(err, repositories.ErrOwnPostReply),
		errors.Is(err, repositories.ErrSelfChat),
		errors.Is(err, repositories.ErrEmptyMessage),
		errors.Is(err, geo.ErrInvalidCoordinates):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// messageForError picks the caller-visible message: sentinel errors carry a
// stable, human-readable text; everything else is masked.
func messageForError(err error) string {
	if statusForError(err) == http.StatusInternalServerError {
		return "internal error"
	}
	return err.Error()
}
