package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/dshills/postgraph/graph"
	"github.com/dshills/postgraph/graph/interrupt"
	"github.com/dshills/postgraph/workflow"
)

type errorBody struct {
	Detail string `json:"detail"`
}

// requestError is a malformed request.
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	var (
		reqErr       *requestError
		validation   *workflow.ValidationError
		protocol     *interrupt.ProtocolError
		notFound     *graph.SessionNotFoundError
		busy         *graph.SessionBusyError
		invalid      *graph.InvalidSessionStateError
		collaborator *graph.CollaboratorError
	)
	switch {
	case errors.As(err, &reqErr), errors.As(err, &validation), errors.As(err, &protocol):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &busy), errors.As(err, &invalid), errors.Is(err, graph.ErrSessionExists):
		return http.StatusConflict
	case errors.As(err, &collaborator):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorBody{Detail: err.Error()})
}
