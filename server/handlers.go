package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dshills/postgraph/graph"
	"github.com/dshills/postgraph/graph/emit"
	"github.com/dshills/postgraph/graph/interrupt"
	"github.com/dshills/postgraph/session"
	"github.com/dshills/postgraph/workflow"
)

const maxBodyBytes = 1 << 20

type createPostRequest struct {
	Topic               string `json:"topic"`
	URL                 string `json:"url"`
	Platform            string `json:"platform"`
	ImageWanted         bool   `json:"image_wanted"`
	LinkedInAccessToken string `json:"linkedin_access_token"`
}

type humanFeedbackRequest struct {
	SessionID    string `json:"session_id"`
	ResponseType string `json:"response_type"`
	ResponseData any    `json:"response_data"`
}

// stepResponse is the wire form of a step: {type, data}, or {type: "error",
// message} inside a stream.
type stepResponse struct {
	Type    string `json:"type"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func toResponse(res session.StepResult) stepResponse {
	if res.Type == session.TypeInterrupt {
		return stepResponse{Type: res.Type, Data: res.Interrupt}
	}
	return stepResponse{Type: res.Type, Data: res.Completion}
}

func (s *Server) createPost(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	id, err := s.sessions.CreateSession(r.Context(), workflow.Input{
		Topic:       req.Topic,
		URL:         req.URL,
		Platform:    req.Platform,
		ImageWanted: req.ImageWanted,
		Credential:  req.LinkedInAccessToken,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"session_id": id,
		"message":    "Session created successfully",
	})
}

// stream advances the session and writes the outcome as one SSE frame. A
// session already waiting for review re-sends its pending interrupt, and a
// finished one re-sends its completion.
func (s *Server) stream(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	res, err := s.sessions.Advance(r.Context(), id)
	var invalid *graph.InvalidSessionStateError
	if errors.As(err, &invalid) {
		res, err = s.current(r, id)
	}
	if rejected(err) {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	frame := toResponse(res)
	if err != nil {
		s.logger.WarnContext(r.Context(), "stream failed", "session_id", id, "error", err)
		frame = stepResponse{Type: "error", Message: err.Error()}
	}
	data, _ := json.Marshal(frame)
	fmt.Fprintf(w, "data: %s\n\n", data)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// rejected reports errors that mean the stream never ran the session. They
// get a plain status code instead of an SSE error frame.
func rejected(err error) bool {
	var (
		notFound *graph.SessionNotFoundError
		busy     *graph.SessionBusyError
	)
	return errors.As(err, &notFound) || errors.As(err, &busy) || errors.Is(err, graph.ErrSessionExists)
}

func (s *Server) current(r *http.Request, id string) (session.StepResult, error) {
	st, err := s.sessions.GetStatus(r.Context(), id)
	if err != nil {
		return session.StepResult{}, err
	}
	switch {
	case st.Pending != nil:
		return session.StepResult{Type: session.TypeInterrupt, Interrupt: st.Pending}, nil
	case st.Completion != nil:
		return session.StepResult{Type: session.TypeCompletion, Completion: st.Completion}, nil
	}
	return session.StepResult{}, fmt.Errorf("session %s is %s", id, st.Status)
}

func (s *Server) humanFeedback(w http.ResponseWriter, r *http.Request) {
	var req humanFeedbackRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.SessionID == "" {
		s.writeError(w, r, &requestError{msg: "session_id is required"})
		return
	}

	value, err := interrupt.ParseTagged(req.ResponseType, req.ResponseData)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.sessions.Resume(r.Context(), req.SessionID, value)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(res))
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.sessions.Sessions(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"sessions": ids})
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	st, err := s.sessions.GetStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.sessions.DeleteSession(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	if s.history != nil {
		s.history.Clear(id)
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Session deleted successfully"})
}

func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Detail: "event history is disabled"})
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := s.sessions.GetStatus(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}

	q := r.URL.Query()
	filter := emit.HistoryFilter{NodeID: q.Get("node"), Msg: q.Get("msg")}
	if v := q.Get("since"); v != "" {
		step, err := strconv.Atoi(v)
		if err != nil {
			s.writeError(w, r, &requestError{msg: "since must be a step number"})
			return
		}
		filter.MinStep = &step
	}
	writeJSON(w, http.StatusOK, map[string][]emit.Event{"events": s.history.GetHistoryWithFilter(id, filter)})
}

func (s *Server) linkedInExchange(w http.ResponseWriter, r *http.Request) {
	if s.oauth == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Detail: "LinkedIn OAuth is not configured"})
		return
	}
	var req struct {
		Code string `json:"code"`
	}
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Code == "" {
		s.writeError(w, r, &requestError{msg: "code is required"})
		return
	}

	tok, err := s.oauth.Exchange(r.Context(), req.Code)
	if err != nil {
		s.logger.WarnContext(r.Context(), "linkedin exchange failed", "error", err)
		writeJSON(w, http.StatusBadGateway, errorBody{Detail: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, tok)
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &requestError{msg: "invalid request body: " + err.Error()}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
