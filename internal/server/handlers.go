package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/spigell/ai-interviewer/internal/features"
	"github.com/spigell/ai-interviewer/internal/interview"
	"github.com/spigell/ai-interviewer/internal/service"
)

const maxBodyBytes = 1 << 20

type sessionRequest struct {
	SessionID string `json:"session_id"`
}

type messageRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type codeRequest struct {
	SessionID string `json:"session_id"`
	Code      string `json:"code"`
}

type messageResponse struct {
	Response string `json:"response"`
	*service.MessageResult
}

func (s *Server) root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "AI Interviewer API",
		"version": s.version,
		"status":  "running",
	})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": s.now().UTC(),
		"features":  features.Describe(s.features),
	})
}

func (s *Server) initSession(w http.ResponseWriter, r *http.Request) {
	var req service.InitRequest
	if !s.decode(w, r, &req) {
		return
	}

	res, err := s.interviews.Init(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		*service.InitResult
		Status string `json:"status"`
	}{InitResult: res, Status: "initialized"})
}

func (s *Server) startInterview(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if id := r.URL.Query().Get("session_id"); id != "" {
		req.SessionID = id
	} else if !s.decode(w, r, &req) {
		return
	}

	started, err := s.interviews.Start(r.Context(), req.SessionID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, started)
}

func (s *Server) message(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if !s.decode(w, r, &req) {
		return
	}

	result, err := s.interviews.Message(r.Context(), req.SessionID, req.Message)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Response: result.QuestionText, MessageResult: result})
}

func (s *Server) submitCode(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if !s.decode(w, r, &req) {
		return
	}

	evaluation, err := s.interviews.SubmitCode(r.Context(), req.SessionID, req.Code)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "evaluated",
		"score":      evaluation.Score,
		"feedback":   evaluation.Summary,
		"evaluation": evaluation,
	})
}

func (s *Server) endInterview(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if !s.decode(w, r, &req) {
		return
	}

	result, err := s.interviews.End(r.Context(), req.SessionID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Status string `json:"status"`
		*service.EndResult
	}{Status: "completed", EndResult: result})
}

func (s *Server) transcript(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	snapshot, entries, err := s.interviews.Transcript(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session":    snapshot,
		"transcript": entries,
	})
}

func (s *Server) sessions(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.interviews.Sessions(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"sessions": summaries})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(target); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, interview.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, interview.ErrNotStarted),
		errors.Is(err, interview.ErrAlreadyStarted),
		errors.Is(err, interview.ErrEnded):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrNoCodingQuestion):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
