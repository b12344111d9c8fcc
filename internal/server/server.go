// Package server exposes interview sessions over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/spigell/ai-interviewer/internal/agent"
	"github.com/spigell/ai-interviewer/internal/features"
	"github.com/spigell/ai-interviewer/internal/interview"
	"github.com/spigell/ai-interviewer/internal/service"
)

const defaultAddr = ":8000"

// Interviews is the part of service.Service the HTTP layer uses.
type Interviews interface {
	Init(ctx context.Context, req service.InitRequest) (*service.InitResult, error)
	Start(ctx context.Context, sessionID string) (*service.StartResult, error)
	Message(ctx context.Context, sessionID, answer string) (*service.MessageResult, error)
	SubmitCode(ctx context.Context, sessionID, code string) (*agent.Evaluation, error)
	End(ctx context.Context, sessionID string) (*service.EndResult, error)
	Transcript(ctx context.Context, sessionID string) (interview.Snapshot, []interview.Entry, error)
	Sessions(ctx context.Context) ([]service.SessionSummary, error)
}

type Config struct {
	Addr string `mapstructure:"addr"`
}

type Server struct {
	interviews Interviews
	features   features.Set
	version    string
	logger     *zap.Logger
	now        func() time.Time
}

func New(interviews Interviews, set features.Set, version string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		interviews: interviews,
		features:   set,
		version:    version,
		logger:     logger,
		now:        time.Now,
	}
}

// Router creates the router with all endpoints.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/", s.root).Methods(http.MethodGet)
	r.HandleFunc("/health", s.health).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.logRequests)

	api.HandleFunc("/sessions", s.sessions).Methods(http.MethodGet)
	api.HandleFunc("/session/init", s.initSession).Methods(http.MethodPost)
	api.HandleFunc("/interview/start", s.startInterview).Methods(http.MethodPost)
	api.HandleFunc("/interview/message", s.message).Methods(http.MethodPost)
	api.HandleFunc("/interview/code/submit", s.submitCode).Methods(http.MethodPost)
	api.HandleFunc("/interview/end", s.endInterview).Methods(http.MethodPost)
	api.HandleFunc("/interview/{id}/transcript", s.transcript).Methods(http.MethodGet)

	return r
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, cfg Config) error {
	addr := cfg.Addr
	if addr == "" {
		addr = defaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := s.now()
		next.ServeHTTP(w, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", s.now().Sub(started)),
		)
	})
}
