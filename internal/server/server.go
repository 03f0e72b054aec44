// Package server exposes the annotation service over HTTP: session
// lifecycle endpoints, annotation write-back, image assets and the help
// pages.
package server

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/imprint-ph/imprint-annotator/annotation"
	"github.com/imprint-ph/imprint-annotator/internal/config"
	"github.com/imprint-ph/imprint-annotator/internal/domain"
	"github.com/imprint-ph/imprint-annotator/internal/session"
)

type Server struct {
	manager *session.Manager
	auth    Authenticator
	cfg     *config.Config
	vocab   annotation.Vocabulary
	logger  *zap.SugaredLogger
}

// New wires the HTTP surface over a store. A vocabulary override in the
// config replaces the built-in obstruction options wholesale.
func New(store domain.Store, auth Authenticator, cfg *config.Config, logger *zap.SugaredLogger) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	vocab := annotation.DefaultVocabulary
	if len(cfg.Vocabulary) > 0 {
		vocab = make(annotation.Vocabulary, len(cfg.Vocabulary))
		for i, opt := range cfg.Vocabulary {
			vocab[i] = annotation.Option{Value: opt.Value, Label: opt.Label}
		}
	}
	return &Server{
		manager: session.NewManager(store, logger),
		auth:    auth,
		cfg:     cfg,
		vocab:   vocab,
		logger:  logger,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /session/fetch", s.handleFetch)
	mux.HandleFunc("POST /session/progress", s.handleProgress)
	mux.HandleFunc("POST /session/finalize", s.handleFinalize)
	mux.HandleFunc("POST /session/abandon", s.handleAbandon)
	mux.HandleFunc("POST /annotation/submit", s.handleSubmit)
	mux.HandleFunc("GET /asset/{file}", s.handleAsset)
	mux.HandleFunc("GET /help", s.handleHelp)
	mux.HandleFunc("GET /{$}", s.handleHome)

	var handler http.Handler = mux
	handler = s.requestLogger(handler)
	return handler
}

func (s *Server) requestLogger(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		initialTime := time.Now()
		wr := newStatusRecorder(w)
		handler.ServeHTTP(wr, r)
		s.logger.Infow("http",
			"status", wr.Status,
			"method", r.Method,
			"path", r.URL.String(),
			"duration_ms", time.Since(initialTime).Milliseconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	Status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.Status = status
	r.ResponseWriter.WriteHeader(status)
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w, Status: http.StatusOK}
}
