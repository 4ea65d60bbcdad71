package network

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/rchasman/dominion-maker-sub001/consensus"
	"github.com/rchasman/dominion-maker-sub001/move"
)

const maxRequestBytes = 1 << 20

// Server answers proposal requests with a local proposer.
type Server struct {
	proposer    consensus.Proposer
	certificate *tls.Certificate
	readTimeout time.Duration
	log         *slog.Logger
	srv         *http.Server
}

type ServerOption func(*Server)

// WithCertificate serves over TLS with cert.
func WithCertificate(cert tls.Certificate) ServerOption {
	return func(s *Server) { s.certificate = &cert }
}

// WithReadTimeout bounds how long reading a request may take.
func WithReadTimeout(d time.Duration) ServerOption {
	return func(s *Server) { s.readTimeout = d }
}

// WithLogger sets the logger. Requests are logged at debug level.
func WithLogger(log *slog.Logger) ServerOption {
	return func(s *Server) { s.log = log }
}

// NewServer returns a server for p. It does not listen until Start.
func NewServer(p consensus.Proposer, opts ...ServerOption) *Server {
	s := &Server{
		proposer:    p,
		readTimeout: 10 * time.Second,
		log:         slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /propose", s.propose)
	mux.HandleFunc("GET /healthz", s.health)
	s.srv = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: s.readTimeout,
		ReadTimeout:       s.readTimeout,
	}
	if s.certificate != nil {
		s.srv.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{*s.certificate},
			MinVersion:   tls.VersionTLS12,
		}
	}
	return s
}

// TLS reports whether the server uses a certificate.
func (s *Server) TLS() bool { return s.certificate != nil }

// Handler exposes the routes, mainly for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Start serves on l until Close. It blocks and returns nil after a clean
// shutdown.
func (s *Server) Start(l net.Listener) error {
	s.log.Info("proposer listening", "id", s.proposer.ID(), "address", l.Addr().String(), "tls", s.TLS())
	var err error
	if s.certificate != nil {
		err = s.srv.ServeTLS(l, "", "")
	} else {
		err = s.srv.Serve(l)
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Close stops accepting requests and waits for running ones until ctx is done.
func (s *Server) Close(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

type errorBody struct {
	Error string `json:"error"`
}

type healthBody struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) propose(w http.ResponseWriter, r *http.Request) {
	var req consensus.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request: " + err.Error()})
		return
	}
	start := time.Now()
	a, err := s.proposer.Propose(r.Context(), req)
	if err == nil && a.Move == nil {
		err = errors.New("proposer returned no move")
	}
	if err != nil {
		s.log.Debug("proposal failed", "round", req.RoundID, "error", err)
		writeJSON(w, http.StatusBadGateway, errorBody{Error: err.Error()})
		return
	}
	s.log.Debug("proposal served", "round", req.RoundID, "move", move.Describe(a.Move), "took", time.Since(start))
	writeJSON(w, http.StatusOK, move.ToWire(a))
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthBody{ID: s.proposer.ID(), Status: "ok"})
}
