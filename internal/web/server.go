// Package web exposes the manual DCA trigger endpoint together with
// health and metrics endpoints. The scheduler never goes through this
// server; it invokes the runner directly.
package web

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/jvdwalt/dcabot/internal/domain"
)

const triggerSecretHeader = "X-Trigger-Secret"

type runner interface {
	Run(ctx context.Context) ([]domain.RunOutcome, error)
	RunForced(ctx context.Context) ([]domain.RunOutcome, error)
}

// Server serves the manual trigger. A request must carry the shared
// secret; ?force=true bypasses the execution-hour gate while the
// idempotency guard still applies.
type Server struct {
	Addr   string
	Runner runner
	// Secret guards the trigger endpoint. Empty disables the endpoint
	// entirely rather than leaving it open.
	Secret string
	Logger *zap.Logger
}

func NewServer(addr string, runner runner, secret string, logger *zap.Logger) *Server {
	return &Server{Addr: addr, Runner: runner, Secret: secret, Logger: logger}
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is
// cancelled.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/dca/run", s.handleRun)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              s.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type runResponse struct {
	Success  bool             `json:"success"`
	Error    string           `json:"error,omitempty"`
	Outcomes []outcomePayload `json:"outcomes,omitempty"`
}

type outcomePayload struct {
	Currency string `json:"currency"`
	Pair     string `json:"pair"`
	Outcome  string `json:"outcome"`
	OrderID  string `json:"orderId,omitempty"`
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !s.authorized(r) {
		s.Logger.Warn("rejected manual trigger", zap.String("remote", r.RemoteAddr))
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	force := r.URL.Query().Get("force") == "true"
	s.Logger.Info("manual trigger", zap.Bool("force", force), zap.String("remote", r.RemoteAddr))

	var (
		outcomes []domain.RunOutcome
		err      error
	)
	if force {
		outcomes, err = s.Runner.RunForced(r.Context())
	} else {
		outcomes, err = s.Runner.Run(r.Context())
	}

	resp := runResponse{Success: err == nil}
	if err != nil {
		resp.Error = err.Error()
	}
	for _, o := range outcomes {
		resp.Outcomes = append(resp.Outcomes, outcomePayload{
			Currency: o.Currency,
			Pair:     o.Pair.Symbol(),
			Outcome:  o.Outcome.String(),
			OrderID:  o.OrderID,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// authorized compares the shared secret in constant time. Hashing both
// sides first keeps hmac.Equal length-independent.
func (s *Server) authorized(r *http.Request) bool {
	if s.Secret == "" {
		return false
	}
	got := sha256.Sum256([]byte(r.Header.Get(triggerSecretHeader)))
	want := sha256.Sum256([]byte(s.Secret))
	return hmac.Equal(got[:], want[:])
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
