package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"trade-tracker-go/internal/models"

	"go.uber.org/zap"
)

// APIServer exposes a read-only HTTP view of the tracker: the active
// profile, the trade stage and the history size. Handlers run off the loop,
// so every read round-trips through Invoke.
type APIServer struct {
	server    *http.Server
	logger    *zap.Logger
	invoke    func(func())
	machine   *Machine
	history   *History
	profile   func() *models.ProfileIdentity
	startTime time.Time

	// Use24HourTime renders the last trade's age with a 24-hour clock.
	Use24HourTime bool

	// ExportHistory and ImportHistory, when set, expose the history file
	// escape hatch over HTTP. Both may block; handlers run off the loop.
	ExportHistory func(path string) error
	ImportHistory func(path string) error
}

// NewAPIServer creates a status server on the given port.
func NewAPIServer(port int, logger *zap.Logger, invoke func(func()), machine *Machine, history *History, profile func() *models.ProfileIdentity) *APIServer {
	return &APIServer{
		server:    &http.Server{Addr: fmt.Sprintf(":%d", port)},
		logger:    logger.Named("api-server"),
		invoke:    invoke,
		machine:   machine,
		history:   history,
		profile:   profile,
		startTime: time.Now(),
	}
}

// Start runs the HTTP server in a new goroutine.
func (s *APIServer) Start() {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.statusHandler)
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/export", s.fileHandler(s.ExportHistory))
	mux.HandleFunc("/import", s.fileHandler(s.ImportHistory))
	s.server.Handler = mux

	s.logger.Info("Starting API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Error("API server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *APIServer) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")
	return s.server.Shutdown(ctx)
}

type statusResponse struct {
	Profile       string `json:"profile,omitempty"`
	ProfileKey    string `json:"profile_key,omitempty"`
	TradeState    string `json:"trade_state"`
	HistorySize   int    `json:"history_size"`
	LastTradeTime string `json:"last_trade_time,omitempty"`
	LastTradeAge  string `json:"last_trade_age,omitempty"`
	Uptime        string `json:"uptime"`
}

func (s *APIServer) statusHandler(w http.ResponseWriter, r *http.Request) {
	collected := make(chan statusResponse, 1)
	s.invoke(func() {
		status := statusResponse{
			TradeState:  s.machine.State().String(),
			HistorySize: s.history.Size(),
			Uptime:      time.Since(s.startTime).String(),
		}
		if profile := s.profile(); profile != nil {
			status.Profile = profile.DisplayName
			status.ProfileKey = profile.Key()
		}
		if records := s.history.Records(); len(records) > 0 {
			last := records[len(records)-1].Time
			status.LastTradeTime = FormatTimestamp(last)
			status.LastTradeAge = RelativeTimestamp(last, s.Use24HourTime, time.Now())
		}
		collected <- status
	})

	select {
	case status := <-collected:
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(status); err != nil {
			s.logger.Error("Failed to write status response", zap.Error(err))
			http.Error(w, "Failed to encode status", http.StatusInternalServerError)
		}
	case <-time.After(5 * time.Second):
		http.Error(w, "tracker loop unresponsive", http.StatusServiceUnavailable)
	}
}

func (s *APIServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

// fileHandler serves the export and import endpoints. The target file is
// named by the "path" query parameter and resolved on the tracker host.
func (s *APIServer) fileHandler(op func(path string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if op == nil {
			http.Error(w, "not supported", http.StatusNotFound)
			return
		}
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		path := r.URL.Query().Get("path")
		if path == "" {
			http.Error(w, "missing path parameter", http.StatusBadRequest)
			return
		}
		if err := op(path); err != nil {
			s.logger.Error("History file operation failed", zap.String("path", path), zap.Error(err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "OK")
	}
}
