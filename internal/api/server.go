package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"factorize/internal/collector"
	"factorize/internal/events"
	"factorize/internal/factor"
	"factorize/internal/logger"
	"factorize/internal/pipeline"
)

const (
	logTag = "api"

	// maxBodyBytes bounds the input accepted by /api/factorize.
	maxBodyBytes = 16 << 20

	// Upper bounds for ?workers= and ?queue=.
	maxWorkers       = 256
	maxQueueCapacity = 1 << 16
)

// Server exposes the pipeline over HTTP and streams run events over a websocket.
type Server struct {
	addr    string
	config  pipeline.Config
	bus     *events.Bus
	maxBody int64

	mu        sync.RWMutex
	active    int
	totalRuns int
	last      *pipeline.Report
	wsClients map[*websocket.Conn]bool

	server *http.Server
}

// NewServer creates a server whose runs start from config.
func NewServer(addr string, config pipeline.Config) *Server {
	return &Server{
		addr:      addr,
		config:    config,
		bus:       events.NewBus(),
		maxBody:   maxBodyBytes,
		wsClients: make(map[*websocket.Conn]bool),
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/factorize", s.handleFactorize)
	mux.HandleFunc("/api/runs/last", s.handleLastRun)
	mux.HandleFunc("/api/methods", s.handleMethods)

	mux.Handle("/ws", websocket.Handler(s.handleWebSocket))

	return mux
}

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info(logTag, "API Server starting on http://%s", s.addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
		// hijacked websocket connections are not tracked by Shutdown
		s.bus.Close()
	}()

	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// EventBus returns the bus every run publishes to.
func (s *Server) EventBus() *events.Bus {
	return s.bus
}

// StatusResponse is returned by /api/status.
type StatusResponse struct {
	ActiveRuns    int    `json:"active_runs"`
	TotalRuns     int    `json:"total_runs"`
	LastRunID     string `json:"last_run_id,omitempty"`
	Workers       int    `json:"workers"`
	QueueCapacity int    `json:"queue_capacity"`
	Method        string `json:"method"`
	Subscribers   int    `json:"subscribers"`
}

func (s *Server) status() StatusResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()

	resp := StatusResponse{
		ActiveRuns:    s.active,
		TotalRuns:     s.totalRuns,
		Workers:       s.config.Workers,
		QueueCapacity: s.config.QueueCapacity,
		Method:        s.config.Method,
		Subscribers:   len(s.wsClients),
	}
	if s.last != nil {
		resp.LastRunID = s.last.RunID
	}
	return resp
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, s.status())
}

// requestConfig applies ?workers=, ?queue=, ?method= and ?format= to the server defaults.
func (s *Server) requestConfig(r *http.Request) (pipeline.Config, error) {
	config := s.config
	q := r.URL.Query()

	if v := q.Get("workers"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return config, fmt.Errorf("invalid workers: %w", err)
		}
		if n > maxWorkers {
			return config, fmt.Errorf("workers must be <= %d, got %d", maxWorkers, n)
		}
		config.Workers = n
	}
	if v := q.Get("queue"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return config, fmt.Errorf("invalid queue: %w", err)
		}
		if n > maxQueueCapacity {
			return config, fmt.Errorf("queue must be <= %d, got %d", maxQueueCapacity, n)
		}
		config.QueueCapacity = n
	}
	if v := q.Get("method"); v != "" {
		config.Method = v
	}
	if v := q.Get("format"); v != "" {
		format, err := collector.ParseFormat(v)
		if err != nil {
			return config, err
		}
		config.Format = format
	}

	return config, config.Validate()
}

func contentType(format collector.Format) string {
	switch format {
	case collector.FormatJSON:
		return "application/x-ndjson"
	case collector.FormatYAML:
		return "application/yaml"
	default:
		return "text/plain; charset=utf-8"
	}
}

func (s *Server) handleFactorize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	config, err := s.requestConfig(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.active++
	s.mu.Unlock()

	p := pipeline.New(config)
	p.SetEventBus(s.bus)

	var out bytes.Buffer
	report, err := p.Run(http.MaxBytesReader(w, r.Body, s.maxBody), &out)

	s.mu.Lock()
	s.active--
	s.totalRuns++
	if report != nil {
		s.last = report
	}
	s.mu.Unlock()

	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit), http.StatusRequestEntityTooLarge)
			return
		}
		logger.Error(logTag, "run failed: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType(config.Format))
	w.Header().Set("X-Run-Id", report.RunID)
	w.Header().Set("X-Truncated", strconv.FormatBool(report.Truncated))
	_, _ = w.Write(out.Bytes())
}

func (s *Server) handleLastRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.RLock()
	last := s.last
	s.mu.RUnlock()

	if last == nil {
		http.Error(w, "No runs yet", http.StatusNotFound)
		return
	}
	s.writeJSON(w, last)
}

// MethodsResponse lists what a run can be configured with.
type MethodsResponse struct {
	Methods []string `json:"methods"`
	Formats []string `json:"formats"`
}

func (s *Server) handleMethods(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, MethodsResponse{
		Methods: factor.Methods(),
		Formats: collector.Formats(),
	})
}

// eventFilter builds the subscription filter of a websocket client from
// ?run=<id> and ?type=<event type>, the latter repeatable or comma separated.
func eventFilter(q url.Values) (events.Filter, error) {
	f := events.Filter{RunID: q.Get("run")}
	for _, v := range q["type"] {
		for name := range strings.SplitSeq(v, ",") {
			if name = strings.TrimSpace(name); name == "" {
				continue
			}
			et, err := events.ParseEventType(name)
			if err != nil {
				return f, err
			}
			f.Types = append(f.Types, et)
		}
	}
	return f, nil
}

// handleWebSocket streams the events matching the client's filter until
// either side goes away.
func (s *Server) handleWebSocket(ws *websocket.Conn) {
	defer func() { _ = ws.Close() }()

	filter, err := eventFilter(ws.Request().URL.Query())
	if err != nil {
		logger.Debug(logTag, "rejecting websocket client: %v", err)
		return
	}

	ch := s.bus.SubscribeFilter(filter, 0)
	s.mu.Lock()
	s.wsClients[ws] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.wsClients, ws)
		s.mu.Unlock()
		s.bus.Unsubscribe(ch)
	}()

	// clients only send to keep the connection open; a read error means
	// they are gone
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			var msg string
			if err := websocket.Message.Receive(ws, &msg); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := websocket.JSON.Send(ws, ev); err != nil {
				logger.Debug(logTag, "websocket send failed: %v", err)
				return
			}
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error(logTag, "Failed to encode JSON: %v", err)
	}
}
