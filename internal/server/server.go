// Package server provides HTTP and WebSocket handlers
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	apperrors "github.com/screensub/platform/internal/errors"
	"github.com/screensub/platform/internal/pipeline"
	"github.com/screensub/platform/internal/profile"
	"github.com/screensub/platform/internal/region"
)

// Message types.
type Message struct {
	Type string `json:"type"`
}

type ControlMessage struct {
	Type   string       `json:"type"`
	Region *region.Rect `json:"region,omitempty"`
	Source string       `json:"source,omitempty"`
	Target string       `json:"target,omitempty"`
}

type SubtitleMessage struct {
	Type string `json:"type"`
	pipeline.Subtitle
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

type StatusMessage struct {
	Type    string `json:"type"`
	Running bool   `json:"running"`
	AreaID  string `json:"area_id,omitempty"`
	Source  string `json:"source"`
	Target  string `json:"target"`
}

// Runner controls the capture schedule.
type Runner interface {
	Start(interval time.Duration, r region.Rect, profileID string)
	Stop()
	IsRunning() bool
}

// Feed is the pipeline surface the server consumes.
type Feed interface {
	Subtitles() <-chan pipeline.Subtitle
	Latest() pipeline.Subtitle
	SetLanguages(source, target string)
	Languages() pipeline.LanguagePair
	ResetFrameState()
}

// rateLimiter tracks message timestamps using a sliding window.
type rateLimiter struct {
	timestamps []time.Time
	mu         sync.Mutex
}

// allow checks if a message is allowed and records the timestamp if so.
func (r *rateLimiter) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-RateLimitWindow)

	valid := r.timestamps[:0]
	for _, t := range r.timestamps {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	r.timestamps = valid

	if len(r.timestamps) >= RateLimitMessages {
		return false
	}

	r.timestamps = append(r.timestamps, now)
	return true
}

// Server handles HTTP and WebSocket connections.
type Server struct {
	runner   Runner
	feed     Feed
	profiles *profile.Store
	interval time.Duration

	mu         sync.RWMutex
	conns      map[*websocket.Conn]struct{}
	rateLimits map[*websocket.Conn]*rateLimiter
	current    region.Rect
	hasRegion  bool

	errorCh chan ErrorMessage
}

// New creates a server and starts the event broadcasters.
func New(runner Runner, feed Feed, profiles *profile.Store, interval time.Duration) *Server {
	s := &Server{
		runner:     runner,
		feed:       feed,
		profiles:   profiles,
		interval:   interval,
		conns:      make(map[*websocket.Conn]struct{}),
		rateLimits: make(map[*websocket.Conn]*rateLimiter),
		errorCh:    make(chan ErrorMessage, ErrorChannelBuffer),
	}

	go s.broadcastSubtitles()
	go s.broadcastErrors()

	return s
}

// NotifyError publishes a stage failure to connected clients. Safe to call
// from pipeline and scheduler callbacks.
func (s *Server) NotifyError(stage apperrors.Stage, err error) {
	msg := ErrorMessage{Type: "error", Stage: string(stage), Message: err.Error()}
	select {
	case s.errorCh <- msg:
	default:
		slog.Debug("error channel full, dropping event")
	}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// WebSocket endpoint
	mux.HandleFunc("/ws", s.handleWebSocket)

	// REST API
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/subtitle", s.handleSubtitle)
	mux.HandleFunc("GET /api/profiles", s.handleProfiles)
	mux.HandleFunc("POST /api/capture/start", s.handleCaptureStart)
	mux.HandleFunc("POST /api/capture/stop", s.handleCaptureStop)

	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.rateLimits[conn] = &rateLimiter{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		delete(s.rateLimits, conn)
		s.mu.Unlock()
	}()

	ctx := r.Context()
	slog.Info("websocket connected", "remote", r.RemoteAddr)

	// New clients get the current state up front.
	_ = wsjson.Write(ctx, conn, s.status())

	for {
		var raw json.RawMessage
		if err := wsjson.Read(ctx, conn, &raw); err != nil {
			slog.Debug("websocket read error", "error", err)
			return
		}

		s.mu.RLock()
		rl := s.rateLimits[conn]
		s.mu.RUnlock()

		if !rl.allow() {
			slog.Warn("rate limit exceeded", "remote", r.RemoteAddr)
			_ = wsjson.Write(ctx, conn, ErrorMessage{
				Type:    "error",
				Stage:   "server",
				Message: "rate limit exceeded",
			})
			continue
		}

		var msg ControlMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		s.handleControl(ctx, conn, msg)
	}
}

func (s *Server) handleControl(ctx context.Context, conn *websocket.Conn, msg ControlMessage) {
	switch msg.Type {
	case "start":
		if msg.Region == nil || msg.Region.Empty() {
			_ = wsjson.Write(ctx, conn, ErrorMessage{Type: "error", Stage: "server", Message: "start requires a non-empty region"})
			return
		}
		s.startCapture(*msg.Region)

	case "stop":
		s.runner.Stop()

	case "set_region":
		if msg.Region == nil || msg.Region.Empty() {
			_ = wsjson.Write(ctx, conn, ErrorMessage{Type: "error", Stage: "server", Message: "set_region requires a non-empty region"})
			return
		}
		s.setRegion(*msg.Region)

	case "set_languages":
		if msg.Source != "" && msg.Target != "" {
			s.feed.SetLanguages(msg.Source, msg.Target)
		}

	default:
		slog.Debug("unknown control message", "type", msg.Type)
		return
	}

	_ = wsjson.Write(ctx, conn, s.status())
}

// startCapture records the region and (re)starts the schedule on it.
func (s *Server) startCapture(r region.Rect) {
	s.mu.Lock()
	s.current = r
	s.hasRegion = true
	s.mu.Unlock()

	s.feed.ResetFrameState()
	s.runner.Start(s.interval, r, r.AreaID())
}

// setRegion updates the region. A running schedule restarts on the new
// region; an idle one just remembers it for the next start.
func (s *Server) setRegion(r region.Rect) {
	s.mu.Lock()
	s.current = r
	s.hasRegion = true
	running := s.runner.IsRunning()
	s.mu.Unlock()

	if running {
		s.feed.ResetFrameState()
		s.runner.Start(s.interval, r, r.AreaID())
	}
}

func (s *Server) status() StatusMessage {
	s.mu.RLock()
	current := s.current
	hasRegion := s.hasRegion
	s.mu.RUnlock()

	langs := s.feed.Languages()
	msg := StatusMessage{
		Type:    "status",
		Running: s.runner.IsRunning(),
		Source:  langs.Source,
		Target:  langs.Target,
	}
	if hasRegion {
		msg.AreaID = current.AreaID()
	}
	return msg
}

func (s *Server) broadcastSubtitles() {
	for sub := range s.feed.Subtitles() {
		s.broadcast(SubtitleMessage{Type: "subtitle", Subtitle: sub})
	}
}

func (s *Server) broadcastErrors() {
	for msg := range s.errorCh {
		s.broadcast(msg)
	}
}

func (s *Server) broadcast(msg any) {
	s.mu.RLock()
	for conn := range s.conns {
		go func(c *websocket.Conn) {
			_ = wsjson.Write(context.Background(), c, msg)
		}(conn)
	}
	s.mu.RUnlock()
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.status())
}

func (s *Server) handleSubtitle(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.feed.Latest())
}

func (s *Server) handleProfiles(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.profiles.All())
}

func (s *Server) handleCaptureStart(w http.ResponseWriter, r *http.Request) {
	var rect region.Rect
	if err := json.NewDecoder(r.Body).Decode(&rect); err != nil || rect.Empty() {
		http.Error(w, "non-empty region required", http.StatusBadRequest)
		return
	}
	s.startCapture(rect)
	writeJSON(w, s.status())
}

func (s *Server) handleCaptureStop(w http.ResponseWriter, _ *http.Request) {
	s.runner.Stop()
	writeJSON(w, s.status())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
