// Package bridge receives page state from a browser userscript over a
// websocket and serves it to the observer as a host surface.
package bridge

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/llehouerou/scrobblewatch/internal/observer"
)

// Verify Server implements the observer capabilities at compile time.
var (
	_ observer.Provider         = (*Server)(nil)
	_ observer.SignalProvider   = (*Server)(nil)
	_ observer.ProgressProvider = (*Server)(nil)
)

// ErrNoState is returned by Signal and Progress when nothing fresh has
// been received.
var ErrNoState = errors.New("no page state")

const maxFrameSize = 64 << 10

// Frame is one page-state message from the userscript. Times are seconds.
type Frame struct {
	PageTitle   string  `json:"pageTitle"`
	Title       string  `json:"title"`
	Artist      string  `json:"artist"`
	Album       string  `json:"album"`
	Duration    float64 `json:"duration"`
	CurrentTime float64 `json:"currentTime"`
	IsPlaying   bool    `json:"isPlaying"`
	TrackArt    string  `json:"trackArt"`
}

// Server is a websocket endpoint holding the latest page state.
type Server struct {
	staleAfter time.Duration
	log        *slog.Logger
	now        func() time.Time
	upgrader   websocket.Upgrader

	mu         sync.RWMutex
	latest     *Frame
	receivedAt time.Time
	owner      string // connection that sent latest

	srv      *http.Server
	listener net.Listener
}

// New creates a bridge. State older than staleAfter is treated as nothing
// playing. A nil logger discards.
func New(staleAfter time.Duration, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		staleAfter: staleAfter,
		log:        logger,
		now:        time.Now,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 1024,
			// The userscript runs on the player's origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handler serves /ws and /healthz.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

// Start listens on addr and serves in the background.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("bridge server stopped", "err", err)
		}
	}()
	s.log.Info("bridge listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the listen address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown stops the listener. Open websockets are hijacked connections
// and close with the process.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxFrameSize)

	id := uuid.NewString()
	log := s.log.With("conn", id)
	log.Info("bridge connected", "remote", r.RemoteAddr)

	for {
		var f Frame
		if err := conn.ReadJSON(&f); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("bridge read failed", "err", err)
			}
			break
		}
		s.store(id, f)
	}

	s.clear(id)
	log.Info("bridge disconnected")
}

func (s *Server) store(id string, f Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = &f
	s.receivedAt = s.now()
	s.owner = id
}

// clear drops the state if id sent it.
func (s *Server) clear(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.owner == id {
		s.latest = nil
		s.owner = ""
	}
}

// fresh returns the latest frame and its age, or nil when stale.
func (s *Server) fresh() (*Frame, time.Duration) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return nil, 0
	}
	age := s.now().Sub(s.receivedAt)
	if s.staleAfter > 0 && age > s.staleAfter {
		return nil, 0
	}
	f := *s.latest
	return &f, age
}

// Observe returns the latest page state. An empty title observes nothing.
func (s *Server) Observe() (*observer.Observation, error) {
	f, age := s.fresh()
	if f == nil || f.Title == "" {
		return nil, nil
	}
	return &observer.Observation{
		Title:      f.Title,
		Artist:     f.Artist,
		Album:      f.Album,
		Duration:   seconds(f.Duration),
		Position:   position(f, age),
		Playing:    f.IsPlaying,
		ArtworkURL: f.TrackArt,
	}, nil
}

// Signal returns the page title, which players update on every track.
func (s *Server) Signal() (string, error) {
	f, _ := s.fresh()
	if f == nil {
		return "", ErrNoState
	}
	return f.PageTitle, nil
}

// Progress returns the position extrapolated from the last frame.
func (s *Server) Progress() (observer.Progress, error) {
	f, age := s.fresh()
	if f == nil {
		return observer.Progress{}, ErrNoState
	}
	return observer.Progress{Position: position(f, age), Playing: f.IsPlaying}, nil
}

// position advances a playing frame by its age, capped at the duration.
func position(f *Frame, age time.Duration) time.Duration {
	pos := seconds(f.CurrentTime)
	if !f.IsPlaying {
		return pos
	}
	pos += age
	if d := seconds(f.Duration); d > 0 && pos > d {
		pos = d
	}
	return pos
}

// maxFrameTime bounds frame times so a bogus value cannot overflow a Duration.
const maxFrameTime = 24 * time.Hour

func seconds(s float64) time.Duration {
	if s <= 0 || math.IsNaN(s) {
		return 0
	}
	if s >= maxFrameTime.Seconds() {
		return maxFrameTime
	}
	return time.Duration(s * float64(time.Second))
}
