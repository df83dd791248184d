// Package monitorapi implements a read-only HTTP status surface for a
// running trial (SPEC_FULL.md §2): a point-in-time snapshot endpoint,
// a tail over a trial's CSV report output, and a websocket endpoint
// streaming one TraceUpdate per completed step. It is a status channel,
// not a visualization surface — no rendering, no interactivity beyond
// reading JSON off the wire — grounded on the teacher's internal/api
// Server (route registration, JSON envelope, Start/Shutdown shape) and
// internal/collab's websocket Hub (register/unregister/broadcast loop,
// ping/pong keepalive).
package monitorapi

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"tumorsim/internal/trial"
	"tumorsim/internal/tumor"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	traceBuffer    = 32
	tailLineLimit  = 200
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// TraceUpdate is the JSON payload broadcast to every connected
// /ws/trace client once per completed step.
type TraceUpdate struct {
	TimeStep       int64 `json:"timeStep"`
	TotalCellCount int   `json:"totalCellCount"`
	ComponentCount int   `json:"componentCount"`
}

// Server is a read-only HTTP status server for one trial.
type Server struct {
	tm        *tumor.Tumor
	reportDir string

	httpSrv *http.Server
	router  *mux.Router

	mu      sync.RWMutex
	clients map[*traceClient]bool
	trace   chan TraceUpdate

	stopOnce sync.Once
	done     chan struct{}
}

type traceClient struct {
	conn *websocket.Conn
	send chan TraceUpdate
}

// New builds a monitor server bound to tm, serving report tails out of
// reportDir. Start must be called to actually listen.
func New(tm *tumor.Tumor, reportDir string) *Server {
	s := &Server{
		tm:        tm,
		reportDir: reportDir,
		clients:   make(map[*traceClient]bool),
		trace:     make(chan TraceUpdate, traceBuffer),
		done:      make(chan struct{}),
	}
	s.router = mux.NewRouter()
	s.router.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	s.router.HandleFunc("/reports/{kind}", s.handleReportTail).Methods(http.MethodGet)
	s.router.HandleFunc("/ws/trace", s.handleTrace)
	return s
}

// Start begins listening on an OS-assigned loopback port and runs the
// broadcast loop in the background. It never blocks.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return err
	}
	s.httpSrv = &http.Server{Handler: s.router}
	go s.broadcastLoop()
	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Printf("monitorapi: server stopped: %v", err)
		}
	}()
	log.Printf("monitorapi: listening on %s", ln.Addr())
	return nil
}

// Stop shuts the server down and stops the broadcast loop. Safe to
// call more than once.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		if s.httpSrv != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			s.httpSrv.Shutdown(ctx)
		}
	})
}

// Publish enqueues a fresh TraceUpdate for broadcast to every connected
// websocket client. A trial's step loop is not required to call this —
// the monitor's absence or silence never changes step semantics.
func (s *Server) Publish(u TraceUpdate) {
	select {
	case s.trace <- u:
	default:
		// drop the update rather than block the caller; clients will
		// catch up on the next step
	}
}

// Hook returns a trial.Hook that publishes a TraceUpdate after every
// step. Attaching it is optional: a trial runs identically whether or
// not anything is listening on /ws/trace.
func (s *Server) Hook() trial.Hook { return publishHook{s} }

type publishHook struct{ s *Server }

func (h publishHook) InitializeSimulation(*tumor.Tumor) error     { return nil }
func (h publishHook) InitializeTrial(*tumor.Tumor, int) error      { return nil }
func (h publishHook) FinalizeTrial(*tumor.Tumor, int) error        { return nil }
func (h publishHook) FinalizeSimulation(*tumor.Tumor) error        { return nil }

func (h publishHook) ProcessStep(tm *tumor.Tumor, trialIndex int) error {
	h.s.Publish(TraceUpdate{
		TimeStep:       tm.TimeStep(),
		TotalCellCount: tm.TotalCellCount(),
		ComponentCount: tm.ComponentCount(),
	})
	return nil
}

func (s *Server) broadcastLoop() {
	for {
		select {
		case <-s.done:
			return
		case u := <-s.trace:
			s.mu.RLock()
			for c := range s.clients {
				select {
				case c.send <- u:
				default:
				}
			}
			s.mu.RUnlock()
		}
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"timeStep":       s.tm.TimeStep(),
		"totalCellCount": s.tm.TotalCellCount(),
		"componentCount": s.tm.ComponentCount(),
	})
}

// handleReportTail streams the last tailLineLimit lines of
// reportDir/<kind>.csv, the most recently written rows of a running
// report, without holding up the writer that still owns the file.
func (s *Server) handleReportTail(w http.ResponseWriter, r *http.Request) {
	kind := mux.Vars(r)["kind"]
	if filepath.Base(kind) != kind {
		writeError(w, http.StatusBadRequest, "invalid report kind")
		return
	}
	lines, err := tailFile(filepath.Join(s.reportDir, kind+".csv"), tailLineLimit)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"kind":  kind,
		"lines": lines,
	})
}

func tailFile(path string, limit int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("report %q not found", filepath.Base(path))
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if len(lines) > limit {
			lines = lines[1:]
		}
	}
	return lines, scanner.Err()
}

// handleTrace upgrades to a websocket connection and streams one
// TraceUpdate per completed step until the client disconnects.
func (s *Server) handleTrace(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &traceClient{conn: conn, send: make(chan TraceUpdate, traceBuffer)}
	s.mu.Lock()
	s.clients[c] = true
	s.mu.Unlock()

	go s.readPump(c)
	s.writePump(c)
}

func (s *Server) readPump(c *traceClient) {
	defer s.dropClient(c)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			return
		}
	}
}

func (s *Server) writePump(c *traceClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.dropClient(c)
	}()
	for {
		select {
		case u, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(u); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			return
		}
	}
}

func (s *Server) dropClient(c *traceClient) {
	s.mu.Lock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
	s.mu.Unlock()
	c.conn.Close()
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{"error": message})
}
