// Package server broadcasts reader activity to WebSocket clients so a
// browser next to the finish line can watch cards come in live.
package server

import (
	"context"
	"encoding/json"
	"io/fs"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/tmerle/sireader/internal/card"
	"github.com/tmerle/sireader/internal/course"
	"github.com/tmerle/sireader/internal/driver"
)

// Server implements driver.Handler and fans every driver event out to all
// connected WebSocket clients as JSON.
type Server struct {
	cfg     *Config
	courses []*course.Course
	webFS   fs.FS

	clients   map[*wsClient]struct{}
	clientsMu sync.RWMutex

	upgrader websocket.Upgrader

	statusMu   sync.Mutex
	lastStatus string
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Event is the JSON structure sent to all WebSocket clients. Which payload
// fields are set depends on Type: Status and Message for "status",
// Direction and Message for "log", Card for "card", Result for "result".
type Event struct {
	ID    string `json:"id"`
	Type  string `json:"type"` // "status", "log", "card", "result"
	Stamp int64  `json:"stamp"`

	Status    string      `json:"status,omitempty"`
	Message   string      `json:"message,omitempty"`
	Direction string      `json:"direction,omitempty"`
	Card      *CardEvent  `json:"card,omitempty"`
	Result    *ResultItem `json:"result,omitempty"`
}

// CardEvent is the JSON form of a decoded card.
type CardEvent struct {
	CardNumber string       `json:"cardNumber"`
	Series     string       `json:"series"`
	Start      string       `json:"start"`
	Finish     string       `json:"finish"`
	Check      string       `json:"check"`
	PunchCount int          `json:"punchCount"`
	Punches    []PunchEvent `json:"punches"`
}

type PunchEvent struct {
	Code uint16 `json:"code"`
	Time string `json:"time"`
}

// ResultItem is the JSON form of a validation against the best-matching
// course.
type ResultItem struct {
	CardNumber string        `json:"cardNumber"`
	Course     string        `json:"course"`
	AllCorrect bool          `json:"allCorrect"`
	Missing    int           `json:"missing"`
	Extras     []uint16      `json:"extras"`
	RaceTime   string        `json:"raceTime"`
	Controls   []ControlItem `json:"controls"`
}

type ControlItem struct {
	Code  uint16 `json:"code"`
	Found bool   `json:"found"`
	Time  string `json:"time"`
}

// New creates a server over the given config and course list. webFS holds
// the embedded live page.
func New(cfg *Config, courses []*course.Course, webFS fs.FS) *Server {
	return &Server{
		cfg:     cfg,
		courses: courses,
		webFS:   webFS,
		clients: make(map[*wsClient]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		lastStatus: driver.Starting.String(),
	}
}

// Run starts the HTTP server and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	r := chi.NewRouter()
	r.Handle("/*", http.FileServer(http.FS(s.webFS)))
	r.Get("/ws", s.handleWS)
	r.Get("/api/status", s.handleStatus)
	r.Get("/api/courses", s.handleCourses)

	srv := &http.Server{
		Addr:    s.cfg.Server.ListenAddr,
		Handler: r,
	}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutCtx)
	}()

	log.Printf("[server] listening on %s", s.cfg.Server.ListenAddr)
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Status implements driver.Handler.
func (s *Server) Status(state driver.State, msg string) {
	s.statusMu.Lock()
	s.lastStatus = state.String()
	s.statusMu.Unlock()
	s.broadcast(Event{Type: "status", Status: state.String(), Message: msg})
}

// Log implements driver.Handler.
func (s *Server) Log(dir driver.Direction, text string) {
	s.broadcast(Event{Type: "log", Direction: dir.String(), Message: text})
}

// CardRead implements driver.Handler: the card event goes out first, then
// a result event when courses are configured.
func (s *Server) CardRead(rec *card.Record) {
	s.broadcast(Event{Type: "card", Card: cardEvent(rec)})

	if len(s.courses) == 0 {
		return
	}
	res, err := course.AutoDetect(s.courses, rec.Punches)
	if err != nil {
		return
	}
	item := &ResultItem{
		CardNumber: rec.CardNumber,
		Course:     res.Course.Name,
		AllCorrect: res.AllCorrect,
		Missing:    res.MissingCount,
		Extras:     res.Extras,
		RaceTime:   card.FormatTime(course.RaceTime(res.Course, rec)),
	}
	for _, c := range res.Controls {
		item.Controls = append(item.Controls, ControlItem{Code: c.Code, Found: c.Found, Time: card.FormatTime(c.Time)})
	}
	s.broadcast(Event{Type: "result", Result: item})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade error: %v", err)
		return
	}

	client := &wsClient{
		conn: conn,
		send: make(chan []byte, 64),
	}

	s.clientsMu.Lock()
	s.clients[client] = struct{}{}
	total := len(s.clients)
	s.clientsMu.Unlock()

	log.Printf("[ws] client connected (%d total)", total)

	// Writer goroutine
	go func() {
		defer conn.Close()
		for msg := range client.send {
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				break
			}
		}
	}()

	// Reader goroutine (keep-alive, detects disconnect)
	go func() {
		defer func() {
			s.clientsMu.Lock()
			delete(s.clients, client)
			total := len(s.clients)
			s.clientsMu.Unlock()
			close(client.send)
			log.Printf("[ws] client disconnected (%d total)", total)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.statusMu.Lock()
	status := s.lastStatus
	s.statusMu.Unlock()
	writeJSON(w, map[string]string{"status": status})
}

func (s *Server) handleCourses(w http.ResponseWriter, r *http.Request) {
	type courseItem struct {
		Name   string   `json:"name"`
		Codes  []uint16 `json:"codes"`
		Inline bool     `json:"inline"`
	}
	items := make([]courseItem, 0, len(s.courses))
	for _, c := range s.courses {
		items = append(items, courseItem{Name: c.Name, Codes: c.Codes, Inline: c.Inline})
	}
	writeJSON(w, items)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func (s *Server) broadcast(ev Event) {
	ev.ID = uuid.NewString()
	ev.Stamp = time.Now().UnixMilli()

	data, err := json.Marshal(ev)
	if err != nil {
		return
	}

	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	for client := range s.clients {
		select {
		case client.send <- data:
		default:
			// Client too slow, skip
		}
	}
}

func cardEvent(rec *card.Record) *CardEvent {
	ev := &CardEvent{
		CardNumber: rec.CardNumber,
		Series:     rec.Series.String(),
		Start:      card.FormatTime(rec.Start),
		Finish:     card.FormatTime(rec.Finish),
		Check:      card.FormatTime(rec.Check),
		PunchCount: rec.PunchCount,
	}
	for _, p := range rec.Punches {
		ev.Punches = append(ev.Punches, PunchEvent{Code: p.Code, Time: card.FormatTime(p.Time)})
	}
	return ev
}
