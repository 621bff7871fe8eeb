// Package api is the local control surface: status, log tail, curve tuning
// and direct grip commands over HTTP.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/rs/zerolog"

	"griprumble-go/bus"
	"griprumble-go/config"
	"griprumble-go/effects"
	"griprumble-go/hiddev"
	"griprumble-go/logging"
	"griprumble-go/services/telemetry"
	"griprumble-go/types"
	"griprumble-go/x/timex"
)

type Server struct {
	tel      *telemetry.Service
	cmds     chan<- types.Command
	store    *config.Store
	defaults types.Curve
	fl       *effects.Flags
	hold     *atomic.Bool
	ring     *logging.Ring
	bus      *bus.Bus
	log      zerolog.Logger
	mux      *http.ServeMux
}

func NewServer(tel *telemetry.Service, cmds chan<- types.Command, store *config.Store,
	defaults types.Curve, fl *effects.Flags, hold *atomic.Bool, ring *logging.Ring,
	b *bus.Bus, log zerolog.Logger) *Server {
	s := &Server{
		tel:      tel,
		cmds:     cmds,
		store:    store,
		defaults: defaults,
		fl:       fl,
		hold:     hold,
		ring:     ring,
		bus:      b,
		log:      log,
		mux:      http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) routes() {
	s.mux.HandleFunc("/health", s.health)
	s.mux.HandleFunc("/status", s.status)
	s.mux.HandleFunc("/log", s.logTail)

	s.mux.HandleFunc("/command/hold", s.holdCmd)
	s.mux.HandleFunc("/command/resume", s.resumeCmd)
	s.mux.HandleFunc("/command/intensity", s.intensityCmd)
	s.mux.HandleFunc("/command/raw", s.rawCmd)
	s.mux.HandleFunc("/command/reopen", s.reopenCmd)

	s.mux.HandleFunc("/curve", s.curve)
	s.mux.HandleFunc("/curve/reset", s.curveReset)

	s.mux.HandleFunc("/stream", s.streamSSE)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	cfg, rev := s.store.Get()

	out := map[string]any{
		"ts":       timex.NowMs(),
		"status":   s.tel.Status(),
		"title":    s.tel.Title(),
		"hold":     s.hold.Load(),
		"effects":  s.fl.Snapshot(),
		"curve":    cfg,
		"curveRev": rev,
	}
	if fv, ok := s.tel.Snapshot(); ok {
		out["snapshot"] = fv
	} else {
		out["snapshot"] = nil
	}
	// Last value actually written to the grip, retained by the output worker.
	intensity := uint8(0)
	if msg, ok := s.bus.Retained(bus.Topic{"grip", "intensity"}); ok {
		if v, ok := msg.Payload.(uint8); ok {
			intensity = v
		}
	}
	out["intensity"] = intensity
	writeJSON(w, out)
}

func (s *Server) logTail(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"lines": s.ring.Snapshot()})
}

func (s *Server) holdCmd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	s.hold.Store(true)
	s.cmds <- types.SetHold{Hold: true}
	writeJSON(w, map[string]any{"status": "accepted", "type": "hold"})
}

func (s *Server) resumeCmd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	s.hold.Store(false)
	s.cmds <- types.SetHold{Hold: false}
	writeJSON(w, map[string]any{"status": "accepted", "type": "resume"})
}

func (s *Server) intensityCmd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		Level int `json:"level"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if body.Level < 0 || body.Level > 255 {
		http.Error(w, "level must be 0..255", http.StatusBadRequest)
		return
	}
	s.cmds <- types.SetIntensity{Level: uint8(body.Level)}
	writeJSON(w, map[string]any{"status": "accepted", "type": "intensity", "level": body.Level})
}

func (s *Server) rawCmd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		Frame []byte `json:"frame"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if len(body.Frame) != hiddev.FrameLen {
		http.Error(w, fmt.Sprintf("frame must be %d bytes", hiddev.FrameLen), http.StatusBadRequest)
		return
	}
	s.cmds <- types.SendRaw{Frame: body.Frame}
	writeJSON(w, map[string]any{"status": "accepted", "type": "raw"})
}

func (s *Server) reopenCmd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	s.cmds <- types.ReopenDevices{}
	writeJSON(w, map[string]any{"status": "accepted", "type": "reopen"})
}

// curve serves the active tuning curve, and on POST overlays the fields
// present in the body onto it. Values outside the safe ranges are pulled
// back by the store, not rejected.
func (s *Server) curve(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		cfg, rev := s.store.Get()
		writeJSON(w, map[string]any{"curve": cfg, "rev": rev})

	case http.MethodPost:
		cfg, _ := s.store.Get()
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		s.store.Replace(cfg)
		applied, rev := s.store.Get()
		writeJSON(w, map[string]any{"curve": applied, "rev": rev})

	default:
		http.Error(w, "GET or POST", http.StatusMethodNotAllowed)
	}
}

func (s *Server) curveReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	s.store.Replace(s.defaults)
	applied, rev := s.store.Get()
	writeJSON(w, map[string]any{"curve": applied, "rev": rev})
}

// streamSSE relays retained bus topics (status, snapshot, title, log lines)
// to the client as server-sent events.
func (s *Server) streamSSE(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET only", http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	conn := s.bus.NewConnection("sse")
	defer conn.Disconnect()

	subs := []*bus.Subscription{
		conn.Subscribe(bus.Topic{"sim", "status"}),
		conn.Subscribe(bus.Topic{"sim", "snapshot"}),
		conn.Subscribe(bus.Topic{"sim", "title"}),
		conn.Subscribe(bus.Topic{"grip", "intensity"}),
		conn.Subscribe(bus.Topic{"log", "line"}),
	}

	// Fan the subscriptions into one channel so a single select drives the
	// stream. The forwarders exit when Disconnect closes their channels.
	merged := make(chan *bus.Message, 16)
	for _, sub := range subs {
		go func(ch <-chan *bus.Message) {
			for msg := range ch {
				select {
				case merged <- msg:
				default:
				}
			}
		}(sub.Channel())
	}

	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-merged:
			b, _ := json.Marshal(msg.Payload)
			fmt.Fprintf(w, "event: %s\n", msg.Topic[len(msg.Topic)-1])
			fmt.Fprintf(w, "data: %s\n\n", b)
			flusher.Flush()
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
