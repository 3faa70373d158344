// Package liveview streams leg-driver step events to a browser over a
// websocket: a single upgrade endpoint with a rate-limited publish loop
// pushing StepEvent/PhaseEvent JSON. Purely observational; never required
// for a solve to run.
package liveview

import (
	"fmt"
	"html/template"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dp-flightctl/hybriddp/internal/observer"
)

var upgrader = websocket.Upgrader{}

const (
	writeWait        = 1 * time.Second
	pongWait         = 60 * time.Second
	closeGracePeriod = 10 * time.Second
	publishInterval  = 200 * time.Millisecond
)

// Update is one batch pushed to the client: at most one of Step or Phase is
// set, matching whichever event produced it.
type Update struct {
	Step  *observer.StepEvent  `json:"step,omitempty"`
	Phase *observer.PhaseEvent `json:"phase,omitempty"`
}

// Server serves a single static page plus a "/ws" endpoint that streams
// Updates read from its input channels. It assumes one connected client at
// a time; a single flight's live trace needs no multi-client fan-out.
type Server struct {
	addr  string
	steps <-chan observer.StepEvent
	phase <-chan observer.PhaseEvent
	page  *template.Template
}

// NewServer builds a Server that streams steps and phase transitions read
// off the given channels; either may be nil.
func NewServer(addr string, steps <-chan observer.StepEvent, phase <-chan observer.PhaseEvent) *Server {
	return &Server{
		addr:  addr,
		steps: steps,
		phase: phase,
		page:  template.Must(template.New("index").Parse(indexPage)),
	}
}

// Hooks returns observer.Hooks that forward events onto buffered channels a
// Server can read from; wire the result into leg.Options.Hooks.
func Hooks(bufSize int) (observer.Hooks, <-chan observer.StepEvent, <-chan observer.PhaseEvent) {
	steps := make(chan observer.StepEvent, bufSize)
	phases := make(chan observer.PhaseEvent, bufSize)
	hooks := observer.Hooks{
		OnStep: func(e observer.StepEvent) {
			select {
			case steps <- e:
			default:
			}
		},
		OnPhase: func(e observer.PhaseEvent) {
			select {
			case phases <- e:
			default:
			}
		},
	}
	return hooks, steps, phases
}

// Serve blocks, serving the page at "/" and the event stream at "/ws".
func (s *Server) Serve() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.serveIndex)
	mux.HandleFunc("/ws", s.serveWebsocket)
	if err := http.ListenAndServe(s.addr, mux); err != nil {
		return fmt.Errorf("liveview: serve: %w", err)
	}
	return nil
}

func (s *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html")
	_ = s.page.Execute(w, nil)
}

func (s *Server) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("liveview: upgrade:", err)
		return
	}
	defer s.closeWebsocket(ws)
	s.publishUpdates(ws)
}

// publishUpdates forwards steps/phase transitions as they arrive, dropping
// updates that arrive faster than publishInterval allows the client to be
// refreshed.
func (s *Server) publishUpdates(ws *websocket.Conn) {
	last := time.Now()
	for {
		var u Update
		select {
		case e, ok := <-s.steps:
			if !ok {
				return
			}
			u.Step = &e
		case e, ok := <-s.phase:
			if !ok {
				return
			}
			u.Phase = &e
		}

		if time.Since(last) < publishInterval {
			continue
		}
		last = time.Now()

		if err := ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			log.Println("liveview:", err)
			return
		}
		if err := ws.WriteJSON(u); err != nil {
			log.Println("liveview: write:", err)
			return
		}
	}
}

func (s *Server) closeWebsocket(ws *websocket.Conn) {
	_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
	_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	time.Sleep(closeGracePeriod)
	_ = ws.Close()
}

const indexPage = `<!DOCTYPE html>
<html>
<head><title>hybriddp live trace</title></head>
<body>
<pre id="log"></pre>
<script>
const logEl = document.getElementById("log");
const ws = new WebSocket("ws://" + location.host + "/ws");
ws.onmessage = (ev) => {
  logEl.textContent += ev.data + "\n";
  logEl.scrollTop = logEl.scrollHeight;
};
</script>
</body>
</html>
`
