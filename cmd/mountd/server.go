package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/openscope/mountd/coords"
	"github.com/openscope/mountd/mount"
)

// Server exposes the instance registry to HTTP and websocket clients.
type Server struct {
	registry *mount.Registry

	statusMu   sync.RWMutex
	statusCond *sync.Cond
	status     map[int]mount.Status
}

func NewServer(registry *mount.Registry) *Server {
	s := &Server{
		registry: registry,
		status:   make(map[int]mount.Status),
	}
	s.statusCond = sync.NewCond(s.statusMu.RLocker())
	return s
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Run polls every registered device and broadcasts status changes to
// websocket watchers.
func (s *Server) Run(ctx context.Context) {
	t := time.NewTicker(250 * time.Millisecond)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		status := make(map[int]mount.Status)
		for _, inst := range s.registry.All() {
			status[inst.Number] = inst.Status()
		}
		s.statusMu.Lock()
		changed := len(status) != len(s.status)
		if !changed {
			for k, v := range status {
				if old, ok := s.status[k]; !ok || old != v {
					changed = true
					break
				}
			}
		}
		s.status = status
		if changed {
			s.statusCond.Broadcast()
		}
		s.statusMu.Unlock()
	}
}

func (s *Server) device(w http.ResponseWriter, r *http.Request) (*mount.Instance, bool) {
	number, err := strconv.Atoi(mux.Vars(r)["device"])
	if err != nil {
		http.Error(w, "bad device number", http.StatusBadRequest)
		return nil, false
	}
	inst, ok := s.registry.Get(number)
	if !ok {
		http.Error(w, "device not registered", http.StatusNotFound)
		return nil, false
	}
	return inst, true
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	data, err := json.Marshal(v)
	if err != nil {
		log.Print(err)
		return
	}
	w.Write(data)
}

// commandError maps engine errors onto HTTP statuses.
func commandError(w http.ResponseWriter, err error) {
	var verr *mount.ValidationError
	switch {
	case err == nil:
		writeJSON(w, map[string]bool{"ok": true})
	case errors.As(err, &verr):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, coords.ErrTargetUnreachable):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) DevicesHandler(w http.ResponseWriter, r *http.Request) {
	type entry struct {
		Number int    `json:"number"`
		Name   string `json:"name"`
	}
	var out []entry
	for _, inst := range s.registry.All() {
		out = append(out, entry{Number: inst.Number, Name: inst.Name})
	}
	writeJSON(w, out)
}

func (s *Server) RemoveHandler(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.Atoi(mux.Vars(r)["device"])
	if err != nil {
		http.Error(w, "bad device number", http.StatusBadRequest)
		return
	}
	if !s.registry.Remove(r.Context(), number) {
		http.Error(w, "device not registered", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]bool{"ok": true})
}

func (s *Server) StatusHandler(w http.ResponseWriter, r *http.Request) {
	inst, ok := s.device(w, r)
	if !ok {
		return
	}
	writeJSON(w, inst.Status())
}

// Command is the request body for slew and tracking endpoints and for
// websocket command messages.
type Command struct {
	Command  string  `json:"command"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Kind     string  `json:"kind"`
	Tracking bool    `json:"tracking"`
}

func parseSlewKind(kind string) (coords.SlewKind, bool) {
	switch kind {
	case "radec", "":
		return coords.SlewRaDec, true
	case "altaz":
		return coords.SlewAltAz, true
	case "park":
		return coords.SlewPark, true
	case "home":
		return coords.SlewHome, true
	case "handctl":
		return coords.SlewHandController, true
	case "moveaxis":
		return coords.SlewMoveAxis, true
	case "settle":
		return coords.SlewSettle, true
	}
	return coords.SlewNone, false
}

func (s *Server) SlewHandler(w http.ResponseWriter, r *http.Request) {
	inst, ok := s.device(w, r)
	if !ok {
		return
	}
	var cmd Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	kind, ok := parseSlewKind(cmd.Kind)
	if !ok {
		http.Error(w, "unknown slew kind", http.StatusBadRequest)
		return
	}
	commandError(w, inst.SlewTo(r.Context(), cmd.X, cmd.Y, kind, cmd.Tracking))
}

func (s *Server) AbortHandler(w http.ResponseWriter, r *http.Request) {
	inst, ok := s.device(w, r)
	if !ok {
		return
	}
	commandError(w, inst.Abort(r.Context()))
}

func (s *Server) TrackingHandler(w http.ResponseWriter, r *http.Request) {
	inst, ok := s.device(w, r)
	if !ok {
		return
	}
	var cmd Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	commandError(w, inst.SetTracking(cmd.Tracking))
}

func (s *Server) SyncHandler(w http.ResponseWriter, r *http.Request) {
	inst, ok := s.device(w, r)
	if !ok {
		return
	}
	var cmd Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	commandError(w, inst.SyncTo(cmd.X, cmd.Y))
}

// StatusSocketHandler streams a device's status over a websocket and
// accepts Command messages on the same connection.
func (s *Server) StatusSocketHandler(w http.ResponseWriter, r *http.Request) {
	inst, ok := s.device(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}

	// Read and process incoming messages
	go func() {
		for {
			var msg Command
			if err := conn.ReadJSON(&msg); err != nil {
				cancel()
				conn.Close()
				break
			}
			switch msg.Command {
			case "slew":
				kind, ok := parseSlewKind(msg.Kind)
				if !ok {
					break
				}
				if err := inst.SlewTo(ctx, msg.X, msg.Y, kind, msg.Tracking); err != nil {
					log.Printf("device %d slew: %v", inst.Number, err)
				}
			case "abort":
				if err := inst.Abort(ctx); err != nil {
					log.Printf("device %d abort: %v", inst.Number, err)
				}
			case "tracking":
				if err := inst.SetTracking(msg.Tracking); err != nil {
					log.Printf("device %d tracking: %v", inst.Number, err)
				}
			}
		}
	}()

	send := func(status mount.Status) bool {
		data, err := json.Marshal(status)
		if err != nil {
			log.Print(err)
			return false
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return false
		}
		return true
	}

	if !send(inst.Status()) {
		return
	}
	s.watchStatus(ctx, inst.Number, send)
}

// watchStatus streams the device's status to send on every broadcast
// until ctx ends, the device disappears, or send fails. The wakeup takes
// the write lock so it cannot slip between a watcher's ctx check and its
// Wait.
func (s *Server) watchStatus(ctx context.Context, number int, send func(mount.Status) bool) {
	go func() {
		<-ctx.Done()
		s.statusMu.Lock()
		s.statusCond.Broadcast()
		s.statusMu.Unlock()
	}()
	for {
		s.statusMu.RLock()
		if ctx.Err() != nil {
			s.statusMu.RUnlock()
			return
		}
		s.statusCond.Wait()
		status, ok := s.status[number]
		s.statusMu.RUnlock()
		if ctx.Err() != nil || !ok {
			return
		}
		if !send(status) {
			return
		}
	}
}
