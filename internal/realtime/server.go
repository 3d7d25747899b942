package realtime

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"focusdeck/internal/focus"
	"focusdeck/internal/protocol"
	"focusdeck/internal/store"

	"github.com/gorilla/websocket"
)

const (
	pingInterval  = 30 * time.Second
	readDeadline  = 60 * time.Second
	writeDeadline = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow localhost origins for dev.
	},
}

// Server manages WebSocket connections for the two UI surfaces (the main
// view and the companion widget) and routes timer commands to the engine
// and task commands to the bridge.
type Server struct {
	engine      *focus.Engine
	bridge      *store.Bridge
	staticDir   string
	snapshotKey string

	clients   map[*client]bool
	clientsMu sync.RWMutex

	// subscriptions tracks each client's engine subscription ID.
	subscriptions   map[*client]string
	subscriptionsMu sync.Mutex
}

type client struct {
	conn   *websocket.Conn
	send   chan []byte
	server *Server
}

// New creates a new realtime server. snapshotKey identifies the shared
// blob in snapshot.update notifications.
func New(engine *focus.Engine, bridge *store.Bridge, staticDir, snapshotKey string) *Server {
	return &Server{
		engine:        engine,
		bridge:        bridge,
		staticDir:     staticDir,
		snapshotKey:   snapshotKey,
		clients:       make(map[*client]bool),
		subscriptions: make(map[*client]string),
	}
}

// Handler returns an http.Handler with all routes configured.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// WebSocket endpoint.
	mux.HandleFunc("/ws", s.handleWebSocket)

	// REST API endpoints.
	mux.HandleFunc("GET /timer", s.handleGetTimer)
	mux.HandleFunc("POST /timer/start", s.handleStartTimer)
	mux.HandleFunc("POST /timer/pause", s.handlePauseTimer)
	mux.HandleFunc("POST /timer/stop", s.handleStopTimer)
	mux.HandleFunc("POST /timer/skip", s.handleSkipBreak)
	mux.HandleFunc("GET /entries", s.handleListEntries)
	mux.HandleFunc("GET /tasks", s.handleListTasks)
	mux.HandleFunc("POST /tasks", s.handleCreateTask)
	mux.HandleFunc("GET /tasks/{id}/time", s.handleTaskTime)
	mux.HandleFunc("POST /tasks/{id}/complete", s.handleCompleteTask)
	mux.HandleFunc("DELETE /tasks/{id}", s.handleDeleteTask)
	mux.HandleFunc("GET /projects", s.handleListProjects)
	mux.HandleFunc("POST /projects", s.handleCreateProject)
	mux.HandleFunc("GET /projects/{id}/time", s.handleProjectTime)

	// Static file serving.
	if s.staticDir != "" {
		fileServer := http.FileServer(http.Dir(s.staticDir))
		mux.Handle("/", fileServer)
	}

	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// handleWebSocket upgrades an HTTP connection to WebSocket.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}

	c := &client{
		conn:   conn,
		send:   make(chan []byte, 256),
		server: s,
	}

	s.clientsMu.Lock()
	s.clients[c] = true
	s.clientsMu.Unlock()

	// Send the current timer state so the surface can render immediately.
	s.sendMessage(c, progressMessage(s.engine.Progress()))

	// Subscribe the client to engine signals, replaying recent completions
	// it may have missed while disconnected.
	s.subscribeClient(c)

	go c.writePump()
	go c.readPump()
}

// subscribeClient attaches a client to the engine's signal stream.
func (s *Server) subscribeClient(c *client) {
	subID, ch, history := s.engine.Subscribe()

	s.subscriptionsMu.Lock()
	s.subscriptions[c] = subID
	s.subscriptionsMu.Unlock()

	for _, sig := range history {
		s.sendMessage(c, signalMessage(sig))
	}

	// The forwarding goroutine owns c.send: it closes the channel once the
	// engine subscription is torn down, which in turn stops the write pump.
	go func() {
		for sig := range ch {
			s.sendMessage(c, signalMessage(sig))
		}
		close(c.send)
	}()
}

// signalMessage converts an engine signal to a protocol message.
func signalMessage(sig focus.Signal) *protocol.Message {
	switch sig.Type {
	case focus.SignalSessionCompleted:
		msg, _ := protocol.NewMessage(protocol.TypeSessionCompleted, protocol.SessionCompletedPayload{
			Target:                 sig.Target,
			SessionsCompletedToday: sig.SessionsCompletedToday,
		})
		return msg
	case focus.SignalBreakCompleted:
		msg, _ := protocol.NewMessage(protocol.TypeBreakCompleted, protocol.BreakCompletedPayload{})
		return msg
	default:
		return progressMessage(sig)
	}
}

func progressMessage(sig focus.Signal) *protocol.Message {
	msg, _ := protocol.NewMessage(protocol.TypeTimerProgress, protocol.TimerProgressPayload{
		Phase:                  string(sig.Phase),
		TargetID:               sig.Target,
		Elapsed:                sig.Elapsed.Milliseconds(),
		Remaining:              sig.Remaining.Milliseconds(),
		Paused:                 sig.Paused,
		SessionsCompletedToday: sig.SessionsCompletedToday,
	})
	return msg
}

func (s *Server) sendMessage(c *client, msg *protocol.Message) {
	if msg == nil {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
		// Client buffer full, skip.
	}
}

// readPump reads messages from the WebSocket connection.
func (c *client) readPump() {
	defer func() {
		c.server.removeClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(readDeadline))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("websocket read error: %v", err)
			}
			return
		}

		c.server.handleMessage(c, message)
	}
}

// writePump writes messages to the WebSocket connection.
func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// removeClient cleans up a disconnected client.
func (s *Server) removeClient(c *client) {
	s.clientsMu.Lock()
	delete(s.clients, c)
	s.clientsMu.Unlock()

	s.subscriptionsMu.Lock()
	subID, ok := s.subscriptions[c]
	delete(s.subscriptions, c)
	s.subscriptionsMu.Unlock()

	if ok {
		s.engine.Unsubscribe(subID)
	}
}

// handleMessage processes a validated client message.
func (s *Server) handleMessage(c *client, raw []byte) {
	msg, err := protocol.ValidateClientMessage(raw)
	if err != nil {
		s.sendError(c, protocol.ErrInvalidMessage, err.Error())
		return
	}

	switch msg.Type {
	case protocol.TypeTimerStart:
		var payload protocol.TimerStartPayload
		json.Unmarshal(msg.Payload, &payload)
		s.engine.Start(payload.TaskID)

	case protocol.TypeTimerPauseResume:
		s.engine.PauseResume()

	case protocol.TypeTimerStop:
		s.engine.Stop()

	case protocol.TypeTimerSkipBreak:
		s.engine.SkipBreak()

	case protocol.TypeTaskComplete:
		var payload protocol.TaskIDPayload
		json.Unmarshal(msg.Payload, &payload)
		if err := s.bridge.CompleteTask(payload.TaskID); err != nil {
			s.sendError(c, protocol.ErrTaskNotFound, err.Error())
		}

	case protocol.TypeTaskDelete:
		var payload protocol.TaskIDPayload
		json.Unmarshal(msg.Payload, &payload)
		if err := s.bridge.DeleteTask(payload.TaskID); err != nil {
			s.sendError(c, protocol.ErrTaskNotFound, err.Error())
		}
	}
}

// OnSnapshotRefresh is the bridge's refresh callback: the other surface
// wrote the blob and the local state was rehydrated, so connected clients
// must re-read everything.
func (s *Server) OnSnapshotRefresh() {
	msg, err := protocol.NewMessage(protocol.TypeSnapshotUpdate, protocol.SnapshotUpdatePayload{
		Key: s.snapshotKey,
	})
	if err != nil {
		return
	}
	s.broadcast(msg)
}

// broadcast sends a message to all connected clients.
func (s *Server) broadcast(msg *protocol.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	for c := range s.clients {
		select {
		case c.send <- data:
		default:
			// Client buffer full, skip.
		}
	}
}

func (s *Server) sendError(c *client, code, message string) {
	msg, _ := protocol.NewErrorMessage(code, message)
	s.sendMessage(c, msg)
}
