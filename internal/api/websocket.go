package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/xid"

	"github.com/nerrad567/lumen-core/internal/auth"
	"github.com/nerrad567/lumen-core/internal/console"
	"github.com/nerrad567/lumen-core/internal/infrastructure/config"
	"github.com/nerrad567/lumen-core/internal/infrastructure/logging"
	"github.com/nerrad567/lumen-core/internal/state"
)

// Inbound message types.
const (
	WSTypeAuth          = "auth"
	WSTypeUpdate        = "update"
	WSTypeRequestAccess = "requestAccess"
	WSTypePing          = "ping"
)

// Outbound message types.
const (
	WSTypeState                 = "state"
	WSTypeAuthResult            = "authResult"
	WSTypeRoleUpdate            = "roleUpdate"
	WSTypeDashboardRoleUpdate   = "dashboardRoleUpdate"
	WSTypeActiveClients         = "activeClients"
	WSTypePermissionDenied      = "permissionDenied"
	WSTypeAccessDenied          = "accessDenied"
	WSTypeDashboardAccessDenied = "dashboardAccessDenied"
	WSTypeError                 = "error"
	WSTypePong                  = "pong"
)

// wsSendBufferSize is the per-session outbound message buffer size.
const wsSendBufferSize = 256

// WSInbound is a message received from a client.
type WSInbound struct {
	Type        string          `json:"type"`
	ClientID    string          `json:"clientId,omitempty"`
	DashboardID string          `json:"dashboardId,omitempty"`
	Nickname    string          `json:"nickname,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
}

type stateMessage struct {
	Type string             `json:"type"`
	Data state.RuntimeState `json:"data"`
}

type authResultMessage struct {
	Type             string               `json:"type"`
	Role             auth.Role            `json:"role"`
	ShortID          string               `json:"shortId"`
	DashboardAccess  map[string]auth.Role `json:"dashboardAccess"`
	IsEditorAnywhere bool                 `json:"isEditorAnywhere"`
}

type roleMessage struct {
	Type        string    `json:"type"`
	DashboardID string    `json:"dashboardId,omitempty"`
	Role        auth.Role `json:"role"`
}

type noticeMessage struct {
	Type        string `json:"type"`
	DashboardID string `json:"dashboardId,omitempty"`
	Message     string `json:"message,omitempty"`
}

type activeClientsMessage struct {
	Type               string       `json:"type"`
	Clients            []ClientInfo `json:"clients"`
	ShowConnectedUsers bool         `json:"showConnectedUsers"`
}

// ClientInfo describes a client in the connection roster. ID is only
// filled in for callers allowed to administer clients.
type ClientInfo struct {
	ID                string               `json:"id,omitempty"`
	ShortID           string               `json:"shortId"`
	Nickname          string               `json:"nickname,omitempty"`
	Role              auth.Role            `json:"role"`
	DashboardRoles    map[string]auth.Role `json:"dashboardRoles,omitempty"`
	PendingAccess     bool                 `json:"pendingAccess,omitempty"`
	PendingDashboards []string             `json:"pendingDashboards,omitempty"`
	Connected         bool                 `json:"connected"`
	Connections       int                  `json:"connections,omitempty"`
	LastSeen          time.Time            `json:"lastSeen"`
}

// Hub manages WebSocket sessions. It keeps every authenticated session in
// sync with the runtime state and receives role notifications from the
// console service.
type Hub struct {
	cfg     config.WebSocketConfig
	logger  *logging.Logger
	svc     *console.Service
	metrics *hubMetrics

	sessions map[*Session]struct{}
	mu       sync.RWMutex
}

// Session is one WebSocket connection.
type Session struct {
	id          string
	hub         *Hub
	conn        *websocket.Conn
	send        chan []byte
	isLocalhost bool

	// sendMu orders queueing against closing send.
	sendMu sync.Mutex
	closed bool

	mu          sync.RWMutex
	clientID    string
	dashboardID string
}

// upgrader configures the WebSocket upgrader.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin checking is handled by CORS middleware
		return true
	},
}

// NewHub creates a hub bound to svc.
//
// It subscribes to state changes, so every successful update is broadcast
// to authenticated sessions. It also installs itself as the service's role
// notifier, so role, access and roster changes reach the affected clients.
//
// Parameters:
//   - cfg: WebSocket settings (path, message size, ping and pong timing)
//   - logger: Structured logger for session events
//   - svc: Console service the hub reads from and writes to
//   - reg: Prometheus registerer for hub collectors; nil leaves them unregistered
//
// Returns:
//   - *Hub: Hub ready to accept sessions; call Run to tie it to a context
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger, svc *console.Service, reg prometheus.Registerer) *Hub {
	h := &Hub{
		cfg:      cfg,
		logger:   logger,
		svc:      svc,
		metrics:  newHubMetrics(reg),
		sessions: make(map[*Session]struct{}),
	}
	svc.Subscribe(h.broadcastState)
	svc.SetRoleNotifier(h)
	return h
}

// Run blocks until ctx is cancelled, then disconnects every session.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// Register adds a session to the hub.
func (h *Hub) Register(s *Session) {
	h.mu.Lock()
	h.sessions[s] = struct{}{}
	n := len(h.sessions)
	h.mu.Unlock()
	h.metrics.sessions.Set(float64(n))
	h.logger.Debug("websocket session connected", "session", s.id, "sessions", n)
}

// Unregister removes a session. Only the caller that removes it from the map
// closes its send channel.
func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	_, existed := h.sessions[s]
	delete(h.sessions, s)
	n := len(h.sessions)
	h.mu.Unlock()

	if !existed {
		return
	}
	s.closeSend()
	h.metrics.sessions.Set(float64(n))
	h.logger.Debug("websocket session disconnected", "session", s.id, "sessions", n)
	if s.ClientID() != "" {
		h.broadcastClients()
	}
}

// SessionCount returns the number of connected sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// snapshot copies the session list so sends happen without the hub lock.
func (h *Hub) snapshot() []*Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Session, 0, len(h.sessions))
	for s := range h.sessions {
		out = append(out, s)
	}
	return out
}

// broadcastState is the state store listener. It runs on the writer's
// goroutine, so it only encodes and enqueues.
func (h *Hub) broadcastState(st state.RuntimeState) {
	data, err := json.Marshal(stateMessage{Type: WSTypeState, Data: st})
	if err != nil {
		h.logger.Error("failed to marshal state broadcast", "error", err)
		return
	}
	for _, s := range h.snapshot() {
		if s.ClientID() != "" {
			s.trySend(data)
		}
	}
}

// broadcastClients sends each authenticated session the connection roster,
// filtered to what its role may see.
func (h *Hub) broadcastClients() {
	sessions := h.snapshot()
	connections := countConnections(sessions)
	records := h.svc.Clients()
	show := h.svc.Access().ShowConnectedUsers

	for _, s := range sessions {
		clientID, dashboardID := s.identity()
		if clientID == "" {
			continue
		}
		p := h.svc.Principal(clientID, s.isLocalhost)
		admin := p.Can(auth.CapManageUsers, dashboardID)
		msg := activeClientsMessage{Type: WSTypeActiveClients, Clients: []ClientInfo{}, ShowConnectedUsers: show}
		if admin || show {
			msg.Clients = clientInfos(records, connections, admin)
		}
		s.sendJSON(msg)
	}
}

// Connections returns the number of authenticated sessions per client id.
func (h *Hub) Connections() map[string]int {
	return countConnections(h.snapshot())
}

func countConnections(sessions []*Session) map[string]int {
	out := make(map[string]int)
	for _, s := range sessions {
		if id := s.ClientID(); id != "" {
			out[id]++
		}
	}
	return out
}

// clientInfos lists known clients, connected ones first.
func clientInfos(records map[string]auth.ClientRecord, connections map[string]int, withIDs bool) []ClientInfo {
	out := make([]ClientInfo, 0, len(records))
	for id, rec := range records {
		info := ClientInfo{
			ShortID:           auth.ShortID(id),
			Nickname:          rec.Nickname,
			Role:              rec.Role,
			DashboardRoles:    rec.DashboardRoles,
			PendingAccess:     rec.PendingAccess,
			PendingDashboards: rec.PendingDashboards,
			Connected:         connections[id] > 0,
			Connections:       connections[id],
			LastSeen:          rec.LastSeen,
		}
		if withIDs {
			info.ID = id
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Connected != out[j].Connected {
			return out[i].Connected
		}
		return out[i].ShortID < out[j].ShortID
	})
	return out
}

// sendToClient delivers v to every session of one client.
func (h *Hub) sendToClient(clientID string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("failed to marshal websocket message", "error", err)
		return
	}
	for _, s := range h.snapshot() {
		if s.ClientID() == clientID {
			s.trySend(data)
		}
	}
}

// RoleChanged implements console.RoleNotifier.
func (h *Hub) RoleChanged(clientID string, role auth.Role) {
	h.sendToClient(clientID, roleMessage{Type: WSTypeRoleUpdate, Role: role})
}

// DashboardRoleChanged implements console.RoleNotifier.
func (h *Hub) DashboardRoleChanged(clientID, dashboardID string, role auth.Role) {
	h.sendToClient(clientID, roleMessage{Type: WSTypeDashboardRoleUpdate, DashboardID: dashboardID, Role: role})
}

// AccessDenied implements console.RoleNotifier.
func (h *Hub) AccessDenied(clientID, dashboardID string) {
	if dashboardID == "" {
		h.sendToClient(clientID, noticeMessage{Type: WSTypeAccessDenied, Message: "access request denied"})
		return
	}
	h.sendToClient(clientID, noticeMessage{
		Type:        WSTypeDashboardAccessDenied,
		DashboardID: dashboardID,
		Message:     "dashboard access request denied",
	})
}

// RosterChanged implements console.RoleNotifier.
func (h *Hub) RosterChanged() {
	h.broadcastClients()
}

// closeAll disconnects every session.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for s := range h.sessions {
		s.closeSend()
		if s.conn != nil {
			s.conn.Close()
		}
		delete(h.sessions, s)
	}
	h.metrics.sessions.Set(0)
}

// handleWebSocket upgrades the HTTP connection. The client identifies itself
// afterwards with an auth message.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	sess := &Session{
		id:          xid.New().String(),
		hub:         s.hub,
		conn:        conn,
		send:        make(chan []byte, wsSendBufferSize),
		isLocalhost: s.isLocal(r),
	}
	s.hub.Register(sess)

	go sess.writePump(s.wsCfg)
	go sess.readPump(s.wsCfg)
}

// ClientID returns the id the session authenticated as, or "".
func (c *Session) ClientID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.clientID
}

func (c *Session) identity() (clientID, dashboardID string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.clientID, c.dashboardID
}

// readPump reads messages from the WebSocket connection.
func (c *Session) readPump(cfg config.WebSocketConfig) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	pingInterval := time.Duration(cfg.PingInterval) * time.Second
	pongWait := time.Duration(cfg.PongTimeout) * time.Second
	//nolint:errcheck // Best-effort deadline on connection setup
	c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "session", c.id, "error", err)
			} else {
				c.hub.logger.Debug("websocket closed", "session", c.id, "error", err)
			}
			return
		}
		//nolint:errcheck // Best-effort deadline reset
		c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
		c.handleMessage(message)
	}
}

// writePump writes queued messages and keepalive pings.
func (c *Session) writePump(cfg config.WebSocketConfig) {
	pingInterval := time.Duration(cfg.PingInterval) * time.Second
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	pongWait := time.Duration(cfg.PongTimeout) * time.Second

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				//nolint:errcheck // Best-effort close message
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			//nolint:errcheck // Best-effort deadline; write error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // Best-effort deadline; ping error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage dispatches one inbound message. Nothing a client sends may
// take the session down.
func (c *Session) handleMessage(data []byte) {
	defer func() {
		if err := recover(); err != nil {
			c.hub.logger.Error("panic recovered in websocket handler", "session", c.id, "error", err)
			c.sendError("internal error")
		}
	}()

	var msg WSInbound
	if err := json.Unmarshal(data, &msg); err != nil {
		c.hub.logger.Debug("discarding malformed websocket message", "session", c.id, "error", err)
		c.sendError("invalid JSON message")
		return
	}
	c.hub.metrics.messages.WithLabelValues(msg.Type).Inc()

	switch msg.Type {
	case WSTypeAuth:
		c.handleAuth(msg)
	case WSTypeUpdate:
		c.handleUpdate(msg)
	case WSTypeRequestAccess:
		c.handleRequestAccess(msg)
	case WSTypePing:
		c.sendJSON(noticeMessage{Type: WSTypePong})
	default:
		c.sendError("unknown message type: " + msg.Type)
	}
}

// handleAuth binds the session to a client id. A session may authenticate
// again to switch dashboards.
func (c *Session) handleAuth(msg WSInbound) {
	if msg.ClientID == "" {
		c.sendError("clientId is required")
		return
	}
	h := c.hub
	rec, err := h.svc.Authenticate(context.Background(), msg.ClientID, msg.Nickname)
	if err != nil {
		h.logger.Warn("websocket auth failed", "session", c.id, "error", err)
		c.sendError("authentication failed")
		return
	}

	c.mu.Lock()
	c.clientID = msg.ClientID
	c.dashboardID = msg.DashboardID
	c.mu.Unlock()

	p := auth.Principal{ClientID: msg.ClientID, Record: rec, IsLocalhost: c.isLocalhost}
	access := rec.DashboardRoles
	if access == nil {
		access = map[string]auth.Role{}
	}
	c.sendJSON(authResultMessage{
		Type:             WSTypeAuthResult,
		Role:             p.RoleOn(msg.DashboardID),
		ShortID:          auth.ShortID(msg.ClientID),
		DashboardAccess:  access,
		IsEditorAnywhere: auth.IsEditorAnywhere(rec, c.isLocalhost),
	})
	c.sendJSON(stateMessage{Type: WSTypeState, Data: h.svc.State()})
	h.logger.Info("websocket client authenticated",
		"session", c.id,
		"client", auth.ShortID(msg.ClientID),
		"dashboard", msg.DashboardID,
		"localhost", c.isLocalhost,
	)
	h.broadcastClients()
}

// handleUpdate applies a state mutation if the session may edit.
func (c *Session) handleUpdate(msg WSInbound) {
	clientID, dashboardID := c.identity()
	if clientID == "" {
		c.sendJSON(noticeMessage{Type: WSTypePermissionDenied, Message: "authenticate before sending updates"})
		return
	}
	if msg.DashboardID != "" {
		dashboardID = msg.DashboardID
	}
	p := c.hub.svc.Principal(clientID, c.isLocalhost)
	if !p.Can(auth.CapEdit, dashboardID) {
		c.sendJSON(noticeMessage{Type: WSTypePermissionDenied, Message: "your role does not allow changes"})
		return
	}

	u, err := state.DecodeUpdate(msg.Data)
	if err != nil {
		c.sendError("invalid update: " + err.Error())
		return
	}
	if _, err := c.hub.svc.ApplyUpdate(u); err != nil {
		c.sendError(err.Error())
	}
}

// handleRequestAccess records an access request, global when no dashboard
// is named.
func (c *Session) handleRequestAccess(msg WSInbound) {
	clientID, dashboardID := c.identity()
	if clientID == "" {
		c.sendJSON(noticeMessage{Type: WSTypePermissionDenied, Message: "authenticate before requesting access"})
		return
	}
	if msg.DashboardID != "" {
		dashboardID = msg.DashboardID
	}
	if _, err := c.hub.svc.RequestAccess(context.Background(), clientID, dashboardID); err != nil {
		c.sendError(err.Error())
		return
	}
	c.hub.logger.Info("access requested", "client", auth.ShortID(clientID), "dashboard", dashboardID)
}

// sendJSON encodes v and queues it.
func (c *Session) sendJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.hub.logger.Error("failed to marshal websocket message", "error", err)
		return
	}
	c.trySend(data)
}

func (c *Session) sendError(message string) {
	c.sendJSON(noticeMessage{Type: WSTypeError, Message: message})
}

// trySend queues data without blocking. A session whose buffer is full is
// dropped so it cannot hold up the others.
func (c *Session) trySend(data []byte) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}

	select {
	case c.send <- data:
	default:
		c.hub.metrics.dropped.Inc()
		c.hub.logger.Warn("websocket session too slow, disconnecting", "session", c.id)
		go c.hub.Unregister(c)
	}
}

// closeSend closes the outbound channel once; later sends are dropped.
func (c *Session) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}
