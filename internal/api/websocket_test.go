package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/lumen-core/internal/auth"
	"github.com/nerrad567/lumen-core/internal/show"
)

// dial opens a WebSocket to the test server.
func (e *testEnv) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	var err error
	if s, ok := v.(string); ok {
		err = conn.WriteMessage(websocket.TextMessage, []byte(s))
	} else {
		err = conn.WriteJSON(v)
	}
	if err != nil {
		t.Fatalf("write: %v", err)
	}
}

// readUntil reads messages until one of type msgType arrives.
func readUntil(t *testing.T, conn *websocket.Conn, msgType string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		//nolint:errcheck // test deadline
		conn.SetReadDeadline(deadline)
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %q: %v", msgType, err)
		}
		var msg map[string]any
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("decode %s: %v", data, err)
		}
		if msg["type"] == msgType {
			return msg
		}
	}
}

// authenticate sends auth and returns the authResult.
func authenticate(t *testing.T, conn *websocket.Conn, clientID, dashboardID string) map[string]any {
	t.Helper()
	send(t, conn, WSInbound{Type: WSTypeAuth, ClientID: clientID, DashboardID: dashboardID})
	res := readUntil(t, conn, WSTypeAuthResult)
	readUntil(t, conn, WSTypeState)
	return res
}

func TestWS_UpdateBeforeAuthDenied(t *testing.T) {
	env := newTestEnv(t, true, nil)
	conn := env.dial(t)

	send(t, conn, `{"type":"update","data":{"blackout":true}}`)
	msg := readUntil(t, conn, WSTypePermissionDenied)
	if msg["message"] == "" {
		t.Error("permissionDenied without message")
	}
	if env.svc.State().Blackout {
		t.Error("unauthenticated update was applied")
	}
}

func TestWS_AuthResult(t *testing.T) {
	tests := []struct {
		name      string
		local     bool
		clientID  string
		dashboard string
		role      string
		anywhere  bool
	}{
		{"controller", false, controllerID, "", "controller", false},
		{"moderator on dashboard", false, moderatorID, "stage", "moderator", false},
		{"moderator elsewhere", false, moderatorID, "main", "viewer", false},
		{"new client gets default", false, "first-time-client", "", "viewer", false},
		{"editor", false, editorID, "", "editor", true},
		{"localhost overrides stored role", true, viewerID, "", "editor", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.local, nil)
			conn := env.dial(t)

			res := authenticate(t, conn, tt.clientID, tt.dashboard)
			if res["role"] != tt.role {
				t.Errorf("role = %v, want %s", res["role"], tt.role)
			}
			if res["shortId"] != auth.ShortID(tt.clientID) {
				t.Errorf("shortId = %v, want %s", res["shortId"], auth.ShortID(tt.clientID))
			}
			if res["isEditorAnywhere"] != tt.anywhere {
				t.Errorf("isEditorAnywhere = %v, want %v", res["isEditorAnywhere"], tt.anywhere)
			}
			if _, ok := res["dashboardAccess"].(map[string]any); !ok {
				t.Errorf("dashboardAccess = %v, want object", res["dashboardAccess"])
			}
			if _, ok := env.svc.Client(tt.clientID); !ok {
				t.Error("client not recorded in roster")
			}
		})
	}
}

func TestWS_AuthRequiresClientID(t *testing.T) {
	env := newTestEnv(t, false, nil)
	conn := env.dial(t)

	send(t, conn, WSInbound{Type: WSTypeAuth})
	readUntil(t, conn, WSTypeError)
}

func TestWS_AuthStoresNickname(t *testing.T) {
	env := newTestEnv(t, false, nil)
	conn := env.dial(t)

	send(t, conn, WSInbound{Type: WSTypeAuth, ClientID: controllerID, Nickname: "FOH"})
	readUntil(t, conn, WSTypeAuthResult)
	if rec, _ := env.svc.Client(controllerID); rec.Nickname != "FOH" {
		t.Errorf("nickname = %q, want FOH", rec.Nickname)
	}
}

func TestWS_UpdateBroadcastsState(t *testing.T) {
	env := newTestEnv(t, false, nil)
	writer := env.dial(t)
	watcher := env.dial(t)
	authenticate(t, writer, controllerID, "")
	authenticate(t, watcher, viewerID, "")

	send(t, writer, `{"type":"update","data":{"looks":{"warm":0.5}}}`)

	msg := readUntil(t, watcher, WSTypeState)
	data, _ := msg["data"].(map[string]any)
	looks, _ := data["looks"].(map[string]any)
	if looks["warm"] != 0.5 {
		t.Errorf("broadcast looks = %v, want warm=0.5", looks)
	}
	if got := env.svc.State().Looks["warm"]; got != 0.5 {
		t.Errorf("store look level = %v, want 0.5", got)
	}
}

func TestWS_UpdateRejections(t *testing.T) {
	tests := []struct {
		name      string
		clientID  string
		dashboard string
		message   string
		want      string
	}{
		{"viewer", viewerID, "", `{"type":"update","data":{"blackout":true}}`, WSTypePermissionDenied},
		{"moderator off dashboard", moderatorID, "main", `{"type":"update","data":{"blackout":true}}`, WSTypePermissionDenied},
		{"unknown fixture", controllerID, "", `{"type":"update","data":{"fixtures":{"nope":{"intensity":1}}}}`, WSTypeError},
		{"unknown channel", controllerID, "", `{"type":"update","data":{"fixtures":{"par1":{"pan":1}}}}`, WSTypeError},
		{"unknown look", controllerID, "", `{"type":"update","data":{"looks":{"cold":1}}}`, WSTypeError},
		{"unknown field", controllerID, "", `{"type":"update","data":{"blackout":true,"extra":1}}`, WSTypeError},
		{"no data", controllerID, "", `{"type":"update"}`, WSTypeError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, false, nil)
			conn := env.dial(t)
			authenticate(t, conn, tt.clientID, tt.dashboard)

			send(t, conn, tt.message)
			readUntil(t, conn, tt.want)
			st := env.svc.State()
			if st.Blackout || st.Looks["warm"] != 0 {
				t.Errorf("rejected update changed state: %+v", st)
			}
		})
	}
}

func TestWS_ModeratorEditsOwnDashboard(t *testing.T) {
	env := newTestEnv(t, false, nil)
	conn := env.dial(t)
	authenticate(t, conn, moderatorID, "stage")

	send(t, conn, `{"type":"update","data":{"blackout":true}}`)
	readUntil(t, conn, WSTypeState)
	if !env.svc.State().Blackout {
		t.Error("moderator update on own dashboard not applied")
	}
}

func TestWS_MalformedMessageKeepsSession(t *testing.T) {
	env := newTestEnv(t, false, nil)
	conn := env.dial(t)

	send(t, conn, `{not json`)
	readUntil(t, conn, WSTypeError)
	send(t, conn, `{"type":"dance"}`)
	readUntil(t, conn, WSTypeError)
	send(t, conn, `{"type":"ping"}`)
	readUntil(t, conn, WSTypePong)
}

func TestWS_RoleUpdateNotification(t *testing.T) {
	env := newTestEnv(t, false, nil)
	conn := env.dial(t)
	authenticate(t, conn, viewerID, "")

	if _, err := env.svc.SetRole(context.Background(), viewerID, auth.RoleController); err != nil {
		t.Fatal(err)
	}
	msg := readUntil(t, conn, WSTypeRoleUpdate)
	if msg["role"] != "controller" {
		t.Errorf("roleUpdate role = %v, want controller", msg["role"])
	}

	// The new role applies to the next update without re-auth.
	send(t, conn, `{"type":"update","data":{"looks":{"warm":1}}}`)
	readUntil(t, conn, WSTypeState)
	if got := env.svc.State().Looks["warm"]; got != 1 {
		t.Errorf("look level = %v, want 1", got)
	}
}

func TestWS_DashboardEditorBecomesGlobalEditor(t *testing.T) {
	env := newTestEnv(t, false, nil)
	conn := env.dial(t)
	authenticate(t, conn, viewerID, "stage")

	if _, err := env.svc.SetDashboardRole(context.Background(), viewerID, "stage", auth.RoleEditor); err != nil {
		t.Fatal(err)
	}
	msg := readUntil(t, conn, WSTypeDashboardRoleUpdate)
	if msg["dashboardId"] != "stage" || msg["role"] != "editor" {
		t.Errorf("dashboardRoleUpdate = %v", msg)
	}
	msg = readUntil(t, conn, WSTypeRoleUpdate)
	if msg["role"] != "editor" {
		t.Errorf("roleUpdate = %v, want editor", msg)
	}

	other := env.dial(t)
	res := authenticate(t, other, viewerID, "main")
	if res["isEditorAnywhere"] != true {
		t.Errorf("isEditorAnywhere = %v, want true", res["isEditorAnywhere"])
	}
}

func TestWS_RequestAccessAndDeny(t *testing.T) {
	env := newTestEnv(t, false, nil)
	conn := env.dial(t)
	authenticate(t, conn, viewerID, "stage")

	send(t, conn, WSInbound{Type: WSTypeRequestAccess})
	deadline := time.Now().Add(2 * time.Second)
	for {
		rec, _ := env.svc.Client(viewerID)
		if rec.HasPendingDashboard("stage") {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("access request never recorded")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if _, err := env.svc.DenyAccess(context.Background(), viewerID, "stage"); err != nil {
		t.Fatal(err)
	}
	msg := readUntil(t, conn, WSTypeDashboardAccessDenied)
	if msg["dashboardId"] != "stage" {
		t.Errorf("dashboardAccessDenied = %v", msg)
	}
}

func TestWS_RequestAccessUnknownDashboard(t *testing.T) {
	env := newTestEnv(t, false, nil)
	conn := env.dial(t)
	authenticate(t, conn, viewerID, "")

	send(t, conn, WSInbound{Type: WSTypeRequestAccess, DashboardID: "nope"})
	readUntil(t, conn, WSTypeError)
}

func TestWS_ActiveClients(t *testing.T) {
	tests := []struct {
		name     string
		show     bool
		clientID string
		wantList bool
		withIDs  bool
	}{
		{"viewer hidden", false, viewerID, false, false},
		{"viewer shown", true, viewerID, true, false},
		{"editor always", false, editorID, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, false, func(doc *show.Document) {
				doc.Access.ShowConnectedUsers = tt.show
			})
			conn := env.dial(t)
			send(t, conn, WSInbound{Type: WSTypeAuth, ClientID: tt.clientID})

			msg := readUntil(t, conn, WSTypeActiveClients)
			if msg["showConnectedUsers"] != tt.show {
				t.Errorf("showConnectedUsers = %v, want %v", msg["showConnectedUsers"], tt.show)
			}
			clients, _ := msg["clients"].([]any)
			if got := len(clients) > 0; got != tt.wantList {
				t.Fatalf("clients listed = %v, want %v (%v)", got, tt.wantList, clients)
			}
			for _, c := range clients {
				entry, _ := c.(map[string]any)
				_, hasID := entry["id"]
				if hasID != tt.withIDs {
					t.Errorf("entry %v: id present = %v, want %v", entry, hasID, tt.withIDs)
				}
				if entry["shortId"] == auth.ShortID(tt.clientID) && entry["connected"] != true {
					t.Errorf("own entry not marked connected: %v", entry)
				}
			}
		})
	}
}

func TestWS_StateNotSentBeforeAuth(t *testing.T) {
	env := newTestEnv(t, false, nil)
	anon := env.dial(t)
	writer := env.dial(t)
	authenticate(t, writer, controllerID, "")

	send(t, writer, `{"type":"update","data":{"blackout":true}}`)
	readUntil(t, writer, WSTypeState)

	// The anonymous session only sees its own ping reply.
	send(t, anon, `{"type":"ping"}`)
	//nolint:errcheck // test deadline
	anon.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := anon.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"pong"`) {
		t.Errorf("first message to anonymous session = %s, want pong", data)
	}
}

func TestHub_SessionCount(t *testing.T) {
	env := newTestEnv(t, false, nil)
	conn := env.dial(t)
	authenticate(t, conn, viewerID, "")

	if got := env.srv.Hub().SessionCount(); got != 1 {
		t.Errorf("SessionCount() = %d, want 1", got)
	}
	if got := env.srv.Hub().Connections()[viewerID]; got != 1 {
		t.Errorf("Connections()[viewer] = %d, want 1", got)
	}

	conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for env.srv.Hub().SessionCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("session not unregistered after close")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// inProcessSession registers an authenticated session with no socket.
func inProcessSession(t *testing.T, h *Hub, id, clientID string) *Session {
	t.Helper()
	s := &Session{id: id, hub: h, send: make(chan []byte, wsSendBufferSize), clientID: clientID}
	h.Register(s)
	return s
}

func TestHub_SlowSessionDoesNotBlockBroadcast(t *testing.T) {
	env := newTestEnv(t, false, nil)
	hub := env.srv.Hub()
	slow := inProcessSession(t, hub, "slow", viewerID)
	fast := inProcessSession(t, hub, "fast", controllerID)

	for range wsSendBufferSize {
		slow.send <- []byte("{}")
	}

	done := make(chan struct{})
	go func() {
		hub.broadcastState(env.svc.State())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked on a full session")
	}

	// Dropping the slow session may queue activeClients alongside the state.
	gotState := false
	for !gotState {
		select {
		case data := <-fast.send:
			var msg map[string]any
			if err := json.Unmarshal(data, &msg); err != nil {
				t.Fatalf("decode %s: %v", data, err)
			}
			gotState = msg["type"] == WSTypeState
		default:
			t.Fatal("fast session did not receive the state broadcast")
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for hub.SessionCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("SessionCount() = %d, want 1 after dropping the slow session", hub.SessionCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
	if _, ok := hub.Connections()[viewerID]; ok {
		t.Error("slow session still counted in Connections()")
	}
}

func TestSession_SendAfterClose(t *testing.T) {
	env := newTestEnv(t, false, nil)
	hub := env.srv.Hub()
	s := inProcessSession(t, hub, "gone", viewerID)

	hub.Unregister(s)
	hub.Unregister(s)
	s.trySend([]byte("{}"))
	hub.broadcastState(env.svc.State())

	for range s.send {
	}
	if hub.SessionCount() != 0 {
		t.Errorf("SessionCount() = %d, want 0", hub.SessionCount())
	}
}

func TestStatusWriter_Hijackable(t *testing.T) {
	var w http.ResponseWriter = &statusWriter{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK}
	if _, ok := w.(http.Hijacker); !ok {
		t.Fatal("statusWriter does not implement http.Hijacker")
	}
	if _, ok := w.(interface{ Unwrap() http.ResponseWriter }); !ok {
		t.Fatal("statusWriter does not implement Unwrap")
	}
	// A recorder cannot be hijacked; the error must surface, not panic.
	if _, _, err := w.(http.Hijacker).Hijack(); err == nil {
		t.Error("Hijack() on a recorder succeeded")
	}
}
