package console

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/lumen-core/internal/auth"
	"github.com/nerrad567/lumen-core/internal/output"
	"github.com/nerrad567/lumen-core/internal/show"
	"github.com/nerrad567/lumen-core/internal/state"
)

type memStore struct {
	mu    sync.Mutex
	doc   *show.Document
	saves int
	err   error
}

func (m *memStore) Load(context.Context) (*show.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.doc == nil {
		return show.Default(), nil
	}
	return m.doc.Clone(), nil
}

func (m *memStore) Save(_ context.Context, doc *show.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.saves++
	m.doc = doc.Clone()
	return nil
}

func (m *memStore) saved() (*show.Document, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.doc, m.saves
}

type nullSocket struct{}

func (nullSocket) WriteTo(b []byte, _ *net.UDPAddr) (int, error) { return len(b), nil }
func (nullSocket) Close() error                                  { return nil }

type roleEvent struct {
	client    string
	dashboard string
	role      auth.Role
	denied    bool
}

type recordingNotifier struct {
	mu      sync.Mutex
	events  []roleEvent
	rosters int
}

func (n *recordingNotifier) RoleChanged(clientID string, role auth.Role) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, roleEvent{client: clientID, role: role})
}

func (n *recordingNotifier) DashboardRoleChanged(clientID, dashboardID string, role auth.Role) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, roleEvent{client: clientID, dashboard: dashboardID, role: role})
}

func (n *recordingNotifier) AccessDenied(clientID, dashboardID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, roleEvent{client: clientID, dashboard: dashboardID, denied: true})
}

func (n *recordingNotifier) RosterChanged() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rosters++
}

func newTestService(t *testing.T, store *memStore) *Service {
	t.Helper()
	svc, err := New(context.Background(), store, Options{
		Output: output.Options{
			RestartDelay: time.Millisecond,
			Listen:       func(output.SocketConfig) (output.Socket, error) { return nullSocket{}, nil },
		},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(svc.Stop)
	return svc
}

func patchedDocument() *show.Document {
	doc := show.Default()
	doc.Fixtures = []show.Fixture{
		{ID: "par1", Name: "Par 1", ProfileID: "dimmer", Universe: 1, StartAddress: 1},
	}
	doc.Looks = []show.Look{
		{ID: "warm", Name: "Warm", Color: "#FF8800", Targets: map[string]map[show.ChannelName]float64{
			"par1": {"intensity": 60},
		}},
	}
	return doc
}

func TestNew_LoadsStore(t *testing.T) {
	store := &memStore{doc: patchedDocument()}
	svc := newTestService(t, store)

	if got := len(svc.Config().Fixtures); got != 1 {
		t.Errorf("fixtures = %d, want 1", got)
	}
	if _, ok := svc.State().Fixtures["par1"]; !ok {
		t.Error("state has no entry for par1")
	}
	if !svc.OutputStats().Running {
		t.Error("engine not running after Start")
	}
}

func TestNew_InvalidStoredDocument(t *testing.T) {
	doc := patchedDocument()
	doc.Fixtures[0].ProfileID = "missing"
	_, err := New(context.Background(), &memStore{doc: doc}, Options{})
	if !errors.Is(err, show.ErrInvalidDocument) {
		t.Errorf("New() error = %v, want ErrInvalidDocument", err)
	}
}

func TestReplaceConfig(t *testing.T) {
	store := &memStore{}
	svc := newTestService(t, store)

	got, err := svc.ReplaceConfig(context.Background(), patchedDocument())
	if err != nil {
		t.Fatalf("ReplaceConfig() error = %v", err)
	}
	if got.Looks[0].Color != "#ff8800" {
		t.Errorf("look color = %q, want normalised #ff8800", got.Looks[0].Color)
	}
	saved, saves := store.saved()
	if saves != 1 || len(saved.Fixtures) != 1 {
		t.Errorf("store saves = %d fixtures = %d, want 1/1", saves, len(saved.Fixtures))
	}
	if _, ok := svc.State().Looks["warm"]; !ok {
		t.Error("state not reinitialised with new look")
	}
	st := svc.OutputStats()
	if !st.Running || st.Restarts != 1 {
		t.Errorf("engine running=%v restarts=%d, want running after one restart", st.Running, st.Restarts)
	}
}

func TestReplaceConfig_Invalid(t *testing.T) {
	store := &memStore{}
	svc := newTestService(t, store)

	doc := patchedDocument()
	doc.Output.FrameRate = 500
	if _, err := svc.ReplaceConfig(context.Background(), doc); !errors.Is(err, show.ErrInvalidDocument) {
		t.Fatalf("ReplaceConfig() error = %v, want ErrInvalidDocument", err)
	}
	if _, saves := store.saved(); saves != 0 {
		t.Errorf("saves = %d, want 0", saves)
	}
	if len(svc.Config().Fixtures) != 0 {
		t.Error("invalid document was applied")
	}
}

func TestReplaceConfig_KeepsRoster(t *testing.T) {
	svc := newTestService(t, &memStore{})
	ctx := context.Background()

	if _, err := svc.Authenticate(ctx, "client-a", ""); err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	doc := patchedDocument()
	doc.Clients = map[string]auth.ClientRecord{"intruder": {Role: auth.RoleEditor}}

	got, err := svc.ReplaceConfig(ctx, doc)
	if err != nil {
		t.Fatalf("ReplaceConfig() error = %v", err)
	}
	if _, ok := got.Clients["intruder"]; ok {
		t.Error("roster taken from submitted document")
	}
	if _, ok := got.Clients["client-a"]; !ok {
		t.Error("existing client dropped")
	}
}

func TestResetConfig(t *testing.T) {
	store := &memStore{doc: patchedDocument()}
	svc := newTestService(t, store)
	ctx := context.Background()

	if _, err := svc.Authenticate(ctx, "client-a", "Desk"); err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	got, err := svc.ResetConfig(ctx)
	if err != nil {
		t.Fatalf("ResetConfig() error = %v", err)
	}
	if len(got.Fixtures) != 0 || len(got.Looks) != 0 {
		t.Errorf("reset kept fixtures=%d looks=%d", len(got.Fixtures), len(got.Looks))
	}
	if got.Clients["client-a"].Nickname != "Desk" {
		t.Error("reset dropped the roster")
	}
	if len(svc.State().Fixtures) != 0 {
		t.Error("state still holds fixtures after reset")
	}
}

func TestSetActiveLayout(t *testing.T) {
	store := &memStore{}
	svc := newTestService(t, store)
	ctx := context.Background()

	if err := svc.SetActiveLayout(ctx, "nope"); !errors.Is(err, ErrUnknownDashboard) {
		t.Errorf("SetActiveLayout(nope) error = %v, want ErrUnknownDashboard", err)
	}
	if err := svc.SetActiveLayout(ctx, "main"); err != nil {
		t.Fatalf("SetActiveLayout(main) error = %v", err)
	}
	saved, _ := store.saved()
	if saved.ActiveLayout != "main" {
		t.Errorf("saved active layout = %q", saved.ActiveLayout)
	}
	if svc.OutputStats().Restarts != 0 {
		t.Error("layout change restarted output")
	}
}

func TestApplyUpdate(t *testing.T) {
	svc := newTestService(t, &memStore{doc: patchedDocument()})

	var got []state.RuntimeState
	svc.Subscribe(func(st state.RuntimeState) { got = append(got, st) })

	if _, err := svc.ApplyUpdate(state.Update{Looks: map[string]float64{"warm": 1}}); err != nil {
		t.Fatalf("ApplyUpdate() error = %v", err)
	}
	if _, err := svc.ApplyUpdate(state.Update{Looks: map[string]float64{"cold": 1}}); !errors.Is(err, state.ErrUnknownLook) {
		t.Errorf("ApplyUpdate(cold) error = %v, want ErrUnknownLook", err)
	}
	if len(got) != 1 || got[0].Looks["warm"] != 1 {
		t.Errorf("notifications = %+v, want one with warm=1", got)
	}
}

func TestClients_DashboardEditorIsGlobalEditor(t *testing.T) {
	store := &memStore{}
	svc := newTestService(t, store)
	n := &recordingNotifier{}
	svc.SetRoleNotifier(n)
	ctx := context.Background()

	rec, err := svc.Authenticate(ctx, "client-a", "")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if rec.Role != auth.RoleViewer {
		t.Errorf("new client role = %v, want viewer", rec.Role)
	}

	if _, err := svc.SetDashboardRole(ctx, "client-a", "main", auth.RoleEditor); err != nil {
		t.Fatalf("SetDashboardRole() error = %v", err)
	}
	p := svc.Principal("client-a", false)
	if !p.Can(auth.CapSettings, "") {
		t.Error("dashboard editor cannot access settings")
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	var sawGlobal, sawDashboard bool
	for _, e := range n.events {
		if e.dashboard == "main" && e.role == auth.RoleEditor {
			sawDashboard = true
		}
		if e.dashboard == "" && e.role == auth.RoleEditor {
			sawGlobal = true
		}
	}
	if !sawDashboard || !sawGlobal {
		t.Errorf("events = %+v, want dashboard and global editor notifications", n.events)
	}
	saved, _ := store.saved()
	if saved.Clients["client-a"].Role != auth.RoleEditor {
		t.Error("role change not persisted")
	}
}

func TestClients_AccessRequests(t *testing.T) {
	svc := newTestService(t, &memStore{})
	n := &recordingNotifier{}
	svc.SetRoleNotifier(n)
	ctx := context.Background()

	if _, err := svc.Authenticate(ctx, "client-a", ""); err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if _, err := svc.RequestAccess(ctx, "client-a", "ghost"); !errors.Is(err, ErrUnknownDashboard) {
		t.Errorf("RequestAccess(ghost) error = %v, want ErrUnknownDashboard", err)
	}
	if _, err := svc.RequestAccess(ctx, "client-a", "main"); err != nil {
		t.Fatalf("RequestAccess() error = %v", err)
	}
	rec, err := svc.ApproveAccess(ctx, "client-a", "main")
	if err != nil {
		t.Fatalf("ApproveAccess() error = %v", err)
	}
	if rec.DashboardRoles["main"] != auth.RoleController {
		t.Errorf("dashboard role = %v, want controller", rec.DashboardRoles["main"])
	}
	if _, err := svc.DenyAccess(ctx, "client-a", "main"); !errors.Is(err, auth.ErrNoPendingRequest) {
		t.Errorf("DenyAccess() without request error = %v, want ErrNoPendingRequest", err)
	}

	if _, err := svc.RequestAccess(ctx, "client-a", ""); err != nil {
		t.Fatalf("RequestAccess(global) error = %v", err)
	}
	if _, err := svc.DenyAccess(ctx, "client-a", ""); err != nil {
		t.Fatalf("DenyAccess(global) error = %v", err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	last := n.events[len(n.events)-1]
	if !last.denied || last.client != "client-a" {
		t.Errorf("last event = %+v, want denial", last)
	}
}

func TestClients_Delete(t *testing.T) {
	svc := newTestService(t, &memStore{})
	ctx := context.Background()

	if err := svc.DeleteClient(ctx, "nobody"); !errors.Is(err, auth.ErrClientNotFound) {
		t.Errorf("DeleteClient(nobody) error = %v, want ErrClientNotFound", err)
	}
	if _, err := svc.Authenticate(ctx, "client-a", ""); err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if err := svc.DeleteClient(ctx, "client-a"); err != nil {
		t.Fatalf("DeleteClient() error = %v", err)
	}
	if _, ok := svc.Client("client-a"); ok {
		t.Error("client still present")
	}
}

func TestReloadFromStore_RestartsOnlyForOutputChanges(t *testing.T) {
	svc := newTestService(t, &memStore{doc: patchedDocument()})

	doc := svc.Config()
	doc.Looks[0].Name = "Warmer"
	if err := svc.ReloadFromStore(doc); err != nil {
		t.Fatalf("ReloadFromStore() error = %v", err)
	}
	if r := svc.OutputStats().Restarts; r != 0 {
		t.Errorf("restarts after look edit = %d, want 0", r)
	}

	doc = svc.Config()
	doc.Fixtures[0].StartAddress = 100
	if err := svc.ReloadFromStore(doc); err != nil {
		t.Fatalf("ReloadFromStore() error = %v", err)
	}
	if r := svc.OutputStats().Restarts; r != 1 {
		t.Errorf("restarts after re-patch = %d, want 1", r)
	}
	if svc.Model().Document().Fixtures[0].StartAddress != 100 {
		t.Error("model not swapped")
	}
}

func TestClients_ClearDashboardRole(t *testing.T) {
	store := &memStore{}
	svc := newTestService(t, store)
	ctx := context.Background()

	if _, err := svc.Authenticate(ctx, "client-a", ""); err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if _, err := svc.SetDashboardRole(ctx, "client-a", "main", auth.RoleModerator); err != nil {
		t.Fatalf("SetDashboardRole() error = %v", err)
	}
	n := &recordingNotifier{}
	svc.SetRoleNotifier(n)

	rec, err := svc.ClearDashboardRole(ctx, "client-a", "main")
	if err != nil {
		t.Fatalf("ClearDashboardRole() error = %v", err)
	}
	if _, ok := rec.DashboardRoles["main"]; ok {
		t.Errorf("DashboardRoles = %v, want main removed", rec.DashboardRoles)
	}
	if got := svc.Principal("client-a", false).RoleOn("main"); got != auth.RoleViewer {
		t.Errorf("RoleOn(main) = %v, want global viewer", got)
	}

	n.mu.Lock()
	events, rosters := n.events, n.rosters
	n.mu.Unlock()
	if len(events) != 1 || events[0].dashboard != "main" || events[0].role != auth.RoleViewer {
		t.Errorf("events = %+v, want one dashboard notification with the global role", events)
	}
	if rosters != 1 {
		t.Errorf("roster notifications = %d, want 1", rosters)
	}
	saved, _ := store.saved()
	if _, ok := saved.Clients["client-a"].DashboardRoles["main"]; ok {
		t.Error("cleared role still persisted")
	}

	if _, err := svc.ClearDashboardRole(ctx, "client-a", "nope"); !errors.Is(err, ErrUnknownDashboard) {
		t.Errorf("unknown dashboard error = %v, want ErrUnknownDashboard", err)
	}
	if _, err := svc.ClearDashboardRole(ctx, "ghost", "main"); !errors.Is(err, auth.ErrClientNotFound) {
		t.Errorf("unknown client error = %v, want ErrClientNotFound", err)
	}
}
