package show

import (
	"encoding/hex"
	"sort"

	"github.com/cnf/structhash"
)

// fingerprintVersion is bumped when the hashed views change shape.
const fingerprintVersion = 1

type clientView struct {
	Role              string
	DashboardRoles    map[string]string
	Nickname          string
	PendingAccess     bool
	PendingDashboards []string
}

type documentView struct {
	Output       OutputSettings
	Profiles     []Profile
	Fixtures     []Fixture
	Looks        []Look
	Dashboards   []dashboardView
	ActiveLayout string
	Access       string
	ShowUsers    bool
	Clients      map[string]clientView
}

type dashboardView struct {
	ID     string
	Name   string
	Layout string
}

type patchEntry struct {
	ID           string
	Universe     int
	ArtNet       ArtNetAddress
	StartAddress int
	Footprint    int
}

type outputView struct {
	Output OutputSettings
	Patch  []patchEntry
}

// Fingerprint identifies the content of a document. Client timestamps are
// left out so reconnects do not change it.
func Fingerprint(doc *Document) string {
	v := documentView{
		Output:       doc.Output,
		Profiles:     doc.Profiles,
		Fixtures:     doc.Fixtures,
		Looks:        doc.Looks,
		ActiveLayout: doc.ActiveLayout,
		Access:       doc.Access.DefaultRole.String(),
		ShowUsers:    doc.Access.ShowConnectedUsers,
		Clients:      make(map[string]clientView, len(doc.Clients)),
	}
	for _, d := range doc.Dashboards {
		v.Dashboards = append(v.Dashboards, dashboardView{ID: d.ID, Name: d.Name, Layout: string(d.Layout)})
	}
	for id, rec := range doc.Clients {
		cv := clientView{
			Role:              rec.Role.String(),
			Nickname:          rec.Nickname,
			PendingAccess:     rec.PendingAccess,
			PendingDashboards: rec.PendingDashboards,
		}
		if len(rec.DashboardRoles) > 0 {
			cv.DashboardRoles = make(map[string]string, len(rec.DashboardRoles))
			for k, r := range rec.DashboardRoles {
				cv.DashboardRoles[k] = r.String()
			}
		}
		v.Clients[id] = cv
	}
	return hex.EncodeToString(structhash.Md5(v, fingerprintVersion))
}

// OutputFingerprint identifies everything the output engine depends on:
// protocol settings and fixture addressing. A change means the engine must
// restart.
func OutputFingerprint(doc *Document) string {
	v := outputView{Output: doc.Output}
	for _, f := range doc.Fixtures {
		footprint := 0
		if p, ok := doc.Profile(f.ProfileID); ok {
			footprint = Footprint(*p)
		}
		v.Patch = append(v.Patch, patchEntry{
			ID:           f.ID,
			Universe:     f.Universe,
			ArtNet:       f.ArtNetAddr(),
			StartAddress: f.StartAddress,
			Footprint:    footprint,
		})
	}
	sort.Slice(v.Patch, func(i, j int) bool { return v.Patch[i].ID < v.Patch[j].ID })
	return hex.EncodeToString(structhash.Md5(v, fingerprintVersion))
}
