package show

// PatchedFixture is a fixture joined with its profile's channel table.
type PatchedFixture struct {
	Fixture  Fixture
	Channels []Channel
	byName   map[ChannelName]int
}

// Channel looks up a channel by name.
func (p *PatchedFixture) Channel(name ChannelName) (Channel, bool) {
	i, ok := p.byName[name]
	if !ok {
		return Channel{}, false
	}
	return p.Channels[i], true
}

// Footprint is the number of DMX slots the fixture occupies.
func (p *PatchedFixture) Footprint() int {
	return len(p.Channels)
}

// Model is a validated, indexed, read-only view of a document. The state
// store and resolver work from a Model; nothing it returns may be modified.
type Model struct {
	doc      *Document
	fixtures []*PatchedFixture
	byID     map[string]*PatchedFixture
	looks    []*Look
	lookByID map[string]*Look
}

// NewModel validates doc and builds the index. The document is cloned so
// later edits by the caller do not leak in.
func NewModel(doc *Document) (*Model, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	d := doc.Clone()

	m := &Model{
		doc:      d,
		byID:     make(map[string]*PatchedFixture, len(d.Fixtures)),
		lookByID: make(map[string]*Look, len(d.Looks)),
	}
	for _, f := range d.Fixtures {
		p, _ := d.Profile(f.ProfileID)
		pf := &PatchedFixture{
			Fixture:  f,
			Channels: ChannelsOf(*p),
			byName:   make(map[ChannelName]int),
		}
		for i, ch := range pf.Channels {
			pf.byName[ch.Name] = i
		}
		m.fixtures = append(m.fixtures, pf)
		m.byID[f.ID] = pf
	}
	for i := range d.Looks {
		l := &d.Looks[i]
		m.looks = append(m.looks, l)
		m.lookByID[l.ID] = l
	}
	return m, nil
}

// Document returns the underlying document. Callers must not modify it.
func (m *Model) Document() *Document { return m.doc }

// Output returns the output settings.
func (m *Model) Output() OutputSettings { return m.doc.Output }

// Fixtures returns every patched fixture in document order.
func (m *Model) Fixtures() []*PatchedFixture { return m.fixtures }

// Fixture looks up a patched fixture.
func (m *Model) Fixture(id string) (*PatchedFixture, bool) {
	f, ok := m.byID[id]
	return f, ok
}

// Looks returns every look in document order.
func (m *Model) Looks() []*Look { return m.looks }

// Look looks up a look.
func (m *Model) Look(id string) (*Look, bool) {
	l, ok := m.lookByID[id]
	return l, ok
}
