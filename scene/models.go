package scene

import (
	"sort"

	"github.com/mogaika/gamestop/r3d"
)

// ModelSlot is a named placeholder for a model; Root stays nil until the model loads.
type ModelSlot struct {
	Name string
	Root *r3d.Node
}

func (m *ModelSlot) Loaded() bool {
	return m.Root != nil
}

type Models struct {
	slots map[string]*ModelSlot
	order []string
}

func NewModels(names ...string) *Models {
	m := &Models{slots: make(map[string]*ModelSlot, len(names))}
	for _, name := range names {
		if _, exists := m.slots[name]; exists {
			continue
		}
		m.slots[name] = &ModelSlot{Name: name}
		m.order = append(m.order, name)
	}
	return m
}

func (m *Models) Get(name string) *ModelSlot {
	return m.slots[name]
}

// Slots returns the slots in creation order.
func (m *Models) Slots() []*ModelSlot {
	slots := make([]*ModelSlot, 0, len(m.order))
	for _, name := range m.order {
		slots = append(slots, m.slots[name])
	}
	return slots
}

type ModelState struct {
	Name      string     `json:"name"`
	Loaded    bool       `json:"loaded"`
	Position  [3]float32 `json:"position"`
	Scale     [3]float32 `json:"scale"`
	Meshes    int        `json:"meshes,omitempty"`
	Triangles int        `json:"triangles,omitempty"`
}

// State reports every slot sorted by name.
func (m *Models) State() []ModelState {
	states := make([]ModelState, 0, len(m.slots))
	for _, slot := range m.slots {
		st := ModelState{Name: slot.Name, Loaded: slot.Loaded()}
		if st.Loaded {
			st.Position = slot.Root.Position
			st.Scale = slot.Root.Scale
			st.Meshes, st.Triangles = slot.Root.CountMeshes()
		}
		states = append(states, st)
	}
	sort.Slice(states, func(i, j int) bool { return states[i].Name < states[j].Name })
	return states
}
