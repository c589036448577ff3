package tool

import (
	"sync/atomic"

	"github.com/xeipuuv/gojsonschema"
)

// Registry publishes tool snapshots. Readers never block; Register and Reset
// replace the active snapshot wholesale.
type Registry struct {
	active atomic.Pointer[Snapshot]
}

func NewRegistry() *Registry {
	r := &Registry{}
	r.active.Store(emptySnapshot)
	return r
}

// Register validates every entry and swaps them in as the new snapshot.
// On failure the previous snapshot stays active.
func (r *Registry) Register(entries ...Entry) error {
	snap, err := newSnapshot(entries)
	if err != nil {
		return err
	}
	r.active.Store(snap)
	return nil
}

// Reset swaps in the empty snapshot.
func (r *Registry) Reset() {
	r.active.Store(emptySnapshot)
}

// Snapshot returns the view a single request should use from start to end.
func (r *Registry) Snapshot() *Snapshot {
	return r.active.Load()
}

// List returns the current descriptors in registration order.
func (r *Registry) List() []ToolDescriptor {
	return r.Snapshot().Descriptors()
}

type compiledEntry struct {
	Entry
	schema *gojsonschema.Schema
}

// Snapshot is an immutable set of tools with unique names.
type Snapshot struct {
	entries []compiledEntry
	index   map[string]int
}

var emptySnapshot = &Snapshot{index: map[string]int{}}

func newSnapshot(entries []Entry) (*Snapshot, error) {
	snap := &Snapshot{
		entries: make([]compiledEntry, 0, len(entries)),
		index:   make(map[string]int, len(entries)),
	}

	for _, entry := range entries {
		desc := normalizeDescriptor(entry.Descriptor)
		if desc.Name == "" {
			return nil, &RegistrationError{Reason: "empty tool name"}
		}
		if entry.Handler == nil {
			return nil, &RegistrationError{Name: desc.Name, Reason: "nil handler"}
		}
		if _, exists := snap.index[desc.Name]; exists {
			return nil, &RegistrationError{Name: desc.Name, Reason: "duplicate tool name"}
		}

		schema, err := CompileSchema(desc.Parameters)
		if err != nil {
			return nil, &RegistrationError{Name: desc.Name, Reason: err.Error()}
		}

		snap.index[desc.Name] = len(snap.entries)
		snap.entries = append(snap.entries, compiledEntry{
			Entry:  Entry{Descriptor: desc, Handler: entry.Handler},
			schema: schema,
		})
	}

	return snap, nil
}

func (s *Snapshot) Len() int {
	return len(s.entries)
}

func (s *Snapshot) Descriptors() []ToolDescriptor {
	out := make([]ToolDescriptor, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.Descriptor)
	}
	return out
}

func (s *Snapshot) Lookup(name string) (Entry, bool) {
	e, ok := s.lookup(name)
	if !ok {
		return Entry{}, false
	}
	return e.Entry, true
}

func (s *Snapshot) lookup(name string) (compiledEntry, bool) {
	i, ok := s.index[NormalizeToolName(name)]
	if !ok {
		return compiledEntry{}, false
	}
	return s.entries[i], true
}
