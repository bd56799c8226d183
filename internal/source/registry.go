package source

import (
	"fmt"
	"sort"
	"sync"

	"github.com/lanikai/alohasrc/internal/element"
)

// Descriptor is what Register records about a backend. It never changes after
// registration.
type Descriptor struct {
	name           string
	longName       string
	description    string
	classification string
	author         string
	rank           element.Rank
	pushOnly       bool
	blocksize      uint
	factory        Factory
	schemes        []string
}

func (d *Descriptor) Name() string           { return d.name }
func (d *Descriptor) LongName() string       { return d.longName }
func (d *Descriptor) Description() string    { return d.description }
func (d *Descriptor) Classification() string { return d.classification }
func (d *Descriptor) Author() string         { return d.author }
func (d *Descriptor) Rank() element.Rank     { return d.rank }
func (d *Descriptor) PushOnly() bool         { return d.pushOnly }
func (d *Descriptor) Blocksize() uint        { return d.blocksize }
func (d *Descriptor) Factory() Factory       { return d.factory }

// Schemes returns a copy of the URI schemes the backend accepts.
func (d *Descriptor) Schemes() []string {
	return append([]string{}, d.schemes...)
}

// Registered backends, by the element type created for them. Entries are never
// removed.
var registry struct {
	once sync.Once
	sync.RWMutex
	byType map[element.Type]*Descriptor
}

func initRegistry() {
	registry.once.Do(func() {
		registry.byType = make(map[element.Type]*Descriptor)
	})
}

func insertDescriptor(t element.Type, d *Descriptor) {
	registry.Lock()
	defer registry.Unlock()
	registry.byType[t] = d
}

// Lookup returns the descriptor of a type created by Register.
func Lookup(t element.Type) (*Descriptor, bool) {
	initRegistry()

	registry.RLock()
	defer registry.RUnlock()
	d, ok := registry.byType[t]
	return d, ok
}

// The hooks installed by Register only ever run for types in the registry.
func mustLookup(t element.Type) *Descriptor {
	d, ok := Lookup(t)
	if !ok {
		panic(fmt.Sprintf("source: no descriptor for type %s (%d)", element.TypeName(t), t))
	}
	return d
}

// Descriptors lists every registered backend, ordered by name.
func Descriptors() []*Descriptor {
	initRegistry()

	registry.RLock()
	list := make([]*Descriptor, 0, len(registry.byType))
	for _, d := range registry.byType {
		list = append(list, d)
	}
	registry.RUnlock()

	sort.Slice(list, func(i, j int) bool { return list[i].name < list[j].name })
	return list
}
