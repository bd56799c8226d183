package element

import (
	"sort"
	"strconv"
	"sync"

	errors "golang.org/x/xerrors"
)

// Rank is a priority hint used to choose among factories that can handle the
// same URI. Higher wins.
type Rank int

const (
	RankNone      Rank = 0
	RankMarginal  Rank = 64
	RankSecondary Rank = 128
	RankPrimary   Rank = 256
)

func (r Rank) String() string {
	switch r {
	case RankNone:
		return "none"
	case RankMarginal:
		return "marginal"
	case RankSecondary:
		return "secondary"
	case RankPrimary:
		return "primary"
	default:
		return strconv.Itoa(int(r))
	}
}

// Plugin groups the factories advertised by one loadable unit.
type Plugin struct {
	Name        string
	Description string
	Version     string
}

// Factory is an advertised, instantiable class.
type Factory struct {
	Name   string
	Rank   Rank
	Type   Type
	Plugin string
}

var factories = struct {
	sync.RWMutex
	byName map[string]*Factory
}{byName: make(map[string]*Factory)}

// Register advertises type t under name. Factory names are unique for the
// whole process.
func (p *Plugin) Register(name string, rank Rank, t Type) error {
	if name == "" {
		return errors.Errorf("plugin %s: empty factory name: %w", p.Name, ErrInvalidType)
	}
	if t < typeFirstDynamic || !TypeIsA(t, TypeBaseSrc) {
		return errors.Errorf("plugin %s: factory %s: %w", p.Name, name, ErrInvalidType)
	}

	factories.Lock()
	defer factories.Unlock()

	if existing, ok := factories.byName[name]; ok {
		return errors.Errorf("plugin %s: factory %s (from %s): %w", p.Name, name, existing.Plugin, ErrFactoryExists)
	}
	factories.byName[name] = &Factory{Name: name, Rank: rank, Type: t, Plugin: p.Name}

	log.Debug("Plugin %s: registered factory %s (%s, rank %v)", p.Name, name, TypeName(t), rank)
	return nil
}

// Factories lists every factory, highest rank first, then by name.
func Factories() []*Factory {
	factories.RLock()
	list := make([]*Factory, 0, len(factories.byName))
	for _, f := range factories.byName {
		list = append(list, f)
	}
	factories.RUnlock()

	sortFactories(list)
	return list
}

func sortFactories(list []*Factory) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].Rank != list[j].Rank {
			return list[i].Rank > list[j].Rank
		}
		return list[i].Name < list[j].Name
	})
}

func FindFactory(name string) (*Factory, bool) {
	factories.RLock()
	defer factories.RUnlock()
	f, ok := factories.byName[name]
	return f, ok
}

// Class returns the factory's class, initializing it if needed.
func (f *Factory) Class() *Class {
	class, _ := ClassOf(f.Type)
	return class
}

// Protocols lists the URI schemes of the factory's type, if it is a URI
// handler.
func (f *Factory) Protocols() []string {
	return typeProtocols(f.Type)
}

func (f *Factory) URIType() URIType {
	impl, ok := typeInterface(f.Type, InterfaceURIHandler)
	if !ok {
		return URIUnknown
	}
	h := impl.(*URIHandlerInterface)
	if h.GetType == nil {
		return URIUnknown
	}
	return h.GetType(f.Type)
}

// Create instantiates the factory. An empty name is replaced by the factory
// name and a counter.
func (f *Factory) Create(name string) (*BaseSrc, error) {
	node, ok := lookupType(f.Type)
	if !ok {
		return nil, errors.Errorf("factory %s: %w", f.Name, ErrInvalidType)
	}
	if name == "" {
		name = defaultName(f.Name)
	}
	return newObject(node, name), nil
}

// Make instantiates the factory registered under factoryName.
func Make(factoryName, name string) (*BaseSrc, error) {
	f, ok := FindFactory(factoryName)
	if !ok {
		return nil, errors.Errorf("%s: %w", factoryName, ErrNoSuchFactory)
	}
	return f.Create(name)
}

// MakeFromURI picks the highest ranked factory of the given URI type that
// accepts the URI's protocol, instantiates it and sets the URI. If an
// instance rejects the URI the next candidate is tried.
func MakeFromURI(typ URIType, uri, name string) (*BaseSrc, error) {
	protocol, ok := URIProtocol(uri)
	if !ok {
		return nil, &URIError{Code: URIErrorBadURI, URI: uri}
	}

	var candidates []*Factory
	for _, f := range Factories() {
		if f.URIType() == typ && containsFold(f.Protocols(), protocol) {
			candidates = append(candidates, f)
		}
	}
	if len(candidates) == 0 {
		return nil, &URIError{Code: URIErrorUnsupportedProtocol, URI: uri, Err: ErrNoURIHandler}
	}

	var lastErr error
	for _, f := range candidates {
		src, err := f.Create(name)
		if err != nil {
			lastErr = err
			continue
		}
		if err := src.SetURI(uri); err != nil {
			log.Debug("%s rejected %s: %v", f.Name, uri, err)
			src.Dispose()
			lastErr = err
			continue
		}
		return src, nil
	}
	return nil, lastErr
}
