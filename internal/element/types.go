package element

import (
	"sort"
	"sync"

	errors "golang.org/x/xerrors"
)

// Type is the identity of a registered class. It stays valid for the lifetime
// of the process; types are never unregistered.
type Type uint64

const (
	TypeInvalid Type = iota

	// Base class of every source. Sources deriving it directly can operate in
	// pull mode (random access through PullRange).
	TypeBaseSrc

	// Push-only variant of TypeBaseSrc. Data is produced strictly in sequence
	// with Create.
	TypePushSrc

	typeFirstDynamic
)

// TypeInfo is the table of hooks a class installs. Nil hooks fall back to the
// base class behaviour.
type TypeInfo struct {
	// Called once, before the first instance of the type is created.
	ClassInit func(class *Class)

	// Called for every new instance, before it is returned to the caller.
	InstanceInit func(src *BaseSrc, class *Class)

	// Called once, when the instance is disposed.
	Finalize func(src *BaseSrc)

	SetProperty func(src *BaseSrc, id uint, value interface{}, pspec *ParamSpec) error
	GetProperty func(src *BaseSrc, id uint, pspec *ParamSpec) interface{}

	// Source vtable. Start and Stop run on the control goroutine; Fill and
	// DoSeek run with the stream lock held.
	Start      func(src *BaseSrc) bool
	Stop       func(src *BaseSrc) bool
	IsSeekable func(src *BaseSrc) bool
	GetSize    func(src *BaseSrc) (uint64, bool)
	Fill       func(src *BaseSrc, offset uint64, length uint, buf *Buffer) FlowReturn
	DoSeek     func(src *BaseSrc, segment *Segment) bool
}

type typeNode struct {
	id     Type
	name   string
	parent Type
	info   *TypeInfo

	ifaces map[Interface]interface{}

	classOnce sync.Once
	class     *Class
}

var types = struct {
	sync.RWMutex
	byID   map[Type]*typeNode
	byName map[string]Type
	next   Type
}{
	byID: map[Type]*typeNode{
		TypeBaseSrc: {id: TypeBaseSrc, name: "BaseSrc", info: &TypeInfo{}},
		TypePushSrc: {id: TypePushSrc, name: "PushSrc", parent: TypeBaseSrc, info: &TypeInfo{}},
	},
	byName: map[string]Type{
		"BaseSrc": TypeBaseSrc,
		"PushSrc": TypePushSrc,
	},
	next: typeFirstDynamic,
}

// RegisterType creates a new instantiable class deriving parent. The parent
// must be TypeBaseSrc, TypePushSrc or a type derived from them.
func RegisterType(parent Type, name string, info *TypeInfo) (Type, error) {
	if name == "" || info == nil {
		return TypeInvalid, errors.Errorf("register type %q: %w", name, ErrInvalidType)
	}
	if !TypeIsA(parent, TypeBaseSrc) {
		return TypeInvalid, errors.Errorf("register type %q: parent %d: %w", name, parent, ErrInvalidType)
	}

	types.Lock()
	defer types.Unlock()

	if _, exists := types.byName[name]; exists {
		return TypeInvalid, errors.Errorf("register type %q: %w", name, ErrTypeExists)
	}

	t := types.next
	types.next++
	types.byID[t] = &typeNode{
		id:     t,
		name:   name,
		parent: parent,
		info:   info,
	}
	types.byName[name] = t

	log.Debug("Registered type %s (%d) deriving %s", name, t, types.byID[parent].name)
	return t, nil
}

func lookupType(t Type) (*typeNode, bool) {
	types.RLock()
	defer types.RUnlock()
	node, ok := types.byID[t]
	return node, ok
}

// TypeFromName returns the type registered under name.
func TypeFromName(name string) (Type, bool) {
	types.RLock()
	defer types.RUnlock()
	t, ok := types.byName[name]
	return t, ok
}

func TypeName(t Type) string {
	if node, ok := lookupType(t); ok {
		return node.name
	}
	return ""
}

func TypeParent(t Type) Type {
	if node, ok := lookupType(t); ok {
		return node.parent
	}
	return TypeInvalid
}

// TypeIsA reports whether t is ancestor or one of its descendants.
func TypeIsA(t, ancestor Type) bool {
	for t != TypeInvalid {
		if t == ancestor {
			return true
		}
		t = TypeParent(t)
	}
	return false
}

// TypeChildren lists the types directly deriving t, in registration order.
func TypeChildren(t Type) []Type {
	types.RLock()
	defer types.RUnlock()

	var children []Type
	for id, node := range types.byID {
		if node.parent == t {
			children = append(children, id)
		}
	}
	sort.Slice(children, func(i, j int) bool { return children[i] < children[j] })
	return children
}

// Interface identifies a capability that a type can declare it satisfies,
// independently of its parent chain.
type Interface int

const (
	InterfaceURIHandler Interface = iota + 1
)

func (i Interface) String() string {
	switch i {
	case InterfaceURIHandler:
		return "URIHandler"
	default:
		return "Unknown"
	}
}

// AddInterface attaches the implementation of iface to type t. The
// implementation type must match the interface: *URIHandlerInterface for
// InterfaceURIHandler.
func AddInterface(t Type, iface Interface, impl interface{}) error {
	switch iface {
	case InterfaceURIHandler:
		if h, ok := impl.(*URIHandlerInterface); !ok || h == nil {
			return errors.Errorf("add %v to %d: %w", iface, t, ErrNotURIHandler)
		}
	default:
		return errors.Errorf("add %v to %d: %w", iface, t, ErrUnknownInterface)
	}

	types.Lock()
	defer types.Unlock()

	node, ok := types.byID[t]
	if !ok || t < typeFirstDynamic {
		return errors.Errorf("add %v to %d: %w", iface, t, ErrInvalidType)
	}
	if _, exists := node.ifaces[iface]; exists {
		return errors.Errorf("add %v to %s: %w", iface, node.name, ErrInterfaceExists)
	}
	if node.ifaces == nil {
		node.ifaces = make(map[Interface]interface{})
	}
	node.ifaces[iface] = impl
	return nil
}

// TypeImplements reports whether t or one of its ancestors implements iface.
func TypeImplements(t Type, iface Interface) bool {
	_, ok := typeInterface(t, iface)
	return ok
}

func typeInterface(t Type, iface Interface) (interface{}, bool) {
	types.RLock()
	defer types.RUnlock()

	for t != TypeInvalid {
		node, ok := types.byID[t]
		if !ok {
			return nil, false
		}
		if impl, ok := node.ifaces[iface]; ok {
			return impl, true
		}
		t = node.parent
	}
	return nil, false
}

// ClassOf returns the class of t, running its ClassInit on first use.
func ClassOf(t Type) (*Class, bool) {
	node, ok := lookupType(t)
	if !ok {
		return nil, false
	}
	return node.classRef(), true
}

func (node *typeNode) classRef() *Class {
	node.classOnce.Do(func() {
		class := newClass(node.id)
		if node.parent != TypeInvalid {
			if parent, ok := lookupType(node.parent); ok {
				class.inherit(parent.classRef())
			}
		}
		if node.info.ClassInit != nil {
			node.info.ClassInit(class)
		}
		node.class = class
	})
	return node.class
}
