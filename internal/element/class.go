package element

import (
	"fmt"
	"sort"
)

// Metadata is the human-readable description of a class.
type Metadata struct {
	LongName       string
	Classification string
	Description    string
	Author         string
}

type PadDirection int

const (
	PadUnknown PadDirection = iota
	PadSrc
	PadSink
)

func (d PadDirection) String() string {
	switch d {
	case PadSrc:
		return "src"
	case PadSink:
		return "sink"
	default:
		return "unknown"
	}
}

type PadPresence int

const (
	PadAlways PadPresence = iota
	PadSometimes
	PadRequest
)

func (p PadPresence) String() string {
	switch p {
	case PadAlways:
		return "always"
	case PadSometimes:
		return "sometimes"
	default:
		return "request"
	}
}

// CapsAny accepts any media type.
const CapsAny = "ANY"

type PadTemplate struct {
	Name      string
	Direction PadDirection
	Presence  PadPresence
	Caps      string
}

// ParamType is the value type of a property.
type ParamType int

const (
	ParamString ParamType = iota
	ParamBool
	ParamUint64
)

func (t ParamType) String() string {
	switch t {
	case ParamString:
		return "string"
	case ParamBool:
		return "bool"
	default:
		return "uint64"
	}
}

func (t ParamType) accepts(value interface{}) bool {
	switch value.(type) {
	case string:
		return t == ParamString
	case bool:
		return t == ParamBool
	case uint64:
		return t == ParamUint64
	}
	return false
}

type ParamFlags uint

const (
	ParamReadable ParamFlags = 1 << iota
	ParamWritable

	// Writable only while the object has not left the READY state.
	ParamMutableReady

	ParamReadWrite = ParamReadable | ParamWritable
)

// ParamSpec describes an installed property.
type ParamSpec struct {
	Name    string
	Nick    string
	Blurb   string
	Type    ParamType
	Default interface{}
	Flags   ParamFlags

	id uint
}

func (p *ParamSpec) ID() uint {
	return p.id
}

// Class holds the per-type state shared by all instances: metadata, pad
// templates and installed properties.
type Class struct {
	typ      Type
	metadata Metadata

	padTemplates []PadTemplate

	props       map[uint]*ParamSpec
	propsByName map[string]*ParamSpec
}

func newClass(t Type) *Class {
	return &Class{
		typ:         t,
		props:       make(map[uint]*ParamSpec),
		propsByName: make(map[string]*ParamSpec),
	}
}

// Copy the parent's class contents, the way a derived class starts out as a
// copy of its parent.
func (c *Class) inherit(parent *Class) {
	c.metadata = parent.metadata
	c.padTemplates = append(c.padTemplates, parent.padTemplates...)
	for id, p := range parent.props {
		c.props[id] = p
		c.propsByName[p.Name] = p
	}
}

func (c *Class) Type() Type {
	return c.typ
}

func (c *Class) Metadata() Metadata {
	return c.metadata
}

func (c *Class) SetMetadata(longName, classification, description, author string) {
	c.metadata = Metadata{longName, classification, description, author}
}

func (c *Class) AddPadTemplate(templ PadTemplate) {
	c.padTemplates = append(c.padTemplates, templ)
}

func (c *Class) PadTemplates() []PadTemplate {
	return append([]PadTemplate(nil), c.padTemplates...)
}

// InstallProperty registers pspec under id. It must only be called from
// ClassInit; ids are positive and unique per class.
func (c *Class) InstallProperty(id uint, pspec *ParamSpec) {
	if id == 0 {
		panic(fmt.Sprintf("element: property %q: id 0 is reserved", pspec.Name))
	}
	if _, exists := c.props[id]; exists {
		panic(fmt.Sprintf("element: property id %d installed twice", id))
	}
	if _, exists := c.propsByName[pspec.Name]; exists {
		panic(fmt.Sprintf("element: property %q installed twice", pspec.Name))
	}
	p := *pspec
	p.id = id
	c.props[id] = &p
	c.propsByName[p.Name] = &p
}

func (c *Class) FindProperty(name string) (*ParamSpec, bool) {
	p, ok := c.propsByName[name]
	return p, ok
}

// Properties lists the installed properties ordered by id.
func (c *Class) Properties() []*ParamSpec {
	props := make([]*ParamSpec, 0, len(c.props))
	for _, p := range c.props {
		props = append(props, p)
	}
	sort.Slice(props, func(i, j int) bool { return props[i].id < props[j].id })
	return props
}
