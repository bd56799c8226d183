package source

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/lanikai/alohasrc/internal/element"
)

// TypePrefix is prepended to the backend name to form the element type name.
const TypePrefix = "AlohaSrc-"

// Info describes a backend to Register.
type Info struct {
	// Factory name, e.g. "httpsrc". Required.
	Name string

	LongName       string
	Description    string
	Classification string
	Author         string
	Rank           element.Rank

	// Creates the backend state for each instance. Required.
	Factory Factory

	// Colon-separated URI schemes, e.g. "http:https". May be empty.
	Schemes string

	// Push-only backends produce data strictly in sequence and derive PushSrc.
	PushOnly bool

	// Initial blocksize of new instances. Zero means element.DefaultBlocksize.
	Blocksize uint
}

// Register creates an element type for the backend described by info and
// advertises it in p under info.Name.
func Register(p *element.Plugin, info Info) error {
	initRegistry()

	log.Debug("Registering %s", info.Name)
	log.Debug("  long name: %s", info.LongName)
	log.Debug("  description: %s", info.Description)
	log.Debug("  classification: %s", info.Classification)
	log.Debug("  author: %s", info.Author)
	log.Debug("  rank: %v", info.Rank)
	log.Debug("  schemes: %s", info.Schemes)
	log.Debug("  push only: %v", info.PushOnly)
	log.Debug("  blocksize: %d", info.Blocksize)

	if info.Name == "" {
		return errors.New("register source: empty name")
	}
	if info.Factory == nil {
		return errors.Errorf("register source %s: no factory", info.Name)
	}

	d := &Descriptor{
		name:           info.Name,
		longName:       info.LongName,
		description:    info.Description,
		classification: info.Classification,
		author:         info.Author,
		rank:           info.Rank,
		pushOnly:       info.PushOnly,
		blocksize:      info.Blocksize,
		factory:        info.Factory,
		schemes:        splitSchemes(info.Schemes),
	}

	parent := element.TypeBaseSrc
	if info.PushOnly {
		parent = element.TypePushSrc
	}
	t, err := element.RegisterType(parent, TypePrefix+info.Name, bridgeTypeInfo())
	if err != nil {
		return errors.Wrapf(err, "register source %s", info.Name)
	}
	if err := element.AddInterface(t, element.InterfaceURIHandler, uriHandler()); err != nil {
		return errors.Wrapf(err, "register source %s", info.Name)
	}
	insertDescriptor(t, d)

	if err := p.Register(info.Name, info.Rank, t); err != nil {
		return errors.Wrapf(err, "register source %s", info.Name)
	}
	return nil
}

// splitSchemes turns "http:https" into its schemes, dropping empty entries and
// repeats while keeping the order.
func splitSchemes(s string) []string {
	schemes := []string{}
	seen := make(map[string]bool)
	for _, scheme := range strings.Split(s, ":") {
		if scheme == "" || seen[scheme] {
			continue
		}
		seen[scheme] = true
		schemes = append(schemes, scheme)
	}
	return schemes
}
