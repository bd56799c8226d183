//////////////////////////////////////////////////////////////////////////////
//
// Plugin entry point: registers the bundled source backends
//
// Copyright 2019 Lanikai Labs. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

package alohasrc

import (
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/lanikai/alohasrc/internal/config"
	"github.com/lanikai/alohasrc/internal/element"
	"github.com/lanikai/alohasrc/internal/logging"
	"github.com/lanikai/alohasrc/internal/source"
	"github.com/lanikai/alohasrc/internal/source/datasrc"
	"github.com/lanikai/alohasrc/internal/source/filesrc"
	"github.com/lanikai/alohasrc/internal/source/httpsrc"
	"github.com/lanikai/alohasrc/internal/source/wssrc"
)

var log = logging.DefaultLogger.WithTag("alohasrc")

// Populated via -ldflags="-X ...".
var Version = "dev"

// NewPlugin returns the plugin that PluginInit registers into.
func NewPlugin() *element.Plugin {
	return &element.Plugin{
		Name:        "alohasrc",
		Description: "Pluggable byte sources: file, HTTP, websocket and data URIs",
		Version:     Version,
	}
}

// Backends lists the descriptions of the bundled backends, configured by cfg
// but without the per-backend overrides applied.
func Backends(cfg *config.Config) []source.Info {
	infos := []source.Info{
		filesrc.Info(),
		httpsrc.Info(cfg.HTTP.Options()),
		wssrc.Info(cfg.WS.Options()),
		datasrc.Info(),
	}
	for i := range infos {
		infos[i].Blocksize = uint(cfg.Blocksize)
	}
	return infos
}

// PluginInit registers every backend enabled in cfg into p, applying the rank
// and scheme overrides. A backend that fails to register does not prevent the
// others from registering; all failures are reported together.
func PluginInit(p *element.Plugin, cfg *config.Config) error {
	if cfg == nil {
		cfg = config.Default()
	}

	known := make(map[string]bool)
	var failures []string
	infos := Backends(cfg)
	for _, info := range infos {
		known[info.Name] = true

		sc := cfg.Sources[info.Name]
		if !sc.IsEnabled() {
			log.Info("Source %s disabled by configuration", info.Name)
			continue
		}
		if sc.Rank != nil {
			info.Rank = element.Rank(*sc.Rank)
		}
		if sc.Schemes != "" {
			info.Schemes = sc.Schemes
		}

		if err := source.Register(p, info); err != nil {
			log.Error("Failed to register %s: %v", info.Name, err)
			failures = append(failures, err.Error())
		}
	}

	var unknown []string
	for name := range cfg.Sources {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		log.Warn("Ignoring configuration of unknown sources: %s", strings.Join(unknown, ", "))
	}

	if len(failures) > 0 {
		return errors.Errorf("%d of %d sources failed to register: %s",
			len(failures), len(infos), strings.Join(failures, "; "))
	}
	return nil
}
