package logging

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

const envVar = "LOGLEVEL"

type tagLevel struct {
	tag   string
	level Level
}

var (
	mu sync.RWMutex

	// Default level can be changed by environment variable.
	defaultLevel = Info
	tagLevels    []tagLevel
)

func init() {
	if err := Configure(os.Getenv(envVar)); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid %s: %s\n", envVar, err)
	}
}

// Configure replaces the active level directives. The string holds
// comma-separated "tag=level" directives; a directive without "tag=" sets the
// default level. An empty string resets to Info for everything.
func Configure(directives string) error {
	level := Info
	var levels []tagLevel

	for _, d := range strings.Split(directives, ",") {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		v := strings.SplitN(d, "=", 2)
		l, err := ParseLevel(v[len(v)-1])
		if err != nil {
			return fmt.Errorf("directive '%s': %v", d, err)
		}
		if len(v) == 1 {
			level = l
		} else {
			levels = append(levels, tagLevel{v[0], l})
		}
	}

	mu.Lock()
	defaultLevel = level
	tagLevels = levels
	mu.Unlock()
	return nil
}

func determineLevel(tag string, fallback Level) Level {
	mu.RLock()
	defer mu.RUnlock()

	for _, e := range tagLevels {
		if e.tag == tag {
			return e.level
		}
	}
	if fallback != unset {
		return fallback
	}
	return defaultLevel
}
