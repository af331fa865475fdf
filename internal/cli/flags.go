package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/hashicorp/go-hclog"

	"github.com/maja42/peres"
)

// LogLevelEnv overrides the log level of the command line tools.
const LogLevelEnv = "PERES_LOG_LEVEL"

// NewLogger returns the logger of a tool writing to out.
// verbose selects debug output; otherwise LogLevelEnv is consulted and info is the default.
func NewLogger(name string, out io.Writer, verbose bool) hclog.Logger {
	level := hclog.Info
	if verbose {
		level = hclog.Debug
	} else if l := hclog.LevelFromString(os.Getenv(LogLevelEnv)); l != hclog.NoLevel {
		level = l
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   name,
		Level:  level,
		Output: out,
	})
}

// ParseUint16 parses a decimal or 0x-prefixed ordinal.
func ParseUint16(s string) (uint16, error) {
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}

// DefaultFallback returns the name probed after primary when none is given:
// manifest slot 2 after slot 1, otherwise primary again.
func DefaultFallback(typ peres.ResourceType, primary uint16) uint16 {
	if typ == peres.Manifest && primary == peres.ManifestPrimary {
		return peres.ManifestFallback
	}
	return primary
}

// ParseType accepts a symbolic resource type ("manifest", "typelib", ...) or a numeric code.
func ParseType(s string) (peres.ResourceType, error) {
	if t, ok := peres.ParseResourceType(s); ok {
		return t, nil
	}
	v, err := ParseUint16(s)
	if err != nil {
		return 0, fmt.Errorf("unknown resource type %q", s)
	}
	if v == 0 {
		return 0, fmt.Errorf("resource type must not be zero")
	}
	return peres.RawType(v), nil
}
