// Package flagx lets several flag sets share one argument list. Each loader
// keeps only the flags it owns and parses those.
package flagx

import (
	"flag"
	"io"
	"strings"
)

// ConfigEnv names the config file when no -c/-config flag is given.
const ConfigEnv = "CONTRACTSIGN_CONFIG"

// FilterArgs returns the arguments that belong to the named flags. Names are
// given without dashes; "-n", "--n", "-n=v" and "--n=v" all match "n".
// A separate value is kept when the next argument does not start with '-'.
// Scanning stops at "--".
func FilterArgs(args []string, names ...string) []string {
	owned := make(map[string]struct{}, len(names))
	for _, n := range names {
		owned[strings.TrimLeft(n, "-")] = struct{}{}
	}

	filtered := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			break
		}
		if !strings.HasPrefix(arg, "-") {
			continue
		}

		name, _, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if _, ok := owned[name]; !ok {
			continue
		}
		filtered = append(filtered, arg)
		if !hasValue && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			filtered = append(filtered, args[i+1])
			i++
		}
	}
	return filtered
}

// ConfigPath returns the config file named by -c or -config in args, the
// last one winning. Without either flag it falls back to $CONTRACTSIGN_CONFIG.
func ConfigPath(args []string, getenv func(string) string) string {
	var path string

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&path, "config", "", "path to config file (json or yaml)")
	fs.StringVar(&path, "c", "", "path to config file (short)")
	_ = fs.Parse(FilterArgs(args, "c", "config"))

	if path == "" && getenv != nil {
		path = getenv(ConfigEnv)
	}
	return path
}
