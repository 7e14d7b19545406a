package config

import (
	"flag"
	"io"
	"strings"
)

// FilterArgs returns the arguments that belong to flags defined on fs, so
// several flag sets can parse the same os.Args. "-f v", "-f=v" and the
// "--f" spellings are kept; boolean flags never take the next argument.
// Unknown flags are dropped together with a following value.
func FilterArgs(fs *flag.FlagSet, args []string) []string {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			break
		}
		if len(arg) < 2 || arg[0] != '-' {
			continue
		}

		name, _, inline := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		out = append(out, arg)
		if inline || isBoolFlag(f) || i+1 >= len(args) {
			continue
		}
		i++
		out = append(out, args[i])
	}
	return out
}

func isBoolFlag(f *flag.Flag) bool {
	b, ok := f.Value.(interface{ IsBoolFlag() bool })
	return ok && b.IsBoolFlag()
}

func jsonConfigPath(args []string) string {
	var path string

	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&path, "config", "", "path to config file")
	fs.StringVar(&path, "c", "", "path to config file (short)")
	_ = fs.Parse(FilterArgs(fs, args))

	return path
}
