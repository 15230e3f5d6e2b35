package base

import (
	"bytes"
	"flag"
	"fmt"
	"strings"
)

// FlagSet wraps flag.FlagSet to render flag usage in command help.
type FlagSet struct {
	*flag.FlagSet
}

// NewFlagSet wraps f. Output of the flag package itself is discarded; errors
// are reported by the command.
func NewFlagSet(f *flag.FlagSet) *FlagSet {
	f.SetOutput(new(bytes.Buffer))
	return &FlagSet{FlagSet: f}
}

// Help returns the usage of every flag in f.
func (f *FlagSet) Help() string {
	var out strings.Builder
	out.WriteString("\n\nOptions:\n\n")
	f.VisitAll(func(fl *flag.Flag) {
		fmt.Fprintf(&out, "  -%s", fl.Name)
		name, usage := flag.UnquoteUsage(fl)
		if name != "" {
			fmt.Fprintf(&out, "=<%s>", name)
		}
		if fl.DefValue != "" && fl.DefValue != "false" {
			fmt.Fprintf(&out, " (default: %s)", fl.DefValue)
		}
		fmt.Fprintf(&out, "\n      %s\n\n", usage)
	})
	return strings.TrimRight(out.String(), "\n")
}

// IsSet reports whether the flag name was given on the command line.
func (f *FlagSet) IsSet(name string) bool {
	set := false
	f.Visit(func(fl *flag.Flag) {
		if fl.Name == name {
			set = true
		}
	})
	return set
}
