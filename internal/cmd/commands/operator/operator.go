package operator

import (
	"fmt"
	"strings"

	"github.com/mitchellh/cli"

	"github.com/fruitstand/fruitstand/internal/cmd/base"
)

// Command groups the operator subcommands. They work on the config file and
// database directly and never start the HTTP server.
type Command struct {
	*base.Command
}

// subcommands lists the operator subcommands in help order.
var subcommands = []struct {
	name string
	cmd  cli.Command
}{
	{"check-ready", &CheckReadyCommand{}},
	{"issue-token", &IssueTokenCommand{}},
}

func (c *Command) Synopsis() string {
	return "Operator tasks: readiness checks and API tokens"
}

func (c *Command) Help() string {
	var b strings.Builder
	b.WriteString(`Usage: fruitstand operator <subcommand> [options]

  Tasks for operators of a fruitstand deployment. None of them needs a
  running server.

Subcommands:
`)
	for _, sc := range subcommands {
		fmt.Fprintf(&b, "    %-14s%s\n", sc.name, sc.cmd.Synopsis())
	}
	return strings.TrimRight(b.String(), "\n")
}

func (c *Command) Run(args []string) int {
	if len(args) > 0 && c.UI != nil {
		c.UI.Error(fmt.Sprintf("unknown operator subcommand: %s", args[0]))
	}
	return cli.RunResultHelp
}
