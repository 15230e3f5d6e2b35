package cmd

import (
	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"

	"github.com/fruitstand/fruitstand/internal/cmd/base"
	"github.com/fruitstand/fruitstand/internal/cmd/commands/operator"
	"github.com/fruitstand/fruitstand/internal/cmd/commands/serve"
	"github.com/fruitstand/fruitstand/internal/cmd/commands/version"
)

// Commands is the mapping of all the available commands.
var Commands map[string]cli.CommandFactory

func initCommands(log hclog.Logger, ui cli.Ui) {
	b := base.NewCommand(log, ui)

	Commands = map[string]cli.CommandFactory{
		"operator": func() (cli.Command, error) {
			return &operator.Command{Command: b}, nil
		},
		"operator check-ready": func() (cli.Command, error) {
			return &operator.CheckReadyCommand{Command: b}, nil
		},
		"operator issue-token": func() (cli.Command, error) {
			return &operator.IssueTokenCommand{Command: b}, nil
		},
		"serve": func() (cli.Command, error) {
			return &serve.Command{Command: b}, nil
		},
		"version": func() (cli.Command, error) {
			return &version.Command{Command: b}, nil
		},
	}
}
