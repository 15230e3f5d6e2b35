package version

import (
	"github.com/fruitstand/fruitstand/internal/cmd/base"
	"github.com/fruitstand/fruitstand/internal/version"
)

type Command struct {
	*base.Command
}

func (c *Command) Synopsis() string {
	return "Print the fruitstand version"
}

func (c *Command) Help() string {
	return `Usage: fruitstand version

  Print the version of this fruitstand binary.`
}

func (c *Command) Run(args []string) int {
	c.UI.Output("fruitstand v" + version.Version)
	return 0
}
