package operator

import (
	"fmt"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fruitstand/fruitstand/internal/cmd/base"
	"github.com/fruitstand/fruitstand/pkg/auth"
)

func writeConfig(t *testing.T, src string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "fruitstand.hcl", []byte(src), 0o644))
	return fs
}

func sqliteConfig(t *testing.T, autoMigrate bool) string {
	return fmt.Sprintf(`
database {
  driver       = "sqlite"
  path         = %q
  auto_migrate = %t
}

auth {
  jwt {
    hmac_secret = "operator-secret"
    issuer      = "fruitstand"
  }
}
`, filepath.Join(t.TempDir(), "fruitstand.db"), autoMigrate)
}

func TestCheckReady(t *testing.T) {
	ui := cli.NewMockUi()
	c := &CheckReadyCommand{
		Command: base.NewCommand(hclog.NewNullLogger(), ui),
		Fs:      writeConfig(t, sqliteConfig(t, true)),
	}

	code := c.Run([]string{"-config", "fruitstand.hcl"})
	assert.Equal(t, 0, code, ui.ErrorWriter.String())
	assert.Contains(t, ui.OutputWriter.String(), `"status": "UP"`)
}

func TestCheckReadyWithoutSchema(t *testing.T) {
	ui := cli.NewMockUi()
	c := &CheckReadyCommand{
		Command: base.NewCommand(hclog.NewNullLogger(), ui),
		Fs:      writeConfig(t, sqliteConfig(t, false)),
	}

	code := c.Run([]string{"-config", "fruitstand.hcl"})
	assert.Equal(t, 1, code)
	assert.Contains(t, ui.OutputWriter.String(), `"status": "DOWN"`)
	assert.Contains(t, ui.OutputWriter.String(), "no such table")
}

func TestCheckReadyRequiresConfig(t *testing.T) {
	ui := cli.NewMockUi()
	c := &CheckReadyCommand{Command: base.NewCommand(hclog.NewNullLogger(), ui)}

	assert.Equal(t, 1, c.Run(nil))
	assert.Contains(t, ui.ErrorWriter.String(), "config flag is required")
}

func TestIssueToken(t *testing.T) {
	ui := cli.NewMockUi()
	c := &IssueTokenCommand{
		Command: base.NewCommand(hclog.NewNullLogger(), ui),
		Fs:      writeConfig(t, sqliteConfig(t, false)),
	}

	code := c.Run([]string{"-config", "fruitstand.hcl", "-subject", "carol", "-roles", "user, admin"})
	require.Equal(t, 0, code, ui.ErrorWriter.String())

	token := strings.TrimSpace(ui.OutputWriter.String())
	req := httptest.NewRequest("DELETE", "/fruits/1", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	p, err := auth.NewJWTAuthenticator([]byte("operator-secret"), "fruitstand").Authenticate(req)
	require.NoError(t, err)
	assert.Equal(t, "carol", p.Name)
	assert.Equal(t, []string{"user", "admin"}, p.Roles)
}

func TestIssueTokenWithoutJWTConfig(t *testing.T) {
	ui := cli.NewMockUi()
	c := &IssueTokenCommand{
		Command: base.NewCommand(hclog.NewNullLogger(), ui),
		Fs:      writeConfig(t, ""),
	}

	assert.Equal(t, 1, c.Run([]string{"-config", "fruitstand.hcl", "-subject", "carol"}))
	assert.Contains(t, ui.ErrorWriter.String(), "no auth.jwt block")
}

func TestOperatorHelpListsSubcommands(t *testing.T) {
	ui := cli.NewMockUi()
	c := &Command{Command: base.NewCommand(hclog.NewNullLogger(), ui)}

	help := c.Help()
	assert.Contains(t, help, "check-ready")
	assert.Contains(t, help, "issue-token")
	assert.Contains(t, help, (&IssueTokenCommand{}).Synopsis())

	assert.Equal(t, cli.RunResultHelp, c.Run(nil))
	assert.Empty(t, ui.ErrorWriter.String())

	assert.Equal(t, cli.RunResultHelp, c.Run([]string{"rotate-keys"}))
	assert.Contains(t, ui.ErrorWriter.String(), "unknown operator subcommand: rotate-keys")
}
