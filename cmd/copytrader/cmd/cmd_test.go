package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rustyeddy/copytrader/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("COPYTRADER_JOURNAL_TYPE", "none")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "missing.env")))
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func TestNoArgument(t *testing.T) {
	out, err := execute(t)
	assert.True(t, errors.Is(err, ErrNoArgument))
	assert.Contains(t, out, "No valid argument provided.")

	_, err = execute(t, "mirror-everything")
	assert.True(t, errors.Is(err, ErrNoArgument))
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "copytrader version "+version)
}

func TestConfigInitAndValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.json")

	out, err := execute(t, "config", "init", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Created credential template")

	_, err = execute(t, "config", "init", "-o", path)
	assert.Error(t, err, "refuses to overwrite")

	// the template has zero logins
	_, err = execute(t, "config", "validate", "-f", path)
	assert.Error(t, err)

	cfg := config.Config{
		Master: config.Credential{Login: 11, Password: "a", Server: "S"},
		Slave:  config.Credential{Login: 22, Password: "b", Server: "S"},
	}
	require.NoError(t, cfg.SaveToFile(path))

	out, err = execute(t, "config", "validate", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, "11@S")
	assert.Contains(t, out, "22@S")
}

func TestMonitorWritesTemplateOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.json")

	out, err := execute(t, "monitor", "-a", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Fill in account_1 (master) and account_2 (slave)")

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestJournalDisabled(t *testing.T) {
	_, err := execute(t, "journal", "list")
	assert.ErrorContains(t, err, "journal disabled")
}

func TestDemo(t *testing.T) {
	out, err := execute(t, "demo")
	require.NoError(t, err)

	assert.Contains(t, out, "mirrored")
	assert.Contains(t, out, "skipped")
	assert.Contains(t, out, "closed")
	assert.Contains(t, out, "XAUUSD")
	assert.Contains(t, out, "0.08")
}
