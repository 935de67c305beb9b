package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Master: Credential{Login: 5001, Password: "m", Server: "Broker-Live"},
		Slave:  Credential{Login: 6002, Password: "s", Server: "Broker-Live"},
	}
}

func TestLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.json")
	data := `{
		"account_1": {"login": 5001, "password": "m", "server": "Broker-Live"},
		"account_2": {"login": 6002, "password": "s", "server": "Broker-Demo"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, int64(5001), cfg.Master.Login)
	assert.Equal(t, "Broker-Demo", cfg.Slave.Server)
	assert.Equal(t, "5001@Broker-Live", cfg.Master.String())
}

func TestLoadStringLogins(t *testing.T) {
	for name, data := range map[string]string{
		"accounts.json": `{
			"account_1": {"login": "5001", "password": "m", "server": "Broker-Live"},
			"account_2": {"login": 6002.0, "password": "s", "server": "Broker-Live"}
		}`,
		"accounts.yaml": "account_1:\n  login: \"5001\"\n  password: m\n  server: Broker-Live\n" +
			"account_2:\n  login: 6002\n  password: s\n  server: Broker-Live\n",
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

			cfg, err := LoadFromFile(path)
			require.NoError(t, err)
			assert.Equal(t, validConfig(), cfg)
		})
	}

	path := filepath.Join(t.TempDir(), "accounts.json")
	data := `{"account_1": {"login": "abc", "password": "m", "server": "x"}}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	_, err := LoadFromFile(path)
	assert.ErrorContains(t, err, "not a whole number")
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	for _, name := range []string{"accounts.json", "accounts.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, validConfig().SaveToFile(path))

			st, err := os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0o600), st.Mode().Perm())

			cfg, err := LoadFromFile(path)
			require.NoError(t, err)
			assert.Equal(t, validConfig(), cfg)
		})
	}
}

func TestSaveJSONKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.json")
	require.NoError(t, validConfig().SaveToFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"account_1"`)
	assert.Contains(t, string(data), `"account_2"`)
	assert.Contains(t, string(data), `    "account_1"`, "indented with four spaces")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"master login", func(c *Config) { c.Master.Login = 0 }, "account_1.login"},
		{"slave password", func(c *Config) { c.Slave.Password = "" }, "account_2.password"},
		{"slave server", func(c *Config) { c.Slave.Server = "" }, "account_2.server"},
		{"same account", func(c *Config) { c.Slave = c.Master }, "must be different"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestEnsureFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultPath)

	err := EnsureFile(path)
	assert.True(t, errors.Is(err, ErrCreated))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"password": "password"`)

	// the template must be edited before it loads
	_, err = LoadFromFile(path)
	assert.Error(t, err)

	require.NoError(t, validConfig().SaveToFile(path))
	assert.NoError(t, EnsureFile(path))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, int64(5001), cfg.Master.Login, "existing file left untouched")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
