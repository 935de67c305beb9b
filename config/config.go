package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the credential file is looked up when no path is given.
const DefaultPath = "accounts.json"

// ErrCreated is returned by EnsureFile when it had to write a template.
// The caller is expected to stop and let the user fill in the credentials.
var ErrCreated = errors.New("credential file created")

// Credential identifies one trading account on a terminal server.
type Credential struct {
	Login    int64  `json:"login" yaml:"login"`
	Password string `json:"password" yaml:"password"`
	Server   string `json:"server" yaml:"server"`
}

func (c Credential) String() string {
	return fmt.Sprintf("%d@%s", c.Login, c.Server)
}

// credentialDoc is the file form of a Credential. Logins written as strings
// ("12345") or whole floats (12345.0) are accepted.
type credentialDoc struct {
	Login    login  `json:"login" yaml:"login"`
	Password string `json:"password" yaml:"password"`
	Server   string `json:"server" yaml:"server"`
}

func (d credentialDoc) credential() Credential {
	return Credential{Login: int64(d.Login), Password: d.Password, Server: d.Server}
}

func (c *Credential) UnmarshalYAML(n *yaml.Node) error {
	var doc credentialDoc
	if err := n.Decode(&doc); err != nil {
		return err
	}
	*c = doc.credential()
	return nil
}

func (c *Credential) UnmarshalJSON(b []byte) error {
	var doc credentialDoc
	if err := json.Unmarshal(b, &doc); err != nil {
		return err
	}
	*c = doc.credential()
	return nil
}

type login int64

func (l *login) UnmarshalYAML(n *yaml.Node) error {
	if n.Tag == "!!null" {
		return nil
	}
	return l.parse(n.Value)
}

func (l *login) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		return nil
	}
	return l.parse(strings.Trim(s, `"`))
}

func (l *login) parse(s string) error {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		*l = login(n)
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) {
		return fmt.Errorf("login %q is not a whole number", s)
	}
	*l = login(f)
	return nil
}

// Config holds the two accounts: account_1 is the master, account_2 the slave.
type Config struct {
	Master Credential `json:"account_1" yaml:"account_1"`
	Slave  Credential `json:"account_2" yaml:"account_2"`
}

// LoadFromFile loads configuration from a file (JSON or YAML)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	// JSON is valid YAML, so a single YAML pass covers both. JSON is kept as a
	// fallback for the odd document yaml.v3 refuses (tabs, duplicate keys).
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (YAML for .yaml/.yml, JSON otherwise)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "    ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	// credentials: owner read/write only
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// EnsureFile writes the Default template to path when nothing exists there
// yet and returns ErrCreated. An existing file is left untouched.
func EnsureFile(path string) error {
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat config file: %w", err)
	}
	if err := Default().SaveToFile(path); err != nil {
		return err
	}
	return ErrCreated
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := c.Master.validate("account_1"); err != nil {
		return err
	}
	if err := c.Slave.validate("account_2"); err != nil {
		return err
	}
	if c.Master.Login == c.Slave.Login && c.Master.Server == c.Slave.Server {
		return fmt.Errorf("account_1 and account_2 must be different accounts")
	}
	return nil
}

func (c Credential) validate(name string) error {
	if c.Login <= 0 {
		return fmt.Errorf("%s.login must be positive", name)
	}
	if c.Password == "" {
		return fmt.Errorf("%s.password is required", name)
	}
	if c.Server == "" {
		return fmt.Errorf("%s.server is required", name)
	}
	return nil
}

// Default returns the first-run template. It does not validate: the zero
// logins must be replaced by the user.
func Default() *Config {
	return &Config{
		Master: Credential{
			Login:    0,
			Password: "password",
			Server:   "server",
		},
		Slave: Credential{
			Login:    0,
			Password: "password",
			Server:   "server",
		},
	}
}
