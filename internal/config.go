package internal

import (
	"fmt"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/orrery/internal/parser"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Journal JournalConfig    `yaml:"journal"`
	SQLite  SQLiteConfig     `yaml:"sqlite"`
	Auth    AuthConfig       `yaml:"auth"`
	Engine  EngineConfig     `yaml:"engine"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Journal.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Engine.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// JournalConfig points at the game's journal directory. An empty Dir
// disables tailing; records then arrive only through the API.
type JournalConfig struct {
	Dir   string `yaml:"dir"`
	Watch bool   `yaml:"watch"`
	// Renames maps a system name seen in journey events to its current name.
	Renames map[string]string `yaml:"renames"`
}

// Enabled reports whether a journal directory is configured.
func (c *JournalConfig) Enabled() bool {
	return c.Dir != ""
}

// Validate validates the journal configuration.
func (c *JournalConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.When(c.Watch, validation.Required.Error("is required when watch is enabled"))),
		validation.Field(&c.Renames, validation.By(nonEmptyRenames)),
	)
}

func nonEmptyRenames(value any) error {
	renames, _ := value.(map[string]string)
	for from, to := range renames {
		if strings.TrimSpace(from) == "" || strings.TrimSpace(to) == "" {
			return fmt.Errorf("rename %q -> %q has an empty side", from, to)
		}
	}
	return nil
}

// EngineConfig holds the designation grammar thresholds.
type EngineConfig struct {
	MaxElements                int `yaml:"max_elements"`
	BarycentreDesignatorMinLen int `yaml:"barycentre_designator_min_len"`
}

// Validate validates the engine configuration.
func (c *EngineConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxElements, validation.Required, validation.Min(1), validation.Max(16)),
		validation.Field(&c.BarycentreDesignatorMinLen, validation.Required, validation.Min(2)),
	)
}

// Rules converts the thresholds for the designation parser.
func (c *EngineConfig) Rules() parser.Rules {
	return parser.Rules{
		MaxElements:                c.MaxElements,
		BarycentreDesignatorMinLen: c.BarycentreDesignatorMinLen,
	}
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		SQLite: SQLiteConfig{
			Path: "./orrery.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Engine: EngineConfig{
			MaxElements:                parser.DefaultMaxElements,
			BarycentreDesignatorMinLen: parser.DefaultBarycentreDesignatorMinLen,
		},
	}
}
