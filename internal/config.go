package internal

import (
	"fmt"
	"log/slog"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/resnum/internal/batch"
	"github.com/starford/resnum/internal/seqstore"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Fasta  FastaConfig       `yaml:"fasta"`
	Spans  SpansConfig       `yaml:"spans"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	Output OutputConfig      `yaml:"output"`
	Auth   AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Fasta.Validate(); err != nil {
		return err
	}
	if err := c.Spans.Validate(); err != nil {
		return err
	}
	if err := c.Output.Validate(); err != nil {
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

// FastaConfig points at the protein database. Path may be empty in the
// config file when it is always given on the command line.
type FastaConfig struct {
	Path    string `yaml:"path"`
	Exclude string `yaml:"exclude"`
}

// Validate validates the FASTA configuration.
func (c *FastaConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Exclude, validation.By(compiles)),
	)
}

// ExcludePattern compiles Exclude. An empty pattern disables exclusion.
func (c *FastaConfig) ExcludePattern() (*regexp.Regexp, error) {
	if c.Exclude == "" {
		return nil, nil
	}
	re, err := regexp.Compile(c.Exclude)
	if err != nil {
		return nil, fmt.Errorf("fasta: exclude: %w", err)
	}
	return re, nil
}

func compiles(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	_, err := regexp.Compile(s)
	return err
}

// SpansConfig holds the span extraction defaults.
type SpansConfig struct {
	Pivot     string `yaml:"pivot"`
	Flank     int    `yaml:"flank"`
	IDColumn  string `yaml:"id_col"`
	SeqColumn string `yaml:"seq_col"`
	Mask      string `yaml:"mask"`
	Delimiter string `yaml:"delimiter"`
}

// Validate validates the span defaults.
func (c *SpansConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Pivot, validation.Required, validation.By(batch.SingleByte)),
		validation.Field(&c.Flank, validation.Min(0)),
		validation.Field(&c.IDColumn, validation.Required),
		validation.Field(&c.SeqColumn, validation.Required),
		validation.Field(&c.Delimiter, validation.Required, validation.RuneLength(1, 1)),
	)
}

// ParseDelimiter accepts the shell-friendly spellings `\t` and "tab" for a
// tab character. Anything else is returned unchanged.
func ParseDelimiter(s string) string {
	switch s {
	case `\t`, "tab", "TAB":
		return "\t"
	}
	return s
}

// Params converts the config section into batch parameters.
func (c *SpansConfig) Params() batch.Params {
	var delim rune
	for _, r := range c.Delimiter {
		delim = r
		break
	}
	return batch.Params{
		IDColumn:  c.IDColumn,
		SeqColumn: c.SeqColumn,
		Pivot:     c.Pivot,
		Flank:     c.Flank,
		Mask:      c.Mask,
		Delimiter: delim,
	}
}

// SQLiteConfig holds SQLite database configuration. An empty path disables
// the persistent sequence index.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Enabled reports whether the sequence index is configured.
func (c *SQLiteConfig) Enabled() bool {
	return c.Path != ""
}

// OutputConfig holds where results are written.
type OutputConfig struct {
	// Path is the default output file for the spans command.
	Path string `yaml:"path"`
	// Dir stores tables expanded through the HTTP API and MCP.
	Dir string `yaml:"dir"`
}

// Validate validates the output configuration.
func (c *OutputConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Dir, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
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
		Fasta: FastaConfig{
			Exclude: seqstore.DefaultExclude,
		},
		Spans: SpansConfig{
			Pivot:     "C",
			Flank:     5,
			IDColumn:  "ipi",
			SeqColumn: "sequence",
			Mask:      "*",
			Delimiter: "\t",
		},
		Output: OutputConfig{
			Path: "peptideSpans.tsv",
			Dir:  "./results",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
