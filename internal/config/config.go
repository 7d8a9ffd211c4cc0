// Package config loads the CLI's TOML configuration file into the
// options internal/txn.Open and internal/kvstore.Open need, mirroring the
// teacher's internal/apply.Options: a plain struct of independent
// toggles, populated once and passed down rather than threaded as
// individual flags.
package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"permadb/internal/migrate"
	"permadb/internal/txn"
)

// Config is the top-level TOML document a `permadb` invocation may load
// via --config, e.g.:
//
//	backend = "memkv"
//	dsn = "user:pass@tcp(127.0.0.1:3306)/permadb"
//	schema_file = "schema.toml"
//	format = "human"
//	allow_new_schema = true
//	validation_mode = "automatic"
//	upgrade_conversion_default = "attempt"
//	read_only = false
type Config struct {
	Backend                  string `toml:"backend"`
	DSN                      string `toml:"dsn"`
	SchemaFile               string `toml:"schema_file"`
	Format                   string `toml:"format"`
	AllowNewSchema           bool   `toml:"allow_new_schema"`
	ValidationMode           string `toml:"validation_mode"`
	UpgradeConversionDefault string `toml:"upgrade_conversion_default"`
	ReadOnly                 bool   `toml:"read_only"`
}

// Default returns the configuration a bare `permadb` invocation uses when
// no --config file is given: the in-process memkv backend, automatic
// validation, and PolicyAttempt conversions.
func Default() Config {
	return Config{
		Backend:                  "memkv",
		Format:                   "human",
		AllowNewSchema:           true,
		ValidationMode:           "automatic",
		UpgradeConversionDefault: "attempt",
	}
}

// Load reads and parses path as a Config, starting from Default() so an
// incomplete file still yields sane values for whatever it omits.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a Config document from r.
func Parse(r io.Reader) (Config, error) {
	cfg := Default()
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode error: %w", err)
	}
	return cfg, nil
}

// TxnOptions converts the configuration's validation/migration settings
// into a txn.Options, ready to pass to txn.Open.
func (c Config) TxnOptions() (txn.Options, error) {
	mode, err := parseValidationMode(c.ValidationMode)
	if err != nil {
		return txn.Options{}, err
	}
	policy, err := parseConversionPolicy(c.UpgradeConversionDefault)
	if err != nil {
		return txn.Options{}, err
	}
	return txn.Options{
		AllowNewSchema:           c.AllowNewSchema,
		ValidationMode:           mode,
		UpgradeConversionDefault: policy,
		ReadOnly:                 c.ReadOnly,
	}, nil
}

func parseValidationMode(s string) (txn.ValidationMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "automatic":
		return txn.ValidationAutomatic, nil
	case "manual":
		return txn.ValidationManual, nil
	case "disabled":
		return txn.ValidationDisabled, nil
	default:
		return 0, fmt.Errorf("config: unknown validation_mode %q; use automatic, manual, or disabled", s)
	}
}

func parseConversionPolicy(s string) (migrate.ConversionPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "attempt":
		return migrate.PolicyAttempt, nil
	case "require":
		return migrate.PolicyRequire, nil
	case "reset":
		return migrate.PolicyReset, nil
	case "retain":
		return migrate.PolicyRetain, nil
	default:
		return 0, fmt.Errorf("config: unknown upgrade_conversion_default %q; use attempt, require, reset, or retain", s)
	}
}
