// Package settings manages persistent user settings for the vlanshift CLI.
//
// Settings come from ~/.vlanshift/settings.json, overlaid by VLANSHIFT_*
// environment variables (a .env file in the working directory is loaded
// first when present). Command-line flags override both.
package settings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/newtron-network/vlanshift/pkg/util"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "VLANSHIFT_"

// Defaults used when a setting is empty.
const (
	DefaultWorkers = 1
	DefaultTimeout = 30 * time.Second
)

// Settings holds persistent user preferences
type Settings struct {
	// Inventory is the device inventory used when --inventory is not given
	Inventory string `json:"inventory,omitempty" env:"INVENTORY"`

	// Mapping is the VLAN mapping file used when --mapping is not given
	Mapping string `json:"mapping,omitempty" env:"MAPPING"`

	Workers int    `json:"workers,omitempty" env:"WORKERS" validate:"omitempty,min=1,max=256"`
	Timeout string `json:"timeout,omitempty" env:"TIMEOUT" validate:"omitempty,duration"`

	AuditLog        string `json:"audit_log,omitempty" env:"AUDIT_LOG"`
	AuditMaxSize    int64  `json:"audit_max_size,omitempty" env:"AUDIT_MAX_SIZE" validate:"omitempty,min=0"`
	AuditMaxBackups int    `json:"audit_max_backups,omitempty" env:"AUDIT_MAX_BACKUPS" validate:"omitempty,min=0"`

	// RedisAddr enables the Redis audit sink
	RedisAddr     string `json:"redis_addr,omitempty" env:"REDIS_ADDR" validate:"omitempty,hostname_port"`
	RedisPassword string `json:"-" env:"REDIS_PASSWORD"`
	RedisDB       int    `json:"redis_db,omitempty" env:"REDIS_DB" validate:"omitempty,min=0,max=15"`

	// KnownHosts enables SSH host key checking
	KnownHosts string `json:"known_hosts,omitempty" env:"KNOWN_HOSTS"`

	MetricsFile string `json:"metrics_file,omitempty" env:"METRICS_FILE"`
	LogLevel    string `json:"log_level,omitempty" env:"LOG_LEVEL" validate:"omitempty,oneof=debug info warn warning error"`
}

// DefaultSettingsPath returns the default path for the settings file
func DefaultSettingsPath() string {
	return filepath.Join(baseDir(), "settings.json")
}

func baseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".vlanshift"
	}
	return filepath.Join(home, ".vlanshift")
}

// Load reads settings from the default location and applies the
// environment.
func Load() (*Settings, error) {
	s, err := LoadFrom(DefaultSettingsPath())
	if err != nil {
		return nil, err
	}
	if err := s.ApplyEnv(); err != nil {
		return nil, err
	}
	return s, s.Validate()
}

// LoadFrom reads settings from a specific path
func LoadFrom(path string) (*Settings, error) {
	s := &Settings{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return s, nil
}

// ApplyEnv overlays VLANSHIFT_* variables. Unset variables leave the
// current value alone.
func (s *Settings) ApplyEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		util.Warnf("Could not load .env: %v", err)
	}
	if err := env.ParseWithOptions(s, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parsing environment: %w", err)
	}
	return nil
}

var validate = func() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
		_, err := time.ParseDuration(fl.Field().String())
		return err == nil
	})
	return v
}()

// Validate checks every field and reports all problems at once.
func (s *Settings) Validate() error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	var vb util.ValidationBuilder
	for _, fe := range fieldErrs {
		vb.AddErrorf("setting %s: invalid value %v (%s)", fe.Field(), fe.Value(), fe.Tag())
	}
	return vb.Build()
}

// Save writes settings to the default location
func (s *Settings) Save() error {
	return s.SaveTo(DefaultSettingsPath())
}

// SaveTo writes settings to a specific path
func (s *Settings) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

var setters = map[string]func(s *Settings, v string) error{
	"inventory":   func(s *Settings, v string) error { s.Inventory = v; return nil },
	"mapping":     func(s *Settings, v string) error { s.Mapping = v; return nil },
	"workers":     func(s *Settings, v string) error { return setInt(&s.Workers, v) },
	"timeout":     func(s *Settings, v string) error { s.Timeout = v; return nil },
	"audit_log":   func(s *Settings, v string) error { s.AuditLog = v; return nil },
	"redis_addr":  func(s *Settings, v string) error { s.RedisAddr = v; return nil },
	"redis_db":    func(s *Settings, v string) error { return setInt(&s.RedisDB, v) },
	"known_hosts": func(s *Settings, v string) error { s.KnownHosts = v; return nil },
	"metrics_file": func(s *Settings, v string) error {
		s.MetricsFile = v
		return nil
	},
	"log_level": func(s *Settings, v string) error { s.LogLevel = v; return nil },
	"audit_max_size": func(s *Settings, v string) error {
		if v == "" {
			s.AuditMaxSize = 0
			return nil
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("audit_max_size must be a number of bytes: %w", err)
		}
		s.AuditMaxSize = n
		return nil
	},
	"audit_max_backups": func(s *Settings, v string) error { return setInt(&s.AuditMaxBackups, v) },
}

func setInt(dst *int, v string) error {
	if v == "" {
		*dst = 0
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%q is not a number: %w", v, err)
	}
	*dst = n
	return nil
}

// Keys lists the names accepted by Set.
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set assigns one setting by name and validates the result. An empty value
// resets the setting.
func (s *Settings) Set(key, value string) error {
	set, ok := setters[key]
	if !ok {
		return fmt.Errorf("unknown setting %q (valid: %v)", key, Keys())
	}
	next := *s
	if err := set(&next, value); err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*s = next
	return nil
}

// Get returns one setting by name as it is stored in the file, or "" when
// unset.
func (s *Settings) Get(key string) (string, error) {
	if _, ok := setters[key]; !ok {
		return "", fmt.Errorf("unknown setting %q (valid: %v)", key, Keys())
	}
	data, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return "", err
	}
	if v, ok := fields[key]; ok {
		return fmt.Sprint(v), nil
	}
	return "", nil
}

// Clear resets all settings to defaults
func (s *Settings) Clear() {
	*s = Settings{}
}

// GetWorkers returns the worker count (with fallback)
func (s *Settings) GetWorkers() int {
	if s.Workers > 0 {
		return s.Workers
	}
	return DefaultWorkers
}

// GetTimeout returns the session timeout (with fallback)
func (s *Settings) GetTimeout() time.Duration {
	if d, err := time.ParseDuration(s.Timeout); err == nil && d > 0 {
		return d
	}
	return DefaultTimeout
}

// GetAuditLog returns the audit log path (with fallback)
func (s *Settings) GetAuditLog() string {
	if s.AuditLog != "" {
		return s.AuditLog
	}
	return filepath.Join(baseDir(), "audit.log")
}
