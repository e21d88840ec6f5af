package main

import (
	"context"
	"fmt"

	"github.com/newtron-network/vlanshift/pkg/audit"
	"github.com/newtron-network/vlanshift/pkg/mapping"
	"github.com/newtron-network/vlanshift/pkg/util"
)

// Audit log rotation defaults, used when settings leave them unset.
const (
	defaultAuditMaxSize    = 10 * 1024 * 1024 // 10MB
	defaultAuditMaxBackups = 10
)

// pick returns the flag value when set, otherwise the setting.
func pick(flag, setting, name string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if setting != "" {
		return setting, nil
	}
	return "", fmt.Errorf("%s required: use --%s or 'vlanshift settings set %s <path>'", name, name, name)
}

// loadRules reads the mapping file. Malformed rows are kept so the run
// reports each of them; only an unreadable file is fatal.
func (app *App) loadRules(flag string) ([]mapping.Rule, error) {
	path, err := pick(flag, app.settings.Mapping, "mapping")
	if err != nil {
		return nil, err
	}
	rules, err := mapping.Load(path)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return nil, fmt.Errorf("%s: no VLAN mappings", path)
	}
	util.Debugf("Loaded %d mapping rules from %s", len(rules), path)
	return rules, nil
}

// openAuditLog opens the file audit log, fanning out to Redis when a
// Redis address is configured. A Redis failure only costs the Redis copy.
func (app *App) openAuditLog(ctx context.Context) (audit.Logger, error) {
	s := app.settings
	rotation := audit.RotationConfig{
		MaxSize:    s.AuditMaxSize,
		MaxBackups: s.AuditMaxBackups,
	}
	if rotation.MaxSize == 0 {
		rotation.MaxSize = defaultAuditMaxSize
	}
	if rotation.MaxBackups == 0 {
		rotation.MaxBackups = defaultAuditMaxBackups
	}

	file, err := audit.NewFileLogger(s.GetAuditLog(), rotation)
	if err != nil {
		return nil, err
	}
	if s.RedisAddr == "" {
		return file, nil
	}

	rl, err := audit.NewRedisLogger(ctx, audit.RedisConfig{
		Addr:     s.RedisAddr,
		Password: s.RedisPassword,
		DB:       s.RedisDB,
	})
	if err != nil {
		util.Warnf("Redis audit sink disabled: %v", err)
		return file, nil
	}
	return audit.MultiLogger{file, rl}, nil
}
