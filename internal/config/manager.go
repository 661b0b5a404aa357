package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gofrs/flock"

	setuperrors "github.com/spec-tools/claude-setup/internal/errors"
	"github.com/spec-tools/claude-setup/internal/logging"
	"github.com/spec-tools/claude-setup/pkg/fileutil"
)

// persisted is the on-disk shape: the logical fields plus metadata that is
// not part of the schema proper.
type persisted struct {
	Config
	Version     string    `json:"_version"`
	LastUpdated time.Time `json:"_lastUpdated"`
}

// backupDocument is a persisted config annotated with backup provenance.
type backupDocument struct {
	Config
	Version       string    `json:"_version"`
	LastUpdated   time.Time `json:"_lastUpdated"`
	BackupCreated time.Time `json:"_backupCreated"`
	OriginalPath  string    `json:"_originalPath"`
}

// Manager owns the archival configuration file: load, validate, migrate,
// persist, and backup/restore. Load-modify-save cycles are guarded by an
// advisory lock on a sidecar .lock file, so two CLI invocations against the
// same repository serialize instead of clobbering each other.
type Manager struct {
	path   string
	lock   *flock.Flock
	logger *slog.Logger
	now    func() time.Time
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithClock overrides the manager's clock, for tests.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a Manager for the config file at path.
func NewManager(path string, opts ...ManagerOption) *Manager {
	m := &Manager{
		path:   path,
		lock:   flock.New(path + ".lock"),
		logger: logging.NewDiscard(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Path returns the config file path this manager owns.
func (m *Manager) Path() string {
	return m.path
}

// withLock runs fn while holding the config file lock. The lock is released
// on every exit path.
func (m *Manager) withLock(fn func() error) error {
	if err := m.lock.Lock(); err != nil {
		return errors.Wrap(setuperrors.ErrConcurrentAccess, err.Error())
	}
	defer func() {
		if unlockErr := m.lock.Unlock(); unlockErr != nil {
			m.logger.Warn("failed to release config lock", "error", unlockErr)
		}
	}()
	return fn()
}

// Load reads the active configuration. On first run (no config file) it
// writes and returns the defaults. A file that exists but does not parse as
// JSON is an explicit error, never silently replaced.
func (m *Manager) Load() (Config, error) {
	var cfg Config
	err := m.withLock(func() error {
		var err error
		cfg, err = m.loadLocked()
		return err
	})
	return cfg, err
}

func (m *Manager) loadLocked() (Config, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := Default()
			if err := m.saveLocked(cfg); err != nil {
				return Config{}, errors.Wrap(err, "bootstrapping default config")
			}
			m.logger.Info("created default archival config", "path", m.path)
			return cfg, nil
		}
		return Config{}, errors.Wrap(err, "reading config file")
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Config{}, errors.Wrapf(setuperrors.ErrConfigInvalid,
			"config file %s is not valid JSON: %v", m.path, err)
	}

	return Migrate(raw), nil
}

// Save validates cfg and persists it with schema metadata. Invalid configs
// are rejected without touching the file.
func (m *Manager) Save(cfg Config) error {
	return m.withLock(func() error {
		return m.saveLocked(cfg)
	})
}

func (m *Manager) saveLocked(cfg Config) error {
	if err := Validate(cfg); err != nil {
		return err
	}
	doc := persisted{
		Config:      cfg,
		Version:     Version,
		LastUpdated: m.now().UTC(),
	}
	if err := fileutil.AtomicWriteJSON(m.path, doc); err != nil {
		return errors.Wrap(err, "writing config file")
	}
	return nil
}

// UpdateSetting applies a single-field change to the persisted config.
// The merged result is validated before anything is written.
func (m *Manager) UpdateSetting(key string, value any) error {
	return m.withLock(func() error {
		cfg, err := m.loadLocked()
		if err != nil {
			return err
		}
		if err := applySetting(&cfg, key, value); err != nil {
			return err
		}
		return m.saveLocked(cfg)
	})
}

// applySetting mutates one field of cfg by its JSON name.
func applySetting(cfg *Config, key string, value any) error {
	switch key {
	case "enabled":
		b, ok := value.(bool)
		if !ok {
			return errors.Wrapf(setuperrors.ErrConfigInvalid, "enabled must be a boolean, got %T", value)
		}
		cfg.Enabled = b
	case "delayMinutes":
		n, ok := intValue(value)
		if !ok {
			return errors.Wrapf(setuperrors.ErrConfigInvalid, "delayMinutes must be a number, got %T", value)
		}
		cfg.DelayMinutes = n
	case "archiveLocation":
		s, ok := value.(string)
		if !ok {
			return errors.Wrapf(setuperrors.ErrConfigInvalid, "archiveLocation must be a string, got %T", value)
		}
		cfg.ArchiveLocation = s
	case "notificationLevel":
		s, ok := value.(string)
		if !ok {
			return errors.Wrapf(setuperrors.ErrConfigInvalid, "notificationLevel must be a string, got %T", value)
		}
		cfg.NotificationLevel = s
	case "backupEnabled":
		b, ok := value.(bool)
		if !ok {
			return errors.Wrapf(setuperrors.ErrConfigInvalid, "backupEnabled must be a boolean, got %T", value)
		}
		cfg.BackupEnabled = b
	default:
		return errors.Wrapf(setuperrors.ErrConfigInvalid, "unknown setting %q", key)
	}
	return nil
}

func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// ResetToDefaults overwrites the persisted config with the defaults.
func (m *Manager) ResetToDefaults() error {
	return m.Save(Default())
}

// Backup writes the current config, annotated with backup provenance, to a
// new timestamped sibling file and returns its path.
func (m *Manager) Backup() (string, error) {
	var backupPath string
	err := m.withLock(func() error {
		cfg, err := m.loadLocked()
		if err != nil {
			return err
		}
		now := m.now().UTC()
		doc := backupDocument{
			Config:        cfg,
			Version:       Version,
			LastUpdated:   now,
			BackupCreated: now,
			OriginalPath:  m.path,
		}
		backupPath = m.path + ".backup-" + now.Format("20060102T150405")
		if err := fileutil.AtomicWriteJSON(backupPath, doc); err != nil {
			return errors.Wrap(err, "writing config backup")
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	m.logger.Info("config backed up", "path", backupPath)
	return backupPath, nil
}

// RestoreFromBackup reads a backup file written by Backup and installs it as
// the active config. Unparseable backups are rejected.
func (m *Manager) RestoreFromBackup(backupPath string) error {
	data, err := os.ReadFile(backupPath)
	if err != nil {
		return errors.Wrap(err, "reading config backup")
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrapf(setuperrors.ErrConfigInvalid,
			"backup file %s is not valid JSON: %v", backupPath, err)
	}

	cfg := Migrate(raw)
	if err := m.Save(cfg); err != nil {
		return err
	}
	m.logger.Info("config restored from backup", "backup", backupPath)
	return nil
}
