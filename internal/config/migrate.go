package config

import "math"

// Legacy (pre-1.0) field names mapped during migration.
//
// autoArchive → enabled, waitMinutes → delayMinutes,
// verboseMode → notificationLevel, archivePath → archiveLocation.
//
// A legacy value is only consulted when the new-schema field is absent, and
// only adopted when it passes the same validation rule as the new field;
// otherwise that single field falls back to its default.
const (
	legacyEnabledKey  = "autoArchive"
	legacyDelayKey    = "waitMinutes"
	legacyVerboseKey  = "verboseMode"
	legacyLocationKey = "archivePath"
)

// Migrate converts a raw decoded config document (any schema version, or
// garbage) into a valid Config. Nil and non-object input yields the defaults.
func Migrate(raw map[string]any) Config {
	cfg := Default()
	if raw == nil {
		return cfg
	}

	if v, ok := boolField(raw, "enabled", legacyEnabledKey); ok {
		cfg.Enabled = v
	}

	if v, ok := delayField(raw); ok {
		cfg.DelayMinutes = v
	}

	if v, ok := locationField(raw); ok {
		cfg.ArchiveLocation = v
	}

	if v, ok := notificationField(raw); ok {
		cfg.NotificationLevel = v
	}

	// backupEnabled has no legacy spelling.
	if v, ok := raw["backupEnabled"].(bool); ok {
		cfg.BackupEnabled = v
	}

	return cfg
}

// boolField reads a strict boolean, preferring the new key. A present but
// non-boolean new-schema value shadows the legacy key.
func boolField(raw map[string]any, key, legacyKey string) (bool, bool) {
	if v, present := raw[key]; present {
		b, ok := v.(bool)
		return b, ok
	}
	if v, present := raw[legacyKey]; present {
		b, ok := v.(bool)
		return b, ok
	}
	return false, false
}

func delayField(raw map[string]any) (int, bool) {
	if v, present := raw["delayMinutes"]; present {
		return delayValue(v)
	}
	if v, present := raw[legacyDelayKey]; present {
		return delayValue(v)
	}
	return 0, false
}

// delayValue validates a decoded JSON number against the delay bounds.
func delayValue(v any) (int, bool) {
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	n := int(f)
	if n < MinDelayMinutes || n > MaxDelayMinutes {
		return 0, false
	}
	return n, true
}

func locationField(raw map[string]any) (string, bool) {
	if v, present := raw["archiveLocation"]; present {
		return locationValue(v)
	}
	if v, present := raw[legacyLocationKey]; present {
		return locationValue(v)
	}
	return "", false
}

func locationValue(v any) (string, bool) {
	s, ok := v.(string)
	if !ok || validateArchiveLocation(s) != nil {
		return "", false
	}
	return s, true
}

func notificationField(raw map[string]any) (string, bool) {
	if v, present := raw["notificationLevel"]; present {
		s, ok := v.(string)
		if !ok {
			return "", false
		}
		switch s {
		case NotificationNone, NotificationMinimal, NotificationVerbose:
			return s, true
		}
		return "", false
	}
	// Legacy verboseMode only ever raises the level; false means "unset".
	if v, present := raw[legacyVerboseKey]; present {
		if b, ok := v.(bool); ok && b {
			return NotificationVerbose, true
		}
	}
	return "", false
}
