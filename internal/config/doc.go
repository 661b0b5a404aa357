// Package config manages the archival subsystem's configuration file.
//
// The configuration lives in a single JSON document
// (.kiro-archival-config.json) holding the logical fields (enabled,
// delayMinutes, archiveLocation, notificationLevel, backupEnabled) plus
// _version and _lastUpdated metadata that is not part of the schema.
//
// Loading bootstraps the defaults on first run. A file that exists but does
// not parse is surfaced as an error; the only path that coerces input to
// defaults is the explicit legacy migration in [Migrate], which maps the
// pre-1.0 field names (autoArchive, waitMinutes, verboseMode, archivePath)
// onto the current schema field by field.
//
// Backups are timestamped sibling files annotated with _backupCreated and
// _originalPath; [Manager.RestoreFromBackup] installs one as the active
// config.
package config
