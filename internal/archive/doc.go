// Package archive moves completed spec directories into the archive root
// and maintains the persisted index of everything archived.
//
// The [Engine] owns the move itself: pre-flight safety validation, a copy
// that preserves permission bits and modification timestamps, a metadata
// sidecar, and removal of the original only once the copy has fully
// succeeded. Any earlier failure rolls the destination back, so a failed
// archival is indistinguishable from one that was never attempted.
//
// The [IndexManager] owns the index file (.archive-index.json), a JSON
// catalog of all archived specs keyed by archive path. It supports upsert,
// removal, substring search, newest-first listing, aggregate statistics,
// and self-repair when entries point at archive directories that no longer
// exist on disk.
package archive
