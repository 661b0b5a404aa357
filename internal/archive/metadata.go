package archive

import "time"

// MetadataVersion is the archive metadata schema version.
const MetadataVersion = "1.0"

// Metadata describes one archived spec. It is written once as
// .archive-metadata.json inside the archive directory and is immutable
// afterwards except by manual edit.
type Metadata struct {
	SpecName       string    `json:"specName"`
	OriginalPath   string    `json:"originalPath"`
	ArchivePath    string    `json:"archivePath"`
	CompletionDate time.Time `json:"completionDate"`
	ArchivalDate   time.Time `json:"archivalDate"`
	TotalTasks     int       `json:"totalTasks"`
	CompletedTasks int       `json:"completedTasks"`
	Version        string    `json:"version"`
}

// SpecInfo carries the facts about a spec needed to build its metadata.
type SpecInfo struct {
	SpecName       string
	OriginalPath   string
	ArchivePath    string
	CompletionDate time.Time
	TotalTasks     int
	CompletedTasks int
}

// NewMetadata builds the metadata record for an archival happening at now.
func NewMetadata(info SpecInfo, now time.Time) Metadata {
	return Metadata{
		SpecName:       info.SpecName,
		OriginalPath:   info.OriginalPath,
		ArchivePath:    info.ArchivePath,
		CompletionDate: info.CompletionDate,
		ArchivalDate:   now.UTC(),
		TotalTasks:     info.TotalTasks,
		CompletedTasks: info.CompletedTasks,
		Version:        MetadataVersion,
	}
}
