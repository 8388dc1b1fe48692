package registry

import (
	"path/filepath"
	"strings"
	"time"
)

// Registration sources recorded alongside each row.
const (
	SourceConduit     = "conduit"
	SourceFileService = "file_service"
	SourceScan        = "scan"
)

// Data keys promoted out of the extraction result into columns.
const (
	KeyCharStr = "char_str"
	KeyID      = "id"
	KeyPrompt  = "prompt"
)

// Registration represents a registered image persisted in SQLite.
type Registration struct {
	ID        string
	ImagePath string
	CharStr   string
	Source    string
	CreatedAt float64
	Flagged   bool
	Rating    int
	Data      map[string]string
}

// Prompt returns the extracted prompt text, if any.
func (r *Registration) Prompt() string {
	if r == nil {
		return ""
	}
	return r.Data[KeyPrompt]
}

// DisplayName returns the best human-facing label for the registration.
func (r *Registration) DisplayName() string {
	if r == nil {
		return ""
	}
	if strings.TrimSpace(r.CharStr) != "" {
		return r.CharStr
	}
	base := filepath.Base(r.ImagePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// CreatedTime converts the stored float timestamp into a time.Time.
func (r *Registration) CreatedTime() time.Time {
	secs := int64(r.CreatedAt)
	nanos := int64((r.CreatedAt - float64(secs)) * 1e9)
	return time.Unix(secs, nanos)
}

// WorkflowInput is one node field value applied to a workflow template.
// UpdatedAt holds the write time in epoch seconds and is set by the store.
type WorkflowInput struct {
	NodeID    string
	Field     string
	Value     string
	UpdatedAt float64
}

// CleanupReport summarizes an orphan cleanup pass.
type CleanupReport struct {
	Orphaned []string
	Deleted  int
	DryRun   bool
}

// Stats aggregates registration counts for diagnostic output.
type Stats struct {
	Total    int
	Flagged  int
	Rated    int
	BySource map[string]int
}

// DatabaseHealth captures diagnostic information about the registration database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	TableExists      bool
	ColumnsPresent   []string
	MissingColumns   []string
	IntegrityCheck   bool
	TotalRows        int
	Error            string
}
