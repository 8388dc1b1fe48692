package ipc

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse reports daemon runtime information.
type StatusResponse struct {
	Running      bool   `json:"running"`
	Mode         string `json:"mode"`
	WatchDir     string `json:"watch_dir"`
	LockPath     string `json:"lock_path"`
	DatabasePath string `json:"database_path"`
	TotalImages  int    `json:"total_images"`
	Generating   bool   `json:"generating"`
	PID          int    `json:"pid"`
}

// StatsRequest fetches registration counts.
type StatsRequest struct{}

// StatsResponse reports registration counts by category.
type StatsResponse struct {
	Total    int            `json:"total"`
	Flagged  int            `json:"flagged"`
	Rated    int            `json:"rated"`
	BySource map[string]int `json:"by_source"`
}

// CleanupRequest triggers an orphan cleanup pass.
type CleanupRequest struct {
	DryRun bool `json:"dry_run"`
}

// CleanupResponse lists the orphans found and how many were removed.
type CleanupResponse struct {
	Orphaned []string `json:"orphaned"`
	Deleted  int      `json:"deleted"`
	DryRun   bool     `json:"dry_run"`
}

// DatabaseHealthRequest fetches detailed database diagnostics.
type DatabaseHealthRequest struct{}

// DatabaseHealthResponse reports database health information.
type DatabaseHealthResponse struct {
	DBPath           string   `json:"db_path"`
	DatabaseExists   bool     `json:"database_exists"`
	DatabaseReadable bool     `json:"database_readable"`
	TableExists      bool     `json:"table_exists"`
	ColumnsPresent   []string `json:"columns_present"`
	MissingColumns   []string `json:"missing_columns"`
	IntegrityCheck   bool     `json:"integrity_check"`
	TotalRows        int      `json:"total_rows"`
	Error            string   `json:"error"`
}

// StopRequest asks the daemon process to shut down.
type StopRequest struct{}

// StopResponse indicates the shutdown was initiated.
type StopResponse struct {
	Stopping bool `json:"stopping"`
}
