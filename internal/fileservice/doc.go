// Package fileservice detects image artifact creation and deletion.
//
// Two implementations share one interface: a local filesystem watcher
// built on fsnotify with per-path debouncing and size stabilization,
// and a remote HTTP poller that diffs directory listings between
// cycles. The daemon selects one by configuration mode and feeds the
// resulting events into the registration pipeline.
package fileservice
