// Package daemon wires the registration pipeline together: store,
// extraction hooks, change detection, external subscribers, and the
// state broadcaster. It enforces single-instance execution with a file
// lock and owns startup and shutdown ordering.
package daemon
