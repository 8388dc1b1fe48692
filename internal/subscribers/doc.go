// Package subscribers runs background listeners that feed externally
// announced artifacts into the registration pipeline. Each subscriber is
// a named unit supervised by the Manager, which restarts failed
// subscribers on a fixed delay until shutdown.
package subscribers
