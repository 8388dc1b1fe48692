// Package registry persists image registrations in SQLite and exposes the
// operations the daemon and CLI share.
//
// The Store manages database connections, schema migrations, idempotent
// registration keyed by image path, flag and rating updates, workflow input
// storage, a settings table, and orphan cleanup. Registering an image runs
// the extraction chain so records carry a display string and prompt at
// insert time.
//
// A single mutex serializes every operation; the store is the one writer in
// the process and callers never coordinate around it. Registration is
// idempotent: re-registering a known path is not an error and reports no
// record so callers skip further event fan-out.
//
// Treat this package as the single source of truth for registration
// semantics; schema changes get a new file under migrations/.
package registry
