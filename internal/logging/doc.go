// Package logging assembles the structured slog loggers used across the
// daemon and CLI. It offers a JSON handler for log files, a compact
// console handler for interactive output, attribute helpers shared by
// every component, and retention of aged-out daemon log files.
//
// Components obtain a scoped logger through NewComponentLogger so every
// record carries a stable component field, and correlation IDs travel
// through context so a single file event can be traced across
// detection, extraction, and registration.
package logging
