// Package hooks runs the metadata extraction chain for newly registered
// images and carries the daemon lifecycle callbacks.
//
// Extractors are registered under a name and executed in alphabetical name
// order; later extractors overwrite values earlier ones set. A leading
// underscore in the name forces an extractor to the front of the chain,
// which is how the built-in "_default" extractor provides baseline values
// that source-specific extractors (such as "conduit") can refine. A failing
// extractor is logged and skipped without aborting the chain or the
// registration that triggered it.
//
// The conduit extractor routes on the generation type reported by the
// producing tool and reads the sidecar files each type leaves next to the
// image. The default extractor produces the file stem and any prompt
// embedded in PNG text chunks.
package hooks
