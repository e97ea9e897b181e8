package psi

import "github.com/asticode/go-astikit"

// A global logger avoids threading a reporter through every parse/serialize
// call, most of which are pure functions with no other reason to take a
// dependency. The recoverable anomalies this package reports — an unhandled
// descriptor tag, a descriptor body that fails to parse, a typed table whose
// Deserialize fails while rendering XML — fall back to a documented default
// (raw descriptor payload, generic table) rather than an error return, so
// logging is how the caller finds out it happened at all. An unrecognized
// XML element is an error (ErrUnknownElement), not a log line, and version
// changes between sections are not logged.
var logger = astikit.AdaptStdLogger(nil)

// SetLogger overrides the package-wide reporter used for recoverable parse
// anomalies.
func SetLogger(l astikit.StdLogger) { logger = astikit.AdaptStdLogger(l) }

// warnUnrecognized logs a fallback-to-generic decision in one consistent
// shape, used by both the descriptor (C2) and typed-table (C7) dispatch
// paths so the two escape hatches read the same way in a log stream.
func warnUnrecognized(kind, detail string) {
	logger.Printf("psi: %s falling back to generic handling (%s)", kind, detail)
}
