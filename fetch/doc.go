// Package fetch retrieves the JSON resources a synopsis session is built from:
// annotations, ontologies, per-view segment indexes and alignment tables.
//
// A location is an http(s) URL, a file:// URL or a filesystem path. Local
// locations may be doublestar glob patterns ("data/**/*.ontology.json").
//
// Retrieval never fails a session. DecodeJSON logs the failure, reports it
// through the loader's failure hook and returns the zero value, which the
// callers treat as an empty resource. HTTP resources are revalidated with
// ETags; local files are watched with fsnotify by Watcher.
package fetch
