// Package rename composes the filename parser, metadata resolver, and path
// formatter into per-file destination decisions.
//
// The engine never fails outright: a provider miss degrades to a best-effort
// name built from filename heuristics, and only when even those cannot
// produce a usable title does a file come back not-renamable, which routes it
// to manual review under its original name.
package rename
