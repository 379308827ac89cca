// Package staging implements the batch staging phase: it walks the queue
// tree, resolves canonical destinations through the renaming engine, probes
// candidates, and emits staged files for the transcode phase. It also owns
// the shared per-file status vocabulary and the end-of-run tree
// reconciliation.
package staging
