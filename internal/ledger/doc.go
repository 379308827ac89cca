// Package ledger persists run history in SQLite: one row per pipeline run
// plus a row per file outcome, queried by the history command.
package ledger
