// Package filename extracts structured identity from noisy media filenames.
//
// It recognizes season/episode tokens (s01e02), broadcast-date tokens
// (2023-04-17), and best-effort title/year guesses, and builds the cleaned
// search string sent to the metadata provider. Everything here is pure text
// transformation; no I/O happens in this package.
package filename
