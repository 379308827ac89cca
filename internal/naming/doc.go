// Package naming renders the canonical library folder and file names.
//
// It is the single seam for presentation formatting: folder names like
// "Title (Year) {tmdb-123}", episode filenames like
// "Series - s01e02 - Episode Title.mkv", and the filesystem sanitization
// applied to provider titles all live here so naming stays consistent across
// the whole pipeline. Everything is deterministic and free of I/O.
package naming
