// Package pagination provides sorting and offset/limit windowing for CLI
// commands that list cache entries.
package pagination
