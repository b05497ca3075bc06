// Package config loads signature files: which process and module to
// attach to, the patterns to find in it, and the typed values to read
// relative to each match.
package config
