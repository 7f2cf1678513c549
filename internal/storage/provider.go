// Package storage defines the vault file-system abstraction.
package storage

import "time"

// FileInfo describes a file in the vault.
type FileInfo struct {
	Path      string
	Checksum  string
	UpdatedAt time.Time
}

// Match selects the entries a listing reports. rel is relative to the vault
// root and uses forward slashes. A directory rejected by Match is not
// entered.
type Match func(rel string, dir bool) bool

// Provider is the interface for vault file operations. Paths are relative to
// the vault root.
type Provider interface {
	// List returns metadata for every file under dir accepted by match.
	List(dir string, match Match) ([]FileInfo, error)
	Read(path string) ([]byte, error)
	// Exists reports whether a regular file is present at path.
	Exists(path string) bool
	// Write replaces the file at path atomically, creating directories.
	Write(path string, content []byte) error
	Delete(path string) error
	Move(oldPath, newPath string) error
}
