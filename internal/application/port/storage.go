package port

import "context"

// FileStorage is the archive that completed batch exports are written to.
// Paths are relative and slash separated.
type FileStorage interface {
	// Save writes content at path, replacing any existing file
	Save(ctx context.Context, path string, content []byte) error

	// Exists reports whether a file is stored at path
	Exists(ctx context.Context, path string) bool
}
