package port

import "context"

// FileStorage defines file storage operations rooted at a base directory
type FileStorage interface {
	Save(ctx context.Context, path string, content []byte) error
	Read(ctx context.Context, path string) ([]byte, error)
	Exists(ctx context.Context, path string) bool
	GetFullPath(relativePath string) string
	// ValidatePath rejects paths that escape the base directory
	ValidatePath(path string) error
}
