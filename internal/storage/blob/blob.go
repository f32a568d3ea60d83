package blob

import "context"

// Storage is the medium ledger files are kept on. Implementations must
// make Write overwrite-or-create atomic at the object level: a reader
// never observes a partially written object.
type Storage interface {
	// Write stores data at the given path, creating parents as needed.
	Write(ctx context.Context, path string, data []byte) error

	// Read retrieves the object at the given path.
	Read(ctx context.Context, path string) ([]byte, error)

	// List returns all object paths under the prefix.
	List(ctx context.Context, prefix string) ([]string, error)

	// Exists reports whether an object exists at the given path.
	Exists(ctx context.Context, path string) (bool, error)
}
