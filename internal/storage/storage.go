package storage

// Store is the flat output directory artifacts are published to.
//
// Names are plain file names without directories. Read of a missing
// artifact returns an error matching fs.ErrNotExist.
type Store interface {
	// List returns the names starting with prefix, sorted.
	List(prefix string) ([]string, error)
	Read(name string) ([]byte, error)
	Write(name string, data []byte) error
	Rename(from, to string) error
	Delete(name string) error
}
