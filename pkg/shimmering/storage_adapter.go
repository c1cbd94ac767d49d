package shimmering

import (
	"github.com/himanishpuri/shimmering/pkg/shimmering/storage"
)

var _ Storage = (*storage.DBClient)(nil)

// NewSQLiteStorage opens (and migrates) the SQLite database at dbPath.
func NewSQLiteStorage(dbPath string) (Storage, error) {
	db, err := storage.NewDBClientWithPath(dbPath)
	if err != nil {
		return nil, err
	}
	return db, nil
}
