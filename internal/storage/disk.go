package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// sqliteSidecars are the files SQLite keeps next to a database in WAL mode.
var sqliteSidecars = []string{"-wal", "-shm"}

// Usage is the on-disk footprint of the job database and the search index.
type Usage struct {
	DatabaseBytes int64 `json:"databaseBytes"`
	IndexBytes    int64 `json:"indexBytes"`
}

// Total returns the combined size.
func (u Usage) Total() int64 { return u.DatabaseBytes + u.IndexBytes }

// MeasureUsage sizes the job database, including its WAL files, and the index directory.
// Empty or missing paths count as zero; an in-memory index has no path.
func MeasureUsage(databasePath, indexPath string) (Usage, error) {
	var u Usage
	if databasePath != "" {
		for _, suffix := range append([]string{""}, sqliteSidecars...) {
			n, err := pathSize(databasePath + suffix)
			if err != nil {
				return Usage{}, err
			}
			u.DatabaseBytes += n
		}
	}
	n, err := pathSize(indexPath)
	if err != nil {
		return Usage{}, err
	}
	u.IndexBytes = n
	return u, nil
}

func pathSize(p string) (int64, error) {
	if p == "" {
		return 0, nil
	}
	info, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		return info.Size(), nil
	}
	var total int64
	err = filepath.WalkDir(p, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		total += fi.Size()
		return nil
	})
	return total, err
}
