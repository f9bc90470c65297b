package utils

import (
	"context"
	"os"
	"path/filepath"
)

// DirArchiver writes export files below a local directory.
type DirArchiver struct {
	Dir string
}

// Archive writes data to Dir/key, creating parent directories, and returns
// the written path.
func (a *DirArchiver) Archive(_ context.Context, key string, data []byte, _ string) (string, error) {
	destPath := filepath.Join(a.Dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(destPath), os.ModePerm); err != nil {
		return "", err
	}
	if err := os.WriteFile(destPath, data, 0o644); err != nil {
		return "", err
	}
	return destPath, nil
}
