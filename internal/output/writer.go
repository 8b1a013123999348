// Package output writes encoded documents under the output directory.
package output

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/routrace/mapgen/internal/feature"
	"github.com/routrace/mapgen/internal/logger"
)

// Writer persists documents relative to a root directory
type Writer struct {
	root string
	log  *zap.Logger
}

// NewWriter creates a writer rooted at dir
func NewWriter(dir string) *Writer {
	return &Writer{root: dir, log: logger.Named("output")}
}

// Path returns the absolute location of a document path
func (w *Writer) Path(rel string) string {
	return filepath.Join(w.root, filepath.FromSlash(rel))
}

// Write stores the document bytes unchanged and returns the number of bytes
// written. The file is replaced atomically.
func (w *Writer) Write(doc feature.Document) (int, error) {
	path := w.Path(doc.Path)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return 0, fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", doc.Path, err)
	}
	tmpName := tmp.Name()

	_, err = tmp.Write(doc.Data)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Chmod(tmpName, 0644)
	}
	if err != nil {
		os.Remove(tmpName)
		return 0, fmt.Errorf("failed to write %s: %w", doc.Path, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return 0, fmt.Errorf("failed to rename %s: %w", doc.Path, err)
	}

	w.log.Info("Saved", zap.String("path", path), zap.String("size", FormatSize(doc.Size())))
	return doc.Size(), nil
}

// FormatSize renders a byte count for logs
func FormatSize(n int) string {
	return humanize.Bytes(uint64(n))
}
