// Package filestore stores uploaded photo blobs by name.
package filestore

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/and161185/ecosystem-api/internal/model"
)

// ErrInvalidName is returned for names that are not a single plain path element.
var ErrInvalidName = errors.New("invalid blob name")

// Store saves and removes named blobs.
type Store interface {
	// Save writes r under name, replacing any existing blob.
	Save(ctx context.Context, name string, r io.Reader) error
	// Delete removes the blob. A missing blob is not an error.
	Delete(ctx context.Context, name string) error
	// Exists reports whether a blob with that name is stored.
	Exists(ctx context.Context, name string) (bool, error)
}

// NewName derives a stored name from the upload's original file name:
// a millisecond timestamp followed by the original extension.
func NewName(now time.Time, original string) string {
	base := original[strings.LastIndexAny(original, `/\`)+1:]
	return model.Stamp(now) + filepath.Ext(base)
}

// CheckName rejects anything that could escape the photo root.
func CheckName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return ErrInvalidName
	}
	return nil
}
