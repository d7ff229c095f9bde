// Package pathmap translates between local upload paths and object storage keys.
package pathmap

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/emnt/spacesync/internal/utils"
)

// UploadsPrefix is the key prefix every uploaded file lives under.
const UploadsPrefix = "wp-content/uploads/"

var (
	ErrInvalidSubfolder = errors.New("invalid subfolder name")
	ErrOutsideUploads   = errors.New("path is outside the uploads directory")
	ErrForeignKey       = errors.New("key does not carry the uploads prefix")
)

var subfolderPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// Mapper is a pure mapping; it never touches the filesystem.
type Mapper struct {
	UploadsDir string
	Subfolder  string
}

// New returns a Mapper. name is only consulted when useSubfolder is set.
func New(uploadsDir string, useSubfolder bool, name string) (*Mapper, error) {
	m := &Mapper{UploadsDir: filepath.Clean(uploadsDir)}
	if useSubfolder {
		if !subfolderPattern.MatchString(name) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidSubfolder, name)
		}
		m.Subfolder = name
	}
	return m, nil
}

func (m *Mapper) Prefix() string {
	if m.Subfolder == "" {
		return UploadsPrefix
	}
	return m.Subfolder + "/" + UploadsPrefix
}

// StorageKey maps a path relative to the uploads dir to its object key.
func (m *Mapper) StorageKey(rel string) string {
	rel = strings.TrimLeft(filepath.ToSlash(rel), "/")
	return m.Prefix() + rel
}

// StorageKeyForPath maps an absolute local path to its object key.
func (m *Mapper) StorageKeyForPath(localPath string) (string, error) {
	rel, err := utils.RelativeTo(m.UploadsDir, filepath.Clean(localPath))
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrOutsideUploads, localPath)
	}
	return m.StorageKey(rel), nil
}

// RelativePath is the inverse of StorageKey.
func (m *Mapper) RelativePath(key string) (string, error) {
	rel, ok := strings.CutPrefix(key, m.Prefix())
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrForeignKey, key)
	}
	return rel, nil
}

// LocalPath maps an object key to its absolute local path.
func (m *Mapper) LocalPath(key string) (string, error) {
	rel, err := m.RelativePath(key)
	if err != nil {
		return "", err
	}
	clean := path.Clean("/" + rel)
	if clean == "/" {
		return "", fmt.Errorf("%w: %s", ErrForeignKey, key)
	}
	return filepath.Join(m.UploadsDir, filepath.FromSlash(clean)), nil
}
