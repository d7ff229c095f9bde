// Package localfs gives the sync engines access to the uploads directory.
package localfs

import (
	"errors"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/spf13/afero"
)

// FS resolves slash separated paths relative to the uploads root.
// Paths are confined to the root; `..` cannot escape it.
type FS struct {
	root string
	fs   afero.Fs
}

// New roots fs at dir. Use afero.NewOsFs() in production and afero.NewMemMapFs() in tests.
func New(fs afero.Fs, dir string) *FS {
	return &FS{root: filepath.Clean(dir), fs: afero.NewBasePathFs(fs, dir)}
}

func (f *FS) Root() string {
	return f.root
}

// Abs returns the absolute on-disk path of rel.
func (f *FS) Abs(rel string) string {
	return filepath.Join(f.root, filepath.FromSlash(clean(rel)))
}

// Exists reports whether rel is an existing regular file.
func (f *FS) Exists(rel string) bool {
	info, err := f.fs.Stat(clean(rel))
	return err == nil && !info.IsDir()
}

func (f *FS) Size(rel string) (int64, error) {
	info, err := f.fs.Stat(clean(rel))
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Delete removes rel. A missing file is not an error.
func (f *FS) Delete(rel string) error {
	err := f.fs.Remove(clean(rel))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (f *FS) EnsureDir(rel string) error {
	return f.fs.MkdirAll(clean(rel), 0o755)
}

func (f *FS) Open(rel string) (afero.File, error) {
	return f.fs.Open(clean(rel))
}

// Create truncates or creates rel for writing.
func (f *FS) Create(rel string) (afero.File, error) {
	return f.fs.OpenFile(clean(rel), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
}

// Rename moves from over to, replacing to if it exists.
func (f *FS) Rename(from, to string) error {
	return f.fs.Rename(clean(from), clean(to))
}

// ReadHeader returns up to n leading bytes of rel, used for content sniffing.
func (f *FS) ReadHeader(rel string, n int) ([]byte, error) {
	file, err := f.Open(rel)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	buf := make([]byte, n)
	read, err := io.ReadFull(file, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return buf[:read], nil
}

func clean(rel string) string {
	return filepath.FromSlash(path.Clean("/" + filepath.ToSlash(rel)))
}
