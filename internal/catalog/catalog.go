// Package catalog records the media assets whose files live in the uploads directory.
package catalog

import (
	"context"
	"errors"
	"path"
	"time"
)

type Location string

const (
	LocationLocal  Location = "local"
	LocationRemote Location = "remote"
)

var (
	ErrAssetNotFound = errors.New("asset not found")
	ErrAssetExists   = errors.New("asset already registered")
	ErrInvalidFile   = errors.New("invalid asset file")
)

// MediaAsset is one uploaded item: a primary file plus generated size variants
// stored next to it.
type MediaAsset struct {
	ID        int64     `json:"id"`
	File      string    `json:"file"`
	Sizes     []string  `json:"sizes"`
	Location  Location  `json:"location"`
	CreatedAt time.Time `json:"created_at"`
}

// Files returns the primary file followed by each size variant, relative to the uploads dir.
func (a *MediaAsset) Files() []string {
	files := make([]string, 0, 1+len(a.Sizes))
	files = append(files, a.File)
	dir := path.Dir(a.File)
	for _, size := range a.Sizes {
		if dir == "." {
			files = append(files, size)
		} else {
			files = append(files, dir+"/"+size)
		}
	}
	return files
}

// Catalog lists assets in a stable total order (by ID) so offsets are meaningful across batches.
type Catalog interface {
	Add(ctx context.Context, asset *MediaAsset) error
	Get(ctx context.Context, id int64) (*MediaAsset, error)
	Count(ctx context.Context) (int, error)
	List(ctx context.Context, offset, limit int) ([]*MediaAsset, error)
	FindByFile(ctx context.Context, file string) (*MediaAsset, error)
	SetLocation(ctx context.Context, id int64, loc Location) error
}
