package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/emnt/spacesync/internal/db"
	"github.com/goccy/go-json"
	"github.com/jmoiron/sqlx"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS media_assets (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		file       TEXT NOT NULL UNIQUE,
		sizes      TEXT NOT NULL DEFAULT '[]',
		location   TEXT NOT NULL DEFAULT 'local',
		created_at INTEGER NOT NULL
	)`,
}

type assetRow struct {
	ID        int64  `db:"id"`
	File      string `db:"file"`
	Sizes     string `db:"sizes"`
	Location  string `db:"location"`
	CreatedAt int64  `db:"created_at"`
}

func (r *assetRow) toAsset() (*MediaAsset, error) {
	var sizes []string
	if err := json.Unmarshal([]byte(r.Sizes), &sizes); err != nil {
		return nil, fmt.Errorf("decode sizes of asset %d: %w", r.ID, err)
	}
	return &MediaAsset{
		ID:        r.ID,
		File:      r.File,
		Sizes:     sizes,
		Location:  Location(r.Location),
		CreatedAt: time.UnixMilli(r.CreatedAt).UTC(),
	}, nil
}

type SqliteCatalog struct {
	db *sqlx.DB
}

func NewSqliteCatalog(ctx context.Context, database *sqlx.DB) (*SqliteCatalog, error) {
	if err := db.Migrate(ctx, database, schema...); err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	return &SqliteCatalog{db: database}, nil
}

// Add inserts asset and fills its ID. File paths are stored slash separated without a leading slash.
func (c *SqliteCatalog) Add(ctx context.Context, asset *MediaAsset) error {
	file, err := normalizeFile(asset.File)
	if err != nil {
		return err
	}
	for _, size := range asset.Sizes {
		if size == "" || size == "." || size == ".." || strings.ContainsAny(size, "/\\") {
			return fmt.Errorf("%w: size %q must be a plain file name", ErrInvalidFile, size)
		}
	}
	asset.File = file
	if asset.Location == "" {
		asset.Location = LocationLocal
	}
	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = time.Now().UTC()
	}
	if asset.Sizes == nil {
		asset.Sizes = []string{}
	}

	sizes, err := json.Marshal(asset.Sizes)
	if err != nil {
		return err
	}

	res, err := c.db.ExecContext(ctx,
		`INSERT INTO media_assets (file, sizes, location, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(file) DO NOTHING`,
		asset.File, string(sizes), string(asset.Location), asset.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("add asset %s: %w", asset.File, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrAssetExists, asset.File)
	}
	asset.ID, err = res.LastInsertId()
	return err
}

func (c *SqliteCatalog) Get(ctx context.Context, id int64) (*MediaAsset, error) {
	return c.getOne(ctx, `SELECT * FROM media_assets WHERE id = ?`, id)
}

func (c *SqliteCatalog) FindByFile(ctx context.Context, file string) (*MediaAsset, error) {
	file, err := normalizeFile(file)
	if err != nil {
		return nil, ErrAssetNotFound
	}
	return c.getOne(ctx, `SELECT * FROM media_assets WHERE file = ?`, file)
}

func (c *SqliteCatalog) Count(ctx context.Context) (int, error) {
	var n int
	if err := c.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM media_assets`); err != nil {
		return 0, fmt.Errorf("count assets: %w", err)
	}
	return n, nil
}

func (c *SqliteCatalog) List(ctx context.Context, offset, limit int) ([]*MediaAsset, error) {
	var rows []assetRow
	err := c.db.SelectContext(ctx, &rows,
		`SELECT * FROM media_assets ORDER BY id ASC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}

	assets := make([]*MediaAsset, 0, len(rows))
	for i := range rows {
		a, err := rows[i].toAsset()
		if err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	return assets, nil
}

func (c *SqliteCatalog) SetLocation(ctx context.Context, id int64, loc Location) error {
	res, err := c.db.ExecContext(ctx, `UPDATE media_assets SET location = ? WHERE id = ?`, string(loc), id)
	if err != nil {
		return fmt.Errorf("set location of asset %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAssetNotFound
	}
	return nil
}

func (c *SqliteCatalog) getOne(ctx context.Context, query string, arg any) (*MediaAsset, error) {
	var row assetRow
	err := c.db.GetContext(ctx, &row, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAssetNotFound
	} else if err != nil {
		return nil, err
	}
	return row.toAsset()
}

// normalizeFile cleans file into a slash separated path inside the uploads dir.
func normalizeFile(file string) (string, error) {
	file = strings.TrimLeft(strings.ReplaceAll(file, "\\", "/"), "/")
	if file == "" {
		return "", fmt.Errorf("%w: file cannot be empty", ErrInvalidFile)
	}
	file = path.Clean(file)
	if file == "." || file == ".." || strings.HasPrefix(file, "../") {
		return "", fmt.Errorf("%w: %q is outside the uploads dir", ErrInvalidFile, file)
	}
	return file, nil
}

var _ Catalog = (*SqliteCatalog)(nil)
