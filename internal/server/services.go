package server

import (
	"github.com/emnt/spacesync/internal/catalog"
	"github.com/emnt/spacesync/internal/server/handlers/assets"
	settingsH "github.com/emnt/spacesync/internal/server/handlers/settings"
	syncH "github.com/emnt/spacesync/internal/server/handlers/sync"
	"github.com/emnt/spacesync/internal/sync"
)

// Services is everything the control plane routes to.
type Services struct {
	Sync     syncH.Service
	Settings settingsH.Service
	Storage  sync.StorageResolver
	Catalog  catalog.Catalog
	Uploader assets.Uploader
	URLs     assets.URLResolver

	// UploadsDir is needed to build key prefixes for the settings check.
	UploadsDir string
}
