package utils

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const defaultContentType = "application/octet-stream"

// DetectContentType infers a content type from the file extension.
// When the extension is unknown and a content header is given, the header is sniffed.
func DetectContentType(name string, header []byte) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext != "" {
		if mimeType := mime.TypeByExtension(ext); mimeType != "" {
			return mimeType
		}
	}

	if len(header) > 0 {
		if mt := mimetype.Detect(header); mt != nil {
			return mt.String()
		}
	}

	return defaultContentType
}
