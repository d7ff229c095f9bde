// Package settings holds the Spaces connection settings and their validation rules.
package settings

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/emnt/spacesync/internal/config"
	"github.com/emnt/spacesync/internal/utils"
)

const (
	DriverS3     = "s3"
	DriverMinio  = "minio"
	DriverMemory = "memory"
)

// Regions are the Spaces regions accepted without a custom endpoint.
var Regions = []string{"nyc3", "ams3", "sgp1", "sfo2", "fra1", "tor1", "blr1", "lon1"}

var subfolderPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

type Settings struct {
	AccessKey     string `json:"access_key"`
	SecretKey     string `json:"secret_key"`
	SpaceName     string `json:"space_name"`
	Region        string `json:"region"`
	CDNURL        string `json:"cdn_url"`
	Endpoint      string `json:"endpoint"`
	Driver        string `json:"driver"`
	UseSubfolder  bool   `json:"use_subfolder"`
	SubfolderName string `json:"subfolder_name"`
}

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func FromConfig(c config.SpacesConfig) Settings {
	return Settings{
		AccessKey:     c.AccessKey,
		SecretKey:     c.SecretKey,
		SpaceName:     c.SpaceName,
		Region:        c.Region,
		CDNURL:        c.CDNURL,
		Endpoint:      c.Endpoint,
		Driver:        c.Driver,
		UseSubfolder:  c.UseSubfolder,
		SubfolderName: c.SubfolderName,
	}
}

// Normalize trims whitespace and fills the default driver.
func (s Settings) Normalize() Settings {
	s.AccessKey = strings.TrimSpace(s.AccessKey)
	s.SecretKey = strings.TrimSpace(s.SecretKey)
	s.SpaceName = strings.TrimSpace(s.SpaceName)
	s.Region = strings.ToLower(strings.TrimSpace(s.Region))
	s.CDNURL = strings.TrimRight(strings.TrimSpace(s.CDNURL), "/")
	s.Endpoint = strings.TrimRight(strings.TrimSpace(s.Endpoint), "/")
	s.SubfolderName = strings.TrimSpace(s.SubfolderName)
	if s.Driver == "" {
		s.Driver = DriverS3
	}
	return s
}

func (s Settings) Validate() error {
	switch s.Driver {
	case "", DriverS3, DriverMinio, DriverMemory:
	default:
		return &ValidationError{Field: "driver", Reason: fmt.Sprintf("unknown driver %q", s.Driver)}
	}

	if s.Endpoint != "" && !utils.IsValidURL(s.Endpoint) {
		return &ValidationError{Field: "endpoint", Reason: "must be an http(s) url"}
	}
	if s.Region != "" && s.Endpoint == "" && !slices.Contains(Regions, s.Region) {
		return &ValidationError{Field: "region", Reason: fmt.Sprintf("must be one of %s", strings.Join(Regions, ", "))}
	}
	if s.CDNURL != "" && !utils.IsValidURL(s.CDNURL) {
		return &ValidationError{Field: "cdn_url", Reason: "must be an http(s) url"}
	}
	if s.UseSubfolder && !subfolderPattern.MatchString(s.SubfolderName) {
		return &ValidationError{Field: "subfolder_name", Reason: "only letters, numbers, dots, hyphens and underscores are allowed"}
	}
	return nil
}

// Complete reports whether enough is set to build a storage client.
func (s Settings) Complete() bool {
	if s.Driver == DriverMemory {
		return s.SpaceName != ""
	}
	if s.Region == "" && s.Endpoint == "" {
		return false
	}
	return s.AccessKey != "" && s.SecretKey != "" && s.SpaceName != ""
}

// Subfolder returns the effective subfolder name, empty when subfolder mode is off.
func (s Settings) Subfolder() string {
	if !s.UseSubfolder {
		return ""
	}
	return s.SubfolderName
}

// EndpointURL is the S3 API endpoint.
func (s Settings) EndpointURL() string {
	if s.Endpoint != "" {
		return s.Endpoint
	}
	return fmt.Sprintf("https://%s.digitaloceanspaces.com", s.Region)
}

// PublicBaseURL is the base that object keys are appended to when building public URLs.
func (s Settings) PublicBaseURL() string {
	if s.CDNURL != "" {
		return strings.TrimRight(s.CDNURL, "/") + "/"
	}
	if s.Endpoint != "" {
		// custom endpoints are addressed path style
		return strings.TrimRight(s.Endpoint, "/") + "/" + s.SpaceName + "/"
	}
	return fmt.Sprintf("https://%s.%s.digitaloceanspaces.com/", s.SpaceName, s.Region)
}

// Fingerprint changes whenever a field that affects the storage client changes.
func (s Settings) Fingerprint() string {
	return strings.Join([]string{s.Driver, s.AccessKey, s.SecretKey, s.SpaceName, s.Region, s.Endpoint}, "\x00")
}

// Masked returns a copy safe to show or log.
func (s Settings) Masked() Settings {
	s.AccessKey = utils.MaskSecret(s.AccessKey)
	s.SecretKey = utils.MaskSecret(s.SecretKey)
	return s
}
