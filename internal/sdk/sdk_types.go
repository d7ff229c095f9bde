package sdk

import "time"

type Progress struct {
	Total     int    `json:"total"`
	Progress  int    `json:"progress"`
	Direction string `json:"direction"`
	Pass      string `json:"pass,omitempty"`
	Complete  bool   `json:"complete"`
	Enabled   bool   `json:"enabled"`
}

type DisableResponse struct {
	Mode     string    `json:"mode"`
	Progress *Progress `json:"progress"`
}

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

type SettingsResponse struct {
	Settings Settings `json:"settings"`
	Complete bool     `json:"complete"`
}

type CheckResponse struct {
	Bucket string `json:"bucket"`
	Prefix string `json:"prefix"`
	Empty  bool   `json:"empty"`
}

type Asset struct {
	ID        int64     `json:"id"`
	File      string    `json:"file"`
	Sizes     []string  `json:"sizes"`
	Location  string    `json:"location"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateAssetParams struct {
	File  string   `json:"file"`
	Sizes []string `json:"sizes,omitempty"`
}

type AssetURL struct {
	ID  int64  `json:"id"`
	URL string `json:"url"`
}
