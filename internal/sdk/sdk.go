// Package sdk is the client for the spacesync control plane.
package sdk

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/emnt/spacesync/internal/version"
	"github.com/imroc/req/v3"
)

const HeaderUserAgent = "User-Agent"

var UserAgent = fmt.Sprintf("spacesync/%s (%s; %s; %s)", version.Version, version.Revision, runtime.GOOS, runtime.GOARCH)

type Client struct {
	client   *req.Client
	Sync     *SyncAPI
	Settings *SettingsAPI
	Assets   *AssetsAPI
}

// New returns a client for the control plane at baseURL. A bare host:port gets an http:// scheme.
func New(baseURL, token string) *Client {
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}

	client := req.C().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetCommonRetryCount(2).
		SetCommonRetryFixedInterval(500 * time.Millisecond).
		SetUserAgent(UserAgent).
		SetCommonErrorResult(&APIError{}).
		SetJsonMarshal(jsonMarshal).
		SetJsonUnmarshal(jsonUnmarshal)
	if token != "" {
		client.SetCommonBearerAuthToken(token)
	}

	return &Client{
		client:   client,
		Sync:     &SyncAPI{client: client},
		Settings: &SettingsAPI{client: client},
		Assets:   &AssetsAPI{client: client},
	}
}
