package sdk

import (
	"context"
	"strconv"

	"github.com/imroc/req/v3"
)

const (
	v1Assets   = "/v1/assets"
	v1AssetURL = "/v1/assets/{id}/url"
)

type AssetsAPI struct {
	client *req.Client
}

// Create registers a stored asset. The daemon offloads it right away when sync is on.
func (a *AssetsAPI) Create(ctx context.Context, params *CreateAssetParams) (asset *Asset, err error) {
	resp, err := a.client.R().
		SetContext(ctx).
		SetRetryCount(0).
		SetBody(params).
		SetSuccessResult(&asset).
		Post(v1Assets)
	if err := handleAPIError(resp, err, "asset create"); err != nil {
		return nil, err
	}
	return asset, nil
}

func (a *AssetsAPI) URL(ctx context.Context, id int64) (res *AssetURL, err error) {
	resp, err := a.client.R().
		SetContext(ctx).
		SetPathParam("id", strconv.FormatInt(id, 10)).
		SetSuccessResult(&res).
		Get(v1AssetURL)
	if err := handleAPIError(resp, err, "asset url"); err != nil {
		return nil, err
	}
	return res, nil
}
