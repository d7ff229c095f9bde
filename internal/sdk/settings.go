package sdk

import (
	"context"

	"github.com/imroc/req/v3"
)

const (
	v1Settings      = "/v1/settings"
	v1SettingsCheck = "/v1/settings/check"
)

type SettingsAPI struct {
	client *req.Client
}

func (s *SettingsAPI) Get(ctx context.Context) (res *SettingsResponse, err error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetSuccessResult(&res).
		Get(v1Settings)
	if err := handleAPIError(resp, err, "settings get"); err != nil {
		return nil, err
	}
	return res, nil
}

// Update saves settings. Empty credentials keep the stored ones.
func (s *SettingsAPI) Update(ctx context.Context, settings *Settings) (res *SettingsResponse, err error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetRetryCount(0).
		SetBody(settings).
		SetSuccessResult(&res).
		Put(v1Settings)
	if err := handleAPIError(resp, err, "settings update"); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *SettingsAPI) Check(ctx context.Context) (res *CheckResponse, err error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetSuccessResult(&res).
		Post(v1SettingsCheck)
	if err := handleAPIError(resp, err, "settings check"); err != nil {
		return nil, err
	}
	return res, nil
}
