package sdk

import (
	"context"

	"github.com/imroc/req/v3"
)

const (
	v1SyncEnable   = "/v1/sync/enable"
	v1SyncDisable  = "/v1/sync/disable"
	v1SyncCancel   = "/v1/sync/cancel"
	v1SyncProgress = "/v1/sync/progress"
)

type SyncAPI struct {
	client *req.Client
}

func (s *SyncAPI) Enable(ctx context.Context) (progress *Progress, err error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetRetryCount(0).
		SetSuccessResult(&progress).
		Post(v1SyncEnable)
	if err := handleAPIError(resp, err, "sync enable"); err != nil {
		return nil, err
	}
	return progress, nil
}

func (s *SyncAPI) Disable(ctx context.Context) (res *DisableResponse, err error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetRetryCount(0).
		SetSuccessResult(&res).
		Post(v1SyncDisable)
	if err := handleAPIError(resp, err, "sync disable"); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *SyncAPI) Cancel(ctx context.Context) (progress *Progress, err error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetSuccessResult(&progress).
		Post(v1SyncCancel)
	if err := handleAPIError(resp, err, "sync cancel"); err != nil {
		return nil, err
	}
	return progress, nil
}

func (s *SyncAPI) Progress(ctx context.Context) (progress *Progress, err error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetSuccessResult(&progress).
		Get(v1SyncProgress)
	if err := handleAPIError(resp, err, "sync progress"); err != nil {
		return nil, err
	}
	return progress, nil
}
