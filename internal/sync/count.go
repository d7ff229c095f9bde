package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/emnt/spacesync/internal/storage"
)

const (
	countPageSize   = 1000
	countMaxRetries = 3
)

// countRemote pages through every key under prefix. Each page is retried with
// exponential backoff and the whole walk is bounded by timeout.
func countRemote(ctx context.Context, store storage.ObjectStore, prefix string, timeout time.Duration) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	total := 0
	marker := ""
	for {
		var page *storage.ListResult
		err := backoff.Retry(func() error {
			res, err := store.List(ctx, prefix, marker, countPageSize)
			if err != nil {
				if ctx.Err() != nil {
					return backoff.Permanent(err)
				}
				return err
			}
			page = res
			return nil
		}, newCountBackoff(ctx))
		if err != nil {
			return 0, fmt.Errorf("count %s: %w", prefix, err)
		}

		for _, key := range page.Keys {
			if !isDirectoryKey(key) {
				total++
			}
		}
		if !page.Truncated || len(page.Keys) == 0 {
			return total, nil
		}
		marker = page.Keys[len(page.Keys)-1]
	}
}

func newCountBackoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, countMaxRetries), ctx)
}
