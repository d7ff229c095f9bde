package sync

import (
	"context"
	"fmt"

	"github.com/emnt/spacesync/internal/localfs"
	"github.com/emnt/spacesync/internal/storage"
	"github.com/emnt/spacesync/internal/utils"
)

const sniffLen = 512

// PushFile uploads the local file rel to key as a public object.
func PushFile(ctx context.Context, store storage.ObjectStore, files *localfs.FS, rel, key string) error {
	header, err := files.ReadHeader(rel, sniffLen)
	if err != nil {
		return fmt.Errorf("read %s: %w", rel, err)
	}
	size, err := files.Size(rel)
	if err != nil {
		return fmt.Errorf("stat %s: %w", rel, err)
	}

	f, err := files.Open(rel)
	if err != nil {
		return fmt.Errorf("open %s: %w", rel, err)
	}
	defer f.Close()

	return store.Put(ctx, &storage.PutObjectParams{
		Key:         key,
		Body:        f,
		Size:        size,
		ContentType: utils.DetectContentType(rel, header),
		ACL:         storage.ACLPublicRead,
	})
}

// verifyRemote returns nil only when key is confirmed present.
func verifyRemote(ctx context.Context, store storage.ObjectStore, key string) error {
	ok, err := store.Head(ctx, key)
	if err != nil {
		return fmt.Errorf("%w: head %s: %v", ErrVerificationFailed, key, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s missing after upload", ErrVerificationFailed, key)
	}
	return nil
}

// verifyLocal returns nil only when rel exists with a non-zero size.
func verifyLocal(files *localfs.FS, rel string) error {
	if !files.Exists(rel) {
		return fmt.Errorf("%w: %s missing after download", ErrVerificationFailed, rel)
	}
	size, err := files.Size(rel)
	if err != nil {
		return fmt.Errorf("%w: stat %s: %v", ErrVerificationFailed, rel, err)
	}
	if size == 0 {
		return fmt.Errorf("%w: %s is empty", ErrVerificationFailed, rel)
	}
	return nil
}
