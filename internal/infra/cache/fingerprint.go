package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bryanwahyu/forensic-lab/internal/domain/fingerprint"
)

const keyPrefix = "forensic:fp:"

// FingerprintIndex remembers analysed fingerprints in Redis so duplicate
// checks can skip the log table. A miss is not authoritative.
type FingerprintIndex struct {
	client *redis.Client
	ttl    time.Duration
}

func NewFingerprintIndex(client *redis.Client, ttl time.Duration) *FingerprintIndex {
	return &FingerprintIndex{client: client, ttl: ttl}
}

func (i *FingerprintIndex) Seen(ctx context.Context, fp fingerprint.Digest) (bool, error) {
	n, err := i.client.Exists(ctx, key(fp)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (i *FingerprintIndex) Remember(ctx context.Context, fp fingerprint.Digest) error {
	return i.client.Set(ctx, key(fp), "1", i.ttl).Err()
}

func (i *FingerprintIndex) Ping(ctx context.Context) error {
	return i.client.Ping(ctx).Err()
}

func key(fp fingerprint.Digest) string {
	return keyPrefix + fp.String()
}
