package founders

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/spherical/pitchdeck-analyzer/internal/cache"
	"github.com/spherical/pitchdeck-analyzer/internal/domain"
	"github.com/spherical/pitchdeck-analyzer/internal/observability"
)

// Fetcher retrieves profiles for resolved handles, optionally through a cache
type Fetcher struct {
	provider  domain.ProfileProvider
	accountID string
	cache     cache.Client
	ttl       time.Duration
	logger    *observability.Logger
}

// NewFetcher creates a profile fetcher. store may be nil to disable caching.
func NewFetcher(provider domain.ProfileProvider, accountID string, store cache.Client, ttl time.Duration, logger *observability.Logger) *Fetcher {
	if logger == nil {
		logger = observability.Nop()
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Fetcher{
		provider:  provider,
		accountID: accountID,
		cache:     store,
		ttl:       ttl,
		logger:    logger.WithOperation("fetch_profile"),
	}
}

// Fetch returns the profile for handle. Cache failures never fail the fetch.
func (f *Fetcher) Fetch(ctx context.Context, handle string) (*domain.Profile, error) {
	key := cache.ProfileKey(f.accountID, handle)

	if f.cache != nil {
		data, err := f.cache.Get(ctx, key)
		switch {
		case err == nil:
			var p domain.Profile
			if jsonErr := json.Unmarshal(data, &p); jsonErr == nil {
				f.logger.Debug().Str("handle", handle).Msg("Profile cache hit")
				return &p, nil
			}
		case !errors.Is(err, cache.ErrCacheMiss):
			f.logger.Warn().Err(err).Msg("Profile cache read failed")
		}
	}

	profile, err := f.provider.FetchProfile(ctx, handle, f.accountID)
	if err != nil {
		return nil, err
	}

	if f.cache != nil {
		if data, err := json.Marshal(profile); err == nil {
			if err := f.cache.Set(ctx, key, data, f.ttl); err != nil {
				f.logger.Warn().Err(err).Msg("Profile cache write failed")
			}
		}
	}

	return profile, nil
}
