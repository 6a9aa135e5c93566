package founders

import (
	"context"
	"errors"
	"time"

	"github.com/spherical/pitchdeck-analyzer/internal/domain"
	"github.com/spherical/pitchdeck-analyzer/internal/observability"
	"golang.org/x/sync/errgroup"
)

// Failure reasons recorded as "error:<reason>" statuses
const (
	ReasonSearchFailed       = "search_failed"
	ReasonProfileNotFound    = "profile_not_found"
	ReasonProfileFetchFailed = "profile_fetch_failed"
	ReasonInvalidName        = "invalid_name"
)

// DefaultConcurrency is the number of founders looked up at once
const DefaultConcurrency = 3

type nameResolver interface {
	Resolve(ctx context.Context, name string) (string, error)
}

type profileFetcher interface {
	Fetch(ctx context.Context, handle string) (*domain.Profile, error)
}

// Coordinator runs resolve-then-fetch for every founder of a record
type Coordinator struct {
	resolver    nameResolver
	fetcher     profileFetcher
	concurrency int
	logger      *observability.Logger
}

// NewCoordinator creates a lookup coordinator. A nil resolver marks every
// founder skipped; a nil fetcher stops after handle resolution.
func NewCoordinator(resolver *Resolver, fetcher *Fetcher, concurrency int, logger *observability.Logger) *Coordinator {
	c := &Coordinator{concurrency: concurrency}
	// avoid storing typed nil pointers in the interfaces
	if resolver != nil {
		c.resolver = resolver
	}
	if fetcher != nil {
		c.fetcher = fetcher
	}
	return c.withDefaults(logger)
}

func (c *Coordinator) withDefaults(logger *observability.Logger) *Coordinator {
	if c.concurrency <= 0 {
		c.concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = observability.Nop()
	}
	c.logger = logger.WithOperation("founder_lookup")
	return c
}

// Lookup returns one result per name, in input order. Individual failures are
// recorded as statuses; only a nil list or a cancelled request is an error.
func (c *Coordinator) Lookup(ctx context.Context, names []string) ([]domain.FounderLookupResult, error) {
	if names == nil {
		return nil, domain.ValidationError("Founder list is missing", nil)
	}

	start := time.Now()
	results := make([]domain.FounderLookupResult, len(names))

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, name := range names {
		g.Go(func() error {
			results[i] = c.lookupOne(ctx, name)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	counts := map[domain.LookupStatus]int{}
	for _, r := range results {
		counts[r.Status]++
	}
	c.logger.WithContext(ctx).Info().
		Int("founders", len(names)).
		Int("resolved", counts[domain.LookupResolved]).
		Int("not_found", counts[domain.LookupNotFound]).
		Dur("duration", time.Since(start)).
		Msg("Founder lookup complete")

	return results, nil
}

// Enrich attaches lookup results to the record. Founder names are left as is.
func (c *Coordinator) Enrich(ctx context.Context, record *domain.StructuredRecord) error {
	if record == nil {
		return domain.ValidationError("Record is missing", nil)
	}
	founders := record.Founders
	if founders == nil {
		founders = []string{}
	}
	results, err := c.Lookup(ctx, founders)
	if err != nil {
		return err
	}
	record.FounderLookups = results
	return nil
}

func (c *Coordinator) lookupOne(ctx context.Context, name string) domain.FounderLookupResult {
	result := domain.FounderLookupResult{Name: name}

	if !validName(name) {
		result.Status = domain.LookupError(ReasonInvalidName)
		return result
	}
	if c.resolver == nil {
		result.Status = domain.LookupSkipped
		return result
	}

	handle, err := c.resolver.Resolve(ctx, name)
	if err != nil {
		c.logger.Warn().Str("name", name).Err(err).Msg("Founder search failed")
		result.Status = domain.LookupError(ReasonSearchFailed)
		return result
	}
	if handle == "" {
		result.Status = domain.LookupNotFound
		return result
	}
	result.Handle = &handle

	if c.fetcher == nil {
		result.Status = domain.LookupSkipped
		return result
	}

	profile, err := c.fetcher.Fetch(ctx, handle)
	switch {
	case errors.Is(err, domain.ErrProfileNotFound):
		result.Status = domain.LookupError(ReasonProfileNotFound)
	case err != nil:
		c.logger.Warn().Str("name", name).Str("handle", handle).Err(err).Msg("Profile fetch failed")
		result.Status = domain.LookupError(ReasonProfileFetchFailed)
	default:
		result.Profile = profile
		result.Status = domain.LookupResolved
	}
	return result
}
