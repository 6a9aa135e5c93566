package founders

import (
	"context"
	"strings"

	"github.com/spherical/pitchdeck-analyzer/internal/domain"
	"github.com/spherical/pitchdeck-analyzer/internal/observability"
)

// Resolver finds the profile handle of a founder through web search
type Resolver struct {
	searcher   domain.WebSearcher
	domain     string
	pathPrefix string
	maxResults int
	threshold  float64
	logger     *observability.Logger
}

// NewResolver creates a name resolver restricted to cfg.Domain
func NewResolver(searcher domain.WebSearcher, cfg domain.LookupConfig, logger *observability.Logger) *Resolver {
	if cfg.Domain == "" {
		cfg.Domain = "linkedin.com"
	}
	if cfg.ProfilePathPrefix == "" {
		cfg.ProfilePathPrefix = "/in/"
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 3
	}
	if cfg.MatchThreshold <= 0 {
		cfg.MatchThreshold = DefaultMatchThreshold
	}
	if logger == nil {
		logger = observability.Nop()
	}
	return &Resolver{
		searcher:   searcher,
		domain:     cfg.Domain,
		pathPrefix: cfg.ProfilePathPrefix,
		maxResults: cfg.MaxResults,
		threshold:  cfg.MatchThreshold,
		logger:     logger.WithOperation("resolve"),
	}
}

// Query builds the domain-restricted search query for a name
func (r *Resolver) Query(name string) string {
	return `"` + strings.TrimSpace(name) + `" site:` + r.domain
}

// Resolve returns the handle of the first top result that is a profile URL
// and whose title, snippet or handle matches the name. An empty handle means
// no result qualified. Only transport failures return an error.
func (r *Resolver) Resolve(ctx context.Context, name string) (string, error) {
	results, err := r.searcher.Search(ctx, domain.SearchQuery{
		Query:  r.Query(name),
		Domain: r.domain,
		Count:  r.maxResults,
	})
	if err != nil {
		return "", err
	}

	if len(results) > r.maxResults {
		results = results[:r.maxResults]
	}

	for rank, res := range results {
		handle, ok := ExtractHandle(res.URL, r.domain, r.pathPrefix)
		if !ok {
			continue
		}

		score := MatchScore(name, res.Title, res.Snippet, handle)
		if score >= r.threshold {
			r.logger.Debug().
				Str("name", name).
				Str("handle", handle).
				Int("rank", rank+1).
				Float64("score", score).
				Msg("Handle resolved")
			return handle, nil
		}

		r.logger.Debug().
			Str("name", name).
			Str("candidate", handle).
			Float64("score", score).
			Msg("Candidate rejected by name match")
	}

	return "", nil
}
