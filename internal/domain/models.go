package domain

import (
	"encoding/json"
	"time"
)

// ExtractionMethod records how a page's text was obtained
type ExtractionMethod string

const (
	MethodDirect    ExtractionMethod = "direct"
	MethodOCR       ExtractionMethod = "ocr"
	MethodOCRFailed ExtractionMethod = "ocr_failed"
)

// Source is the PDF being analyzed. Exactly one of Path or Data is set.
type Source struct {
	Path string
	Data []byte
	Name string // display name for logs, e.g. the uploaded filename
}

// Label returns a human readable name for the source
func (s Source) Label() string {
	switch {
	case s.Name != "":
		return s.Name
	case s.Path != "":
		return s.Path
	default:
		return "<memory>"
	}
}

// Page is the text produced for a single deck page
type Page struct {
	Index       int              `json:"index"` // 0-based
	Text        string           `json:"-"`
	Method      ExtractionMethod `json:"method"`
	Trustworthy bool             `json:"trustworthy"`
	Reason      string           `json:"reason,omitempty"` // trust verdict for the direct attempt
	Chars       int              `json:"chars"`
	Error       string           `json:"error,omitempty"`
}

// DeckTranscript is the ordered concatenation of every page in a deck
type DeckTranscript struct {
	Pages []Page `json:"pages"`
	Text  string `json:"-"`
}

// Methods returns the per-page extraction method manifest, in page order
func (t *DeckTranscript) Methods() []ExtractionMethod {
	methods := make([]ExtractionMethod, len(t.Pages))
	for i, p := range t.Pages {
		methods[i] = p.Method
	}
	return methods
}

// Count returns how many pages used the given method
func (t *DeckTranscript) Count(method ExtractionMethod) int {
	n := 0
	for _, p := range t.Pages {
		if p.Method == method {
			n++
		}
	}
	return n
}

// Funding describes the raise mentioned in the deck
type Funding struct {
	Amount *string `json:"amount"`
	Round  *string `json:"round"`
}

// StructuredRecord is the startup metadata extracted from a deck
type StructuredRecord struct {
	StartupName      string                `json:"startup_name"`
	ValueProposition string                `json:"value_proposition"`
	NumberOfFounders *int                  `json:"number_of_founders"`
	Founders         []string              `json:"founders"`
	Problem          string                `json:"problem"`
	Solution         string                `json:"solution"`
	TargetMarket     string                `json:"target_market"`
	Traction         string                `json:"traction"`
	Funding          *Funding              `json:"funding"`
	NotablePoints    []string              `json:"notable_points"`
	Summary          string                `json:"summary"`
	InvestorRemark   string                `json:"investor_remark"`
	FounderLookups   []FounderLookupResult `json:"founder_lookups,omitempty"`
}

// LookupStatus is the outcome of a single founder lookup
type LookupStatus string

const (
	LookupResolved LookupStatus = "resolved"
	LookupNotFound LookupStatus = "not_found"
	LookupSkipped  LookupStatus = "skipped"
)

// LookupError builds an "error:<reason>" status
func LookupError(reason string) LookupStatus {
	return LookupStatus("error:" + reason)
}

// IsError reports whether the status is an error status
func (s LookupStatus) IsError() bool {
	return len(s) > 6 && s[:6] == "error:"
}

// Profile is the profile payload returned by the profile-fetch service
type Profile struct {
	FirstName        string          `json:"first_name,omitempty"`
	LastName         string          `json:"last_name,omitempty"`
	Headline         string          `json:"headline,omitempty"`
	Location         string          `json:"location,omitempty"`
	PublicIdentifier string          `json:"public_identifier,omitempty"`
	ProfileURL       string          `json:"profile_url,omitempty"`
	ConnectionsCount *int            `json:"connections_count,omitempty"`
	FollowerCount    *int            `json:"follower_count,omitempty"`
	Emails           []string        `json:"emails,omitempty"`
	Websites         []string        `json:"websites,omitempty"`
	Raw              json.RawMessage `json:"raw,omitempty"`
}

// FounderLookupResult is the per-founder lookup outcome
type FounderLookupResult struct {
	Name    string       `json:"name"`
	Handle  *string      `json:"handle"`
	Profile *Profile     `json:"profile"`
	Status  LookupStatus `json:"status"`
}

// LookupConfig is the static configuration of the founder lookup stage
type LookupConfig struct {
	Domain            string  // search domain restriction, e.g. linkedin.com
	ProfilePathPrefix string  // path prefix of profile URLs, e.g. /in/
	MaxResults        int     // result count cap per search
	MatchThreshold    float64 // fraction of name tokens that must match a result
	MaxRetries        int
	Concurrency       int
	AccountID         string // profile-fetch account/session id
}

// SearchResult is one entry of a web search response
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// SearchQuery is a domain-restricted web search request
type SearchQuery struct {
	Query  string
	Domain string
	Count  int
}

// EventType represents the type of stream event
type EventType string

// EventExtractionComplete closes the page events of a deck and carries a
// summary string. EventComplete closes a whole request and carries its result.
const (
	EventStart              EventType = "start"
	EventPageProcessing     EventType = "page_processing"
	EventPageComplete       EventType = "page_complete"
	EventExtractionComplete EventType = "extraction_complete"
	EventAnalysis           EventType = "analysis"
	EventFounderLookup      EventType = "founder_lookup"
	EventError              EventType = "error"
	EventComplete           EventType = "complete"
)

// StreamEvent represents an event emitted during processing
type StreamEvent struct {
	Type       EventType   `json:"type"`
	PageNumber int         `json:"page_number,omitempty"`
	TotalPages int         `json:"total_pages,omitempty"`
	Payload    interface{} `json:"payload,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}
