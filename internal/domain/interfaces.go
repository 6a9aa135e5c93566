package domain

import "context"

// Document gives page-level access to an opened PDF
type Document interface {
	// NumPages returns the number of pages in the document
	NumPages() int

	// PageText returns the embedded text of a page (0-based)
	PageText(index int) (string, error)

	// RenderPNG rasterizes a page (0-based) at the given resolution
	RenderPNG(index int, dpi float64) ([]byte, error)

	Close() error
}

// DocumentOpener opens a PDF source for page-level access
type DocumentOpener interface {
	Open(ctx context.Context, src Source) (Document, error)
}

// TextRecognizer reads the text in an image (the vision OCR collaborator)
type TextRecognizer interface {
	Recognize(ctx context.Context, image []byte, instructions string) (string, error)
}

// WebSearcher runs domain-restricted web searches
type WebSearcher interface {
	Search(ctx context.Context, q SearchQuery) ([]SearchResult, error)
}

// ProfileProvider fetches a profile by handle from the profile service
type ProfileProvider interface {
	FetchProfile(ctx context.Context, handle, accountID string) (*Profile, error)
}
