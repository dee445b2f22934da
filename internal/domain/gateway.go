package domain

import "context"

// SearchQuery selects catalog products whose description contains any of
// Terms. Results keep catalog order; Limit <= 0 means the backend default.
type SearchQuery struct {
	Terms []string
	Limit int
}

// Catalog is the read side of the product store.
type Catalog interface {
	// FindByCode returns (nil, nil) when no product has the given code.
	FindByCode(ctx context.Context, code string) (*Product, error)
	Search(ctx context.Context, q SearchQuery) ([]Product, error)
}

// Knowledge looks things up on the web. Implementations degrade to an
// empty result instead of failing.
type Knowledge interface {
	Search(ctx context.Context, query string, maxResults int) []Snippet
}

// Responder turns a prompt into reply text using a fixed persona.
type Responder interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Delivery sends a text message to a recipient on the messaging gateway.
type Delivery interface {
	Name() string
	Send(ctx context.Context, recipient, body string) error
}
