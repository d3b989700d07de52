package retrieval

import (
	"fmt"
	"io/fs"
	"strings"

	"github.com/poiesic/distillery/core"
)

// MaxTopN caps the number of catalog results per query.
const MaxTopN = 50

// DefaultTopN is used when a query does not set TopN.
const DefaultTopN = 10

// Scope selects the search strategy. It is either CatalogScope or
// FreeformScope.
type Scope interface {
	isScope()
}

// CatalogScope searches the catalog embedding index.
type CatalogScope struct{}

// FreeformScope searches the memo files under the named directory.
type FreeformScope struct {
	Name string
}

func (CatalogScope) isScope()  {}
func (FreeformScope) isScope() {}

// ParseScope maps a scope name to a Scope. "catalog" and the empty string
// select the catalog; any other name is a freeform memo scope.
func ParseScope(name string) (Scope, error) {
	switch name {
	case "", "catalog":
		return CatalogScope{}, nil
	}
	if err := validateScopeName(name); err != nil {
		return nil, err
	}
	return FreeformScope{Name: name}, nil
}

func validateScopeName(name string) error {
	if name == "" || strings.Contains(name, "/") || !fs.ValidPath(name) || name == "." {
		return fmt.Errorf("%w: %q", ErrInvalidScope, name)
	}
	return nil
}

// Query is one retrieval request.
type Query struct {
	Text      string
	TopN      int
	Scope     Scope
	Verbosity core.Verbosity

	// Entity, when set, bypasses the index with a point lookup.
	Entity *core.EntityPointer
}

// Result is one retrieved record. Score is advisory: catalog results keep
// the store's order, memo results are sorted by it.
type Result struct {
	Name     string
	Content  string
	Score    float32
	NotFound bool
	Entity   *core.EntityDetail
}

func clampTopN(n int) int {
	switch {
	case n <= 0:
		return DefaultTopN
	case n > MaxTopN:
		return MaxTopN
	default:
		return n
	}
}
