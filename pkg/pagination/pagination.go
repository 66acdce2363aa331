// Package pagination pages lists the gateway returns whole.
package pagination

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 25
	// MaxLimit caps how many rows any page can hold.
	MaxLimit = 100
)

// Params holds offset pagination inputs from controllers.
type Params struct {
	Limit  int
	Offset int
}

// Meta describes the returned window.
type Meta struct {
	Total      int  `json:"total"`
	Limit      int  `json:"limit"`
	Offset     int  `json:"offset"`
	NextOffset *int `json:"nextOffset,omitempty"`
}

// NormalizeLimit enforces the configured default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Slice returns the window of items selected by p. The input is not modified.
func Slice[T any](items []T, p Params) ([]T, Meta) {
	limit := NormalizeLimit(p.Limit)
	offset := p.Offset
	if offset < 0 {
		offset = 0
	}
	meta := Meta{Total: len(items), Limit: limit, Offset: offset}
	if offset >= len(items) {
		return []T{}, meta
	}
	end := offset + limit
	if end < len(items) {
		next := end
		meta.NextOffset = &next
	} else {
		end = len(items)
	}
	out := make([]T, end-offset)
	copy(out, items[offset:end])
	return out, meta
}
