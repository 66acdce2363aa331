package enums

import "fmt"

// SortKey selects the ordering of the visible product list.
type SortKey string

const (
	SortDefault   SortKey = "default"
	SortPriceAsc  SortKey = "price-asc"
	SortPriceDesc SortKey = "price-desc"
)

var validSortKeys = []SortKey{
	SortDefault,
	SortPriceAsc,
	SortPriceDesc,
}

var sortKeyLabels = map[SortKey]string{
	SortDefault:   "Default",
	SortPriceAsc:  "Price: Low to High",
	SortPriceDesc: "Price: High to Low",
}

// String implements fmt.Stringer.
func (s SortKey) String() string {
	return string(s)
}

// Label returns the human readable option label.
func (s SortKey) Label() string {
	if label, ok := sortKeyLabels[s]; ok {
		return label
	}
	return sortKeyLabels[SortDefault]
}

// IsValid reports whether the value is a known SortKey.
func (s SortKey) IsValid() bool {
	for _, candidate := range validSortKeys {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSortKey converts raw input into a SortKey; empty input selects the default order.
func ParseSortKey(value string) (SortKey, error) {
	if value == "" {
		return SortDefault, nil
	}
	for _, candidate := range validSortKeys {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sort key %q", value)
}
