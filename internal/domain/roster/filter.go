// Package roster filters and orders the loaded employee directory.
package roster

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/garyjia/report-card-viewer/internal/domain/entity"
)

// StoreFilter selects which stores are visible. The zero value is AllStores.
type StoreFilter struct {
	stores map[int]struct{}
}

// AllStores returns a filter that keeps every store
func AllStores() StoreFilter {
	return StoreFilter{}
}

// SpecificStores returns a filter that keeps only the given stores. An empty
// list is treated as AllStores.
func SpecificStores(numbers ...int) StoreFilter {
	if len(numbers) == 0 {
		return AllStores()
	}
	set := make(map[int]struct{}, len(numbers))
	for _, n := range numbers {
		set[n] = struct{}{}
	}
	return StoreFilter{stores: set}
}

// IsAll returns true if the filter keeps every store
func (f StoreFilter) IsAll() bool {
	return len(f.stores) == 0
}

// Matches reports whether a store passes the filter
func (f StoreFilter) Matches(storeNumber int) bool {
	if f.IsAll() {
		return true
	}
	_, ok := f.stores[storeNumber]
	return ok
}

// Stores returns the selected store numbers in ascending order
func (f StoreFilter) Stores() []int {
	numbers := make([]int, 0, len(f.stores))
	for n := range f.stores {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	return numbers
}

// Tier is a qualification filter
type Tier string

const (
	TierAll       Tier = "all"
	TierVisible   Tier = "visible"
	TierQualified Tier = "qualified"
)

// Thresholds are invoice-percentage minimums, kept client-side
const (
	VisibleThreshold   = 10.0
	QualifiedThreshold = 15.0
)

// ParseTier converts a raw value into a Tier, defaulting to TierAll
func ParseTier(s string) (Tier, error) {
	switch Tier(strings.ToLower(strings.TrimSpace(s))) {
	case "", TierAll:
		return TierAll, nil
	case TierVisible:
		return TierVisible, nil
	case TierQualified:
		return TierQualified, nil
	}
	return "", fmt.Errorf("unknown qualification filter %q", s)
}

// Threshold returns the minimum invoice percentage of the tier
func (t Tier) Threshold() float64 {
	switch t {
	case TierVisible:
		return VisibleThreshold
	case TierQualified:
		return QualifiedThreshold
	default:
		return 0
	}
}

// SortKey is a directory ordering
type SortKey string

const (
	SortNameAsc        SortKey = "name_asc"
	SortNameDesc       SortKey = "name_desc"
	SortStoreAsc       SortKey = "store_asc"
	SortInvoicesAsc    SortKey = "invoices_asc"
	SortInvoicesDesc   SortKey = "invoices_desc"
	SortPercentageAsc  SortKey = "percentage_asc"
	SortPercentageDesc SortKey = "percentage_desc"
)

var comparators = map[SortKey]func(a, b entity.Employee) int{
	SortNameAsc:  func(a, b entity.Employee) int { return strings.Compare(a.SortName(), b.SortName()) },
	SortNameDesc: func(a, b entity.Employee) int { return strings.Compare(b.SortName(), a.SortName()) },
	SortStoreAsc: func(a, b entity.Employee) int { return compareInt(a.StoreNumber, b.StoreNumber) },
	SortInvoicesAsc: func(a, b entity.Employee) int {
		return compareInt(a.Invoices(), b.Invoices())
	},
	SortInvoicesDesc: func(a, b entity.Employee) int {
		return compareInt(b.Invoices(), a.Invoices())
	},
	SortPercentageAsc: func(a, b entity.Employee) int {
		return compareFloat(a.Percentage(), b.Percentage())
	},
	SortPercentageDesc: func(a, b entity.Employee) int {
		return compareFloat(b.Percentage(), a.Percentage())
	},
}

// ParseSortKey converts a raw value into a SortKey, defaulting to name_asc
func ParseSortKey(s string) (SortKey, error) {
	key := SortKey(strings.ToLower(strings.TrimSpace(s)))
	if key == "" {
		return SortNameAsc, nil
	}
	if _, ok := comparators[key]; !ok {
		return "", fmt.Errorf("unknown sort key %q", s)
	}
	return key, nil
}

// Criteria is the full set of directory view options
type Criteria struct {
	Stores StoreFilter
	Tier   Tier
	Sort   SortKey
}

// DefaultCriteria shows everything ordered by name
func DefaultCriteria() Criteria {
	return Criteria{Stores: AllStores(), Tier: TierAll, Sort: SortNameAsc}
}

// Apply filters by store, then by qualification tier, then stable-sorts. The
// directory is not modified.
func Apply(directory []entity.Employee, c Criteria) []entity.Employee {
	threshold := c.Tier.Threshold()

	visible := make([]entity.Employee, 0, len(directory))
	for _, emp := range directory {
		if !c.Stores.Matches(emp.StoreNumber) {
			continue
		}
		if emp.Percentage() < threshold {
			continue
		}
		visible = append(visible, emp)
	}

	if cmp, ok := comparators[c.Sort]; ok {
		slices.SortStableFunc(visible, cmp)
	}
	return visible
}

// FilterStores applies only the store filter, preserving directory order
func FilterStores(directory []entity.Employee, f StoreFilter) []entity.Employee {
	return Apply(directory, Criteria{Stores: f, Tier: TierAll})
}

// FilterTier applies only the qualification filter, preserving directory order
func FilterTier(directory []entity.Employee, t Tier) []entity.Employee {
	return Apply(directory, Criteria{Stores: AllStores(), Tier: t})
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
