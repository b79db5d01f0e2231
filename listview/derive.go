// ABOUTME: Derivation pipeline from the raw record set to rendered rows
// ABOUTME: Stable locale-aware sort, then archived exclusion, free-text search, and field filters
package listview

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/harperreed/prospekt/models"
)

// Direction orders a sort.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "descending"
	}
	return "ascending"
}

// SortSpec selects the sort field. An empty Key keeps store order.
type SortSpec struct {
	Key       string
	Direction Direction
}

// Toggle returns the spec that results from choosing key as the sort column:
// the same key sorted ascending flips to descending, anything else sorts ascending.
func (s SortSpec) Toggle(key string) SortSpec {
	if s.Key == key && s.Direction == Ascending {
		return SortSpec{Key: key, Direction: Descending}
	}
	return SortSpec{Key: key, Direction: Ascending}
}

// Filter holds the per-field substring filters.
type Filter struct {
	Company       string
	ContactPerson string
	Status        string
}

// FilterFields are the fields a Filter can constrain.
var FilterFields = []string{models.FieldCompany, models.FieldContactPerson, models.FieldStatus}

// Get returns the filter value for field.
func (f Filter) Get(field string) string {
	switch field {
	case models.FieldCompany:
		return f.Company
	case models.FieldContactPerson:
		return f.ContactPerson
	case models.FieldStatus:
		return f.Status
	}
	return ""
}

// With returns a copy of f with field set to value.
func (f Filter) With(field, value string) (Filter, error) {
	switch field {
	case models.FieldCompany:
		f.Company = value
	case models.FieldContactPerson:
		f.ContactPerson = value
	case models.FieldStatus:
		f.Status = value
	default:
		return f, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return f, nil
}

// IsZero reports whether no field filter is set.
func (f Filter) IsZero() bool {
	return f == Filter{}
}

// DefaultCollation is the language used when none is configured.
var DefaultCollation = language.Swedish

// Deriver runs the pipeline with a fixed collation language.
type Deriver struct {
	tag language.Tag
}

// NewDeriver returns a Deriver collating strings for tag.
func NewDeriver(tag language.Tag) Deriver {
	return Deriver{tag: tag}
}

// ParseDeriver parses a BCP 47 tag; an empty string selects DefaultCollation.
func ParseDeriver(tag string) (Deriver, error) {
	if tag == "" {
		return NewDeriver(DefaultCollation), nil
	}
	t, err := language.Parse(tag)
	if err != nil {
		return Deriver{}, fmt.Errorf("parse collation %q: %w", tag, err)
	}
	return NewDeriver(t), nil
}

// Language returns the collation language.
func (d Deriver) Language() language.Tag {
	if d.tag == (language.Tag{}) {
		return DefaultCollation
	}
	return d.tag
}

// Derive runs the pipeline with DefaultCollation.
func Derive(records []models.Prospect, sort SortSpec, search string, filter Filter) []models.Prospect {
	return Deriver{}.Derive(records, sort, search, filter)
}

// Derive returns the rows to display. records is not modified.
func (d Deriver) Derive(records []models.Prospect, sort SortSpec, search string, filter Filter) []models.Prospect {
	sorted := slices.Clone(records)
	if sort.Key != "" {
		col := collate.New(d.Language())
		slices.SortStableFunc(sorted, func(a, b models.Prospect) int {
			c := compareValues(col, a.Value(sort.Key), b.Value(sort.Key))
			if sort.Direction == Descending {
				return -c
			}
			return c
		})
	}

	q := strings.ToLower(search)
	fc := strings.ToLower(filter.Company)
	fp := strings.ToLower(filter.ContactPerson)
	fs := strings.ToLower(filter.Status)

	rows := make([]models.Prospect, 0, len(sorted))
	for _, p := range sorted {
		if p.Archived {
			continue
		}
		company := strings.ToLower(p.Company)
		person := strings.ToLower(p.ContactPerson)
		status := strings.ToLower(p.Status)
		if q != "" && !strings.Contains(company, q) && !strings.Contains(person, q) && !strings.Contains(status, q) {
			continue
		}
		if !strings.Contains(company, fc) || !strings.Contains(person, fp) || !strings.Contains(status, fs) {
			continue
		}
		rows = append(rows, p)
	}
	return rows
}

// compareValues orders two field values of the same kind; anything else is equal.
func compareValues(col *collate.Collator, a, b any) int {
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return col.CompareString(av, bv)
		}
		return 0
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv)
		}
		return 0
	}
	an, aok := asNumber(a)
	bn, bok := asNumber(b)
	if aok && bok {
		return cmp.Compare(an, bn)
	}
	return 0
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
