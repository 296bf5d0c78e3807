package group

import (
	"strconv"
	"strings"
)

// Reserved attribute keys in the directory's attribute bag
const (
	AttrType            = "type"
	AttrCurrency        = "currency"
	AttrBillingSoftware = "billingSoftware"
	AttrProjects        = "lagoon-projects"
)

// Attributes is the raw mapping the directory stores per group. Values are
// lists of strings; the reserved keys each use a single element.
type Attributes map[string][]string

// DecodeAttributes folds the reserved keys of an attribute bag into typed
// fields. Unknown keys are ignored here; directory implementations preserve
// them on write.
func DecodeAttributes(attrs Attributes) (kind Kind, currency, billingSoftware string, projects ProjectSet) {
	kind = KindPlain
	if v := first(attrs, AttrType); v != "" {
		switch v {
		case string(KindBilling):
			kind = KindBilling
		case string(KindRoleSubgroup):
			kind = KindRoleSubgroup
		}
	}
	currency = first(attrs, AttrCurrency)
	billingSoftware = first(attrs, AttrBillingSoftware)
	projects = ParseProjectSet(first(attrs, AttrProjects))
	return kind, currency, billingSoftware, projects
}

// EncodeAttributes writes the typed fields of a group back into an attribute
// bag, preserving any non-reserved keys already present in base.
func EncodeAttributes(g Group, base Attributes) Attributes {
	attrs := make(Attributes, len(base)+4)
	for k, v := range base {
		attrs[k] = v
	}

	switch g.Kind {
	case KindPlain:
		delete(attrs, AttrType)
	default:
		attrs[AttrType] = []string{string(g.Kind)}
	}

	setOrDelete(attrs, AttrCurrency, g.Currency)
	setOrDelete(attrs, AttrBillingSoftware, g.BillingSoftware)
	setOrDelete(attrs, AttrProjects, g.Projects.String())

	return attrs
}

func first(attrs Attributes, key string) string {
	if vs, ok := attrs[key]; ok && len(vs) > 0 {
		return vs[0]
	}
	return ""
}

func setOrDelete(attrs Attributes, key, value string) {
	if value == "" {
		delete(attrs, key)
		return
	}
	attrs[key] = []string{value}
}

// ProjectSet is an insertion-ordered set of project identifiers attached to
// a group. The directory persists it comma-joined and order-insensitive.
type ProjectSet struct {
	ids  []int
	seen map[int]struct{}
}

// NewProjectSet creates a project set from the given ids, de-duplicating
// while preserving first-seen order.
func NewProjectSet(ids ...int) ProjectSet {
	var s ProjectSet
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// ParseProjectSet parses a comma-joined project list. Empty entries are
// dropped, duplicates collapse.
func ParseProjectSet(joined string) ProjectSet {
	var s ProjectSet
	for _, part := range strings.Split(joined, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			continue
		}
		s.Add(id)
	}
	return s
}

// Add inserts a project id, returning true if it was not present
func (s *ProjectSet) Add(id int) bool {
	if s.seen == nil {
		s.seen = make(map[int]struct{})
	}
	if _, ok := s.seen[id]; ok {
		return false
	}
	s.seen[id] = struct{}{}
	s.ids = append(s.ids, id)
	return true
}

// Remove deletes a project id, returning true if it was present
func (s *ProjectSet) Remove(id int) bool {
	if _, ok := s.seen[id]; !ok {
		return false
	}
	delete(s.seen, id)
	for i, v := range s.ids {
		if v == id {
			s.ids = append(s.ids[:i], s.ids[i+1:]...)
			break
		}
	}
	return true
}

// Contains reports whether the set holds the given project id
func (s ProjectSet) Contains(id int) bool {
	_, ok := s.seen[id]
	return ok
}

// IDs returns the project ids in insertion order
func (s ProjectSet) IDs() []int {
	out := make([]int, len(s.ids))
	copy(out, s.ids)
	return out
}

// Len returns the number of projects in the set
func (s ProjectSet) Len() int {
	return len(s.ids)
}

// String renders the set comma-joined for the attribute bag
func (s ProjectSet) String() string {
	if len(s.ids) == 0 {
		return ""
	}
	parts := make([]string, len(s.ids))
	for i, id := range s.ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}

// Clone returns an independent copy of the set
func (s ProjectSet) Clone() ProjectSet {
	return NewProjectSet(s.ids...)
}
