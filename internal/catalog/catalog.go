// Package catalog provides the validated badge catalog: every badge the
// workshop can award, keyed by id, with threshold progressions per criteria.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/streakforge/streakforge/internal/core"
)

// BadgeDefinition describes one earnable badge
type BadgeDefinition struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	Category     core.Category     `json:"category"`
	CriteriaType core.CriteriaType `json:"criteria_type"`
	Threshold    int               `json:"threshold"`
	Points       int               `json:"points"`
	Tier         core.Tier         `json:"tier"`
	Icon         string            `json:"icon,omitempty"`
}

// Catalog is an immutable set of badge definitions. It is read-only for the
// lifetime of an evaluation batch; concurrent reads need no coordination.
type Catalog struct {
	byID       map[string]BadgeDefinition
	byCriteria map[core.CriteriaType][]BadgeDefinition
	ordered    []BadgeDefinition
}

// SchemaError reports a malformed badge definition. Catalog load fails on
// the first one found; evaluation cannot proceed until the source is fixed.
type SchemaError struct {
	BadgeID string
	Reason  string
}

func (e *SchemaError) Error() string {
	if e.BadgeID == "" {
		return fmt.Sprintf("catalog schema error: %s", e.Reason)
	}
	return fmt.Sprintf("catalog schema error in %q: %s", e.BadgeID, e.Reason)
}

// Load reads and validates a catalog document from disk
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse validates a catalog document. The document is a JSON object mapping
// badge id to definition; the key wins over any embedded "id" field.
func Parse(data []byte) (*Catalog, error) {
	var doc map[string]BadgeDefinition
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	defs := make([]BadgeDefinition, 0, len(doc))
	for id, def := range doc {
		def.ID = id
		defs = append(defs, def)
	}
	return New(defs)
}

// New builds a validated catalog from definitions
func New(defs []BadgeDefinition) (*Catalog, error) {
	if len(defs) == 0 {
		return nil, core.ErrEmptyCatalog
	}

	c := &Catalog{
		byID:       make(map[string]BadgeDefinition, len(defs)),
		byCriteria: make(map[core.CriteriaType][]BadgeDefinition),
	}

	// Deterministic order regardless of source map iteration
	sorted := make([]BadgeDefinition, len(defs))
	copy(sorted, defs)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].CriteriaType != sorted[j].CriteriaType {
			return sorted[i].CriteriaType < sorted[j].CriteriaType
		}
		if sorted[i].Threshold != sorted[j].Threshold {
			return sorted[i].Threshold < sorted[j].Threshold
		}
		return sorted[i].ID < sorted[j].ID
	})

	for _, def := range sorted {
		if err := validate(def); err != nil {
			return nil, err
		}
		if _, dup := c.byID[def.ID]; dup {
			return nil, &SchemaError{BadgeID: def.ID, Reason: "duplicate badge id"}
		}
		c.byID[def.ID] = def
		c.byCriteria[def.CriteriaType] = append(c.byCriteria[def.CriteriaType], def)
		c.ordered = append(c.ordered, def)
	}

	// Thresholds within a criteria type form a strict progression ladder
	for ct, group := range c.byCriteria {
		for i := 1; i < len(group); i++ {
			if group[i].Threshold == group[i-1].Threshold {
				return nil, &SchemaError{
					BadgeID: group[i].ID,
					Reason: fmt.Sprintf("threshold %d duplicates %q within criteria %q",
						group[i].Threshold, group[i-1].ID, ct),
				}
			}
		}
	}

	return c, nil
}

func validate(def BadgeDefinition) error {
	switch {
	case def.ID == "":
		return &SchemaError{Reason: "missing badge id"}
	case def.Name == "":
		return &SchemaError{BadgeID: def.ID, Reason: "missing name"}
	case def.CriteriaType == "":
		return &SchemaError{BadgeID: def.ID, Reason: "missing criteria_type"}
	case def.Tier == "":
		return &SchemaError{BadgeID: def.ID, Reason: "missing tier"}
	case def.Threshold <= 0:
		return &SchemaError{BadgeID: def.ID, Reason: fmt.Sprintf("threshold must be positive, got %d", def.Threshold)}
	case def.Points < 0:
		return &SchemaError{BadgeID: def.ID, Reason: fmt.Sprintf("points must be non-negative, got %d", def.Points)}
	}
	return nil
}

// Lookup returns the definition for a badge id
func (c *Catalog) Lookup(id string) (BadgeDefinition, bool) {
	def, ok := c.byID[id]
	return def, ok
}

// DefinitionsFor returns the definitions for a criteria type, ascending by
// threshold. The returned slice is a copy.
func (c *Catalog) DefinitionsFor(ct core.CriteriaType) []BadgeDefinition {
	group := c.byCriteria[ct]
	out := make([]BadgeDefinition, len(group))
	copy(out, group)
	return out
}

// CriteriaTypes returns the criteria types present, in deterministic order
func (c *Catalog) CriteriaTypes() []core.CriteriaType {
	seen := make(map[core.CriteriaType]bool)
	var out []core.CriteriaType
	for _, def := range c.ordered {
		if !seen[def.CriteriaType] {
			seen[def.CriteriaType] = true
			out = append(out, def.CriteriaType)
		}
	}
	return out
}

// All returns every definition, grouped by criteria type then ascending by
// threshold. The returned slice is a copy.
func (c *Catalog) All() []BadgeDefinition {
	out := make([]BadgeDefinition, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// Len returns the number of definitions
func (c *Catalog) Len() int {
	return len(c.byID)
}
