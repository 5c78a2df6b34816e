package award

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/streakforge/streakforge/internal/core"
)

// document is the in-memory form of the ledger file. On disk the canonical
// shape is:
//
//	{
//	  "user_badges":       {"<user>": [{"badge_key", "awarded_at", "reason", "points"}, ...]},
//	  "badge_definitions": {"<id>": {"name", "description", "category", "tier",
//	                                 "criteria_type", "threshold", "points"}},
//	  "stats":             {"total_badges_awarded": n}
//	}
//
// Three legacy shapes for user_badges[user] survive in deployed files and
// are normalized on read: a flat list of badge-id strings, a list of
// achievement objects keyed by "id", and a dict keyed by badge id. Output
// is always the canonical array-of-award-object form.
type document struct {
	UserBadges  map[core.Handle][]core.AwardRecord `json:"user_badges"`
	Definitions map[string]definitionEntry         `json:"badge_definitions"`
	Stats       ledgerStats                        `json:"stats"`
}

type definitionEntry struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Category     string `json:"category"`
	Tier         string `json:"tier"`
	CriteriaType string `json:"criteria_type"`
	Threshold    int    `json:"threshold"`
	Points       int    `json:"points"`
}

type ledgerStats struct {
	TotalBadgesAwarded int `json:"total_badges_awarded"`
}

// rawDocument defers user_badges decoding so each user's entry can be
// probed for its shape.
type rawDocument struct {
	UserBadges  map[core.Handle]json.RawMessage `json:"user_badges"`
	Definitions map[string]definitionEntry      `json:"badge_definitions"`
}

func (d *document) count() int {
	n := 0
	for _, recs := range d.UserBadges {
		n += len(recs)
	}
	return n
}

func emptyDocument() *document {
	return &document{
		UserBadges:  make(map[core.Handle][]core.AwardRecord),
		Definitions: make(map[string]definitionEntry),
	}
}

// read loads and normalizes the ledger file. Missing file means a fresh
// deployment; anything else unreadable is a ParseError.
func (l *Ledger) read() (*document, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return emptyDocument(), nil
		}
		return nil, &ParseError{Path: l.path, Err: err}
	}

	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{Path: l.path, Err: err}
	}

	doc := emptyDocument()
	if raw.Definitions != nil {
		doc.Definitions = raw.Definitions
	}

	for user, entry := range raw.UserBadges {
		recs, err := l.normalizeEntry(user, entry, doc.Definitions)
		if err != nil {
			return nil, &ParseError{Path: l.path, Err: fmt.Errorf("user %s: %w", user, err)}
		}
		doc.UserBadges[user] = recs
	}
	doc.Stats.TotalBadgesAwarded = doc.count()

	return doc, nil
}

// normalizeEntry decodes one user's badge list from whichever historical
// shape it is in. Normalization is idempotent: canonical input decodes
// through the first probe unchanged.
func (l *Ledger) normalizeEntry(user core.Handle, entry json.RawMessage, defs map[string]definitionEntry) ([]core.AwardRecord, error) {
	// Canonical: array of award objects carrying badge_key
	var canonical []core.AwardRecord
	if err := json.Unmarshal(entry, &canonical); err == nil && isCanonical(canonical) {
		for i := range canonical {
			canonical[i].User = user
			if canonical[i].Points == 0 {
				canonical[i].Points = l.pointsFor(canonical[i].BadgeID, defs)
			}
		}
		return canonical, nil
	}

	// Legacy (a): flat list of badge-id strings
	var ids []string
	if err := json.Unmarshal(entry, &ids); err == nil {
		recs := make([]core.AwardRecord, 0, len(ids))
		for _, id := range ids {
			recs = append(recs, l.synthesize(user, id, defs, nil))
		}
		return recs, nil
	}

	// Legacy (b): list of achievement objects keyed by "id"
	var objs []legacyAchievement
	if err := json.Unmarshal(entry, &objs); err == nil && allHaveIDs(objs) {
		recs := make([]core.AwardRecord, 0, len(objs))
		for _, obj := range objs {
			recs = append(recs, l.synthesize(user, obj.ID, defs, &obj))
		}
		return recs, nil
	}

	// Legacy (c): dict keyed by badge id
	var byID map[string]legacyAchievement
	if err := json.Unmarshal(entry, &byID); err == nil {
		recs := make([]core.AwardRecord, 0, len(byID))
		for id, obj := range byID {
			obj := obj
			recs = append(recs, l.synthesize(user, id, defs, &obj))
		}
		// Map iteration is unordered; settle on a stable order
		sortRecords(recs)
		return recs, nil
	}

	return nil, fmt.Errorf("unrecognized user_badges shape")
}

// legacyAchievement covers the fields the old scripts wrote in object form.
// Timestamps are kept as strings: the scripts wrote zone-less ISO stamps
// that time.Time refuses to decode.
type legacyAchievement struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Points    int    `json:"points"`
	Reason    string `json:"reason"`
	AwardedAt string `json:"awarded_at"`
	Timestamp string `json:"timestamp"`
}

var legacyTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func (a *legacyAchievement) awardedAt() time.Time {
	for _, raw := range []string{a.AwardedAt, a.Timestamp} {
		if raw == "" {
			continue
		}
		for _, layout := range legacyTimeLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return t.UTC()
			}
		}
	}
	return time.Time{}
}

// synthesize builds a canonical record for a legacy entry, pricing it from
// the document's definitions block or the live catalog.
func (l *Ledger) synthesize(user core.Handle, badgeID string, defs map[string]definitionEntry, obj *legacyAchievement) core.AwardRecord {
	rec := core.AwardRecord{
		User:    user,
		BadgeID: badgeID,
		Reason:  "migrated from legacy ledger",
	}
	if obj != nil {
		rec.AwardedAt = obj.awardedAt()
		rec.Points = obj.Points
		if obj.Reason != "" {
			rec.Reason = obj.Reason
		}
	}
	if rec.Points == 0 {
		rec.Points = l.pointsFor(badgeID, defs)
	}
	return rec
}

func (l *Ledger) pointsFor(badgeID string, defs map[string]definitionEntry) int {
	if def, ok := defs[badgeID]; ok && def.Points > 0 {
		return def.Points
	}
	if l.cat != nil {
		if def, ok := l.cat.Lookup(badgeID); ok {
			return def.Points
		}
	}
	return 0
}

// isCanonical reports whether a decoded array actually carried badge keys.
// A list of legacy objects decodes without error but leaves BadgeID empty,
// which means the probe matched the wrong shape.
func isCanonical(recs []core.AwardRecord) bool {
	for _, rec := range recs {
		if rec.BadgeID == "" {
			return false
		}
	}
	return true
}

func allHaveIDs(objs []legacyAchievement) bool {
	if len(objs) == 0 {
		return false
	}
	for _, o := range objs {
		if o.ID == "" {
			return false
		}
	}
	return true
}

func sortRecords(recs []core.AwardRecord) {
	for i := 1; i < len(recs); i++ {
		for j := i; j > 0; j-- {
			a, b := recs[j-1], recs[j]
			earlier := b.AwardedAt.Before(a.AwardedAt) ||
				(b.AwardedAt.Equal(a.AwardedAt) && b.BadgeID < a.BadgeID)
			if !earlier {
				break
			}
			recs[j-1], recs[j] = b, a
		}
	}
}

// write serializes the canonical document through a temporary file followed
// by an atomic rename, so a failed write leaves the previous file intact.
func (l *Ledger) write(doc *document) error {
	doc.Stats.TotalBadgesAwarded = doc.count()
	l.refreshDefinitions(doc)

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return &PersistenceError{Path: l.path, Err: err}
	}

	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return &PersistenceError{Path: l.path, Err: err}
	}

	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return &PersistenceError{Path: l.path, Err: err}
	}
	if err := os.Rename(tmp, l.path); err != nil {
		os.Remove(tmp)
		return &PersistenceError{Path: l.path, Err: err}
	}
	return nil
}

// refreshDefinitions mirrors the live catalog into the document so future
// loads can price badge-id-only entries without a catalog at hand.
func (l *Ledger) refreshDefinitions(doc *document) {
	if l.cat == nil {
		return
	}
	for _, def := range l.cat.All() {
		doc.Definitions[def.ID] = definitionEntry{
			Name:         def.Name,
			Description:  def.Description,
			Category:     string(def.Category),
			Tier:         string(def.Tier),
			CriteriaType: string(def.CriteriaType),
			Threshold:    def.Threshold,
			Points:       def.Points,
		}
	}
}
