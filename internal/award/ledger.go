// Package award owns the durable award ledger: the append-only record of
// which user earned which badge, when, and for how many points. All mutation
// goes through Commit, which is a single atomic read-modify-write against
// the ledger file so that independent invocations never double-award.
package award

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/streakforge/streakforge/internal/catalog"
	"github.com/streakforge/streakforge/internal/core"
)

// Ledger is a file-backed award store. One document per deployment.
type Ledger struct {
	path string
	cat  *catalog.Catalog
	mu   sync.Mutex
	doc  *document
}

// ParseError reports a present-but-unreadable ledger or snapshot document.
// A corrupt ledger is never silently overwritten.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// PersistenceError reports a failed ledger write. The on-disk state is
// exactly as it was before the attempt; the whole commit may be retried.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Open loads the ledger document at path, normalizing any legacy shape it
// finds. A missing file bootstraps an empty ledger; a corrupt file is a
// ParseError. The catalog prices legacy entries that carry no points.
func Open(path string, cat *catalog.Catalog) (*Ledger, error) {
	l := &Ledger{path: path, cat: cat}

	doc, err := l.read()
	if err != nil {
		return nil, err
	}
	l.doc = doc
	return l, nil
}

// CurrentAwards returns the set of badge ids the user has earned. Unknown
// users get an empty set, never an error.
func (l *Ledger) CurrentAwards(user core.Handle) map[string]bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	earned := make(map[string]bool)
	for _, rec := range l.doc.UserBadges[user] {
		earned[rec.BadgeID] = true
	}
	return earned
}

// Records returns the user's award records ordered by award time ascending
func (l *Ledger) Records(user core.Handle) []core.AwardRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	recs := l.doc.UserBadges[user]
	out := make([]core.AwardRecord, len(recs))
	copy(out, recs)
	for i := range out {
		out[i].User = user
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AwardedAt.Before(out[j].AwardedAt)
	})
	return out
}

// TotalPoints returns the sum of award points for a user
func (l *Ledger) TotalPoints(user core.Handle) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	total := 0
	for _, rec := range l.doc.UserBadges[user] {
		total += rec.Points
	}
	return total
}

// Users returns every handle with at least one award, sorted
func (l *Ledger) Users() []core.Handle {
	l.mu.Lock()
	defer l.mu.Unlock()

	users := make([]core.Handle, 0, len(l.doc.UserBadges))
	for user := range l.doc.UserBadges {
		users = append(users, user)
	}
	sort.Strings(users)
	return users
}

// TotalAwarded returns the total number of award records in the ledger
func (l *Ledger) TotalAwarded() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.doc.count()
}

// Commit atomically appends the still-new subset of newBadges to the user's
// awards. It re-reads the ledger file immediately before writing so that a
// concurrent commit from another process cannot be double-applied: badges
// already present after the re-read are silently dropped, not errors. Each
// appended record gets a fresh UTC timestamp, the supplied reason, and the
// points from its definition. The rewrite goes through a temporary file and
// an atomic rename; on any failure the prior on-disk state is untouched and
// the whole commit may be retried.
func (l *Ledger) Commit(user core.Handle, newBadges []catalog.BadgeDefinition, reason string) ([]core.AwardRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Re-read the latest state; another invocation may have committed
	// since this ledger was opened.
	doc, err := l.read()
	if err != nil {
		return nil, err
	}

	earned := make(map[string]bool)
	for _, rec := range doc.UserBadges[user] {
		earned[rec.BadgeID] = true
	}

	now := time.Now().UTC()
	var appended []core.AwardRecord
	for _, def := range newBadges {
		if earned[def.ID] {
			continue // lost the race, or caller retried; not an error
		}
		rec := core.AwardRecord{
			User:      user,
			BadgeID:   def.ID,
			AwardedAt: now,
			Reason:    reason,
			Points:    def.Points,
		}
		doc.UserBadges[user] = append(doc.UserBadges[user], rec)
		earned[def.ID] = true
		appended = append(appended, rec)
	}

	if len(appended) == 0 {
		// Nothing to write; keep the freshly read state
		l.doc = doc
		return nil, nil
	}

	if err := l.write(doc); err != nil {
		return nil, err
	}
	l.doc = doc
	return appended, nil
}

// Reload re-reads the ledger document from disk
func (l *Ledger) Reload() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	doc, err := l.read()
	if err != nil {
		return err
	}
	l.doc = doc
	return nil
}

// Save rewrites the document in canonical form. Used after loading a legacy
// ledger to migrate it in place; a no-op change for canonical documents.
func (l *Ledger) Save() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.write(l.doc)
}

// Path returns the ledger file location
func (l *Ledger) Path() string {
	return l.path
}
