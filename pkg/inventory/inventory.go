// Package inventory aggregates scored usages by action identity.
//
// An Inventory is an explicit accumulator. Adding usages and merging
// inventories are commutative and associative: usages are kept in a canonical
// order, the maximum score is a max and repositories are a set. So partial
// inventories built in parallel can be merged in any order with the same result.
package inventory

import (
	"cmp"
	"slices"
	"strings"

	"github.com/gharisk/gharisk/pkg/action"
	"github.com/gharisk/gharisk/pkg/risk"
	"github.com/samber/lo"
)

// Entry is the aggregate of every usage of one action.
type Entry struct {
	Identity action.Identity     `json:"identity"`
	Usages   []*risk.ScoredUsage `json:"usages"`
	// MaxScore and Tier are computed from scored usages only.
	// Tier is empty if no usage is scored.
	MaxScore     int       `json:"max_score"`
	Tier         risk.Tier `json:"tier,omitempty"`
	Repositories []string  `json:"repositories"`
}

// Name returns the display name of the action.
func (e *Entry) Name() string {
	if len(e.Usages) == 0 {
		return e.Identity.String()
	}
	return e.Usages[0].Site.Reference.Name()
}

// RepositoryCount returns the number of distinct repositories using the action.
func (e *Entry) RepositoryCount() int {
	return len(e.Repositories)
}

// Scored returns true if any usage of the action is scored.
func (e *Entry) Scored() bool {
	return slices.ContainsFunc(e.Usages, func(u *risk.ScoredUsage) bool { return u.Scored })
}

// Versions returns the distinct version specifiers of the usages.
func (e *Entry) Versions() []string {
	versions := lo.Uniq(lo.FilterMap(e.Usages, func(u *risk.ScoredUsage, _ int) (string, bool) {
		return u.Site.Reference.Version, u.Site.Reference.Version != ""
	}))
	slices.Sort(versions)
	return versions
}

func (e *Entry) add(u *risk.ScoredUsage) {
	i, _ := slices.BinarySearchFunc(e.Usages, u, compareUsages)
	e.Usages = slices.Insert(e.Usages, i, u)
	e.addRepository(u.Site.Repository)
	if u.Scored && (e.Tier == "" || u.Score > e.MaxScore) {
		e.MaxScore = u.Score
		e.Tier = u.Tier
	}
}

func (e *Entry) addRepository(repo string) {
	i, found := slices.BinarySearch(e.Repositories, repo)
	if !found {
		e.Repositories = slices.Insert(e.Repositories, i, repo)
	}
}

// compareUsages defines the canonical order of usages.
func compareUsages(a, b *risk.ScoredUsage) int {
	x, y := a.Site, b.Site
	return cmp.Or(
		strings.Compare(x.Repository, y.Repository),
		strings.Compare(x.WorkflowPath, y.WorkflowPath),
		strings.Compare(x.JobID, y.JobID),
		cmp.Compare(x.StepIndex, y.StepIndex),
		cmp.Compare(x.Line, y.Line),
		strings.Compare(x.Reference.Raw, y.Reference.Raw),
	)
}

type Inventory struct {
	entries map[action.Identity]*Entry
}

func New() *Inventory {
	return &Inventory{entries: map[action.Identity]*Entry{}}
}

// Add adds a usage to the entry of its identity, creating the entry if needed.
func (inv *Inventory) Add(u *risk.ScoredUsage) {
	id := u.Site.Identity()
	e, ok := inv.entries[id]
	if !ok {
		e = &Entry{Identity: id}
		inv.entries[id] = e
	}
	e.add(u)
}

// Merge folds other into inv. other is left unchanged.
func (inv *Inventory) Merge(other *Inventory) {
	for _, e := range other.entries {
		for _, u := range e.Usages {
			inv.Add(u)
		}
	}
}

// Entry returns the entry of an identity.
func (inv *Inventory) Entry(id action.Identity) (*Entry, bool) {
	e, ok := inv.entries[id]
	return e, ok
}

// Len returns the number of distinct actions.
func (inv *Inventory) Len() int {
	return len(inv.entries)
}

// Entries returns the entries ordered by identity.
func (inv *Inventory) Entries() []*Entry {
	entries := lo.Values(inv.entries)
	slices.SortFunc(entries, func(a, b *Entry) int {
		return strings.Compare(a.Identity.String(), b.Identity.String())
	})
	return entries
}

// Usages returns every usage in the inventory in entry order.
func (inv *Inventory) Usages() []*risk.ScoredUsage {
	return lo.FlatMap(inv.Entries(), func(e *Entry, _ int) []*risk.ScoredUsage {
		return e.Usages
	})
}

// FromEntries rebuilds an inventory from entries, for example decoded from a report.
func FromEntries(entries []*Entry) *Inventory {
	inv := New()
	for _, e := range entries {
		for _, u := range e.Usages {
			inv.Add(u)
		}
	}
	return inv
}
