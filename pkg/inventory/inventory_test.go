package inventory_test

import (
	"slices"
	"testing"

	"github.com/gharisk/gharisk/pkg/action"
	"github.com/gharisk/gharisk/pkg/analyze"
	"github.com/gharisk/gharisk/pkg/extract"
	"github.com/gharisk/gharisk/pkg/inventory"
	"github.com/gharisk/gharisk/pkg/risk"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func usage(repo, path, uses string, step int, score int, tier risk.Tier) *risk.ScoredUsage {
	ref := action.Parse(uses)
	ref.ResolvePinKind(nil)
	return &risk.ScoredUsage{
		Site: &extract.UsageSite{
			Repository:   repo,
			WorkflowPath: path,
			JobID:        "build",
			StepIndex:    step,
			Reference:    ref,
			Confident:    ref.Kind != action.KindMalformed,
		},
		Facts:  &analyze.RiskFacts{PinKind: ref.PinKind, PermissionLevel: analyze.PermissionWrite},
		Scored: ref.Kind.Scored(),
		Score:  score,
		Tier:   tier,
	}
}

func fixtures() ([]*risk.ScoredUsage, []*risk.ScoredUsage) {
	a := []*risk.ScoredUsage{
		usage("o/a", "ci.yaml", "actions/checkout@v4", 0, 35, risk.TierMedium),
		usage("o/a", "ci.yaml", "owner/repo@main", 1, 80, risk.TierCritical),
		usage("o/a", "release.yaml", "actions/checkout@v3", 0, 45, risk.TierMedium),
		usage("o/a", "ci.yaml", "./.github/actions/setup", 2, 0, ""),
	}
	b := []*risk.ScoredUsage{
		usage("o/b", "ci.yaml", "Actions/Checkout@8e5e7e5ab8b370d6c329ec480221332ada57f0ab", 0, 20, risk.TierLow),
		usage("o/b", "ci.yaml", "owner/repo@v1", 1, 60, risk.TierHigh),
		usage("o/b", "ci.yaml", "./.github/actions/setup", 2, 0, ""),
	}
	return a, b
}

func build(usages []*risk.ScoredUsage) *inventory.Inventory {
	inv := inventory.New()
	for _, u := range usages {
		inv.Add(u)
	}
	return inv
}

var ignoreUnexported = cmpopts.IgnoreUnexported(extract.UsageSite{})

func TestInventory_Merge_commutative(t *testing.T) {
	t.Parallel()
	a, b := fixtures()
	ab := build(a)
	ab.Merge(build(b))
	ba := build(b)
	ba.Merge(build(a))
	if diff := cmp.Diff(ab.Entries(), ba.Entries(), ignoreUnexported); diff != "" {
		t.Fatal(diff)
	}
	// merging partial inventories is the same as adding every usage to one inventory
	all := append(append([]*risk.ScoredUsage{}, b...), a...)
	slices.Reverse(all)
	if diff := cmp.Diff(ab.Entries(), build(all).Entries(), ignoreUnexported); diff != "" {
		t.Fatal(diff)
	}
}

func TestInventory_entries(t *testing.T) {
	t.Parallel()
	a, b := fixtures()
	inv := build(a)
	inv.Merge(build(b))
	type summary struct {
		ID           string
		Usages       int
		MaxScore     int
		Tier         risk.Tier
		Repositories []string
		Versions     []string
	}
	var got []summary
	for _, e := range inv.Entries() {
		got = append(got, summary{
			ID:           e.Identity.String(),
			Usages:       len(e.Usages),
			MaxScore:     e.MaxScore,
			Tier:         e.Tier,
			Repositories: e.Repositories,
			Versions:     e.Versions(),
		})
	}
	exp := []summary{
		{
			ID: "action:actions/checkout", Usages: 3, MaxScore: 45, Tier: risk.TierMedium,
			Repositories: []string{"o/a", "o/b"},
			Versions:     []string{"8e5e7e5ab8b370d6c329ec480221332ada57f0ab", "v3", "v4"},
		},
		{
			ID: "action:owner/repo", Usages: 2, MaxScore: 80, Tier: risk.TierCritical,
			Repositories: []string{"o/a", "o/b"},
			Versions:     []string{"main", "v1"},
		},
		{
			ID: "local:o/a:./.github/actions/setup", Usages: 1,
			Repositories: []string{"o/a"},
		},
		{
			ID: "local:o/b:./.github/actions/setup", Usages: 1,
			Repositories: []string{"o/b"},
		},
	}
	if diff := cmp.Diff(exp, got, cmpopts.EquateEmpty()); diff != "" {
		t.Fatal(diff)
	}
}

func TestEntry_RepositoryCount(t *testing.T) {
	t.Parallel()
	inv := build([]*risk.ScoredUsage{
		usage("o/a", "ci.yaml", "owner/repo@v1", 0, 10, risk.TierLow),
		usage("o/a", "release.yaml", "owner/repo@v1", 0, 10, risk.TierLow),
		usage("o/a", "release.yaml", "owner/repo@v2", 1, 10, risk.TierLow),
	})
	e, ok := inv.Entry(action.Parse("owner/repo@v1").Identity("o/a"))
	if !ok {
		t.Fatal("entry isn't found")
	}
	if e.RepositoryCount() != 1 {
		t.Fatalf("a repository with several workflows must be counted once, got %d", e.RepositoryCount())
	}
}

func TestInventory_FromEntries(t *testing.T) {
	t.Parallel()
	a, _ := fixtures()
	inv := build(a)
	if diff := cmp.Diff(inv.Entries(), inventory.FromEntries(inv.Entries()).Entries(), ignoreUnexported); diff != "" {
		t.Fatal(diff)
	}
}

func TestInventory_Stats(t *testing.T) {
	t.Parallel()
	a, b := fixtures()
	inv := build(a)
	inv.Merge(build(b))
	stats := inv.Stats(1)
	exp := &inventory.Stats{
		Actions:      4,
		Usages:       7,
		Unscored:     2,
		Repositories: 2,
		Pinned:       1,
		Unpinned:     4,
		Tiers: map[risk.Tier]int{
			risk.TierLow: 1, risk.TierMedium: 2, risk.TierHigh: 1, risk.TierCritical: 1,
		},
		TopActions: []inventory.ActionUsage{
			{Name: "actions/checkout", Usages: 3, MaxScore: 45, Tier: risk.TierMedium},
		},
		RepositoryRisk: []inventory.RepositoryRisk{
			{Repository: "o/a", Usages: 3, MeanScore: 160.0 / 3},
		},
	}
	if diff := cmp.Diff(exp, stats); diff != "" {
		t.Fatal(diff)
	}
}
