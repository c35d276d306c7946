package inventory

import (
	"cmp"
	"slices"
	"strings"

	"github.com/gharisk/gharisk/pkg/action"
	"github.com/gharisk/gharisk/pkg/risk"
	"github.com/samber/lo"
)

// Stats is a summary of an inventory.
// Counts other than Actions, Usages and Unscored are of scored usages.
type Stats struct {
	Actions               int               `json:"actions"`
	Usages                int               `json:"usages"`
	Unscored              int               `json:"unscored"`
	Repositories          int               `json:"repositories"`
	Pinned                int               `json:"pinned"`
	Unpinned              int               `json:"unpinned"`
	WithSecrets           int               `json:"with_secrets"`
	ThirdParty            int               `json:"third_party"`
	Production            int               `json:"production"`
	ProductionWithSecrets int               `json:"production_with_secrets"`
	ProductionHighRisk    int               `json:"production_high_risk"`
	Tiers                 map[risk.Tier]int `json:"tiers"`
	TopActions            []ActionUsage     `json:"top_actions"`
	RepositoryRisk        []RepositoryRisk  `json:"repository_risk"`
}

type ActionUsage struct {
	Name     string    `json:"name"`
	Usages   int       `json:"usages"`
	MaxScore int       `json:"max_score"`
	Tier     risk.Tier `json:"tier,omitempty"`
}

// RepositoryRisk is the mean score of the scored usages of a repository.
type RepositoryRisk struct {
	Repository string  `json:"repository"`
	Usages     int     `json:"usages"`
	MeanScore  float64 `json:"mean_score"`
}

// Stats summarizes the inventory. top limits TopActions and RepositoryRisk;
// zero or less means no limit.
func (inv *Inventory) Stats(top int) *Stats {
	entries := inv.Entries()
	usages := inv.Usages()
	scored := lo.Filter(usages, func(u *risk.ScoredUsage, _ int) bool { return u.Scored })
	repos := lo.Uniq(lo.Map(usages, func(u *risk.ScoredUsage, _ int) string {
		return u.Site.Repository
	}))
	stats := &Stats{
		Actions:      len(entries),
		Usages:       len(usages),
		Unscored:     len(usages) - len(scored),
		Repositories: len(repos),
		Tiers:        map[risk.Tier]int{},
	}
	for _, tier := range risk.AllTiers() {
		stats.Tiers[tier] = 0
	}
	for _, u := range scored {
		f := u.Facts
		stats.Tiers[u.Tier]++
		if f.PinKind == action.PinKindPinnedSHA {
			stats.Pinned++
		} else {
			stats.Unpinned++
		}
		if f.HasSecretAccess {
			stats.WithSecrets++
		}
		if f.IsThirdParty {
			stats.ThirdParty++
		}
		if f.IsProductionTrigger {
			stats.Production++
			if f.HasSecretAccess {
				stats.ProductionWithSecrets++
			}
			if u.Tier.AtLeast(risk.TierHigh) {
				stats.ProductionHighRisk++
			}
		}
	}
	stats.TopActions = topActions(entries, top)
	stats.RepositoryRisk = repositoryRisk(scored, top)
	return stats
}

func topActions(entries []*Entry, top int) []ActionUsage {
	arr := lo.Map(entries, func(e *Entry, _ int) ActionUsage {
		return ActionUsage{Name: e.Name(), Usages: len(e.Usages), MaxScore: e.MaxScore, Tier: e.Tier}
	})
	slices.SortStableFunc(arr, func(a, b ActionUsage) int {
		return cmp.Or(cmp.Compare(b.Usages, a.Usages), strings.Compare(a.Name, b.Name))
	})
	return limit(arr, top)
}

func repositoryRisk(scored []*risk.ScoredUsage, top int) []RepositoryRisk {
	groups := lo.GroupBy(scored, func(u *risk.ScoredUsage) string { return u.Site.Repository })
	arr := make([]RepositoryRisk, 0, len(groups))
	for repo, us := range groups {
		total := lo.SumBy(us, func(u *risk.ScoredUsage) int { return u.Score })
		arr = append(arr, RepositoryRisk{
			Repository: repo,
			Usages:     len(us),
			MeanScore:  float64(total) / float64(len(us)),
		})
	}
	slices.SortFunc(arr, func(a, b RepositoryRisk) int {
		return cmp.Or(cmp.Compare(b.MeanScore, a.MeanScore), strings.Compare(a.Repository, b.Repository))
	})
	return limit(arr, top)
}

func limit[T any](arr []T, n int) []T {
	if n <= 0 || len(arr) <= n {
		return arr
	}
	return arr[:n]
}
