package risk

import (
	"github.com/gharisk/gharisk/pkg/action"
	"github.com/gharisk/gharisk/pkg/analyze"
	"github.com/gharisk/gharisk/pkg/extract"
)

// Scorer combines risk facts into a score. It holds no state besides its
// configuration, so the same facts always get the same score.
type Scorer struct {
	weights Weights
	tiers   Tiers
}

func NewScorer(weights Weights, tiers Tiers) *Scorer {
	return &Scorer{weights: weights, tiers: tiers}
}

// Score returns the score in [MinScore, MaxScore] and the tier of facts.
func (s *Scorer) Score(facts *analyze.RiskFacts) (int, Tier) {
	w := s.weights
	score := w.pin(facts.PinKind) + w.permission(facts.PermissionLevel)
	if facts.HasSecretAccess {
		score += w.SecretAccess
		if facts.PinKind != action.PinKindPinnedSHA {
			score += w.SecretUnpinnedBonus
		}
	}
	if facts.RunsOnPrivilegedRunner {
		score += w.PrivilegedRunner
	}
	if facts.IsProductionTrigger {
		score += w.ProductionTrigger
	}
	if facts.IsThirdParty {
		score += w.ThirdParty
	}
	score = min(max(score, MinScore), MaxScore)
	return score, s.tiers.TierFor(score)
}

// ScoredUsage is a usage site with its facts and score.
type ScoredUsage struct {
	Site  *extract.UsageSite `json:"site"`
	Facts *analyze.RiskFacts `json:"facts"`
	// Scored is false for local actions, reusable workflows and malformed
	// references. They are kept in the inventory but have no score.
	Scored bool `json:"scored"`
	Score  int  `json:"score"`
	Tier   Tier `json:"tier,omitempty"`
}

// ScoreUsage scores a site. Sites whose reference kind isn't scored get
// zero and no tier.
func (s *Scorer) ScoreUsage(site *extract.UsageSite, facts *analyze.RiskFacts) *ScoredUsage {
	u := &ScoredUsage{Site: site, Facts: facts}
	if !site.Reference.Kind.Scored() {
		return u
	}
	u.Scored = true
	u.Score, u.Tier = s.Score(facts)
	return u
}
