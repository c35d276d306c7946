package risk

import (
	"errors"
	"fmt"
)

type Tier string

const (
	TierLow      Tier = "low"
	TierMedium   Tier = "medium"
	TierHigh     Tier = "high"
	TierCritical Tier = "critical"
)

var allTiers = []Tier{TierLow, TierMedium, TierHigh, TierCritical}

// AllTiers returns the tiers from the lowest to the highest.
func AllTiers() []Tier {
	return append([]Tier(nil), allTiers...)
}

// Rank returns the position of the tier. Unknown tiers rank below low.
func (t Tier) Rank() int {
	for i, tier := range allTiers {
		if tier == t {
			return i
		}
	}
	return -1
}

// AtLeast returns true if t is the same as or higher than other.
func (t Tier) AtLeast(other Tier) bool {
	return t.Rank() >= other.Rank()
}

// ParseTier parses the name of a tier.
func ParseTier(s string) (Tier, error) {
	t := Tier(s)
	if t.Rank() < 0 {
		return "", fmt.Errorf("unknown tier %q: must be one of low, medium, high, critical", s)
	}
	return t, nil
}

// Tiers are the lowest scores of each tier above low.
// Scores below Medium are low.
type Tiers struct {
	Medium   int `json:"medium" yaml:"medium"`
	High     int `json:"high" yaml:"high"`
	Critical int `json:"critical" yaml:"critical"`
}

func DefaultTiers() Tiers {
	return Tiers{Medium: 25, High: 50, Critical: 75}
}

// Validate checks that the cut points partition [MinScore, MaxScore].
func (t Tiers) Validate() error {
	if t.Medium <= MinScore || t.Critical > MaxScore {
		return fmt.Errorf("tier cut points must be in (%d, %d]", MinScore, MaxScore)
	}
	if t.Medium >= t.High || t.High >= t.Critical {
		return errors.New("tier cut points must satisfy medium < high < critical")
	}
	return nil
}

// TierFor returns the tier of a score.
func (t Tiers) TierFor(score int) Tier {
	switch {
	case score >= t.Critical:
		return TierCritical
	case score >= t.High:
		return TierHigh
	case score >= t.Medium:
		return TierMedium
	default:
		return TierLow
	}
}
