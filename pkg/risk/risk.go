// Package risk turns risk facts into a score and a tier.
package risk

import (
	"errors"
	"fmt"

	"github.com/gharisk/gharisk/pkg/action"
	"github.com/gharisk/gharisk/pkg/analyze"
)

// PolicyVersion is the version of the default weights and tiers.
// It changes whenever a default changes so stored scores stay comparable.
const PolicyVersion = 1

const (
	MinScore = 0
	MaxScore = 100
)

// Weights are the contributions of each fact to the score.
type Weights struct {
	UnpinnedBranch int `json:"unpinned_branch" yaml:"unpinned_branch"`
	UnpinnedTag    int `json:"unpinned_tag" yaml:"unpinned_tag"`
	PinnedSHA      int `json:"pinned_sha" yaml:"pinned_sha"`
	SecretAccess   int `json:"secret_access" yaml:"secret_access"`
	// SecretUnpinnedBonus is added on top of SecretAccess and the pin
	// weight when a site with secret access isn't pinned to a commit.
	SecretUnpinnedBonus int `json:"secret_unpinned_bonus" yaml:"secret_unpinned_bonus"`
	PermissionNone      int `json:"permission_none" yaml:"permission_none"`
	PermissionRead      int `json:"permission_read" yaml:"permission_read"`
	PermissionWrite     int `json:"permission_write" yaml:"permission_write"`
	PrivilegedRunner    int `json:"privileged_runner" yaml:"privileged_runner"`
	ProductionTrigger   int `json:"production_trigger" yaml:"production_trigger"`
	ThirdParty          int `json:"third_party" yaml:"third_party"`
}

// DefaultWeights returns the weights of policy version 1.
// The maximum possible score is exactly MaxScore.
func DefaultWeights() Weights {
	return Weights{
		UnpinnedBranch:      30,
		UnpinnedTag:         15,
		PinnedSHA:           0,
		SecretAccess:        20,
		SecretUnpinnedBonus: 10,
		PermissionNone:      0,
		PermissionRead:      5,
		PermissionWrite:     15,
		PrivilegedRunner:    10,
		ProductionTrigger:   10,
		ThirdParty:          5,
	}
}

// Validate checks that the weights keep scores monotonic.
func (w Weights) Validate() error {
	for name, v := range map[string]int{
		"unpinned_branch":       w.UnpinnedBranch,
		"unpinned_tag":          w.UnpinnedTag,
		"pinned_sha":            w.PinnedSHA,
		"secret_access":         w.SecretAccess,
		"secret_unpinned_bonus": w.SecretUnpinnedBonus,
		"permission_none":       w.PermissionNone,
		"permission_read":       w.PermissionRead,
		"permission_write":      w.PermissionWrite,
		"privileged_runner":     w.PrivilegedRunner,
		"production_trigger":    w.ProductionTrigger,
		"third_party":           w.ThirdParty,
	} {
		if v < 0 {
			return fmt.Errorf("weight %s must not be negative", name)
		}
	}
	if w.UnpinnedBranch <= w.UnpinnedTag || w.UnpinnedTag <= w.PinnedSHA {
		return errors.New("weights must satisfy unpinned_branch > unpinned_tag > pinned_sha")
	}
	if w.PermissionWrite <= w.PermissionRead || w.PermissionRead <= w.PermissionNone {
		return errors.New("weights must satisfy permission_write > permission_read > permission_none")
	}
	if w.SecretAccess == 0 {
		return errors.New("weight secret_access must be positive")
	}
	if w.SecretUnpinnedBonus == 0 {
		return errors.New("weight secret_unpinned_bonus must be positive")
	}
	if m := w.maxSum(); m > MaxScore {
		return fmt.Errorf("the maximum sum of weights must not exceed %d: %d", MaxScore, m)
	}
	return nil
}

// maxSum returns the score of the riskiest possible usage before clamping.
func (w Weights) maxSum() int {
	return w.UnpinnedBranch + w.SecretAccess + w.SecretUnpinnedBonus + w.PermissionWrite +
		w.PrivilegedRunner + w.ProductionTrigger + w.ThirdParty
}

func (w Weights) pin(kind action.PinKind) int {
	switch kind {
	case action.PinKindPinnedSHA:
		return w.PinnedSHA
	case action.PinKindUnpinnedTag:
		return w.UnpinnedTag
	default:
		// unknown pin kinds are as risky as branches
		return w.UnpinnedBranch
	}
}

func (w Weights) permission(level analyze.PermissionLevel) int {
	switch level {
	case analyze.PermissionNone:
		return w.PermissionNone
	case analyze.PermissionRead:
		return w.PermissionRead
	default:
		return w.PermissionWrite
	}
}
