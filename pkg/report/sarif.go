package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/gharisk/gharisk/pkg/risk"
	"github.com/gharisk/gharisk/pkg/sarif"
)

const informationURI = "https://github.com/gharisk/gharisk"

func ruleID(tier risk.Tier) string {
	return "action-risk-" + string(tier)
}

func sarifLevel(tier risk.Tier) string {
	switch {
	case tier.AtLeast(risk.TierHigh):
		return sarif.LevelError
	case tier == risk.TierMedium:
		return sarif.LevelWarning
	default:
		return sarif.LevelNote
	}
}

// WriteSARIF writes a result per scored usage at minTier or higher.
// Locations are workflow paths relative to the repository, and the repository is a property.
func WriteSARIF(w io.Writer, r *Report, minTier risk.Tier, version string) error {
	var rules []sarif.Rule
	for _, tier := range risk.AllTiers() {
		if !tier.AtLeast(minTier) {
			continue
		}
		rules = append(rules, sarif.Rule{
			ID:                   ruleID(tier),
			ShortDescription:     sarif.Message{Text: fmt.Sprintf("A GitHub Action usage with %s supply chain risk", tier)},
			DefaultConfiguration: &sarif.RuleConfiguration{Level: sarifLevel(tier)},
		})
	}
	usages := r.UsagesAtLeast(minTier)
	results := make([]sarif.Result, 0, len(usages))
	for _, u := range usages {
		loc := sarif.PhysicalLocation{
			ArtifactLocation: sarif.ArtifactLocation{URI: u.Site.WorkflowPath},
		}
		if u.Site.Line > 0 {
			loc.Region = &sarif.Region{StartLine: u.Site.Line}
		}
		results = append(results, sarif.Result{
			RuleID: ruleID(u.Tier),
			Level:  sarifLevel(u.Tier),
			Message: sarif.Message{
				Text: fmt.Sprintf("%s scores %d (%s): %s", u.Site.Reference.Raw, u.Score, u.Tier, strings.Join(reasons(u), "; ")),
			},
			Locations: []sarif.Location{{PhysicalLocation: loc}},
			Properties: map[string]any{
				"repository": u.Site.Repository,
				"job":        u.Site.JobID,
				"score":      u.Score,
				"tier":       string(u.Tier),
			},
		})
	}
	log := sarif.New(sarif.Driver{
		Name:           "gharisk",
		InformationURI: informationURI,
		Version:        version,
		Rules:          rules,
	}, results)
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(log); err != nil {
		return fmt.Errorf("encode a SARIF log: %w", err)
	}
	return nil
}
