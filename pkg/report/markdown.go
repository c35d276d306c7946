package report

import (
	"bufio"
	"cmp"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/gharisk/gharisk/pkg/inventory"
	"github.com/gharisk/gharisk/pkg/risk"
	"github.com/samber/lo"
)

// WriteMarkdown writes a summary of the report.
// top limits the rankings; zero or less means no limit.
func WriteMarkdown(w io.Writer, r *Report, top int) error {
	bw := bufio.NewWriter(w)
	s := r.Stats

	fmt.Fprintf(bw, "# GitHub Actions risk inventory\n\n")
	fmt.Fprintf(bw, "Policy version %d. %d workflow files, %d failed.\n\n", r.PolicyVersion, r.Documents, len(r.Errors))

	fmt.Fprintf(bw, "## Summary\n\n| Metric | Count |\n|---|---:|\n")
	for _, row := range []struct {
		name  string
		count int
	}{
		{"Repositories", s.Repositories},
		{"Actions", s.Actions},
		{"Usages", s.Usages},
		{"Unscored usages", s.Unscored},
		{"Pinned to a commit", s.Pinned},
		{"Not pinned", s.Unpinned},
		{"With secret access", s.WithSecrets},
		{"Third party", s.ThirdParty},
		{"Production triggers", s.Production},
		{"Production with secrets", s.ProductionWithSecrets},
		{"Production high risk", s.ProductionHighRisk},
	} {
		fmt.Fprintf(bw, "| %s | %d |\n", row.name, row.count)
	}

	fmt.Fprintf(bw, "\n## Tiers\n\n| Tier | Usages |\n|---|---:|\n")
	for _, tier := range slices.Backward(risk.AllTiers()) {
		fmt.Fprintf(bw, "| %s | %d |\n", tier, s.Tiers[tier])
	}

	writeRiskyActions(bw, r.Entries, top)

	if len(s.TopActions) > 0 {
		fmt.Fprintf(bw, "\n## Most used actions\n\n| Action | Usages | Max score | Tier |\n|---|---:|---:|---|\n")
		for _, a := range s.TopActions {
			fmt.Fprintf(bw, "| %s | %d | %s | %s |\n", escape(a.Name), a.Usages, scoreCell(a.Tier, a.MaxScore), a.Tier)
		}
	}

	if len(s.RepositoryRisk) > 0 {
		fmt.Fprintf(bw, "\n## Repositories by mean score\n\n| Repository | Scored usages | Mean score |\n|---|---:|---:|\n")
		for _, rr := range s.RepositoryRisk {
			fmt.Fprintf(bw, "| %s | %d | %.1f |\n", escape(rr.Repository), rr.Usages, rr.MeanScore)
		}
	}

	if len(r.Errors) > 0 {
		fmt.Fprintf(bw, "\n## Errors\n\n| Repository | File | Error |\n|---|---|---|\n")
		for _, e := range r.Errors {
			fmt.Fprintf(bw, "| %s | %s | %s |\n", escape(e.Repository), escape(e.Path), escape(e.Message))
		}
	}

	if len(r.Diagnostics) > 0 {
		fmt.Fprintf(bw, "\n## Diagnostics\n\n| Repository | File | Line | Message |\n|---|---|---:|---|\n")
		for _, d := range r.Diagnostics {
			fmt.Fprintf(bw, "| %s | %s | %d | %s |\n", escape(d.Repository), escape(d.WorkflowPath), d.Line, escape(d.Message))
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write a Markdown summary: %w", err)
	}
	return nil
}

func writeRiskyActions(w io.Writer, entries []*inventory.Entry, top int) {
	risky := lo.Filter(entries, func(e *inventory.Entry, _ int) bool { return e.Scored() })
	if len(risky) == 0 {
		return
	}
	slices.SortStableFunc(risky, func(a, b *inventory.Entry) int {
		return cmp.Or(cmp.Compare(b.MaxScore, a.MaxScore), cmp.Compare(b.RepositoryCount(), a.RepositoryCount()))
	})
	if top > 0 && len(risky) > top {
		risky = risky[:top]
	}
	fmt.Fprintf(w, "\n## Riskiest actions\n\n| Action | Max score | Tier | Repositories | Usages | Versions |\n|---|---:|---|---:|---:|---|\n")
	for _, e := range risky {
		fmt.Fprintf(w, "| %s | %d | %s | %d | %d | %s |\n",
			escape(e.Name()), e.MaxScore, e.Tier, e.RepositoryCount(), len(e.Usages), escape(strings.Join(e.Versions(), ", ")))
	}
}

func scoreCell(tier risk.Tier, score int) string {
	if tier == "" {
		return "-"
	}
	return fmt.Sprint(score)
}

var markdownEscaper = strings.NewReplacer("|", `\|`, "\n", " ")

func escape(s string) string {
	return markdownEscaper.Replace(s)
}
