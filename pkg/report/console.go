package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/gharisk/gharisk/pkg/risk"
)

type colorFunc func(a ...any) string

// Console writes a human readable report with colors.
type Console struct {
	out   io.Writer
	tiers map[risk.Tier]colorFunc
	faint colorFunc
	red   colorFunc
}

func NewConsole(out io.Writer) *Console {
	return &Console{
		out: out,
		tiers: map[risk.Tier]colorFunc{
			risk.TierCritical: color.New(color.FgRed, color.Bold).SprintFunc(),
			risk.TierHigh:     color.New(color.FgRed).SprintFunc(),
			risk.TierMedium:   color.New(color.FgYellow).SprintFunc(),
			risk.TierLow:      color.New(color.FgGreen).SprintFunc(),
		},
		faint: color.New(color.Faint).SprintFunc(),
		red:   color.New(color.FgRed).SprintFunc(),
	}
}

func (c *Console) tier(t risk.Tier) string {
	label := strings.ToUpper(string(t))
	if f, ok := c.tiers[t]; ok {
		return f(label)
	}
	return label
}

// Write writes usages at minTier or higher and a summary.
// top limits the number of usages; zero or less means no limit.
func (c *Console) Write(r *Report, minTier risk.Tier, top int) error {
	usages := r.UsagesAtLeast(minTier)
	omitted := 0
	if top > 0 && len(usages) > top {
		omitted = len(usages) - top
		usages = usages[:top]
	}
	for _, u := range usages {
		s := u.Site
		fmt.Fprintf(c.out, "%s %d %s\n", c.tier(u.Tier), u.Score, s.Reference.Raw)
		fmt.Fprintf(c.out, "  %s\n", c.faint(fmt.Sprintf("%s %s:%d job %s", s.Repository, s.WorkflowPath, s.Line, s.JobID)))
		fmt.Fprintf(c.out, "  %s\n", strings.Join(reasons(u), ", "))
	}
	if omitted > 0 {
		fmt.Fprintf(c.out, "... and %d more usages\n", omitted)
	}
	for _, e := range r.Errors {
		fmt.Fprintf(c.out, "%s %s %s: %s\n", c.red("ERROR"), e.Repository, e.Path, e.Message)
	}

	s := r.Stats
	fmt.Fprintf(c.out, "\n%d workflow files, %d actions, %d usages (%d unscored)\n", r.Documents, s.Actions, s.Usages, s.Unscored)
	parts := make([]string, 0, len(s.Tiers))
	for _, t := range risk.AllTiers() {
		parts = append(parts, fmt.Sprintf("%s %d", c.tier(t), s.Tiers[t]))
	}
	if _, err := fmt.Fprintln(c.out, strings.Join(parts, "  ")); err != nil {
		return fmt.Errorf("write a report: %w", err)
	}
	return nil
}
