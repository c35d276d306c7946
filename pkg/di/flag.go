package di

import (
	"fmt"

	"github.com/gharisk/gharisk/pkg/cli/flag"
	"github.com/gharisk/gharisk/pkg/report"
	"github.com/gharisk/gharisk/pkg/risk"
)

// ReportFlags are flags shared by scan and inspect.
type ReportFlags struct {
	MinTier     string
	FailOn      string
	Top         int
	ResolveRefs bool
}

// ScanFlags holds command-line flags of the scan command.
type ScanFlags struct {
	*flag.GlobalFlags
	ReportFlags

	Org          string
	Repositories []string
	OutputDir    string
	Formats      []string
}

// InspectFlags holds command-line flags of the inspect command.
type InspectFlags struct {
	*flag.GlobalFlags
	ReportFlags

	Format        string
	Repository    string
	DefaultBranch string
	Args          []string
}

type reportOptions struct {
	minTier risk.Tier
	failOn  risk.Tier
}

func (f *ReportFlags) parse() (*reportOptions, error) {
	opts := &reportOptions{minTier: risk.TierMedium}
	if f.MinTier != "" {
		tier, err := risk.ParseTier(f.MinTier)
		if err != nil {
			return nil, fmt.Errorf("parse --min-tier: %w", err)
		}
		opts.minTier = tier
	}
	if f.FailOn != "" {
		tier, err := risk.ParseTier(f.FailOn)
		if err != nil {
			return nil, fmt.Errorf("parse --fail-on: %w", err)
		}
		opts.failOn = tier
	}
	return opts, nil
}

func parseFormats(arr []string) ([]report.Format, error) {
	if len(arr) == 0 {
		return []report.Format{report.FormatJSON, report.FormatCSV, report.FormatMarkdown, report.FormatSARIF}, nil
	}
	formats := make([]report.Format, 0, len(arr))
	for _, s := range arr {
		format, err := report.ParseFormat(s)
		if err != nil {
			return nil, fmt.Errorf("parse --format: %w", err)
		}
		formats = append(formats, format)
	}
	return formats, nil
}
