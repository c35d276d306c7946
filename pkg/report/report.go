// Package report renders a finalized inventory as JSON, CSV, Markdown, SARIF or console output.
package report

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gharisk/gharisk/pkg/analyze"
	"github.com/gharisk/gharisk/pkg/engine"
	"github.com/gharisk/gharisk/pkg/inventory"
	"github.com/gharisk/gharisk/pkg/risk"
	"github.com/samber/lo"
	"github.com/spf13/afero"
)

// Report is the finalized inventory with the errors and diagnostics of a run.
type Report struct {
	PolicyVersion int                  `json:"policy_version"`
	Documents     int                  `json:"documents"`
	Stats         *inventory.Stats     `json:"stats"`
	Entries       []*inventory.Entry   `json:"entries"`
	Errors        []*ErrorRecord       `json:"errors"`
	Diagnostics   []analyze.Diagnostic `json:"diagnostics"`
}

// ErrorRecord is a document which couldn't be processed.
type ErrorRecord struct {
	Repository string `json:"repository"`
	Path       string `json:"path"`
	Message    string `json:"message"`
}

// New builds a report. top limits the rankings of the summary; zero or less means no limit.
func New(result *engine.Result, top int) *Report {
	errs := lo.Map(result.Errors, func(e *engine.DocumentError, _ int) *ErrorRecord {
		return &ErrorRecord{
			Repository: e.Document.Repository,
			Path:       e.Document.Path,
			Message:    e.Err.Error(),
		}
	})
	slices.SortFunc(errs, func(a, b *ErrorRecord) int {
		return cmp.Or(strings.Compare(a.Repository, b.Repository), strings.Compare(a.Path, b.Path))
	})
	return &Report{
		PolicyVersion: risk.PolicyVersion,
		Documents:     result.Documents,
		Stats:         result.Inventory.Stats(top),
		Entries:       result.Inventory.Entries(),
		Errors:        errs,
		Diagnostics:   result.Diagnostics,
	}
}

// Inventory rebuilds the inventory of the report.
func (r *Report) Inventory() *inventory.Inventory {
	return inventory.FromEntries(r.Entries)
}

// UsagesAtLeast returns the scored usages whose tier is tier or higher,
// ordered by score from the highest.
func (r *Report) UsagesAtLeast(tier risk.Tier) []*risk.ScoredUsage {
	var arr []*risk.ScoredUsage
	for _, e := range r.Entries {
		for _, u := range e.Usages {
			if u.Scored && u.Tier.AtLeast(tier) {
				arr = append(arr, u)
			}
		}
	}
	slices.SortStableFunc(arr, func(a, b *risk.ScoredUsage) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return arr
}

// ErrRiskThreshold is returned when a scored usage reaches the tier given by --fail-on.
var ErrRiskThreshold = errors.New("risky action usages are found")

// CheckThreshold returns ErrRiskThreshold if any scored usage is at tier or higher.
// An empty tier disables the check.
func (r *Report) CheckThreshold(tier risk.Tier) error {
	if tier == "" {
		return nil
	}
	if n := len(r.UsagesAtLeast(tier)); n > 0 {
		return fmt.Errorf("%w: %d usages are %s or higher", ErrRiskThreshold, n, tier)
	}
	return nil
}

type Format string

const (
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatSARIF    Format = "sarif"
	FormatConsole  Format = "console"
)

var fileNames = map[Format]string{
	FormatJSON:     "inventory.json",
	FormatCSV:      "usages.csv",
	FormatMarkdown: "summary.md",
	FormatSARIF:    "gharisk.sarif",
}

// Formats returns the names of the formats.
func Formats() []string {
	return []string{string(FormatJSON), string(FormatCSV), string(FormatMarkdown), string(FormatSARIF), string(FormatConsole)}
}

func ParseFormat(s string) (Format, error) {
	if s == "md" {
		return FormatMarkdown, nil
	}
	if !slices.Contains(Formats(), s) {
		return "", fmt.Errorf("unknown report format %q: must be one of %s", s, strings.Join(Formats(), ", "))
	}
	return Format(s), nil
}

// Writer writes reports.
type Writer struct {
	// Version is the version of gharisk written to SARIF.
	Version string
	// MinTier is the lowest tier of usages written to SARIF and the console.
	MinTier risk.Tier
	// Top limits the rankings of the Markdown summary and the console.
	Top int
}

func (w *Writer) Write(out io.Writer, format Format, r *Report) error {
	switch format {
	case FormatJSON:
		return WriteJSON(out, r)
	case FormatCSV:
		return WriteCSV(out, r)
	case FormatMarkdown:
		return WriteMarkdown(out, r, w.Top)
	case FormatSARIF:
		return WriteSARIF(out, r, w.MinTier, w.Version)
	case FormatConsole:
		return NewConsole(out).Write(r, w.MinTier, w.Top)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

// WriteFiles writes a file per format into dir, creating dir if needed.
// It returns the paths of the written files.
func (w *Writer) WriteFiles(fs afero.Fs, dir string, formats []Format, r *Report) ([]string, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil { //nolint:mnd
		return nil, fmt.Errorf("create an output directory: %w", err)
	}
	paths := make([]string, 0, len(formats))
	for _, format := range formats {
		name, ok := fileNames[format]
		if !ok {
			return nil, fmt.Errorf("the report format %q can't be written to a file", format)
		}
		p := filepath.Join(dir, name)
		if err := w.writeFile(fs, p, format, r); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

func (w *Writer) writeFile(fs afero.Fs, p string, format Format, r *Report) error {
	f, err := fs.Create(p)
	if err != nil {
		return fmt.Errorf("create a report file: %w", err)
	}
	defer f.Close()
	if err := w.Write(f, format, r); err != nil {
		return fmt.Errorf("write a report %s: %w", p, err)
	}
	return nil
}

// reasons explains the score of a usage.
func reasons(u *risk.ScoredUsage) []string {
	f := u.Facts
	if f == nil {
		return nil
	}
	arr := []string{string(f.PinKind)}
	if f.HasSecretAccess {
		arr = append(arr, "secrets: "+strings.Join(f.Secrets, ", "))
	}
	if f.PermissionLevel != "" && f.PermissionLevel != analyze.PermissionNone {
		arr = append(arr, fmt.Sprintf("%s permissions (%s)", f.PermissionLevel, f.PermissionSource))
	}
	if f.RunsOnPrivilegedRunner {
		arr = append(arr, "privileged runner")
	}
	if f.IsProductionTrigger {
		arr = append(arr, "production: "+strings.Join(f.ProductionReasons, ", "))
	}
	if f.IsThirdParty {
		arr = append(arr, "third party")
	}
	if len(f.Capabilities) > 0 {
		arr = append(arr, "capabilities: "+strings.Join(f.Capabilities, ", "))
	}
	return arr
}
