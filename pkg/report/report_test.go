package report_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/gharisk/gharisk/pkg/analyze"
	"github.com/gharisk/gharisk/pkg/engine"
	"github.com/gharisk/gharisk/pkg/extract"
	"github.com/gharisk/gharisk/pkg/report"
	"github.com/gharisk/gharisk/pkg/risk"
	"github.com/gharisk/gharisk/pkg/sarif"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/spf13/afero"
)

const deploy = `on:
  push:
    branches: [main]
jobs:
  deploy:
    runs-on: ubuntu-latest
    steps:
      - uses: actions/checkout@v4
      - uses: ./.github/actions/setup
      - uses: owner/repo@v1
        with:
          token: ${{ secrets.DEPLOY_TOKEN }}
`

func newReport(t *testing.T) *report.Report {
	t.Helper()
	eng := engine.New(
		analyze.New(analyze.DefaultPolicy()),
		risk.NewScorer(risk.DefaultWeights(), risk.DefaultTiers()),
		2,
	)
	result, err := eng.Run(context.Background(), []*engine.RawWorkflow{
		{Repository: "o/r", Path: ".github/workflows/deploy.yaml", Content: []byte(deploy), DefaultBranch: "main"},
		{Repository: "o/r", Path: ".github/workflows/broken.yaml", Content: []byte("jobs: [")},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	return report.New(result, 10)
}

func TestNew(t *testing.T) {
	t.Parallel()
	r := newReport(t)
	if r.Documents != 1 || len(r.Errors) != 1 {
		t.Fatalf("wanted 1 document and 1 error, got %d and %d", r.Documents, len(r.Errors))
	}
	if r.Errors[0].Path != ".github/workflows/broken.yaml" {
		t.Fatalf("unexpected error %+v", r.Errors[0])
	}
	type usage struct {
		Uses  string
		Score int
		Tier  risk.Tier
	}
	var got []usage
	for _, u := range r.UsagesAtLeast(risk.TierLow) {
		got = append(got, usage{Uses: u.Site.Reference.Raw, Score: u.Score, Tier: u.Tier})
	}
	exp := []usage{
		{Uses: "owner/repo@v1", Score: 75, Tier: risk.TierCritical},
		{Uses: "actions/checkout@v4", Score: 40, Tier: risk.TierMedium},
	}
	if diff := cmp.Diff(exp, got); diff != "" {
		t.Fatal(diff)
	}
}

func TestReport_CheckThreshold(t *testing.T) {
	t.Parallel()
	r := newReport(t)
	data := []struct {
		tier    risk.Tier
		wantErr bool
	}{
		{tier: ""},
		{tier: risk.TierCritical, wantErr: true},
		{tier: risk.TierMedium, wantErr: true},
	}
	for _, d := range data {
		err := r.CheckThreshold(d.tier)
		if d.wantErr != errors.Is(err, report.ErrRiskThreshold) {
			t.Fatalf("%s: wantErr %v, got %v", d.tier, d.wantErr, err)
		}
	}
	r.Entries = r.Entries[:0]
	if err := r.CheckThreshold(risk.TierLow); err != nil {
		t.Fatalf("an empty report must pass, got %v", err)
	}
}

func TestJSON_roundTrip(t *testing.T) {
	t.Parallel()
	r := newReport(t)
	buf := &bytes.Buffer{}
	if err := report.WriteJSON(buf, r); err != nil {
		t.Fatal(err)
	}
	decoded, err := report.DecodeJSON(buf)
	if err != nil {
		t.Fatal(err)
	}
	opts := []cmp.Option{cmpopts.IgnoreUnexported(extract.UsageSite{}), cmpopts.EquateEmpty()}
	if diff := cmp.Diff(r, decoded, opts...); diff != "" {
		t.Fatal(diff)
	}
	if diff := cmp.Diff(r.Inventory().Entries(), decoded.Inventory().Entries(), opts...); diff != "" {
		t.Fatal(diff)
	}
}

func TestWriteCSV(t *testing.T) {
	t.Parallel()
	buf := &bytes.Buffer{}
	if err := report.WriteCSV(buf, newReport(t)); err != nil {
		t.Fatal(err)
	}
	rows, err := csv.NewReader(buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 4 {
		t.Fatalf("wanted a header and 3 rows, got %d rows", len(rows))
	}
	header := rows[0]
	record := map[string]string{}
	for _, row := range rows[1:] {
		if row[6] != "owner/repo@v1" {
			continue
		}
		for i, v := range row {
			record[header[i]] = v
		}
	}
	exp := map[string]string{
		"score":              "75",
		"tier":               "critical",
		"secrets":            "DEPLOY_TOKEN",
		"pin_kind":           "unpinned-tag",
		"production_reasons": "on:push",
		"permission_source":  "ambient",
	}
	for k, v := range exp {
		if record[k] != v {
			t.Errorf("%s: wanted %q, got %q", k, v, record[k])
		}
	}
}

func TestWriteMarkdown(t *testing.T) {
	t.Parallel()
	buf := &bytes.Buffer{}
	if err := report.WriteMarkdown(buf, newReport(t), 5); err != nil {
		t.Fatal(err)
	}
	s := buf.String()
	for _, want := range []string{
		"| Usages | 3 |",
		"| critical | 1 |",
		"| owner/repo | 75 | critical | 1 | 1 | v1 |",
		"## Errors",
		".github/workflows/broken.yaml",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("the summary doesn't contain %q:\n%s", want, s)
		}
	}
}

func TestWriteSARIF(t *testing.T) {
	t.Parallel()
	buf := &bytes.Buffer{}
	if err := report.WriteSARIF(buf, newReport(t), risk.TierHigh, "v1.0.0"); err != nil {
		t.Fatal(err)
	}
	log := &sarif.Log{}
	if err := json.NewDecoder(buf).Decode(log); err != nil {
		t.Fatal(err)
	}
	results := log.Runs[0].Results
	if len(results) != 1 {
		t.Fatalf("wanted 1 result, got %d", len(results))
	}
	res := results[0]
	if res.RuleID != "action-risk-critical" || res.Level != sarif.LevelError {
		t.Fatalf("unexpected rule %s and level %s", res.RuleID, res.Level)
	}
	loc := res.Locations[0].PhysicalLocation
	if loc.ArtifactLocation.URI != ".github/workflows/deploy.yaml" || loc.Region == nil || loc.Region.StartLine != 10 {
		t.Fatalf("unexpected location %+v", loc)
	}
	if len(log.Runs[0].Tool.Driver.Rules) != 2 {
		t.Fatalf("wanted rules of high and critical, got %d", len(log.Runs[0].Tool.Driver.Rules))
	}
}

func TestConsole_Write(t *testing.T) {
	t.Parallel()
	buf := &bytes.Buffer{}
	if err := report.NewConsole(buf).Write(newReport(t), risk.TierMedium, 1); err != nil {
		t.Fatal(err)
	}
	s := buf.String()
	for _, want := range []string{"75 owner/repo@v1", "secrets: DEPLOY_TOKEN", "and 1 more usages", "3 usages (1 unscored)"} {
		if !strings.Contains(s, want) {
			t.Errorf("the output doesn't contain %q:\n%s", want, s)
		}
	}
}

func TestWriter_WriteFiles(t *testing.T) {
	t.Parallel()
	fs := afero.NewMemMapFs()
	w := &report.Writer{Version: "v1.0.0", MinTier: risk.TierMedium}
	paths, err := w.WriteFiles(fs, "out", []report.Format{report.FormatJSON, report.FormatCSV, report.FormatMarkdown, report.FormatSARIF}, newReport(t))
	if err != nil {
		t.Fatal(err)
	}
	exp := []string{"out/inventory.json", "out/usages.csv", "out/summary.md", "out/gharisk.sarif"}
	if diff := cmp.Diff(exp, paths); diff != "" {
		t.Fatal(diff)
	}
	for _, p := range paths {
		b, err := afero.ReadFile(fs, p)
		if err != nil {
			t.Fatal(err)
		}
		if len(b) == 0 {
			t.Fatalf("%s is empty", p)
		}
	}
	if _, err := w.WriteFiles(fs, "out", []report.Format{report.FormatConsole}, newReport(t)); err == nil {
		t.Fatal("console can't be written to a file")
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()
	data := []struct {
		s       string
		exp     report.Format
		wantErr bool
	}{
		{s: "json", exp: report.FormatJSON},
		{s: "md", exp: report.FormatMarkdown},
		{s: "sarif", exp: report.FormatSARIF},
		{s: "xml", wantErr: true},
	}
	for _, d := range data {
		t.Run(d.s, func(t *testing.T) {
			t.Parallel()
			got, err := report.ParseFormat(d.s)
			if d.wantErr != (err != nil) {
				t.Fatalf("wantErr %v, got %v", d.wantErr, err)
			}
			if got != d.exp {
				t.Fatalf("wanted %s, got %s", d.exp, got)
			}
		})
	}
}
