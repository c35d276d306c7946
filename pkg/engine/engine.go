// Package engine runs the parse, extract, analyze and score pipeline over
// many workflow documents with a bounded worker pool.
//
// The pipeline of one document is pure and synchronous. Documents are
// independent: a failure of one document is recorded and never affects the
// others. Each worker folds its results into a private inventory, and the
// partial inventories are merged once after every worker has finished.
package engine

import (
	"cmp"
	"context"
	"fmt"
	"runtime"
	"slices"
	"strings"

	"github.com/gharisk/gharisk/pkg/action"
	"github.com/gharisk/gharisk/pkg/analyze"
	"github.com/gharisk/gharisk/pkg/extract"
	"github.com/gharisk/gharisk/pkg/inventory"
	"github.com/gharisk/gharisk/pkg/risk"
	"github.com/gharisk/gharisk/pkg/workflow"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// RawWorkflow is a workflow file fetched by a collector.
type RawWorkflow struct {
	Repository string
	Path       string
	Content    []byte
	// DefaultBranch is optional.
	DefaultBranch string
}

// DocumentID identifies a workflow file.
type DocumentID struct {
	Repository string `json:"repository"`
	Path       string `json:"path"`
}

func (id DocumentID) String() string {
	return id.Repository + "/" + id.Path
}

// DocumentError is a failure to process one document.
type DocumentError struct {
	Document DocumentID `json:"document"`
	Err      error      `json:"-"`
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("%s: %v", e.Document, e.Err)
}

func (e *DocumentError) Unwrap() error {
	return e.Err
}

// Ignorer excludes references from the inventory.
type Ignorer interface {
	Ignore(ref *action.Reference) bool
}

type Engine struct {
	analyzer *analyze.Analyzer
	scorer   *risk.Scorer
	ignorer  Ignorer
	workers  int
}

// New returns an engine. workers is the size of the worker pool; zero or
// less means the number of CPUs.
func New(analyzer *analyze.Analyzer, scorer *risk.Scorer, workers int) *Engine {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Engine{analyzer: analyzer, scorer: scorer, workers: workers}
}

// WithIgnorer sets an Ignorer whose references are dropped right after extraction.
func (e *Engine) WithIgnorer(ig Ignorer) *Engine {
	e.ignorer = ig
	return e
}

func (e *Engine) extract(doc *workflow.Document) []*extract.UsageSite {
	sites := extract.Extract(doc)
	if e.ignorer == nil {
		return sites
	}
	return lo.Reject(sites, func(site *extract.UsageSite, _ int) bool {
		return e.ignorer.Ignore(site.Reference)
	})
}

// Extraction is the result of parsing documents and extracting their usage sites.
type Extraction struct {
	Documents []*ExtractedDocument
	Errors    []*DocumentError
}

type ExtractedDocument struct {
	Document *workflow.Document
	Sites    []*extract.UsageSite
}

// ActionVersion is a version of an action whose ref type may be looked up.
type ActionVersion struct {
	Owner   string
	Repo    string
	Version string
}

// ActionVersions returns the distinct versions of actions and reusable
// workflows which aren't pinned to a commit hash.
func (ex *Extraction) ActionVersions() []ActionVersion {
	var arr []ActionVersion
	for _, doc := range ex.Documents {
		for _, site := range doc.Sites {
			ref := site.Reference
			if ref.Owner == "" || ref.Version == "" || action.IsFullCommitSHA(ref.Version) {
				continue
			}
			if ref.Kind != action.KindAction && ref.Kind != action.KindReusableWorkflow {
				continue
			}
			arr = append(arr, ActionVersion{Owner: ref.Owner, Repo: ref.Repo, Version: ref.Version})
		}
	}
	arr = lo.Uniq(arr)
	slices.SortFunc(arr, func(a, b ActionVersion) int {
		return cmp.Or(
			strings.Compare(a.Owner, b.Owner),
			strings.Compare(a.Repo, b.Repo),
			strings.Compare(a.Version, b.Version),
		)
	})
	return arr
}

// Result is the finalized inventory with the per-document errors and the
// analysis diagnostics.
type Result struct {
	Inventory   *inventory.Inventory
	Errors      []*DocumentError
	Diagnostics []analyze.Diagnostic
	// Documents is the number of documents processed successfully.
	Documents int
}

// Run parses, extracts, analyzes and scores raw workflows.
func (e *Engine) Run(ctx context.Context, raws []*RawWorkflow, refs action.RefLookup) (*Result, error) {
	ex, err := e.Extract(ctx, raws)
	if err != nil {
		return nil, err
	}
	return e.Score(ctx, ex, refs)
}

// Extract parses raw workflows and extracts their usage sites in parallel.
// Documents which can't be parsed are listed in Extraction.Errors.
// An error is returned only if ctx is canceled.
func (e *Engine) Extract(ctx context.Context, raws []*RawWorkflow) (*Extraction, error) {
	docs := make([]*ExtractedDocument, len(raws))
	errs := make([]*DocumentError, len(raws))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(e.workers)
	for i, raw := range raws {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err //nolint:wrapcheck
			}
			doc, err := workflow.Parse(raw.Repository, raw.Path, raw.Content)
			if err != nil {
				errs[i] = &DocumentError{Document: DocumentID{Repository: raw.Repository, Path: raw.Path}, Err: err}
				return nil
			}
			doc.DefaultBranch = raw.DefaultBranch
			docs[i] = &ExtractedDocument{Document: doc, Sites: e.extract(doc)}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("extract action usages: %w", err)
	}
	return &Extraction{
		Documents: lo.Compact(docs),
		Errors:    lo.Compact(errs),
	}, nil
}

type partial struct {
	inventory   *inventory.Inventory
	diagnostics []analyze.Diagnostic
}

// Score analyzes and scores extracted documents in parallel.
// refs may be nil, in which case pin kinds are derived from the versions alone.
func (e *Engine) Score(ctx context.Context, ex *Extraction, refs action.RefLookup) (*Result, error) {
	workers := min(e.workers, max(len(ex.Documents), 1))
	partials := make([]*partial, workers)
	queue := make(chan *ExtractedDocument)
	eg, ctx := errgroup.WithContext(ctx)
	for w := range workers {
		p := &partial{inventory: inventory.New()}
		partials[w] = p
		eg.Go(func() error {
			for doc := range queue {
				e.scoreDocument(p, doc, refs)
			}
			return nil
		})
	}
	eg.Go(func() error {
		defer close(queue)
		for _, doc := range ex.Documents {
			select {
			case queue <- doc:
			case <-ctx.Done():
				return ctx.Err() //nolint:wrapcheck
			}
		}
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("score action usages: %w", err)
	}

	result := &Result{
		Inventory: inventory.New(),
		Errors:    ex.Errors,
		Documents: len(ex.Documents),
	}
	for _, p := range partials {
		result.Inventory.Merge(p.inventory)
		result.Diagnostics = append(result.Diagnostics, p.diagnostics...)
	}
	result.Diagnostics = sortDiagnostics(lo.Uniq(result.Diagnostics))
	return result, nil
}

func (e *Engine) scoreDocument(p *partial, doc *ExtractedDocument, refs action.RefLookup) {
	for _, d := range doc.Document.Diagnostics {
		p.diagnostics = append(p.diagnostics, analyze.Diagnostic{
			Repository:   doc.Document.Repository,
			WorkflowPath: doc.Document.Path,
			Line:         d.Line,
			Message:      d.Message,
		})
	}
	for _, site := range doc.Sites {
		facts, diags := e.analyzer.Analyze(site, doc.Document, refs)
		p.diagnostics = append(p.diagnostics, diags...)
		p.inventory.Add(e.scorer.ScoreUsage(site, facts))
	}
}

func sortDiagnostics(diags []analyze.Diagnostic) []analyze.Diagnostic {
	slices.SortFunc(diags, func(a, b analyze.Diagnostic) int {
		return cmp.Or(
			strings.Compare(a.Repository, b.Repository),
			strings.Compare(a.WorkflowPath, b.WorkflowPath),
			cmp.Compare(a.Line, b.Line),
			strings.Compare(a.Message, b.Message),
		)
	})
	return diags
}
