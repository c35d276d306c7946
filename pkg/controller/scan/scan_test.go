package scan_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/gharisk/gharisk/pkg/action"
	"github.com/gharisk/gharisk/pkg/analyze"
	"github.com/gharisk/gharisk/pkg/controller/scan"
	"github.com/gharisk/gharisk/pkg/engine"
	"github.com/gharisk/gharisk/pkg/github"
	"github.com/gharisk/gharisk/pkg/report"
	"github.com/gharisk/gharisk/pkg/risk"
	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

const deploy = `on:
  push:
    branches: [main]
jobs:
  deploy:
    runs-on: ubuntu-latest
    steps:
      - uses: owner/repo@v1
        with:
          token: ${{ secrets.DEPLOY_TOKEN }}
`

type fakeRepos struct {
	repos map[string][]*github.Repo
}

func (f *fakeRepos) List(_ context.Context, org string) ([]*github.Repo, error) {
	repos, ok := f.repos[org]
	if !ok {
		return nil, errors.New("not found")
	}
	return repos, nil
}

func (f *fakeRepos) Get(_ context.Context, fullName string) (*github.Repo, error) {
	for _, repos := range f.repos {
		for _, repo := range repos {
			if repo.FullName() == fullName {
				return repo, nil
			}
		}
	}
	return nil, errors.New("not found")
}

type fakeCollector struct {
	files map[string]string
}

func (f *fakeCollector) Collect(_ context.Context, repos []*github.Repo) (*github.Collection, error) {
	col := &github.Collection{}
	for _, repo := range repos {
		content, ok := f.files[repo.FullName()]
		if !ok {
			col.Errors = append(col.Errors, &engine.DocumentError{
				Document: engine.DocumentID{Repository: repo.FullName(), Path: ".github/workflows"},
				Err:      errors.New("forbidden"),
			})
			continue
		}
		col.Workflows = append(col.Workflows, &engine.RawWorkflow{
			Repository:    repo.FullName(),
			Path:          ".github/workflows/deploy.yaml",
			Content:       []byte(content),
			DefaultBranch: repo.DefaultBranch,
		})
	}
	return col, nil
}

type fakeResolver struct {
	calls int
}

func (f *fakeResolver) Resolve(_ context.Context, versions []engine.ActionVersion) (action.StaticRefs, error) {
	f.calls++
	refs := action.StaticRefs{}
	for _, v := range versions {
		refs.Set(v.Owner, v.Repo, v.Version, action.RefTypeBranch)
	}
	return refs, nil
}

func newEngine() *engine.Engine {
	return engine.New(
		analyze.New(analyze.DefaultPolicy()),
		risk.NewScorer(risk.DefaultWeights(), risk.DefaultTiers()),
		2,
	)
}

func newLogE() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

func TestController_Scan(t *testing.T) { //nolint:funlen
	t.Parallel()
	repos := &fakeRepos{
		repos: map[string][]*github.Repo{
			"my-org": {
				{Owner: "my-org", Name: "app", DefaultBranch: "main"},
				{Owner: "my-org", Name: "secret", DefaultBranch: "main"},
			},
		},
	}
	collector := &fakeCollector{
		files: map[string]string{"my-org/app": deploy},
	}
	data := []struct {
		name       string
		param      *scan.Param
		wantErr    bool
		isThresh   bool
		expScore   int
		expErrors  int
		expResolve int
	}{
		{
			name:      "org",
			param:     &scan.Param{Org: "my-org"},
			expScore:  75,
			expErrors: 1,
		},
		{
			name:       "resolve refs",
			param:      &scan.Param{Org: "my-org", ResolveRefs: true},
			expScore:   90,
			expErrors:  1,
			expResolve: 1,
		},
		{
			name:     "repositories",
			param:    &scan.Param{Repositories: []string{"my-org/app"}},
			expScore: 75,
		},
		{
			name:      "fail on",
			param:     &scan.Param{Org: "my-org", FailOn: risk.TierCritical},
			wantErr:   true,
			isThresh:  true,
			expScore:  75,
			expErrors: 1,
		},
		{
			name:    "unknown org",
			param:   &scan.Param{Org: "unknown"},
			wantErr: true,
		},
		{
			name:    "no target",
			param:   &scan.Param{},
			wantErr: true,
		},
	}
	for _, d := range data {
		t.Run(d.name, func(t *testing.T) {
			t.Parallel()
			fs := afero.NewMemMapFs()
			resolver := &fakeResolver{}
			d.param.OutputDir = "out"
			d.param.Formats = []report.Format{report.FormatJSON, report.FormatMarkdown}
			stdout := &bytes.Buffer{}
			ctrl := scan.New(repos, collector, resolver, newEngine(), &report.Writer{MinTier: risk.TierMedium, Top: 5}, fs, stdout, d.param)
			err := ctrl.Scan(context.Background(), newLogE())
			if resolver.calls != d.expResolve {
				t.Fatalf("Resolve must be called %d times, got %d", d.expResolve, resolver.calls)
			}
			if err != nil {
				if !d.wantErr {
					t.Fatal(err)
				}
				if d.isThresh != errors.Is(err, report.ErrRiskThreshold) {
					t.Fatalf("unexpected error: %v", err)
				}
				if !d.isThresh {
					return
				}
			} else if d.wantErr {
				t.Fatal("error must be returned")
			}
			f, err := fs.Open("out/inventory.json")
			if err != nil {
				t.Fatal(err)
			}
			defer f.Close()
			r, err := report.DecodeJSON(f)
			if err != nil {
				t.Fatal(err)
			}
			if len(r.Errors) != d.expErrors {
				t.Fatalf("wanted %d errors, got %d", d.expErrors, len(r.Errors))
			}
			usages := r.UsagesAtLeast(risk.TierLow)
			if len(usages) != 1 {
				t.Fatalf("wanted 1 usage, got %d", len(usages))
			}
			if diff := cmp.Diff(d.expScore, usages[0].Score); diff != "" {
				t.Fatal(diff)
			}
			if ok, err := afero.Exists(fs, "out/summary.md"); err != nil || !ok {
				t.Fatalf("summary.md must be written: %v", err)
			}
			if !bytes.Contains(stdout.Bytes(), []byte("owner/repo@v1")) {
				t.Fatalf("the console summary must list the usage:\n%s", stdout.String())
			}
		})
	}
}
