package github

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/gharisk/gharisk/pkg/action"
	"github.com/gharisk/gharisk/pkg/engine"
	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
)

func testLogE() *logrus.Entry {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(logger)
}

func fastRetrier() *retrier {
	return &retrier{logE: testLogE(), maxRetries: 2, baseDelay: time.Millisecond}
}

func response(status int) *Response {
	return &Response{Response: &http.Response{StatusCode: status}}
}

func notFound() (*Response, error) {
	resp := response(http.StatusNotFound)
	return resp, &ErrorResponse{Response: resp.Response, Message: "Not Found"}
}

func rateLimited() (*Response, error) {
	resp := response(http.StatusForbidden)
	return resp, &RateLimitError{
		Rate:     Rate{Reset: Timestamp{Time: time.Now().Add(-time.Minute)}},
		Response: resp.Response,
	}
}

type fakeRepos struct {
	mutex sync.Mutex
	// pages of ListByOrg starting from page 1
	pages     [][]*Repository
	repos     map[string]*Repository
	contents  map[string]*RepositoryContent
	dirs      map[string][]*RepositoryContent
	failures  map[string]error
	throttles int
	calls     int
}

func (f *fakeRepos) throttle() (*Response, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.calls++
	if f.throttles > 0 {
		f.throttles--
		return rateLimited()
	}
	return nil, nil
}

func (f *fakeRepos) ListByOrg(_ context.Context, _ string, opts *RepositoryListByOrgOptions) ([]*Repository, *Response, error) {
	if resp, err := f.throttle(); err != nil {
		return nil, resp, err
	}
	page := max(opts.Page, 1)
	resp := response(http.StatusOK)
	if page < len(f.pages) {
		resp.NextPage = page + 1
	}
	return f.pages[page-1], resp, nil
}

func (f *fakeRepos) Get(_ context.Context, owner, repo string) (*Repository, *Response, error) {
	if r, ok := f.repos[owner+"/"+repo]; ok {
		return r, response(http.StatusOK), nil
	}
	resp, err := notFound()
	return nil, resp, err
}

func (f *fakeRepos) GetContents(_ context.Context, owner, repo, p string, _ *RepositoryContentGetOptions) (*RepositoryContent, []*RepositoryContent, *Response, error) {
	if resp, err := f.throttle(); err != nil {
		return nil, nil, resp, err
	}
	key := owner + "/" + repo + ":" + p
	if err, ok := f.failures[key]; ok {
		return nil, nil, response(http.StatusInternalServerError), err
	}
	if entries, ok := f.dirs[key]; ok {
		return nil, entries, response(http.StatusOK), nil
	}
	if c, ok := f.contents[key]; ok {
		return c, nil, response(http.StatusOK), nil
	}
	resp, err := notFound()
	return nil, nil, resp, err
}

func repository(owner, name string, archived, fork bool) *Repository {
	return &Repository{
		Owner:         &User{Login: Ptr(owner)},
		Name:          Ptr(name),
		DefaultBranch: Ptr("main"),
		Archived:      Ptr(archived),
		Fork:          Ptr(fork),
	}
}

func TestRepositoryLister_List(t *testing.T) {
	t.Parallel()
	repos := &fakeRepos{
		pages: [][]*Repository{
			{repository("o", "a", false, false), repository("o", "old", true, false)},
			{repository("o", "fork", false, true), repository("o", "b", false, false)},
		},
		throttles: 1,
	}
	data := []struct {
		name            string
		includeArchived bool
		includeForks    bool
		exp             []string
	}{
		{name: "default", exp: []string{"o/a", "o/b"}},
		{name: "archived", includeArchived: true, exp: []string{"o/a", "o/old", "o/b"}},
		{name: "all", includeArchived: true, includeForks: true, exp: []string{"o/a", "o/old", "o/fork", "o/b"}},
	}
	for _, d := range data {
		t.Run(d.name, func(t *testing.T) {
			t.Parallel()
			lister := &RepositoryLister{
				repos:           repos,
				retrier:         fastRetrier(),
				IncludeArchived: d.includeArchived,
				IncludeForks:    d.includeForks,
			}
			got, err := lister.List(context.Background(), "o")
			if err != nil {
				t.Fatal(err)
			}
			var names []string
			for _, r := range got {
				names = append(names, r.FullName())
			}
			if diff := cmp.Diff(d.exp, names); diff != "" {
				t.Fatal(diff)
			}
		})
	}
}

func TestRepositoryLister_List_maxRetries(t *testing.T) {
	t.Parallel()
	repos := &fakeRepos{pages: [][]*Repository{{}}, throttles: 10}
	lister := &RepositoryLister{repos: repos, retrier: fastRetrier()}
	_, err := lister.List(context.Background(), "o")
	var rateLimitErr *RateLimitError
	if !errors.As(err, &rateLimitErr) {
		t.Fatalf("wanted a rate limit error, got %v", err)
	}
	if repos.calls != 3 {
		t.Fatalf("wanted 3 calls, got %d", repos.calls)
	}
}

func TestRepositoryLister_Get(t *testing.T) {
	t.Parallel()
	lister := &RepositoryLister{
		repos:   &fakeRepos{repos: map[string]*Repository{"o/a": repository("o", "a", true, false)}},
		retrier: fastRetrier(),
	}
	repo, err := lister.Get(context.Background(), "o/a")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(&Repo{Owner: "o", Name: "a", DefaultBranch: "main", Archived: true}, repo); diff != "" {
		t.Fatal(diff)
	}
	for _, name := range []string{"o", "o/a/b", "/a", "o/missing"} {
		if _, err := lister.Get(context.Background(), name); err == nil {
			t.Fatalf("%s: expected error, got nil", name)
		}
	}
}

func fileEntry(p string) *RepositoryContent {
	return &RepositoryContent{Type: Ptr("file"), Name: Ptr(p[len(workflowDir)+1:]), Path: Ptr(p)}
}

func TestWorkflowCollector_Collect(t *testing.T) {
	t.Parallel()
	ci := "on: push\njobs: {}\n"
	repos := &fakeRepos{
		dirs: map[string][]*RepositoryContent{
			"o/a:.github/workflows": {
				fileEntry(".github/workflows/release.yml"),
				fileEntry(".github/workflows/ci.yaml"),
				fileEntry(".github/workflows/README.md"),
				{Type: Ptr("dir"), Name: Ptr("sub.yaml"), Path: Ptr(".github/workflows/sub.yaml")},
				fileEntry(".github/workflows/broken.yaml"),
			},
			"o/c:.github/workflows": {fileEntry(".github/workflows/ci.yaml")},
		},
		contents: map[string]*RepositoryContent{
			"o/a:.github/workflows/ci.yaml": {
				Encoding: Ptr("base64"),
				Content:  Ptr(base64.StdEncoding.EncodeToString([]byte(ci))),
			},
			"o/a:.github/workflows/release.yml": {Content: Ptr("on: release\n")},
			"o/a:.github/workflows/broken.yaml": {Encoding: Ptr("none")},
		},
		failures: map[string]error{
			"o/c:.github/workflows/ci.yaml": errors.New("internal server error"),
		},
		throttles: 2,
	}
	collector := NewWorkflowCollector(testLogE(), repos, 2)
	collector.retrier = fastRetrier()
	col, err := collector.Collect(context.Background(), []*Repo{
		{Owner: "o", Name: "a", DefaultBranch: "main"},
		{Owner: "o", Name: "b", DefaultBranch: "main"},
		{Owner: "o", Name: "c", DefaultBranch: "develop"},
	})
	if err != nil {
		t.Fatal(err)
	}
	exp := []*engine.RawWorkflow{
		{Repository: "o/a", Path: ".github/workflows/ci.yaml", Content: []byte(ci), DefaultBranch: "main"},
		{Repository: "o/a", Path: ".github/workflows/release.yml", Content: []byte("on: release\n"), DefaultBranch: "main"},
	}
	if diff := cmp.Diff(exp, col.Workflows); diff != "" {
		t.Fatal(diff)
	}
	var failed []engine.DocumentID
	for _, e := range col.Errors {
		failed = append(failed, e.Document)
	}
	expFailed := []engine.DocumentID{
		{Repository: "o/a", Path: ".github/workflows/broken.yaml"},
		{Repository: "o/c", Path: ".github/workflows/ci.yaml"},
	}
	if diff := cmp.Diff(expFailed, failed); diff != "" {
		t.Fatal(diff)
	}
}

type fakeGit struct {
	mutex sync.Mutex
	refs  map[string]bool
	fail  map[string]bool
	calls int
}

func (f *fakeGit) GetRef(_ context.Context, owner, repo, ref string) (*Reference, *Response, error) {
	f.mutex.Lock()
	f.calls++
	f.mutex.Unlock()
	key := owner + "/" + repo + ":" + ref
	if f.fail[key] {
		return nil, response(http.StatusInternalServerError), errors.New("internal server error")
	}
	if f.refs[key] {
		return &Reference{Ref: Ptr("refs/" + ref)}, response(http.StatusOK), nil
	}
	resp, err := notFound()
	return nil, resp, err
}

func TestRefResolver_Resolve(t *testing.T) {
	t.Parallel()
	git := &fakeGit{
		refs: map[string]bool{
			"o/a:tags/stable":  true,
			"o/a:heads/stable": true,
			"o/a:heads/v1":     true,
			"o/b:tags/release": true,
		},
		fail: map[string]bool{"o/c:tags/v2": true},
	}
	resolver := NewRefResolver(testLogE(), git, 3)
	resolver.retrier = fastRetrier()
	versions := []engine.ActionVersion{
		{Owner: "o", Repo: "a", Version: "stable"},
		{Owner: "o", Repo: "a", Version: "v1"},
		{Owner: "o", Repo: "b", Version: "release"},
		{Owner: "o", Repo: "b", Version: "missing"},
		{Owner: "o", Repo: "c", Version: "v2"},
	}
	refs, err := resolver.Resolve(context.Background(), versions)
	if err != nil {
		t.Fatal(err)
	}
	exp := action.StaticRefs{}
	exp.Set("o", "a", "stable", action.RefTypeTag)
	exp.Set("o", "a", "v1", action.RefTypeBranch)
	exp.Set("o", "b", "release", action.RefTypeTag)
	if diff := cmp.Diff(exp, refs); diff != "" {
		t.Fatal(diff)
	}

	calls := git.calls
	if _, err := resolver.Resolve(context.Background(), versions); err != nil {
		t.Fatal(err)
	}
	if git.calls != calls {
		t.Fatalf("results must be cached, got %d calls after %d", git.calls, calls)
	}
}
