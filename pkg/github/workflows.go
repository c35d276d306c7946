package github

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/gharisk/gharisk/pkg/engine"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/suzuki-shunsuke/logrus-error/logerr"
	"golang.org/x/sync/errgroup"
)

const workflowDir = ".github/workflows"

// Collection is the result of collecting workflow files.
// Errors lists repositories and files which couldn't be fetched.
type Collection struct {
	Workflows []*engine.RawWorkflow
	Errors    []*engine.DocumentError
}

// WorkflowCollector fetches the workflow files of repositories.
type WorkflowCollector struct {
	repos   RepositoriesService
	retrier *retrier
	logE    *logrus.Entry
	workers int
}

// NewWorkflowCollector returns a collector fetching up to workers repositories in parallel.
func NewWorkflowCollector(logE *logrus.Entry, repos RepositoriesService, workers int) *WorkflowCollector {
	return &WorkflowCollector{
		repos:   repos,
		retrier: newRetrier(logE),
		logE:    logE,
		workers: max(workers, 1),
	}
}

type repoResult struct {
	workflows []*engine.RawWorkflow
	errors    []*engine.DocumentError
}

// Collect fetches .yml and .yaml files in .github/workflows of each repository.
// A repository without the directory has no workflow.
// A failure of one repository or file is recorded and logged, and the others are still collected.
// An error is returned only if ctx is canceled.
func (c *WorkflowCollector) Collect(ctx context.Context, repos []*Repo) (*Collection, error) {
	results := make([]*repoResult, len(repos))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(c.workers)
	for i, repo := range repos {
		eg.Go(func() error {
			result, err := c.collectRepo(ctx, repo)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("collect workflow files: %w", err)
	}
	col := &Collection{}
	for _, r := range results {
		col.Workflows = append(col.Workflows, r.workflows...)
		col.Errors = append(col.Errors, r.errors...)
	}
	return col, nil
}

func (c *WorkflowCollector) collectRepo(ctx context.Context, repo *Repo) (*repoResult, error) {
	logE := c.logE.WithField("repository", repo.FullName())
	result := &repoResult{}
	fail := func(p string, err error) {
		logerr.WithError(logE.WithField("workflow_file", p), err).Warn("skip a workflow file")
		result.errors = append(result.errors, &engine.DocumentError{
			Document: engine.DocumentID{Repository: repo.FullName(), Path: p},
			Err:      err,
		})
	}

	opts := &RepositoryContentGetOptions{Ref: repo.DefaultBranch}
	_, entries, resp, err := c.getContents(ctx, repo, workflowDir, opts)
	if err != nil {
		if isNotFound(resp) {
			logE.Debug("the repository has no workflow")
			return result, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr //nolint:wrapcheck
		}
		fail(workflowDir, fmt.Errorf("list workflow files: %w", err))
		return result, nil
	}

	files := lo.Filter(entries, func(e *RepositoryContent, _ int) bool {
		return e.GetType() == "file" && isWorkflowFile(e.GetName())
	})
	slices.SortFunc(files, func(a, b *RepositoryContent) int {
		return strings.Compare(a.GetPath(), b.GetPath())
	})
	for _, f := range files {
		p := cmp.Or(f.GetPath(), path.Join(workflowDir, f.GetName()))
		content, err := c.fetchFile(ctx, repo, p, opts)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr //nolint:wrapcheck
			}
			fail(p, err)
			continue
		}
		result.workflows = append(result.workflows, &engine.RawWorkflow{
			Repository:    repo.FullName(),
			Path:          p,
			Content:       []byte(content),
			DefaultBranch: repo.DefaultBranch,
		})
	}
	return result, nil
}

var errNotFile = errors.New("the path isn't a file")

func (c *WorkflowCollector) fetchFile(ctx context.Context, repo *Repo, p string, opts *RepositoryContentGetOptions) (string, error) {
	file, _, _, err := c.getContents(ctx, repo, p, opts)
	if err != nil {
		return "", fmt.Errorf("get a workflow file: %w", err)
	}
	if file == nil {
		return "", errNotFile
	}
	content, err := file.GetContent()
	if err != nil {
		return "", fmt.Errorf("decode a workflow file: %w", err)
	}
	return content, nil
}

type contents struct {
	file    *RepositoryContent
	entries []*RepositoryContent
}

func (c *WorkflowCollector) getContents(ctx context.Context, repo *Repo, p string, opts *RepositoryContentGetOptions) (*RepositoryContent, []*RepositoryContent, *Response, error) {
	v, resp, err := retry(ctx, c.retrier, func() (*contents, *Response, error) {
		file, entries, resp, err := c.repos.GetContents(ctx, repo.Owner, repo.Name, p, opts)
		return &contents{file: file, entries: entries}, resp, err //nolint:wrapcheck
	})
	if err != nil {
		return nil, nil, resp, err
	}
	return v.file, v.entries, resp, nil
}

func isWorkflowFile(name string) bool {
	ext := path.Ext(name)
	return ext == ".yml" || ext == ".yaml"
}
