package inspect

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/gharisk/gharisk/pkg/action"
	"github.com/gharisk/gharisk/pkg/engine"
	"github.com/gharisk/gharisk/pkg/report"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/suzuki-shunsuke/logrus-error/logerr"
)

const localRepository = "local"

// Inspect scores the action usages of local workflow files and outputs a report to stdout.
// It returns report.ErrRiskThreshold if a usage reaches Param.FailOn.
func (c *Controller) Inspect(ctx context.Context, logE *logrus.Entry) error {
	files := c.param.WorkflowFilePaths
	if len(files) == 0 {
		arr, err := c.listWorkflows()
		if err != nil {
			return err
		}
		files = arr
	}
	if len(files) == 0 {
		return errors.New("no workflow file is found")
	}

	repo := cmp.Or(c.param.Repository, localRepository)
	raws := make([]*engine.RawWorkflow, 0, len(files))
	var readErrs []*engine.DocumentError
	for _, p := range files {
		b, err := afero.ReadFile(c.fs, p)
		if err != nil {
			readErrs = append(readErrs, &engine.DocumentError{
				Document: engine.DocumentID{Repository: repo, Path: p},
				Err:      fmt.Errorf("read a workflow file: %w", err),
			})
			continue
		}
		raws = append(raws, &engine.RawWorkflow{
			Repository:    repo,
			Path:          p,
			Content:       b,
			DefaultBranch: c.param.DefaultBranch,
		})
	}

	ex, err := c.engine.Extract(ctx, raws)
	if err != nil {
		return fmt.Errorf("extract action usages: %w", err)
	}
	ex.Errors = slices.Concat(readErrs, ex.Errors)

	var refs action.RefLookup
	if c.param.ResolveRefs && c.resolver != nil {
		m, err := c.resolver.Resolve(ctx, ex.ActionVersions())
		if err != nil {
			return fmt.Errorf("resolve refs of actions: %w", err)
		}
		refs = m
	}

	result, err := c.engine.Score(ctx, ex, refs)
	if err != nil {
		return fmt.Errorf("score action usages: %w", err)
	}
	for _, e := range result.Errors {
		logerr.WithError(logE, e.Err).WithField("workflow_file", e.Document.Path).Warn("skip a workflow file")
	}

	r := report.New(result, c.writer.Top)
	if err := c.writer.Write(c.stdout, cmp.Or(c.param.Format, report.FormatConsole), r); err != nil {
		return fmt.Errorf("output a report: %w", err)
	}
	return r.CheckThreshold(c.param.FailOn) //nolint:wrapcheck
}

func (c *Controller) listWorkflows() ([]string, error) {
	patterns := []string{
		".github/workflows/*.yml",
		".github/workflows/*.yaml",
	}
	files := []string{}
	for _, pattern := range patterns {
		matches, err := afero.Glob(c.fs, pattern)
		if err != nil {
			return nil, fmt.Errorf("look for workflow files using glob: %w", logerr.WithFields(err, logrus.Fields{
				"pattern": pattern,
			}))
		}
		files = append(files, matches...)
	}
	slices.Sort(files)
	return files, nil
}
