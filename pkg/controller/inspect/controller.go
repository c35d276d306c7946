// Package inspect scores the action usages of local workflow files.
package inspect

import (
	"context"
	"io"

	"github.com/gharisk/gharisk/pkg/action"
	"github.com/gharisk/gharisk/pkg/engine"
	"github.com/gharisk/gharisk/pkg/report"
	"github.com/gharisk/gharisk/pkg/risk"
	"github.com/spf13/afero"
)

type Controller struct {
	fs       afero.Fs
	resolver RefResolver
	engine   *engine.Engine
	writer   *report.Writer
	stdout   io.Writer
	param    *Param
}

type Param struct {
	// WorkflowFilePaths are searched from .github/workflows if empty.
	WorkflowFilePaths []string
	// Repository names the workflows in reports. It defaults to "local".
	Repository    string
	DefaultBranch string
	Format        report.Format
	FailOn        risk.Tier
	ResolveRefs   bool
}

type RefResolver interface {
	Resolve(ctx context.Context, versions []engine.ActionVersion) (action.StaticRefs, error)
}

// New creates a controller. resolver may be nil if Param.ResolveRefs is false.
func New(fs afero.Fs, resolver RefResolver, eng *engine.Engine, writer *report.Writer, stdout io.Writer, param *Param) *Controller {
	return &Controller{
		fs:       fs,
		resolver: resolver,
		engine:   eng,
		writer:   writer,
		stdout:   stdout,
		param:    param,
	}
}
