// Package cli defines the commands of gharisk.
package cli

import (
	"context"
	"io"
	"os"

	"github.com/gharisk/gharisk/pkg/cli/flag"
	"github.com/gharisk/gharisk/pkg/cli/initcmd"
	"github.com/gharisk/gharisk/pkg/cli/inspect"
	"github.com/gharisk/gharisk/pkg/cli/scan"
	"github.com/gharisk/gharisk/pkg/cli/token"
	"github.com/gharisk/gharisk/pkg/log"
	"github.com/sirupsen/logrus"
	"github.com/suzuki-shunsuke/go-stdutil"
	"github.com/urfave/cli/v3"
)

type Runner struct {
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer
	LDFlags *stdutil.LDFlags
	LogE    *logrus.Entry
}

// Run runs gharisk with the standard input and output of the process.
func Run(ctx context.Context, logE *logrus.Entry, ldFlags *stdutil.LDFlags, args ...string) error {
	r := &Runner{
		Stdin:   os.Stdin,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		LDFlags: ldFlags,
		LogE:    logE,
	}
	return r.Run(ctx, args...)
}

func (r *Runner) Run(ctx context.Context, args ...string) error {
	gf := &flag.GlobalFlags{}
	cmd := &cli.Command{
		Name:                  "gharisk",
		Usage:                 "Inventory GitHub Actions used by workflows and score their risk. https://github.com/gharisk/gharisk",
		Version:               r.version(),
		Flags:                 gf.Flags(),
		EnableShellCompletion: true,
		Writer:                r.Stdout,
		ErrWriter:             r.Stderr,
		Commands: []*cli.Command{
			scan.New(r.LogE, gf, r.LDFlags.Version, r.Stdout),
			inspect.New(r.LogE, gf, r.LDFlags.Version, r.Stdout),
			initcmd.New(r.LogE, gf),
			r.newVersionCommand(),
			token.New(log.NewSlog(r.LogE)),
		},
	}
	return cmd.Run(ctx, args) //nolint:wrapcheck
}

func (r *Runner) version() string {
	if r.LDFlags.Commit == "" {
		return r.LDFlags.Version
	}
	return r.LDFlags.Version + " (" + r.LDFlags.Commit + ")"
}
