// Package initcmd implements the 'gharisk init' command.
package initcmd

import (
	"cmp"
	"context"
	"fmt"

	"github.com/gharisk/gharisk/pkg/cli/flag"
	"github.com/gharisk/gharisk/pkg/controller/initcmd"
	"github.com/gharisk/gharisk/pkg/log"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"
)

func New(logE *logrus.Entry, gf *flag.GlobalFlags) *cli.Command {
	r := &runner{
		logE: logE,
		gf:   gf,
	}
	return r.Command()
}

type runner struct {
	logE *logrus.Entry
	gf   *flag.GlobalFlags
}

func (r *runner) Command() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Create .gharisk.yaml if it doesn't exist",
		Description: `Create .gharisk.yaml with the default policy if it doesn't exist

$ gharisk init

You can also pass configuration file path.

e.g.

$ gharisk init .github/gharisk.yaml
`,
		ArgsUsage: "[<configuration file>]",
		Action:    r.action,
	}
}

func (r *runner) action(_ context.Context, c *cli.Command) error {
	if err := log.SetLevel(r.gf.LogLevel, r.logE); err != nil {
		return fmt.Errorf("set log level: %w", err)
	}
	configFilePath := cmp.Or(c.Args().First(), r.gf.Config, ".gharisk.yaml")
	ctrl := initcmd.New(afero.NewOsFs())
	if err := ctrl.Init(configFilePath); err != nil {
		return err //nolint:wrapcheck
	}
	r.logE.WithField("config", configFilePath).Debug("initialized a configuration file")
	return nil
}
