package cli_test

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/gharisk/gharisk/pkg/cli"
	"github.com/sirupsen/logrus"
	"github.com/suzuki-shunsuke/go-stdutil"
)

func TestRunner_Run_version(t *testing.T) {
	t.Parallel()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	stdout := &bytes.Buffer{}
	r := &cli.Runner{
		Stdin:   strings.NewReader(""),
		Stdout:  stdout,
		Stderr:  io.Discard,
		LDFlags: &stdutil.LDFlags{Version: "v1.0.0", Commit: "abcdef"},
		LogE:    logrus.NewEntry(logger),
	}
	if err := r.Run(context.Background(), "gharisk", "version"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stdout.String(), "v1.0.0 (abcdef)") {
		t.Fatalf("unexpected output: %s", stdout.String())
	}
}
