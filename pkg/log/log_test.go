package log_test

import (
	"testing"

	"github.com/gharisk/gharisk/pkg/log"
	"github.com/sirupsen/logrus"
)

func TestSetLevel(t *testing.T) {
	t.Parallel()
	data := []struct {
		name    string
		level   string
		exp     logrus.Level
		wantErr bool
	}{
		{name: "empty", level: "", exp: logrus.InfoLevel},
		{name: "debug", level: "debug", exp: logrus.DebugLevel},
		{name: "invalid", level: "verbose", exp: logrus.InfoLevel, wantErr: true},
	}
	for _, d := range data {
		t.Run(d.name, func(t *testing.T) {
			t.Parallel()
			logE := logrus.NewEntry(logrus.New())
			err := log.SetLevel(d.level, logE)
			if d.wantErr != (err != nil) {
				t.Fatalf("wantErr %v, got %v", d.wantErr, err)
			}
			if got := logE.Logger.GetLevel(); got != d.exp {
				t.Fatalf("wanted %s, got %s", d.exp, got)
			}
		})
	}
}
