package log

import (
	"log/slog"

	slogrus "github.com/samber/slog-logrus/v2"
	"github.com/sirupsen/logrus"
)

// NewSlog returns a slog logger for libraries which take one.
// Records are written by the logrus logger of logE with the fields of logE,
// so the level set by SetLevel applies to them too.
func NewSlog(logE *logrus.Entry) *slog.Logger {
	attrs := make([]any, 0, 2*len(logE.Data))
	for k, v := range logE.Data {
		attrs = append(attrs, k, v)
	}
	return slog.New(slogrus.Option{
		Level:  slog.LevelDebug,
		Logger: logE.Logger,
	}.NewLogrusHandler()).With(attrs...)
}
