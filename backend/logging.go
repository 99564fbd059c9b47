package backend

import (
	"log"
	"os"

	"golang.org/x/net/context"
)

type logCtxKey int

const logCtx logCtxKey = 0
const logFlags = log.LstdFlags

var defaultLogger = log.New(os.Stdout, "[howzat] ", logFlags)

// Logger returns the logger bound to ctx, or the server-wide default for
// contexts that never passed through LoggingContext.
func Logger(ctx context.Context) *log.Logger {
	if logger, ok := ctx.Value(logCtx).(*log.Logger); ok {
		return logger
	}
	return defaultLogger
}

// LoggingContext derives a context whose logger prefixes each line, so one
// server's interleaved session output stays attributable.
func LoggingContext(parent context.Context, prefix string) context.Context {
	return context.WithValue(parent, logCtx, log.New(os.Stdout, prefix, logFlags))
}
