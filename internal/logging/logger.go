package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// Init installs a tint handler on stderr as the default slog logger.
// Verbose mode forces debug level and adds source locations.
func Init(level slog.Level, verbose bool) {
	slog.SetDefault(slog.New(NewHandler(os.Stderr, level, verbose)))
}

// Discard drops all log output.
func Discard() {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// NewHandler builds the colored handler used by Init.
func NewHandler(w io.Writer, level slog.Level, verbose bool) slog.Handler {
	if verbose {
		level = slog.LevelDebug
	}
	return tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		AddSource:  verbose,
		NoColor:    !isTerminal(w),
	})
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
