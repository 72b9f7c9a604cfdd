package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

// Setup configures the global zerolog logger. Extra writers (e.g. Logdy) receive
// the JSON stream in addition to the primary output.
func Setup(out io.Writer, level, format string, extra ...io.Writer) zerolog.Level {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	if out == nil {
		out = os.Stderr
	}
	var w io.Writer = out
	if strings.EqualFold(format, "console") {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	if len(extra) > 0 {
		w = zerolog.MultiLevelWriter(append([]io.Writer{w}, extra...)...)
	}
	log.Logger = zerolog.New(w).With().Timestamp().Logger()

	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		log.Warn().Str("level", level).Msg("Invalid log level, using info")
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	return lvl
}
