package logging

import (
	"bytes"
	"io"
	"net"
	"strconv"

	"github.com/logdyhq/logdy-core/logdy"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"smartcamera-hub/internal/config"
	perr "smartcamera-hub/internal/errors"
)

// logdyWriter tees the JSON log stream into the Logdy UI, one entry per line.
// Entries below minLevel are not forwarded.
type logdyWriter struct {
	sink     func(line string)
	minLevel zerolog.Level
}

var _ zerolog.LevelWriter = (*logdyWriter)(nil)

func (w *logdyWriter) Write(p []byte) (int, error) {
	for _, line := range bytes.Split(bytes.TrimRight(p, "\n"), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		w.sink(string(line))
	}
	return len(p), nil
}

func (w *logdyWriter) WriteLevel(l zerolog.Level, p []byte) (int, error) {
	if l < w.minLevel && l != zerolog.NoLevel {
		return len(p), nil
	}
	return w.Write(p)
}

// StartLogdy starts the embedded Logdy web UI and returns a writer to tee
// logs into, plus the UI URL. Hub fan-out chatter (debug) stays out of the UI
// unless LOG_LEVEL asks for it.
func StartLogdy(cfg *config.Config) (io.Writer, string, error) {
	if cfg.LogdyPort <= 0 || cfg.LogdyPort > 65535 {
		return nil, "", perr.Validationf("invalid LOGDY_PORT %d", cfg.LogdyPort)
	}
	portStr := strconv.Itoa(cfg.LogdyPort)
	ld := logdy.InitializeLogdy(logdy.Config{
		ServerIp:   cfg.LogdyHost,
		ServerPort: portStr,
	}, nil)

	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		lvl = zerolog.InfoLevel
	}

	url := "http://" + net.JoinHostPort(cfg.LogdyHost, portStr)
	log.Info().Str("url", url).Str("min_level", lvl.String()).Msg("Logdy UI available")
	sink := func(line string) { ld.LogString(line) }
	return &logdyWriter{sink: sink, minLevel: lvl}, url, nil
}
