package diagnostics

import (
	"github.com/rs/zerolog"
)

// LogReporter writes problems to a zerolog logger.
type LogReporter struct {
	log zerolog.Logger
}

// NewLogReporter creates a reporter logging through log.
func NewLogReporter(log zerolog.Logger) *LogReporter {
	return &LogReporter{log: log.With().Str("component", "diagnostics").Logger()}
}

// Report implements Reporter.
func (r *LogReporter) Report(p Problem) {
	var ev *zerolog.Event
	switch p.Level {
	case LevelWarning:
		ev = r.log.Warn()
	default:
		ev = r.log.Error()
	}
	ev.Str("problem", p.ID).
		Str("location", p.Location).
		Str("severity", p.Level.String()).
		Msg(p.Message)
}
