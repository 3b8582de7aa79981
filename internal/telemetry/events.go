package telemetry

import (
	"io"

	"github.com/rs/zerolog"
)

// Recorder writes discrete occurrences as line-delimited JSON records for
// offline analysis. Writes are best-effort: a failing writer is ignored,
// never surfaced to the caller.
type Recorder struct {
	log zerolog.Logger
}

// NewRecorder builds a recorder emitting NDJSON to w. A nil writer yields
// a disabled recorder.
func NewRecorder(w io.Writer) *Recorder {
	if w == nil {
		return &Recorder{log: zerolog.Nop()}
	}
	return &Recorder{log: zerolog.New(w).With().Timestamp().Logger()}
}

// Event writes one record with the given name and fields.
func (r *Recorder) Event(name string, fields map[string]any) {
	if r == nil {
		return
	}
	ev := r.log.Log().Str("event", name)
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Send()
}
