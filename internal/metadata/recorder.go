package metadata

import (
	"time"

	"github.com/rs/zerolog"
)

/*
Metadata Collected
- Fetch timestamps and durations
- Protocol status codes (string form, never assumed numeric)
- Reported mimetypes
- Error causes

Metadata is write-only.
No component may read metadata to influence proxy decisions.
*/

// MetadataSink receives structured gateway events. Implementations must
// be safe for concurrent use; in-flight requests share nothing else.
type MetadataSink interface {
	RecordFetch(
		fetchURL string,
		status string,
		duration time.Duration,
		mimetype string,
	)
	RecordError(
		observedAt time.Time,
		packageName string,
		action string,
		cause ErrorCause,
		details string,
		attrs []Attribute,
	)
}

// Recorder captures structured gateway events into the process log.
// It must not:
// - perform I/O decisions
// - affect control flow
type Recorder struct {
	log zerolog.Logger
}

func NewRecorder(log zerolog.Logger) Recorder {
	return Recorder{log: log}
}

func (r *Recorder) RecordFetch(
	fetchURL string,
	status string,
	duration time.Duration,
	mimetype string,
) {
	r.log.Info().
		Str("url", fetchURL).
		Str("status", status).
		Dur("duration", duration).
		Str("mimetype", mimetype).
		Msg("fetch")
}

func (r *Recorder) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	details string,
	attrs []Attribute,
) {
	event := r.log.Warn().
		Time("observed_at", observedAt).
		Str("package", packageName).
		Str("action", action).
		Str("cause", cause.String()).
		Str("details", details)
	for _, attr := range attrs {
		event = event.Str(string(attr.Key()), attr.Value())
	}
	event.Msg("pipeline error")
}
