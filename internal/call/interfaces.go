package call

import (
	"context"
	"time"

	"github.com/troikatech/taxi-voicebot/internal/booking"
)

// PlaybackHandle exposes the completion events of one playback request.
// Release must be called once the caller stops waiting on the handle, so
// event routing for the operation can be discarded.
type PlaybackHandle interface {
	Finished() <-chan struct{}
	Failed() <-chan error
	Release()
}

// RecordingHandle exposes the completion events of one recording request.
// Stop asks the platform to end the recording early. Release must be called
// once the caller stops waiting on the handle.
type RecordingHandle interface {
	Finished() <-chan struct{}
	Failed() <-chan error
	Stop(ctx context.Context) error
	Release()
}

// RecordOptions mirror the telephony platform's record parameters. Beep and
// DTMF termination are always off; this is a plain question/answer loop.
type RecordOptions struct {
	Format      string
	MaxDuration time.Duration
	MaxSilence  time.Duration
}

// Channel is the telephony leg bound to one call.
type Channel interface {
	Answer(ctx context.Context) error
	Play(ctx context.Context, mediaURI string) (PlaybackHandle, error)
	Record(ctx context.Context, name string, opts RecordOptions) (RecordingHandle, error)
	Hangup(ctx context.Context) error
}

// Recordings fetches and deletes stored recording artifacts by name.
// Fetch returns nil bytes with no error when the platform kept nothing
// (caller stayed silent and the recording was discarded).
type Recordings interface {
	Fetch(ctx context.Context, name string) ([]byte, error)
	Delete(ctx context.Context, name string) error
}

// SoundStore persists synthesized audio where the telephony platform can
// play it from, returning a playable media URI.
type SoundStore interface {
	Save(name string, pcm []byte) (string, error)
	Remove(name string) error
}

// Transcriber converts captured caller audio to text. Empty text with a nil
// error means the service heard nothing intelligible.
type Transcriber interface {
	Transcribe(ctx context.Context, pcm []byte, sampleRate int) (string, error)
}

// Synthesizer converts prompt text to raw PCM audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}

// Extractor returns a best-effort partial booking from the full conversation
// so far. It may return values for slots that are already filled; the
// session, not the extractor, enforces the null-only merge rule.
type Extractor interface {
	Extract(ctx context.Context, turns []booking.Turn, current booking.Booking, callerPhone string) (*booking.Booking, error)
}

// Dispatcher is the hand-off boundary for call records and finalized
// bookings. Implementations must tolerate being called on every exit path.
type Dispatcher interface {
	CallStarted(ctx context.Context, callID, callerID string)
	BookingFinalized(ctx context.Context, callID, callerID string, b booking.Booking) error
	CallEnded(ctx context.Context, callID, outcome string)
}
