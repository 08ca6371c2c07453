package call

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/troikatech/taxi-voicebot/internal/booking"
	"github.com/troikatech/taxi-voicebot/pkg/logger"
	"github.com/troikatech/taxi-voicebot/pkg/metrics"
)

// hangupTimeout bounds the unconditional hangup attempt on session exit.
// The parent context may already be cancelled by then.
const hangupTimeout = 5 * time.Second

// Session drives one call through the booking script: answer, greet,
// collect each slot with bounded retries, confirm, finalize. All work is
// strictly sequential; the only cross-goroutine entry point is Stop.
type Session struct {
	callID   string
	callerID string

	script     Script
	maxRetries int
	voice      string
	sampleRate int

	audio       *AudioAdapter
	channel     Channel
	transcriber Transcriber
	extractor   Extractor
	synthesizer Synthesizer
	dispatcher  Dispatcher
	logger      *zap.Logger

	running    atomic.Bool
	terminated bool

	// mu guards booking: the ops API reads it through Booking while the
	// session loop is merging into it.
	mu         sync.RWMutex
	booking    booking.Booking
	transcript booking.Transcript
}

// NewSession builds a session for one incoming call. maxRetries bounds the
// attempts per slot; voice selects the synthesis voice.
func NewSession(
	callID, callerID string,
	script Script,
	maxRetries int,
	voice string,
	sampleRate int,
	channel Channel,
	audio *AudioAdapter,
	transcriber Transcriber,
	synthesizer Synthesizer,
	extractor Extractor,
	dispatcher Dispatcher,
	log *zap.Logger,
) *Session {
	s := &Session{
		callID:      callID,
		callerID:    callerID,
		script:      script,
		maxRetries:  maxRetries,
		voice:       voice,
		sampleRate:  sampleRate,
		channel:     channel,
		audio:       audio,
		transcriber: transcriber,
		synthesizer: synthesizer,
		extractor:   extractor,
		dispatcher:  dispatcher,
		logger: log.With(
			zap.String("call_id", callID),
			logger.MaskPhoneIfPresent("caller", callerID),
		),
	}
	s.running.Store(true)
	return s
}

// CallID returns the telephony identifier of this session.
func (s *Session) CallID() string { return s.callID }

// CallerID returns the caller's phone number.
func (s *Session) CallerID() string { return s.callerID }

// Running reports whether the session is still allowed to proceed.
func (s *Session) Running() bool { return s.running.Load() }

// Booking returns a point-in-time copy of the collected slots.
func (s *Session) Booking() booking.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.booking.Snapshot()
}

// Stop signals the session to end. It is safe to call from any goroutine
// and takes effect at the next loop checkpoint, not inside an in-flight
// network call. Running is monotonic: it never flips back to true.
func (s *Session) Stop(reason string) {
	if s.running.CompareAndSwap(true, false) {
		s.logger.Info("Session stop requested", zap.String("reason", reason))
	}
}

// Run executes the whole call. A hangup is attempted on every exit path,
// whatever the outcome. Restarts after a rejected confirmation loop here
// explicitly rather than recursing.
func (s *Session) Run(ctx context.Context) {
	s.logger.Info("Session starting")
	metrics.RecordSessionStart()
	s.dispatcher.CallStarted(ctx, s.callID, s.callerID)

	outcome := metrics.OutcomeStopped
	defer func() {
		hctx, cancel := context.WithTimeout(context.Background(), hangupTimeout)
		defer cancel()
		if err := s.channel.Hangup(hctx); err != nil {
			s.logger.Debug("Hangup failed, channel may be gone", zap.Error(err))
		}
		s.dispatcher.CallEnded(hctx, s.callID, outcome)
		metrics.RecordSessionOutcome(outcome)
		s.logger.Info("Session ended", zap.String("outcome", outcome))
	}()

	if err := s.channel.Answer(ctx); err != nil {
		s.logger.Error("Failed to answer channel", zap.Error(err))
		return
	}

	for {
		s.say(ctx, s.script.Greeting)

		for _, field := range s.script.Fields {
			if !s.running.Load() {
				break
			}
			if !s.collectField(ctx, field) {
				break
			}
		}

		if !s.running.Load() {
			if s.terminated {
				outcome = metrics.OutcomeTerminated
			}
			return
		}
		if !s.booking.Complete() {
			s.logger.Error("Field loop finished with incomplete booking")
			return
		}

		if s.confirmBooking(ctx) {
			s.say(ctx, s.script.Done)
			s.finalize(ctx)
			outcome = metrics.OutcomeFinalized
			return
		}

		if !s.running.Load() {
			return
		}

		// Rejected: wipe everything and run the script again from the
		// greeting. There is deliberately no cap on restarts.
		s.logger.Info("Confirmation rejected, restarting collection")
		metrics.RecordRestart()
		s.mu.Lock()
		s.booking.Reset()
		s.mu.Unlock()
		s.transcript.Clear()
		s.say(ctx, s.script.Restart)
	}
}

// collectField asks for one slot up to maxRetries times. It returns true
// once the slot is filled. On exhaustion it speaks the operator apology and
// ends the session; no later field is ever asked.
func (s *Session) collectField(ctx context.Context, field FieldSpec) bool {
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		if !s.running.Load() {
			return false
		}

		question := field.Question
		if attempt > 1 {
			question = s.script.RetryPrefix + field.Question
		}
		s.say(ctx, question)
		s.transcript.Append(booking.RoleAssistant, question)

		res := s.audio.Record(ctx)
		switch res.Outcome {
		case ListenFailed:
			s.logger.Warn("Recording failed",
				zap.String("field", field.Name),
				zap.Int("attempt", attempt),
				zap.Error(res.Err),
			)
			metrics.RecordRetry(metrics.RetryRecordingFailed)
			continue
		case ListenNoAudio:
			s.logger.Info("No audio captured",
				zap.String("field", field.Name),
				zap.Int("attempt", attempt),
			)
			metrics.RecordRetry(metrics.RetryNoAudio)
			continue
		}

		text, err := s.transcribe(ctx, res.Audio)
		if err != nil {
			s.logger.Warn("Transcription failed",
				zap.String("field", field.Name),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			metrics.RecordRetry(metrics.RetryTranscriptionFailed)
			continue
		}
		if text == "" {
			s.logger.Info("Empty transcription",
				zap.String("field", field.Name),
				zap.Int("attempt", attempt),
			)
			metrics.RecordRetry(metrics.RetryEmptyTranscription)
			continue
		}
		s.transcript.Append(booking.RoleUser, text)

		partial, err := s.extractor.Extract(ctx, s.transcript.Turns(), s.booking.Snapshot(), s.callerID)
		if err != nil {
			s.logger.Warn("Extraction failed",
				zap.String("field", field.Name),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			metrics.RecordRetry(metrics.RetryExtractionFailed)
			continue
		}
		s.mu.Lock()
		s.booking.Merge(partial)
		s.mu.Unlock()

		if s.booking.IsSet(field.Name) {
			s.logger.Info("Slot filled",
				zap.String("field", field.Name),
				zap.Int("attempts", attempt),
			)
			return true
		}

		s.logger.Info("Slot still missing after extraction",
			zap.String("field", field.Name),
			zap.Int("attempt", attempt),
		)
		metrics.RecordRetry(metrics.RetrySlotNotFilled)
	}

	s.logger.Warn("Retries exhausted, handing off to operator",
		zap.String("field", field.Name),
		zap.Int("max_retries", s.maxRetries),
	)
	s.say(ctx, s.script.Apology)
	s.terminated = true
	s.running.Store(false)
	return false
}

// confirmBooking reads the summary back and listens once for the verdict.
// Anything that is not an affirmative reply, including silence or a failed
// transcription, counts as a rejection.
func (s *Session) confirmBooking(ctx context.Context) bool {
	summary := s.booking.Summary()
	s.say(ctx, summary)
	s.transcript.Append(booking.RoleAssistant, summary)

	res := s.audio.Record(ctx)
	if res.Outcome != ListenOK {
		s.logger.Info("No usable confirmation reply", zap.Error(res.Err))
		return false
	}

	reply, err := s.transcribe(ctx, res.Audio)
	if err != nil {
		s.logger.Warn("Confirmation transcription failed", zap.Error(err))
		return false
	}
	if reply == "" {
		return false
	}
	s.transcript.Append(booking.RoleUser, reply)

	accepted := booking.IsAffirmative(reply)
	s.logger.Info("Confirmation reply",
		zap.String("reply", reply),
		zap.Bool("accepted", accepted),
	)
	return accepted
}

func (s *Session) finalize(ctx context.Context) {
	s.logger.Info("Booking finalized",
		zap.Any("booking", s.booking.Snapshot()),
		zap.Int("transcript_turns", s.transcript.Len()),
	)
	if err := s.dispatcher.BookingFinalized(ctx, s.callID, s.callerID, s.booking.Snapshot()); err != nil {
		s.logger.Error("Failed to hand off finalized booking", zap.Error(err))
	}
}

// say synthesizes and plays one prompt. Failures are logged and swallowed:
// the caller may have heard nothing, but the flow always proceeds to
// listening.
func (s *Session) say(ctx context.Context, text string) {
	pcm, err := s.synthesizer.Synthesize(ctx, text, s.voice)
	if err != nil {
		s.logger.Warn("Synthesis failed", zap.String("text", text), zap.Error(err))
		return
	}
	if err := s.audio.Play(ctx, pcm); err != nil {
		s.logger.Warn("Playback failed", zap.String("text", text), zap.Error(err))
	}
}

// transcribe converts captured audio to trimmed text.
func (s *Session) transcribe(ctx context.Context, audio []byte) (string, error) {
	text, err := s.transcriber.Transcribe(ctx, audio, s.sampleRate)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
