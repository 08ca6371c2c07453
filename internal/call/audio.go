package call

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/troikatech/taxi-voicebot/pkg/metrics"
)

// playbackSafetyTimeout caps how long we wait for a playback-finished event
// before assuming the prompt played (or is abandoned) and moving on.
const playbackSafetyTimeout = 30 * time.Second

// ListenOutcome tags what a recording attempt produced, so silence, caller
// hangup and platform failures stay distinguishable.
type ListenOutcome int

const (
	ListenOK ListenOutcome = iota
	ListenNoAudio
	ListenFailed
)

// ListenResult carries the captured audio (only for ListenOK) and the
// failure, if any, for logging.
type ListenResult struct {
	Outcome ListenOutcome
	Audio   []byte
	Err     error
}

// AudioConfig holds the recording and format parameters for one session.
type AudioConfig struct {
	Format      string
	SampleRate  int
	MaxDuration time.Duration
	MaxSilence  time.Duration
}

// AudioAdapter turns synthesized PCM into channel playback and channel
// recordings into PCM bytes. Play and Record are never run concurrently
// within a session; the question/answer loop is half-duplex.
type AudioAdapter struct {
	channel    Channel
	recordings Recordings
	sounds     SoundStore
	cfg        AudioConfig
	logger     *zap.Logger
}

func NewAudioAdapter(channel Channel, recordings Recordings, sounds SoundStore, cfg AudioConfig, logger *zap.Logger) *AudioAdapter {
	return &AudioAdapter{
		channel:    channel,
		recordings: recordings,
		sounds:     sounds,
		cfg:        cfg,
		logger:     logger,
	}
}

// Play stores the synthesized audio, plays it on the channel and blocks
// until the playback finishes, fails, or the safety timeout passes. The
// timeout resolves the wait successfully; only an explicit playback-failed
// event is an error. The stored artifact is removed on every path.
func (a *AudioAdapter) Play(ctx context.Context, pcm []byte) error {
	name := uuid.NewString()

	mediaURI, err := a.sounds.Save(name, pcm)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.sounds.Remove(name); err != nil {
			a.logger.Debug("Failed to remove playback artifact", zap.String("name", name), zap.Error(err))
		}
	}()

	start := time.Now()
	handle, err := a.channel.Play(ctx, mediaURI)
	if err != nil {
		metrics.RecordServiceCall("ari_play", false, time.Since(start))
		return err
	}
	defer handle.Release()

	timer := time.NewTimer(playbackSafetyTimeout)
	defer timer.Stop()

	select {
	case <-handle.Finished():
		metrics.RecordServiceCall("ari_play", true, time.Since(start))
		return nil
	case err := <-handle.Failed():
		metrics.RecordServiceCall("ari_play", false, time.Since(start))
		return err
	case <-timer.C:
		a.logger.Warn("Playback did not report completion, continuing", zap.String("media", mediaURI))
		metrics.RecordServiceCall("ari_play", true, time.Since(start))
		return nil
	case <-ctx.Done():
		metrics.RecordServiceCall("ari_play", false, time.Since(start))
		return ctx.Err()
	}
}

// Record starts a bounded channel recording and blocks until it finishes,
// fails, or a safety timeout of max duration plus one second passes. On
// timeout the recording is asked to stop before the artifact is read. The
// stored artifact is always deleted after reading.
func (a *AudioAdapter) Record(ctx context.Context) ListenResult {
	name := uuid.NewString()

	start := time.Now()
	handle, err := a.channel.Record(ctx, name, RecordOptions{
		Format:      a.cfg.Format,
		MaxDuration: a.cfg.MaxDuration,
		MaxSilence:  a.cfg.MaxSilence,
	})
	if err != nil {
		metrics.RecordServiceCall("ari_record", false, time.Since(start))
		return ListenResult{Outcome: ListenFailed, Err: err}
	}
	defer handle.Release()

	timer := time.NewTimer(a.cfg.MaxDuration + time.Second)
	defer timer.Stop()

	select {
	case <-handle.Finished():
	case err := <-handle.Failed():
		metrics.RecordServiceCall("ari_record", false, time.Since(start))
		return ListenResult{Outcome: ListenFailed, Err: err}
	case <-timer.C:
		a.logger.Warn("Recording did not report completion, stopping it", zap.String("name", name))
		if err := handle.Stop(ctx); err != nil {
			a.logger.Debug("Failed to stop overdue recording", zap.String("name", name), zap.Error(err))
		}
	case <-ctx.Done():
		metrics.RecordServiceCall("ari_record", false, time.Since(start))
		return ListenResult{Outcome: ListenFailed, Err: ctx.Err()}
	}

	audio, err := a.recordings.Fetch(ctx, name)
	if err != nil {
		metrics.RecordServiceCall("ari_record", false, time.Since(start))
		return ListenResult{Outcome: ListenFailed, Err: err}
	}
	if err := a.recordings.Delete(ctx, name); err != nil {
		a.logger.Debug("Failed to delete stored recording", zap.String("name", name), zap.Error(err))
	}

	metrics.RecordServiceCall("ari_record", true, time.Since(start))
	if len(audio) == 0 {
		return ListenResult{Outcome: ListenNoAudio}
	}
	return ListenResult{Outcome: ListenOK, Audio: audio}
}
