package call

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestAdapter(channel *fakeChannel, recordings *fakeRecordings, sounds *fakeSounds) *AudioAdapter {
	return NewAudioAdapter(channel, recordings, sounds, AudioConfig{
		Format:      "sln16",
		SampleRate:  16000,
		MaxDuration: 50 * time.Millisecond,
		MaxSilence:  20 * time.Millisecond,
	}, zap.NewNop())
}

func TestAudioAdapter_PlayRemovesArtifact(t *testing.T) {
	channel := &fakeChannel{}
	sounds := &fakeSounds{}
	adapter := newTestAdapter(channel, &fakeRecordings{}, sounds)

	if err := adapter.Play(context.Background(), []byte("pcm")); err != nil {
		t.Fatalf("Play() error = %v", err)
	}

	if len(sounds.saved) != 1 {
		t.Fatalf("saved artifacts = %d, want 1", len(sounds.saved))
	}
	if len(sounds.removed) != 1 || sounds.removed[0] != sounds.saved[0] {
		t.Errorf("artifact not removed after playback: saved %v, removed %v", sounds.saved, sounds.removed)
	}
	if len(channel.plays) != 1 {
		t.Errorf("plays = %d, want 1", len(channel.plays))
	}
}

func TestAudioAdapter_PlayFailedEvent(t *testing.T) {
	wantErr := errors.New("playback exploded")
	channel := &fakeChannel{playHandle: func() *fakeHandle { return newFailedHandle(wantErr) }}
	sounds := &fakeSounds{}
	adapter := newTestAdapter(channel, &fakeRecordings{}, sounds)

	err := adapter.Play(context.Background(), []byte("pcm"))
	if !errors.Is(err, wantErr) {
		t.Errorf("Play() error = %v, want %v", err, wantErr)
	}
	if len(sounds.removed) != 1 {
		t.Error("artifact must be removed even when playback fails")
	}
}

func TestAudioAdapter_PlayReleasesHandle(t *testing.T) {
	handle := newFinishedHandle()
	channel := &fakeChannel{playHandle: func() *fakeHandle { return handle }}
	adapter := newTestAdapter(channel, &fakeRecordings{}, &fakeSounds{})

	if err := adapter.Play(context.Background(), []byte("pcm")); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	if handle.releaseCalls != 1 {
		t.Errorf("release calls = %d, want 1", handle.releaseCalls)
	}
}

func TestAudioAdapter_PlayAbandonedReleasesHandle(t *testing.T) {
	handle := newPendingHandle()
	channel := &fakeChannel{playHandle: func() *fakeHandle { return handle }}
	adapter := newTestAdapter(channel, &fakeRecordings{}, &fakeSounds{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := adapter.Play(ctx, []byte("pcm")); err == nil {
		t.Fatal("Play() should fail on cancelled context")
	}
	if handle.releaseCalls != 1 {
		t.Errorf("abandoned playback not released: release calls = %d, want 1", handle.releaseCalls)
	}
}

func TestAudioAdapter_PlayStartFailureRemovesArtifact(t *testing.T) {
	channel := &fakeChannel{playErr: errors.New("channel gone")}
	sounds := &fakeSounds{}
	adapter := newTestAdapter(channel, &fakeRecordings{}, sounds)

	if err := adapter.Play(context.Background(), []byte("pcm")); err == nil {
		t.Fatal("Play() should fail when the channel rejects the playback")
	}
	if len(sounds.removed) != 1 {
		t.Error("artifact must be removed when playback cannot start")
	}
}

func TestAudioAdapter_RecordOK(t *testing.T) {
	channel := &fakeChannel{}
	recordings := &fakeRecordings{queue: [][]byte{[]byte("caller audio")}}
	adapter := newTestAdapter(channel, recordings, &fakeSounds{})

	res := adapter.Record(context.Background())
	if res.Outcome != ListenOK {
		t.Fatalf("outcome = %v, want ListenOK", res.Outcome)
	}
	if string(res.Audio) != "caller audio" {
		t.Errorf("audio = %q", res.Audio)
	}
	if len(recordings.deleted) != 1 {
		t.Error("stored recording must be deleted after reading")
	}
	if len(channel.records) != 1 {
		t.Fatalf("records = %d, want 1", len(channel.records))
	}
	opts := channel.records[0]
	if opts.Format != "sln16" || opts.MaxDuration != 50*time.Millisecond {
		t.Errorf("unexpected record options: %+v", opts)
	}
}

func TestAudioAdapter_RecordEmptyIsNoAudio(t *testing.T) {
	recordings := &fakeRecordings{queue: [][]byte{{}}}
	adapter := newTestAdapter(&fakeChannel{}, recordings, &fakeSounds{})

	res := adapter.Record(context.Background())
	if res.Outcome != ListenNoAudio {
		t.Errorf("outcome = %v, want ListenNoAudio", res.Outcome)
	}
}

func TestAudioAdapter_RecordFailedEvent(t *testing.T) {
	wantErr := errors.New("recording exploded")
	channel := &fakeChannel{recordHandle: func() *fakeHandle { return newFailedHandle(wantErr) }}
	adapter := newTestAdapter(channel, &fakeRecordings{}, &fakeSounds{})

	res := adapter.Record(context.Background())
	if res.Outcome != ListenFailed {
		t.Fatalf("outcome = %v, want ListenFailed", res.Outcome)
	}
	if !errors.Is(res.Err, wantErr) {
		t.Errorf("err = %v, want %v", res.Err, wantErr)
	}
}

func TestAudioAdapter_RecordTimeoutStopsRecording(t *testing.T) {
	handle := newPendingHandle()
	channel := &fakeChannel{recordHandle: func() *fakeHandle { return handle }}
	recordings := &fakeRecordings{queue: [][]byte{[]byte("late audio")}}
	adapter := newTestAdapter(channel, recordings, &fakeSounds{})

	res := adapter.Record(context.Background())
	if res.Outcome != ListenOK {
		t.Fatalf("outcome = %v, want ListenOK after timeout", res.Outcome)
	}
	if handle.stopCalls != 1 {
		t.Errorf("stop calls = %d, want 1", handle.stopCalls)
	}
	if string(res.Audio) != "late audio" {
		t.Errorf("audio = %q", res.Audio)
	}
	if handle.releaseCalls != 1 {
		t.Errorf("release calls = %d, want 1", handle.releaseCalls)
	}
}

func TestAudioAdapter_RecordFetchFailure(t *testing.T) {
	recordings := &fakeRecordings{fetchErr: errors.New("artifact missing")}
	adapter := newTestAdapter(&fakeChannel{}, recordings, &fakeSounds{})

	res := adapter.Record(context.Background())
	if res.Outcome != ListenFailed {
		t.Errorf("outcome = %v, want ListenFailed", res.Outcome)
	}
}

func TestAudioAdapter_RecordContextCancelled(t *testing.T) {
	handle := newPendingHandle()
	channel := &fakeChannel{recordHandle: func() *fakeHandle { return handle }}
	adapter := newTestAdapter(channel, &fakeRecordings{}, &fakeSounds{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := adapter.Record(ctx)
	if res.Outcome != ListenFailed {
		t.Errorf("outcome = %v, want ListenFailed on cancelled context", res.Outcome)
	}
	if handle.releaseCalls != 1 {
		t.Errorf("abandoned recording not released: release calls = %d, want 1", handle.releaseCalls)
	}
}
