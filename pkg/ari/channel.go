package ari

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"github.com/troikatech/taxi-voicebot/internal/call"
)

// ChannelHandle binds the client to one channel ID and implements the
// session's Channel contract.
type ChannelHandle struct {
	client *Client
	id     string
}

func (c *Client) Channel(id string) *ChannelHandle {
	return &ChannelHandle{client: c, id: id}
}

func (ch *ChannelHandle) ID() string { return ch.id }

func (ch *ChannelHandle) Answer(ctx context.Context) error {
	_, err := ch.client.request(ctx, "POST", fmt.Sprintf("/channels/%s/answer", ch.id), nil)
	return err
}

func (ch *ChannelHandle) Hangup(ctx context.Context) error {
	_, err := ch.client.request(ctx, "DELETE", fmt.Sprintf("/channels/%s", ch.id), nil)
	return err
}

// Play starts a playback with a client-chosen playback ID so the completion
// events can be routed back before the REST call even returns.
func (ch *ChannelHandle) Play(ctx context.Context, mediaURI string) (call.PlaybackHandle, error) {
	playbackID := uuid.NewString()
	waiter := ch.client.registerPlayback(playbackID)

	query := url.Values{}
	query.Set("media", mediaURI)

	_, err := ch.client.request(ctx, "POST",
		fmt.Sprintf("/channels/%s/play/%s", ch.id, playbackID), query)
	if err != nil {
		ch.client.dropPlayback(playbackID)
		return nil, err
	}
	return &playbackHandle{client: ch.client, id: playbackID, waiter: waiter}, nil
}

// Record starts a live recording named by the caller. Beep and DTMF
// termination are disabled; the platform ends the recording on max
// duration or max silence.
func (ch *ChannelHandle) Record(ctx context.Context, name string, opts call.RecordOptions) (call.RecordingHandle, error) {
	waiter := ch.client.registerRecording(name)

	query := url.Values{}
	query.Set("name", name)
	query.Set("format", opts.Format)
	query.Set("maxDurationSeconds", strconv.Itoa(int(opts.MaxDuration.Seconds())))
	query.Set("maxSilenceSeconds", strconv.FormatFloat(opts.MaxSilence.Seconds(), 'f', -1, 64))
	query.Set("beep", "false")
	query.Set("terminateOn", "none")
	query.Set("ifExists", "overwrite")

	_, err := ch.client.request(ctx, "POST",
		fmt.Sprintf("/channels/%s/record", ch.id), query)
	if err != nil {
		ch.client.dropRecording(name)
		return nil, err
	}
	return &recordingHandle{client: ch.client, name: name, waiter: waiter}, nil
}

type playbackHandle struct {
	client *Client
	id     string
	waiter *eventWaiter
}

func (h *playbackHandle) Finished() <-chan struct{} { return h.waiter.finished }
func (h *playbackHandle) Failed() <-chan error      { return h.waiter.failed }

// Release drops the playback's event routing. Abandoned playbacks would
// otherwise sit in the client's waiter map until a late event or a socket
// drop cleared them.
func (h *playbackHandle) Release() { h.client.dropPlayback(h.id) }

type recordingHandle struct {
	client *Client
	name   string
	waiter *eventWaiter
}

func (h *recordingHandle) Finished() <-chan struct{} { return h.waiter.finished }
func (h *recordingHandle) Failed() <-chan error      { return h.waiter.failed }

// Release drops the recording's event routing.
func (h *recordingHandle) Release() { h.client.dropRecording(h.name) }

func (h *recordingHandle) Stop(ctx context.Context) error {
	_, err := h.client.request(ctx, "POST",
		fmt.Sprintf("/recordings/live/%s/stop", h.name), nil)
	return err
}
