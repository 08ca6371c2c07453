package ari

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// event is the envelope shared by all ARI websocket events; only the
// fields this application routes on are decoded.
type event struct {
	Type    string `json:"type"`
	Channel struct {
		ID     string `json:"id"`
		Caller struct {
			Number string `json:"number"`
		} `json:"caller"`
	} `json:"channel"`
	Playback struct {
		ID string `json:"id"`
	} `json:"playback"`
	Recording struct {
		Name  string `json:"name"`
		Cause string `json:"cause"`
	} `json:"recording"`
}

// Listen connects to the ARI event socket and dispatches events until ctx
// is cancelled. Connection drops are retried with a fixed backoff; waiters
// registered across a drop are failed so no session blocks forever.
func (c *Client) Listen(ctx context.Context) error {
	wsURL, err := c.eventsURL()
	if err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
		if err != nil {
			c.logger.Error("Failed to connect to ARI event socket", zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(3 * time.Second):
				continue
			}
		}

		c.logger.Info("ARI event socket connected", zap.String("app", c.appName))
		err = c.readEvents(ctx, conn)
		conn.Close()
		c.failAllWaiters(errors.New("ARI event socket disconnected"))

		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("ARI event socket dropped, reconnecting", zap.Error(err))
	}
}

func (c *Client) eventsURL() (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid ARI base URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/events"

	q := u.Query()
	q.Set("app", c.appName)
	q.Set("api_key", c.username+":"+c.password)
	q.Set("subscribeAll", "false")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) readEvents(ctx context.Context, conn *websocket.Conn) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		messageType, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Error("ARI websocket read error", zap.Error(err))
			}
			return err
		}
		if messageType != websocket.TextMessage {
			continue
		}
		c.dispatch(message)
	}
}

func (c *Client) dispatch(message []byte) {
	var ev event
	if err := json.Unmarshal(message, &ev); err != nil {
		c.logger.Warn("Failed to parse ARI event", zap.Error(err), zap.String("raw", string(message)))
		return
	}

	c.logger.Debug("ARI event", zap.String("type", ev.Type))

	switch ev.Type {
	case "StasisStart":
		if c.handler != nil {
			c.handler.CallStarted(ev.Channel.ID, ev.Channel.Caller.Number)
		}
	case "StasisEnd", "ChannelDestroyed":
		if c.handler != nil {
			c.handler.CallEnded(ev.Channel.ID)
		}
	case "PlaybackFinished":
		if w := c.takePlayback(ev.Playback.ID); w != nil {
			w.resolve()
		}
	case "PlaybackFailed":
		if w := c.takePlayback(ev.Playback.ID); w != nil {
			w.fail(fmt.Errorf("playback %s failed", ev.Playback.ID))
		}
	case "RecordingFinished":
		if w := c.takeRecording(ev.Recording.Name); w != nil {
			w.resolve()
		}
	case "RecordingFailed":
		if w := c.takeRecording(ev.Recording.Name); w != nil {
			w.fail(fmt.Errorf("recording %s failed: %s", ev.Recording.Name, ev.Recording.Cause))
		}
	}
}

// failAllWaiters unblocks every registered operation after a socket drop.
func (c *Client) failAllWaiters(err error) {
	c.mu.Lock()
	playbacks := c.playbacks
	recordings := c.recordings
	c.playbacks = make(map[string]*eventWaiter)
	c.recordings = make(map[string]*eventWaiter)
	c.mu.Unlock()

	for _, w := range playbacks {
		w.fail(err)
	}
	for _, w := range recordings {
		w.fail(err)
	}
}
