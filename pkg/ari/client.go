package ari

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// EventHandler receives call lifecycle notifications from the event socket.
type EventHandler interface {
	CallStarted(channelID, callerNumber string)
	CallEnded(channelID string)
}

// Client talks to an Asterisk REST Interface: channel operations over HTTP
// and completion events over a websocket. One client serves all concurrent
// calls of the application.
type Client struct {
	baseURL    string
	username   string
	password   string
	appName    string
	httpClient *http.Client
	logger     *zap.Logger

	handler EventHandler

	mu         sync.Mutex
	playbacks  map[string]*eventWaiter
	recordings map[string]*eventWaiter
}

func NewClient(baseURL, username, password, appName string, handler EventHandler, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		username:   username,
		password:   password,
		appName:    appName,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
		handler:    handler,
		playbacks:  make(map[string]*eventWaiter),
		recordings: make(map[string]*eventWaiter),
	}
}

// eventWaiter bridges one asynchronous operation to its completion events.
type eventWaiter struct {
	finished chan struct{}
	failed   chan error
	once     sync.Once
}

func newEventWaiter() *eventWaiter {
	return &eventWaiter{
		finished: make(chan struct{}),
		failed:   make(chan error, 1),
	}
}

func (w *eventWaiter) resolve() {
	w.once.Do(func() { close(w.finished) })
}

func (w *eventWaiter) fail(err error) {
	w.once.Do(func() { w.failed <- err })
}

func (c *Client) registerPlayback(id string) *eventWaiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	w := newEventWaiter()
	c.playbacks[id] = w
	return w
}

func (c *Client) registerRecording(name string) *eventWaiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	w := newEventWaiter()
	c.recordings[name] = w
	return w
}

func (c *Client) takePlayback(id string) *eventWaiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	w := c.playbacks[id]
	delete(c.playbacks, id)
	return w
}

func (c *Client) takeRecording(name string) *eventWaiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	w := c.recordings[name]
	delete(c.recordings, name)
	return w
}

func (c *Client) dropPlayback(id string) {
	c.mu.Lock()
	delete(c.playbacks, id)
	c.mu.Unlock()
}

func (c *Client) dropRecording(name string) {
	c.mu.Lock()
	delete(c.recordings, name)
	c.mu.Unlock()
}

// request performs one REST call against ARI and returns the raw body.
// Non-2xx statuses are errors carrying the response text.
func (c *Client) request(ctx context.Context, method, path string, query url.Values) ([]byte, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &apiError{Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

type apiError struct {
	Status int
	Body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("ARI error: %d - %s", e.Status, e.Body)
}

// IsNotFound reports whether err is an ARI 404 response.
func IsNotFound(err error) bool {
	apiErr, ok := err.(*apiError)
	return ok && apiErr.Status == http.StatusNotFound
}
