package ari

import (
	"context"
	"fmt"
)

// StoredRecordings reads and deletes finished recording artifacts. It
// satisfies the session's Recordings contract.
type StoredRecordings struct {
	client *Client
}

func (c *Client) StoredRecordings() *StoredRecordings {
	return &StoredRecordings{client: c}
}

// Fetch returns the raw audio of a stored recording. A 404 means the
// platform kept no artifact (pure silence); that is reported as nil bytes
// with no error.
func (s *StoredRecordings) Fetch(ctx context.Context, name string) ([]byte, error) {
	body, err := s.client.request(ctx, "GET",
		fmt.Sprintf("/recordings/stored/%s/file", name), nil)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return body, nil
}

func (s *StoredRecordings) Delete(ctx context.Context, name string) error {
	_, err := s.client.request(ctx, "DELETE",
		fmt.Sprintf("/recordings/stored/%s", name), nil)
	if err != nil && !IsNotFound(err) {
		return err
	}
	return nil
}
