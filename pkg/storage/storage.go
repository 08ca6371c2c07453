package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// SoundStore writes synthesized audio into the telephony platform's sounds
// directory so a playback can reference it by sound: URI. Artifacts are
// short-lived; the audio adapter removes them right after playback.
type SoundStore struct {
	basePath  string
	mediaBase string
	extension string
}

// NewSoundStore creates a store rooted at basePath. mediaBase is the sound
// URI prefix the platform resolves against that directory (e.g. "voicebot"
// for /var/lib/asterisk/sounds/voicebot). extension must match the audio
// format written, without a leading dot.
func NewSoundStore(basePath, mediaBase, extension string) (*SoundStore, error) {
	if basePath == "" {
		return nil, fmt.Errorf("basePath is required")
	}
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create sounds directory: %w", err)
	}
	return &SoundStore{
		basePath:  basePath,
		mediaBase: mediaBase,
		extension: extension,
	}, nil
}

// Save writes the audio under name and returns the playable media URI.
func (s *SoundStore) Save(name string, pcm []byte) (string, error) {
	path := filepath.Join(s.basePath, name+"."+s.extension)
	if err := os.WriteFile(path, pcm, 0644); err != nil {
		return "", fmt.Errorf("failed to write sound file: %w", err)
	}
	if s.mediaBase == "" {
		return "sound:" + name, nil
	}
	return "sound:" + s.mediaBase + "/" + name, nil
}

// Remove deletes a stored artifact. Removing an already-gone artifact is
// not an error.
func (s *SoundStore) Remove(name string) error {
	path := filepath.Join(s.basePath, name+"."+s.extension)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove sound file: %w", err)
	}
	return nil
}
