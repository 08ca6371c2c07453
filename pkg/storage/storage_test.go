package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSoundStore_SaveAndRemove(t *testing.T) {
	dir := t.TempDir()
	store, err := NewSoundStore(dir, "voicebot", "sln16")
	if err != nil {
		t.Fatalf("NewSoundStore() error = %v", err)
	}

	uri, err := store.Save("prompt-1", []byte{0x01, 0x02})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if uri != "sound:voicebot/prompt-1" {
		t.Errorf("Save() URI = %q, want sound:voicebot/prompt-1", uri)
	}

	path := filepath.Join(dir, "prompt-1.sln16")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("artifact not written: %v", err)
	}
	if len(data) != 2 {
		t.Errorf("artifact length = %d, want 2", len(data))
	}

	if err := store.Remove("prompt-1"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("artifact should be deleted")
	}
}

func TestSoundStore_RemoveMissingIsNotAnError(t *testing.T) {
	store, err := NewSoundStore(t.TempDir(), "voicebot", "sln16")
	if err != nil {
		t.Fatalf("NewSoundStore() error = %v", err)
	}

	if err := store.Remove("never-saved"); err != nil {
		t.Errorf("Remove() on missing artifact error = %v, want nil", err)
	}
}

func TestSoundStore_EmptyMediaBase(t *testing.T) {
	store, err := NewSoundStore(t.TempDir(), "", "sln16")
	if err != nil {
		t.Fatalf("NewSoundStore() error = %v", err)
	}

	uri, err := store.Save("prompt-1", []byte{0x01})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if uri != "sound:prompt-1" {
		t.Errorf("Save() URI = %q, want sound:prompt-1", uri)
	}
}

func TestNewSoundStore_RequiresBasePath(t *testing.T) {
	if _, err := NewSoundStore("", "voicebot", "sln16"); err == nil {
		t.Error("NewSoundStore() should reject an empty base path")
	}
}

func TestNewSoundStore_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "sounds")
	if _, err := NewSoundStore(dir, "voicebot", "sln16"); err != nil {
		t.Fatalf("NewSoundStore() error = %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Error("sounds directory should be created")
	}
}
