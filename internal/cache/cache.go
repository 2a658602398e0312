// Package cache is the content-addressed TTS audio store. Keys derive from
// the narration text plus the resolved voice configuration, so identical
// input yields identical keys across processes and machines; profile names
// never enter the key.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/kazuvin/teto/internal/script"
	"github.com/kazuvin/teto/internal/teterr"
)

// EnvCacheDir overrides the cache root when set.
const EnvCacheDir = "TETO_CACHE_DIR"

// Cache is a file-backed store rooted at a single directory. Writes are
// atomic (temp file + rename in the same directory), so concurrent
// writers for the same key are benign: the content is identical and the
// last rename wins.
type Cache struct {
	root string
}

// Info summarizes cache occupancy.
type Info struct {
	Root       string
	EntryCount int
	BytesUsed  int64
}

// DefaultRoot resolves the cache directory: TETO_CACHE_DIR, then the
// platform user cache dir (XDG_CACHE_HOME/teto/tts on Unix,
// %LOCALAPPDATA%\teto\tts on Windows).
func DefaultRoot() (string, error) {
	if dir := os.Getenv(EnvCacheDir); dir != "" {
		return dir, nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("cannot resolve user cache dir: %w", err)
	}
	return filepath.Join(base, "teto", "tts"), nil
}

// Open creates (if needed) and returns the cache at root. An empty root
// selects DefaultRoot.
func Open(root string) (*Cache, error) {
	if root == "" {
		var err error
		root, err = DefaultRoot()
		if err != nil {
			return nil, teterr.Wrap(teterr.CacheIO, err, "cache root unavailable")
		}
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, teterr.Wrap(teterr.CacheIO, err, "cannot create cache dir %s", root)
	}
	return &Cache{root: root}, nil
}

// Root returns the cache directory.
func (c *Cache) Root() string { return c.root }

// keyConfig lists exactly the voice fields that affect the audio. Field
// names match the canonical JSON the key hashes over; adding a field here
// invalidates existing entries for voices that set it.
type keyConfig struct {
	GeminiModelID string  `json:"gemini_model_id"`
	LanguageCode  string  `json:"language_code"`
	ModelID       string  `json:"model_id"`
	OutputFormat  string  `json:"output_format"`
	Pitch         float64 `json:"pitch"`
	Provider      string  `json:"provider"`
	Speed         float64 `json:"speed"`
	StylePrompt   string  `json:"style_prompt"`
	VoiceID       string  `json:"voice_id"`
	VoiceName     string  `json:"voice_name"`
}

type keyPayload struct {
	Config keyConfig `json:"config"`
	Text   string    `json:"text"`
}

// Key computes the 16-hex-char cache key for a text/voice pair: the
// truncated SHA-256 of a canonical JSON encoding (keys sorted, UTF-8, no
// insignificant whitespace).
func Key(text string, voice script.VoiceConfig) string {
	payload := keyPayload{
		Text: text,
		Config: keyConfig{
			Provider:      voice.Provider,
			VoiceID:       voice.VoiceID,
			LanguageCode:  voice.LanguageCode,
			Speed:         voice.Speed,
			Pitch:         voice.Pitch,
			ModelID:       voice.ModelID,
			OutputFormat:  voice.OutputFormat,
			VoiceName:     voice.VoiceName,
			GeminiModelID: voice.GeminiModelID,
			StylePrompt:   voice.StylePrompt,
		},
	}
	// Struct fields marshal in declaration order; keyPayload and keyConfig
	// declare them alphabetically to keep the encoding canonical.
	data, _ := json.Marshal(payload)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:16]
}

func (c *Cache) pathFor(key, ext string) string {
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return filepath.Join(c.root, key[:2], key+ext)
}

// Get returns the cached audio for the pair, or (nil, false) on a miss.
func (c *Cache) Get(text string, voice script.VoiceConfig, ext string) ([]byte, bool, error) {
	path := c.pathFor(Key(text, voice), ext)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, teterr.Wrap(teterr.CacheIO, err, "cannot read cache entry %s", path)
	}
	return data, true, nil
}

// Put stores audio under the pair's key. The write lands in a temp file in
// the destination directory and is renamed into place, so readers never
// observe a partial entry.
func (c *Cache) Put(text string, voice script.VoiceConfig, ext string, audio []byte) error {
	path := c.pathFor(Key(text, voice), ext)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return teterr.Wrap(teterr.CacheIO, err, "cannot create cache subdir %s", dir)
	}

	tmp, err := os.CreateTemp(dir, ".put-*")
	if err != nil {
		return teterr.Wrap(teterr.CacheIO, err, "cannot create temp cache file in %s", dir)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(audio); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return teterr.Wrap(teterr.CacheIO, err, "cannot write cache entry")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return teterr.Wrap(teterr.CacheIO, err, "cannot close cache entry")
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return teterr.Wrap(teterr.CacheIO, err, "cannot finalize cache entry %s", path)
	}
	return nil
}

// Has reports whether an entry exists without reading it.
func (c *Cache) Has(text string, voice script.VoiceConfig, ext string) bool {
	_, err := os.Stat(c.pathFor(Key(text, voice), ext))
	return err == nil
}

// Info walks the cache and reports entry count and total size.
func (c *Cache) Info() (Info, error) {
	info := Info{Root: c.root}
	err := filepath.WalkDir(c.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return err
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		info.EntryCount++
		info.BytesUsed += fi.Size()
		return nil
	})
	if err != nil {
		return info, teterr.Wrap(teterr.CacheIO, err, "cannot scan cache dir %s", c.root)
	}
	return info, nil
}

// Clear removes cached entries, keeping those newer than olderThan when it
// is non-zero. A file lock serializes clears against each other; readers
// and writers stay lock-free because entry writes are atomic.
func (c *Cache) Clear(olderThan time.Duration) (int, error) {
	lock := flock.New(filepath.Join(c.root, ".lock"))
	if err := lock.Lock(); err != nil {
		return 0, teterr.Wrap(teterr.CacheIO, err, "cannot lock cache dir %s", c.root)
	}
	defer lock.Unlock()

	cutoff := time.Now().Add(-olderThan)
	removed := 0
	err := filepath.WalkDir(c.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return err
		}
		if olderThan > 0 {
			fi, err := d.Info()
			if err != nil {
				return err
			}
			if fi.ModTime().After(cutoff) {
				return nil
			}
		}
		if err := os.Remove(path); err != nil {
			return err
		}
		removed++
		return nil
	})
	if err != nil {
		return removed, teterr.Wrap(teterr.CacheIO, err, "cache clear failed")
	}
	return removed, nil
}
