package script

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kazuvin/teto/internal/teterr"
)

// The accepted top-level keys. Anything else in the document root is a
// validation error so typos fail loudly instead of silently defaulting.
var topLevelKeys = map[string]bool{
	"title": true, "scenes": true, "voice": true, "voice_profiles": true,
	"timing": true, "bgm": true, "bgm_sections": true, "output": true,
	"output_dir": true, "characters": true,
	"subtitle_style": true, "subtitle_styles": true,
	"default_preset": true, "default_effect": true, "description": true,
}

// Load reads a script from a JSON or YAML file, chosen by extension.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return ParseJSON(data)
	}
}

// ParseJSON decodes a UTF-8 JSON script, rejecting unknown top-level keys.
func ParseJSON(data []byte) (*Script, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, teterr.Wrap(teterr.Validation, err, "script is not valid JSON")
	}
	if err := checkTopLevel(keysOf(raw)); err != nil {
		return nil, err
	}

	var s Script
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, teterr.Wrap(teterr.Validation, err, "script structure is invalid")
	}
	s.applyDefaults()
	return &s, nil
}

// ParseYAML decodes a YAML script, rejecting unknown top-level keys.
func ParseYAML(data []byte) (*Script, error) {
	var raw map[string]yaml.Node
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, teterr.Wrap(teterr.Validation, err, "script is not valid YAML")
	}
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	if err := checkTopLevel(keys); err != nil {
		return nil, err
	}

	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, teterr.Wrap(teterr.Validation, err, "script structure is invalid")
	}
	s.applyDefaults()
	return &s, nil
}

func keysOf(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func checkTopLevel(keys []string) error {
	var unknown []string
	for _, k := range keys {
		if !topLevelKeys[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return teterr.New(teterr.Validation, "unknown top-level key(s): %s", strings.Join(unknown, ", "))
}

// Save writes the script as indented JSON.
func (s *Script) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
