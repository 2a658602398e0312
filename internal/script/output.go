package script

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// SubtitleMode selects how subtitles reach the viewer.
type SubtitleMode string

const (
	SubtitleBurn SubtitleMode = "burn"
	SubtitleSRT  SubtitleMode = "srt"
	SubtitleVTT  SubtitleMode = "vtt"
	SubtitleNone SubtitleMode = "none"
)

// ObjectFit maps source media dimensions onto the output frame.
type ObjectFit string

const (
	FitContain ObjectFit = "contain"
	FitCover   ObjectFit = "cover"
	FitFill    ObjectFit = "fill"
)

// OutputSettings describes one encoded artifact requested by a script.
type OutputSettings struct {
	Name         string       `json:"name,omitempty" yaml:"name,omitempty"`
	AspectRatio  string       `json:"aspect_ratio,omitempty" yaml:"aspect_ratio,omitempty"`
	Width        int          `json:"width,omitempty" yaml:"width,omitempty"`
	Height       int          `json:"height,omitempty" yaml:"height,omitempty"`
	FPS          int          `json:"fps,omitempty" yaml:"fps,omitempty"`
	Codec        string       `json:"codec,omitempty" yaml:"codec,omitempty"`
	Preset       string       `json:"preset,omitempty" yaml:"preset,omitempty"`
	SubtitleMode SubtitleMode `json:"subtitle_mode,omitempty" yaml:"subtitle_mode,omitempty"`
	ObjectFit    ObjectFit    `json:"object_fit,omitempty" yaml:"object_fit,omitempty"`
}

// DefaultOutputSettings is the single landscape output used when a script
// declares none.
func DefaultOutputSettings() OutputSettings {
	s := OutputSettings{}
	s.applyDefaults()
	return s
}

func (s *OutputSettings) applyDefaults() {
	if s.AspectRatio == "" {
		s.AspectRatio = "16:9"
	}
	if s.FPS == 0 {
		s.FPS = 30
	}
	if s.Codec == "" {
		s.Codec = "libx264"
	}
	if s.Preset == "" {
		s.Preset = "medium"
	}
	if s.SubtitleMode == "" {
		s.SubtitleMode = SubtitleBurn
	}
	if s.ObjectFit == "" {
		s.ObjectFit = FitContain
	}
}

// Resolution returns the explicit width/height, deriving them from the
// aspect ratio when unset: landscape ratios use a fixed 1080 height,
// portrait a fixed 1920 height, square 1080x1080.
func (s OutputSettings) Resolution() (int, int) {
	if s.Width > 0 && s.Height > 0 {
		return s.Width, s.Height
	}
	switch s.AspectRatio {
	case "9:16":
		return 1080, 1920
	case "1:1":
		return 1080, 1080
	case "4:3":
		return 1440, 1080
	case "21:9":
		return 2520, 1080
	default: // 16:9
		return 1920, 1080
	}
}

// OutputList accepts either a single OutputSettings object or an ordered
// array of them, in both JSON and YAML.
type OutputList []OutputSettings

func (o *OutputList) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '[' {
		var many []OutputSettings
		if err := json.Unmarshal(data, &many); err != nil {
			return err
		}
		*o = many
		return nil
	}
	var one OutputSettings
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*o = OutputList{one}
	return nil
}

func (o OutputList) MarshalJSON() ([]byte, error) {
	if len(o) == 1 {
		return json.Marshal(o[0])
	}
	return json.Marshal([]OutputSettings(o))
}

func (o *OutputList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var many []OutputSettings
		if err := node.Decode(&many); err != nil {
			return err
		}
		*o = many
		return nil
	case yaml.MappingNode:
		var one OutputSettings
		if err := node.Decode(&one); err != nil {
			return err
		}
		*o = OutputList{one}
		return nil
	default:
		return fmt.Errorf("output must be a mapping or a sequence")
	}
}
