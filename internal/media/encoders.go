package media

import (
	"os/exec"
	"strings"
)

// DetectEncoder probes the local ffmpeg build for a hardware H.264 encoder
// and falls back to libx264. Preference order: VideoToolbox (macOS), NVENC.
func DetectEncoder() string {
	out, err := exec.Command("ffmpeg", "-hide_banner", "-encoders").CombinedOutput()
	if err != nil {
		return "libx264"
	}
	listing := string(out)
	for _, name := range []string{"h264_videotoolbox", "h264_nvenc"} {
		if strings.Contains(listing, name) {
			return name
		}
	}
	return "libx264"
}
