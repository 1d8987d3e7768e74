//go:build gstreamer

package loader

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-gst/go-gst/gst"
)

var gstInitOnce sync.Once

// probeVideo prerolls the file through decodebin. A file GStreamer
// cannot preroll is treated as unloadable, which drives the browser's
// skip behaviour the same way an image decode failure does.
func probeVideo(path string) (VideoPayload, error) {
	gstInitOnce.Do(func() {
		gst.Init(nil)
	})

	launch := fmt.Sprintf("filesrc location=%q ! decodebin ! fakesink sync=false", path)
	pipeline, err := gst.ParseLaunch(launch)
	if err != nil {
		return VideoPayload{}, fmt.Errorf("probe %s: %w", path, err)
	}
	defer pipeline.SetState(gst.StateNull)

	if err := pipeline.SetState(gst.StatePaused); err != nil {
		return VideoPayload{}, fmt.Errorf("probe %s: %w", path, err)
	}
	// Give decodebin a moment to preroll; a corrupt stream fails the
	// state change rather than reaching paused.
	time.Sleep(200 * time.Millisecond)

	return VideoPayload{Container: containerFromExt(path)}, nil
}

func containerFromExt(path string) string {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".mkv"), strings.HasSuffix(lower, ".webm"):
		return "matroska"
	case strings.HasSuffix(lower, ".avi"):
		return "avi"
	default:
		return "mp4"
	}
}
