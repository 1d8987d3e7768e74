//go:build !gstreamer

package loader

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// probeVideo sniffs the container signature without GStreamer. It
// catches missing, unreadable and obviously truncated files; deep
// stream validation needs the gstreamer build tag.
func probeVideo(path string) (VideoPayload, error) {
	f, err := os.Open(path)
	if err != nil {
		return VideoPayload{}, fmt.Errorf("probe %s: %w", path, err)
	}
	defer f.Close()

	// A file too short for a full signature is not probeable.
	header := make([]byte, 12)
	if _, err := io.ReadFull(f, header); err != nil {
		return VideoPayload{}, fmt.Errorf("probe %s: %w", path, err)
	}

	container, ok := sniffContainer(header)
	if !ok {
		return VideoPayload{}, fmt.Errorf("probe %s: unrecognised container", path)
	}
	return VideoPayload{Container: container}, nil
}

func sniffContainer(header []byte) (string, bool) {
	switch {
	case len(header) >= 8 && bytes.Equal(header[4:8], []byte("ftyp")):
		return "mp4", true
	case bytes.HasPrefix(header, []byte{0x1A, 0x45, 0xDF, 0xA3}):
		return "matroska", true
	case len(header) >= 12 && bytes.HasPrefix(header, []byte("RIFF")) && bytes.Equal(header[8:12], []byte("AVI ")):
		return "avi", true
	default:
		return "", false
	}
}
