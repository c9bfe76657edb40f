package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// defaultProbeTimeout bounds a single ffprobe invocation.
const defaultProbeTimeout = 30 * time.Second

// VideoExtractor probes container and stream properties via ffprobe.
type VideoExtractor struct {
	probeBin string
	timeout  time.Duration
}

// NewVideoExtractor creates a video extractor. An empty probeBin falls back
// to "ffprobe" on PATH; a non-positive timeout falls back to the default.
func NewVideoExtractor(probeBin string, timeout time.Duration) *VideoExtractor {
	if probeBin == "" {
		probeBin = "ffprobe"
	}
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	return &VideoExtractor{probeBin: probeBin, timeout: timeout}
}

func (e *VideoExtractor) Kind() Kind {
	return KindVideo
}

// probeOutput mirrors the subset of ffprobe's JSON output we read.
type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
		BitRate  string `json:"bit_rate"`
		Name     string `json:"format_name"`
	} `json:"format"`
	Streams []struct {
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
	} `json:"streams"`
}

// Extract returns video.* keys. A missing ffprobe binary is reported as
// unavailable; an overrun probe is reported as a timeout.
func (e *VideoExtractor) Extract(ctx context.Context, path string) (map[string]string, error) {
	probeCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(probeCtx, e.probeBin,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		if errors.Is(probeCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrTimeout, e.timeout)
		}
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	var probe probeOutput
	if err := json.Unmarshal(stdout.Bytes(), &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	values := map[string]string{}
	if probe.Format.Duration != "" {
		values["video.duration"] = probe.Format.Duration
	}
	if probe.Format.BitRate != "" {
		values["video.bit_rate"] = probe.Format.BitRate
	}
	if probe.Format.Name != "" {
		values["video.container"] = probe.Format.Name
	}

	for _, stream := range probe.Streams {
		switch stream.CodecType {
		case "video":
			if _, seen := values["video.codec"]; seen {
				continue
			}
			values["video.codec"] = stream.CodecName
			if stream.Width > 0 {
				values["video.width"] = fmt.Sprintf("%d", stream.Width)
			}
			if stream.Height > 0 {
				values["video.height"] = fmt.Sprintf("%d", stream.Height)
			}
			if stream.RFrameRate != "" {
				values["video.frame_rate"] = stream.RFrameRate
			}
		case "audio":
			if _, seen := values["video.audio_codec"]; !seen {
				values["video.audio_codec"] = stream.CodecName
			}
		}
	}

	return values, nil
}
