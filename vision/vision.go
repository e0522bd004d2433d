// Package vision extracts training frames from video files.
//
// Probing and extraction shell out to ffprobe and ffmpeg; the optional
// resize pass runs in process.
package vision

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/KhanhRomVN/termi-tool/applog"
)

// Runner executes an external command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// runCommand is the default Runner.
func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("%s: %v: %s", name, err, bytes.TrimSpace(out))
	}
	return out, nil
}

// VideoInfo describes the primary video stream of a file.
type VideoInfo struct {
	Width     int
	Height    int
	FrameRate float64 // Frames per second.
	Duration  float64 // Seconds; zero when the container does not store it.
}

// Extractor wraps the ffmpeg tool pair.
type Extractor struct {
	FFmpeg  string
	FFprobe string
	Run     Runner
}

// NewExtractor creates an Extractor using the given binary names or paths.
func NewExtractor(ffmpeg, ffprobe string) *Extractor {
	return &Extractor{FFmpeg: ffmpeg, FFprobe: ffprobe, Run: runCommand}
}

// Probe returns the stream properties of the video at path.
func (e *Extractor) Probe(ctx context.Context, path string) (VideoInfo, error) {
	if _, err := os.Stat(path); err != nil {
		return VideoInfo{}, fmt.Errorf("cannot access video %q: %v", path, err)
	}

	out, err := e.Run(ctx, e.FFprobe,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,r_frame_rate,duration",
		"-of", "csv=p=0",
		path)
	if err != nil {
		return VideoInfo{}, err
	}

	return parseProbeOutput(string(out))
}

// parseProbeOutput parses the csv emitted by ffprobe:
// "width,height,num/den,duration".
func parseProbeOutput(out string) (VideoInfo, error) {
	fields := strings.Split(strings.TrimSpace(out), ",")
	if len(fields) < 3 {
		return VideoInfo{}, fmt.Errorf("unexpected ffprobe output %q", strings.TrimSpace(out))
	}

	var info VideoInfo
	var err error
	if info.Width, err = strconv.Atoi(fields[0]); err != nil {
		return VideoInfo{}, fmt.Errorf("unexpected ffprobe width %q", fields[0])
	}
	if info.Height, err = strconv.Atoi(fields[1]); err != nil {
		return VideoInfo{}, fmt.Errorf("unexpected ffprobe height %q", fields[1])
	}

	// The frame rate is a rational like "30000/1001".
	if num, den, found := strings.Cut(fields[2], "/"); found {
		n, errN := strconv.ParseFloat(num, 64)
		d, errD := strconv.ParseFloat(den, 64)
		if errN == nil && errD == nil && d != 0 {
			info.FrameRate = n / d
		}
	} else if v, err := strconv.ParseFloat(fields[2], 64); err == nil {
		info.FrameRate = v
	}

	// Some containers report no duration; leave it at zero then.
	if len(fields) >= 4 {
		if v, err := strconv.ParseFloat(fields[3], 64); err == nil {
			info.Duration = v
		}
	}

	return info, nil
}

// ExtractFrames saves every interval-th frame of the video to outDir as
// frame_NNNNN.jpg and returns the number of frames written. The output
// directory is created if absent.
func (e *Extractor) ExtractFrames(ctx context.Context, videoPath, outDir string, interval int) (int, error) {
	if interval <= 0 {
		return 0, fmt.Errorf("frame interval must be positive, got %d", interval)
	}
	if _, err := os.Stat(videoPath); err != nil {
		return 0, fmt.Errorf("cannot access video %q: %v", videoPath, err)
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return 0, fmt.Errorf("cannot create directory %q: %v", outDir, err)
	}

	_, err := e.Run(ctx, e.FFmpeg,
		"-hide_banner",
		"-loglevel", "error",
		"-i", videoPath,
		"-vf", fmt.Sprintf("select=not(mod(n\\,%d))", interval),
		"-vsync", "vfr",
		"-q:v", "2",
		filepath.Join(outDir, "frame_%05d.jpg"))
	if err != nil {
		return 0, err
	}

	frames, err := filepath.Glob(filepath.Join(outDir, "frame_*.jpg"))
	if err != nil {
		return 0, err
	}

	applog.Info(applog.Fields{
		"video":    videoPath,
		"interval": interval,
		"frames":   len(frames),
		"out_dir":  outDir,
	}, "extracted video frames")

	return len(frames), nil
}
