package video

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gocv.io/x/gocv"
)

var (
	// ErrVideoNotFound is returned when the video file does not exist
	ErrVideoNotFound = errors.New("video file not found")
	// ErrUnsupportedFormat is returned when the video file extension is
	// not in the configured supported formats
	ErrUnsupportedFormat = errors.New("unsupported video format")
	// ErrVideoRead is returned when the video file cannot be decoded
	ErrVideoRead = errors.New("failed to read video")
)

// Reader decodes a video file frame by frame using OpenCV.  It implements
// Source, producing every frame of the file in order.
type Reader struct {
	path string
	cap  *gocv.VideoCapture
	info VideoInfo
	next int
	img  gocv.Mat
	log  *slog.Logger
}

// OpenReader opens a video file, validating it exists and its extension
// is one of formats before handing it to OpenCV.
func OpenReader(path string, formats []string) (*Reader, error) {

	abs, err := filepath.Abs(path)

	if err != nil {
		return nil, fmt.Errorf("error resolving path: %w", err)
	}

	if _, err := os.Stat(abs); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrVideoNotFound, abs)
	}

	ext := strings.ToLower(filepath.Ext(abs))

	if !slices.Contains(formats, ext) {
		return nil, fmt.Errorf("%w: %s, supported: %s", ErrUnsupportedFormat,
			ext, strings.Join(formats, ", "))
	}

	cap, err := gocv.VideoCaptureFile(abs)

	if err != nil || !cap.IsOpened() {
		return nil, fmt.Errorf("%w: %s", ErrVideoRead, abs)
	}

	r := &Reader{
		path: abs,
		cap:  cap,
		img:  gocv.NewMat(),
		log:  slog.Default().With("component", "video"),
	}

	r.info = r.readInfo()
	r.log.Info("opened video", "path", filepath.Base(abs),
		"fps", r.info.FPS, "frames", r.info.TotalFrames)

	return r, nil
}

// Info returns the source video metadata.
func (r *Reader) Info() VideoInfo {
	return r.info
}

// Next decodes and returns the next frame of the video.  The returned
// Frame's Image is only valid until the following Next call.
func (r *Reader) Next() (Frame, bool, error) {

	if r.cap == nil {
		return Frame{}, false, fmt.Errorf("%w: capture released", ErrVideoRead)
	}

	if ok := r.cap.Read(&r.img); !ok || r.img.Empty() {
		// end of stream
		return Frame{}, false, nil
	}

	frame := Frame{
		Number:      r.next,
		TimestampMS: float64(r.next) / r.info.FPS * 1000.0,
		Image:       r.img,
	}

	r.next++

	return frame, true, nil
}

// Close releases the OpenCV capture resources.
func (r *Reader) Close() error {

	if r.cap == nil {
		return nil
	}

	err := r.cap.Close()
	r.cap = nil
	r.img.Close()

	r.log.Debug("released video capture", "path", filepath.Base(r.path))

	return err
}

// readInfo extracts the video metadata from the open capture.
func (r *Reader) readInfo() VideoInfo {

	total := int(r.cap.Get(gocv.VideoCaptureFrameCount))
	fps := r.cap.Get(gocv.VideoCaptureFPS)

	duration := 0.0
	if fps > 0 {
		duration = float64(total) / fps
	}

	// decode fourcc integer to string
	fourcc := int64(r.cap.Get(gocv.VideoCaptureFOURCC))
	codec := make([]byte, 4)
	for i := range codec {
		codec[i] = byte(fourcc >> (8 * i) & 0xFF)
	}

	return VideoInfo{
		Path:            r.path,
		TotalFrames:     total,
		FPS:             fps,
		Width:           int(r.cap.Get(gocv.VideoCaptureFrameWidth)),
		Height:          int(r.cap.Get(gocv.VideoCaptureFrameHeight)),
		DurationSeconds: duration,
		Codec:           string(codec),
	}
}
