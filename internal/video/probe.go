package video

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

const (
	ContainerMP4     = "mp4"
	ContainerMPEGTS  = "mpegts"
	ContainerUnknown = "other"

	packetSize = 188
)

// Prober reads stream metadata. MP4 and MPEG-TS files are parsed in-process;
// other containers, and anything the parsers cannot determine, are handed to
// ffprobe.
type Prober struct {
	FFprobe string
}

// NewProber returns a Prober that uses the given ffprobe binary.
func NewProber(ffprobe string) *Prober {
	return &Prober{FFprobe: ffprobe}
}

// Probe returns the metadata of the first video stream in path.
func (p *Prober) Probe(ctx context.Context, path string) (Info, error) {
	container, err := sniffContainer(path)
	if err != nil {
		return Info{}, &StreamOpenError{Path: path, Err: err}
	}
	info := Info{Path: path, Container: container}

	var parsed Info
	switch container {
	case ContainerMP4:
		parsed, err = probeMP4(path)
	case ContainerMPEGTS:
		parsed, err = probeTS(ctx, path)
	}
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"path":      path,
			"container": container,
			"error":     err,
		}).Debug("container parse incomplete, falling back to ffprobe")
	}
	info.fill(parsed)

	if !info.complete() {
		ext, err := p.ffprobe(ctx, path)
		if err != nil {
			return Info{}, &StreamOpenError{Path: path, Err: err}
		}
		info.fill(ext)
	}
	if !info.complete() {
		return Info{}, &StreamOpenError{Path: path, Err: fmt.Errorf("no usable video stream (%dx%d @ %.3f fps)", info.Width, info.Height, info.FPS)}
	}

	logrus.WithFields(logrus.Fields{
		"path":      path,
		"container": info.Container,
		"codec":     info.Codec,
		"width":     info.Width,
		"height":    info.Height,
		"fps":       info.FPS,
		"frames":    info.FrameCount,
	}).Debug("probed video")
	return info, nil
}

func sniffContainer(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	head := make([]byte, 2*packetSize+1)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		if err == io.EOF {
			return "", fmt.Errorf("empty file")
		}
		return "", err
	}
	head = head[:n]
	return detectContainer(head), nil
}

func detectContainer(head []byte) string {
	if len(head) >= 8 && bytes.Equal(head[4:8], []byte("ftyp")) {
		return ContainerMP4
	}
	if len(head) > packetSize && head[0] == 0x47 && head[packetSize] == 0x47 {
		return ContainerMPEGTS
	}
	return ContainerUnknown
}
