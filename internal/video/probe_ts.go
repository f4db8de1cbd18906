package video

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/Comcast/gots/v2/packet"
	"github.com/Eyevinn/mp4ff/avc"
	"github.com/Eyevinn/mp4ff/hevc"
	"github.com/asticode/go-astits"
)

const (
	ptsWrap   = 1 << 33
	timeScale = 90000
)

func signedPTSDiff(p2, p1 int64) int64 {
	return (p2-p1+3*ptsWrap/2)%ptsWrap - ptsWrap/2
}

func calculateSteps(timestamps []int64) []int64 {
	if len(timestamps) < 2 {
		return nil
	}

	// PTS/DTS are 33-bit values, so it wraps around after 26.5 hours
	steps := make([]int64, len(timestamps)-1)
	for i := 0; i < len(timestamps)-1; i++ {
		steps[i] = signedPTSDiff(timestamps[i+1], timestamps[i])
	}
	return steps
}

// frameRate derives the frame rate from the average DTS step.
func frameRate(timestamps []int64) float64 {
	steps := calculateSteps(timestamps)
	if len(steps) == 0 {
		return 0
	}
	sum := int64(0)
	for _, s := range steps {
		sum += s
	}
	if sum <= 0 {
		return 0
	}
	return float64(timeScale) * float64(len(steps)) / float64(sum)
}

// probeTS demuxes an MPEG-TS file and reports its first AVC or HEVC stream.
// Every video PES is counted as one frame.
func probeTS(ctx context.Context, path string) (Info, error) {
	fh, err := os.Open(path)
	if err != nil {
		return Info{}, err
	}
	defer fh.Close()

	rd := bufio.NewReaderSize(fh, 1000*packetSize)
	if _, err := packet.Sync(rd); err != nil {
		return Info{}, fmt.Errorf("syncing with reader %w", err)
	}
	dmx := astits.NewDemuxer(ctx, rd)

	info := Info{}
	videoPID := -1
	var timestamps []int64
dataLoop:
	for {
		select {
		case <-ctx.Done():
			return Info{}, ctx.Err()
		default:
		}

		d, err := dmx.NextData()
		if err != nil {
			if errors.Is(err, astits.ErrNoMorePackets) {
				break dataLoop
			}
			return Info{}, fmt.Errorf("reading next data %w", err)
		}

		if videoPID < 0 && d.PMT != nil {
			for _, es := range d.PMT.ElementaryStreams {
				switch es.StreamType {
				case astits.StreamTypeH264Video:
					info.Codec = "h264"
				case astits.StreamTypeH265Video:
					info.Codec = "hevc"
				default:
					continue
				}
				videoPID = int(es.ElementaryPID)
				break
			}
		}
		if videoPID < 0 || d.PES == nil || int(d.PID) != videoPID {
			continue
		}

		pes := d.PES
		info.FrameCount++
		if oh := pes.Header.OptionalHeader; oh != nil {
			if oh.DTS != nil {
				timestamps = append(timestamps, oh.DTS.Base)
			} else if oh.PTS != nil {
				timestamps = append(timestamps, oh.PTS.Base)
			}
		}
		if info.Width == 0 {
			info.Width, info.Height = spsDimensions(info.Codec, pes.Data)
		}
	}

	if videoPID < 0 {
		return Info{}, fmt.Errorf("no AVC or HEVC stream in PMT")
	}
	info.FPS = frameRate(timestamps)
	return info, nil
}

// spsDimensions returns the display size, after cropping, from the first SPS
// in an Annex-B access unit, or zeros if there is none.
func spsDimensions(codec string, data []byte) (int, int) {
	for _, nalu := range avc.ExtractNalusFromByteStream(data) {
		if len(nalu) == 0 {
			continue
		}
		switch codec {
		case "h264":
			if avc.GetNaluType(nalu[0]) != avc.NALU_SPS {
				continue
			}
			sps, err := avc.ParseSPSNALUnit(nalu, false)
			if err != nil {
				return 0, 0
			}
			return int(sps.Width), int(sps.Height)
		case "hevc":
			if hevc.GetNaluType(nalu[0]) != hevc.NALU_SPS {
				continue
			}
			sps, err := hevc.ParseSPSNALUnit(nalu)
			if err != nil {
				return 0, 0
			}
			w, h := sps.ImageSize()
			return int(w), int(h)
		}
	}
	return 0, 0
}
