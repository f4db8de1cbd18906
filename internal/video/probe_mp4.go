package video

import (
	"fmt"
	"os"

	"github.com/Eyevinn/mp4ff/mp4"
)

// probeMP4 reads the first video track of a progressive or fragmented MP4.
// A box tree that mp4ff cannot walk is reported as an error so that the
// caller can fall back to ffprobe.
func probeMP4(path string) (info Info, err error) {
	fh, err := os.Open(path)
	if err != nil {
		return Info{}, err
	}
	defer fh.Close()
	defer func() {
		if r := recover(); r != nil {
			info, err = Info{}, fmt.Errorf("decoding mp4: %v", r)
		}
	}()

	f, err := mp4.DecodeFile(fh, mp4.WithDecodeMode(mp4.DecModeLazyMdat))
	if err != nil {
		return Info{}, fmt.Errorf("decoding mp4: %w", err)
	}
	if f.Moov == nil {
		return Info{}, fmt.Errorf("no moov box")
	}

	var trak *mp4.TrakBox
	for _, t := range f.Moov.Traks {
		if t.Mdia != nil && t.Mdia.Hdlr != nil && t.Mdia.Hdlr.HandlerType == "vide" {
			trak = t
			break
		}
	}
	if trak == nil {
		return Info{}, fmt.Errorf("no video track")
	}

	var stbl *mp4.StblBox
	if trak.Mdia.Minf != nil {
		stbl = trak.Mdia.Minf.Stbl
	}
	if stbl != nil && stbl.Stsd != nil {
		switch {
		case stbl.Stsd.AvcX != nil:
			info.Codec = "h264"
			info.Width, info.Height = int(stbl.Stsd.AvcX.Width), int(stbl.Stsd.AvcX.Height)
		case stbl.Stsd.HvcX != nil:
			info.Codec = "hevc"
			info.Width, info.Height = int(stbl.Stsd.HvcX.Width), int(stbl.Stsd.HvcX.Height)
		}
	}
	if (info.Width == 0 || info.Height == 0) && trak.Tkhd != nil {
		// tkhd dimensions are 16.16 fixed point
		info.Width = int(uint32(trak.Tkhd.Width) >> 16)
		info.Height = int(uint32(trak.Tkhd.Height) >> 16)
	}

	if !f.IsFragmented() {
		if stbl != nil && stbl.Stsz != nil {
			info.FrameCount = int(stbl.Stsz.SampleNumber)
		}
		mdhd := trak.Mdia.Mdhd
		if mdhd != nil && mdhd.Duration > 0 && info.FrameCount > 0 {
			info.FPS = float64(info.FrameCount) * float64(mdhd.Timescale) / float64(mdhd.Duration)
		}
		return info, nil
	}

	// Fragmented files carry their samples in moof boxes. The frame rate is
	// left to ffprobe since durations may live in trex defaults.
	if trak.Tkhd == nil {
		return info, nil
	}
	trackID := trak.Tkhd.TrackID
	for _, seg := range f.Segments {
		for _, frag := range seg.Fragments {
			if frag.Moof == nil {
				continue
			}
			for _, traf := range frag.Moof.Trafs {
				if traf.Tfhd == nil || traf.Tfhd.TrackID != trackID {
					continue
				}
				for _, trun := range traf.Truns {
					info.FrameCount += int(trun.SampleCount())
				}
			}
		}
	}
	return info, nil
}
