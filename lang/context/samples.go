package context

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-audio/wav"
	"golang.org/x/sync/errgroup"

	"github.com/mna/bktk/lang/compiler"
)

// LoadedSample is the rendering-ready form of a compiler.Sample: its
// frame table decoded to signed 32-bit samples, first channel only (spec.md
// never models multi-channel playback). Def stays attached
// so a synth.Track can still read pitch/repeat/range metadata off it.
type LoadedSample struct {
	Def    *compiler.Sample
	Frames []int32
}

// loadSamples resolves every compiler.Sample's PCM data: `samp … load wav`
// entries are read concurrently, one goroutine per file, via
// golang.org/x/sync/errgroup (spec.md §4.3: "WAV loading is deferred to
// Context creation"; §8 seed scenario 5). Embedded `data` entries need no
// I/O and are decoded inline. The returned slice is indexed exactly like
// defs, independent of goroutine completion order.
func loadSamples(ctx context.Context, defs []*compiler.Sample, searchPath string) ([]*LoadedSample, error) {
	out := make([]*LoadedSample, len(defs))
	g, gctx := errgroup.WithContext(ctx)
	for i, def := range defs {
		if def == nil {
			continue
		}
		i, def := i, def
		out[i] = &LoadedSample{Def: def}
		if def.WAVPath == "" {
			frames, err := decodeEmbedded(def)
			if err != nil {
				return nil, fmt.Errorf("sample %q: %w", def.Name, err)
			}
			out[i].Frames = frames
			continue
		}
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			frames, err := loadWAV(filepath.Join(searchPath, def.WAVPath))
			if err != nil {
				return fmt.Errorf("sample %q: %w", def.Name, err)
			}
			out[i].Frames = frames
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, ls := range out {
		if ls == nil {
			continue
		}
		if msg, bad := validateFrameBounds(ls.Def, len(ls.Frames)); bad {
			return nil, fmt.Errorf("sample %q: %s", ls.Def.Name, msg)
		}
	}
	return out, nil
}

// loadWAV reads and decodes path via github.com/go-audio/wav, keeping only
// the first channel of the decoded PCM buffer.
func loadWAV(path string) ([]int32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	chans := buf.Format.NumChannels
	if chans < 1 {
		chans = 1
	}
	frames := make([]int32, 0, len(buf.Data)/chans)
	for i := 0; i < len(buf.Data); i += chans {
		frames = append(frames, int32(buf.Data[i]))
	}
	return frames, nil
}

// decodeEmbedded decodes a `samp ... data bits[s|u][b|l] <literal>` block
// into int32 frames, honoring the bit width, signedness, and endianness the
// compiler already parsed off the sub-command (spec.md §4.3's Samples row).
func decodeEmbedded(s *compiler.Sample) ([]int32, error) {
	if len(s.Data) == 0 {
		return nil, nil
	}
	width := s.DataBits / 8
	if width != 1 && width != 2 {
		return nil, fmt.Errorf("unsupported embedded sample bit width %d", s.DataBits)
	}
	if len(s.Data)%width != 0 {
		return nil, fmt.Errorf("embedded sample data length %d is not a multiple of %d bytes", len(s.Data), width)
	}

	order := binary.ByteOrder(binary.LittleEndian)
	if s.DataBigEnd {
		order = binary.BigEndian
	}

	frames := make([]int32, 0, len(s.Data)/width)
	for i := 0; i < len(s.Data); i += width {
		switch width {
		case 1:
			v := s.Data[i]
			if s.DataSigned {
				frames = append(frames, int32(int8(v)))
			} else {
				frames = append(frames, int32(v)-128)
			}
		case 2:
			v := order.Uint16(s.Data[i : i+2])
			if s.DataSigned {
				frames = append(frames, int32(int16(v)))
			} else {
				frames = append(frames, int32(v)-32768)
			}
		}
	}
	return frames, nil
}

// validateFrameBounds is the frame-count-dependent half of
// compiler.Sample.validateRanges, applied once the actual frame count is
// known (its doc comment: "the bound check against the sample's actual
// frame count happens later, in the context package").
func validateFrameBounds(s *compiler.Sample, frameCount int) (string, bool) {
	if s.HasRange && int(s.RangeTo) > frameCount {
		return fmt.Sprintf("sample range end %d exceeds loaded frame count %d", s.RangeTo, frameCount), true
	}
	if s.HasSustain && int(s.SustainTo) > frameCount {
		return fmt.Sprintf("sustain range end %d exceeds loaded frame count %d", s.SustainTo, frameCount), true
	}
	return "", false
}
