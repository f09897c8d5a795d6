package encoder

import (
	"fmt"
	"io"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"
)

// flacWriter writes one mono FLAC stream whose length is known up front,
// so STREAMINFO carries the real sample count.
type flacWriter struct {
	enc     *flac.Encoder
	written uint64
}

func newFlacWriter(w io.Writer, nSamples uint64) (*flacWriter, error) {
	info := &meta.StreamInfo{
		BlockSizeMin:  BlockSize,
		BlockSizeMax:  BlockSize,
		SampleRate:    SampleRate,
		NChannels:     Channels,
		BitsPerSample: BitsPerSample,
		NSamples:      nSamples,
	}
	enc, err := flac.NewEncoder(w, info)
	if err != nil {
		return nil, fmt.Errorf("creating flac encoder: %w", err)
	}
	// lets the encoder replace verbatim subframes with fixed predictors
	enc.EnablePredictionAnalysis(true)
	return &flacWriter{enc: enc}, nil
}

// writeBlock encodes up to BlockSize samples as one frame.
func (f *flacWriter) writeBlock(samples []int32) error {
	fr := &frame.Frame{
		Header: frame.Header{
			BlockSize:     uint16(len(samples)),
			SampleRate:    SampleRate,
			Channels:      frame.ChannelsMono,
			BitsPerSample: BitsPerSample,
		},
		Subframes: []*frame.Subframe{{
			SubHeader: frame.SubHeader{Pred: frame.PredVerbatim},
			Samples:   samples,
			NSamples:  len(samples),
		}},
	}
	if err := f.enc.WriteFrame(fr); err != nil {
		return fmt.Errorf("writing flac frame %d: %w", f.written/BlockSize, err)
	}
	f.written += uint64(len(samples))
	return nil
}

func (f *flacWriter) close() error {
	if err := f.enc.Close(); err != nil {
		return fmt.Errorf("closing flac stream: %w", err)
	}
	return nil
}
