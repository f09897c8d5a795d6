// Package encoder turns a finished recording into the upload payload.
// dictate always sends 16 kHz mono FLAC.
package encoder

import (
	"bytes"
	"encoding/binary"
	"time"
)

const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16
	BlockSize     = 4096

	// MimeType is the single codec dictate uploads.
	MimeType = "audio/flac"
)

// Payload is an encoded recording ready for upload.
type Payload struct {
	Data       []byte
	Frames     uint64
	RawBytes   int
	EncodeTime time.Duration
}

// Duration returns the audio length.
func (p Payload) Duration() time.Duration {
	return time.Duration(float64(p.Frames) / SampleRate * float64(time.Second))
}

// SizeKB is the encoded size in kilobytes.
func (p Payload) SizeKB() float64 {
	return float64(len(p.Data)) / 1024
}

// EncodePCM encodes little-endian 16-bit mono PCM into one FLAC stream.
// A trailing odd byte is dropped.
func EncodePCM(pcm []byte) (Payload, error) {
	start := time.Now()
	nSamples := len(pcm) / 2

	var buf bytes.Buffer
	buf.Grow(len(pcm) / 2)
	w, err := newFlacWriter(&buf, uint64(nSamples))
	if err != nil {
		return Payload{}, err
	}

	block := make([]int32, 0, BlockSize)
	for i := range nSamples {
		block = append(block, int32(int16(binary.LittleEndian.Uint16(pcm[i*2:]))))
		if len(block) == BlockSize || i == nSamples-1 {
			if err := w.writeBlock(block); err != nil {
				return Payload{}, err
			}
			block = block[:0]
		}
	}
	if err := w.close(); err != nil {
		return Payload{}, err
	}

	return Payload{
		Data:       buf.Bytes(),
		Frames:     w.written,
		RawBytes:   len(pcm),
		EncodeTime: time.Since(start),
	}, nil
}
