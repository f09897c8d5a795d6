package workflow

import (
	"sync"
	"time"

	"dictate/audio"
	"dictate/encoder"
)

// RecordingSession buffers one recording. It is created on start and
// dropped once its audio has been handed to the pipeline.
type RecordingSession struct {
	id       string
	started  time.Time
	recorder audio.CaptureDevice

	mu          sync.Mutex
	chunks      [][]byte
	frames      uint64
	isRecording bool
}

func newSession(id string) *RecordingSession {
	return &RecordingSession{id: id, started: time.Now(), isRecording: true}
}

// appendChunk runs on the capture thread; data is only valid for the call.
func (s *RecordingSession) appendChunk(data []byte, frames uint32) {
	if len(data) == 0 {
		return
	}
	chunk := make([]byte, len(data))
	copy(chunk, data)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRecording {
		return
	}
	s.chunks = append(s.chunks, chunk)
	s.frames += uint64(frames)
}

// stop halts and releases the capture device. Safe to call twice.
func (s *RecordingSession) stop() time.Duration {
	s.mu.Lock()
	was := s.isRecording
	s.isRecording = false
	s.mu.Unlock()

	if was && s.recorder != nil {
		s.recorder.Stop()
		s.recorder.ClearCallback()
		s.recorder.Close()
	}
	return time.Since(s.started)
}

func (s *RecordingSession) IsRecording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRecording
}

// PCM concatenates the buffered chunks in capture order.
func (s *RecordingSession) PCM() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.chunks {
		n += len(c)
	}
	pcm := make([]byte, 0, n)
	for _, c := range s.chunks {
		pcm = append(pcm, c...)
	}
	return pcm
}

func (s *RecordingSession) Payload() (encoder.Payload, error) {
	return encoder.EncodePCM(s.PCM())
}
