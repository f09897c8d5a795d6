package workflow

import (
	"context"
	"time"

	"dictate/assemblyai"
	"dictate/log"
)

// process runs encode, upload, submit and poll strictly in sequence and
// reports each step back to the workflow goroutine.
func (w *Workflow) process(ctx context.Context, sess *RecordingSession, api API) {
	start := time.Now()
	m := log.JobMetrics{RunID: sess.id}
	text, err := w.transcribe(ctx, sess, api, &m)
	m.TotalTimeMs = float64(time.Since(start).Milliseconds())

	if err == nil {
		log.JobDone(m, len(text))
		if w.opts.OnJob != nil {
			w.opts.OnJob(m)
		}
	}
	w.send(doneEvent{runID: sess.id, text: text, err: err})
}

func (w *Workflow) transcribe(ctx context.Context, sess *RecordingSession, api API, m *log.JobMetrics) (string, error) {
	payload, err := sess.Payload()
	if err != nil {
		return "", err
	}
	m.AudioLengthS = payload.Duration().Seconds()
	m.RawSizeKB = float64(payload.RawBytes) / 1024
	m.PayloadKB = payload.SizeKB()
	m.EncodeTimeMs = float64(payload.EncodeTime.Microseconds()) / 1000

	w.stage(sess.id, StatusUploading)
	uploadURL, nm, err := api.Upload(ctx, payload.Data)
	if nm != nil {
		m.UploadMs = float64(nm.Total.Milliseconds())
		m.TLSTimeMs = float64(nm.TLS.Milliseconds())
		m.TTFBMs = float64(nm.TTFB.Milliseconds())
		m.ConnReused = nm.ConnReused
	}
	if err != nil {
		return "", err
	}
	log.Run(sess.id, "upload_done")

	w.stage(sess.id, StatusTranscribing)
	id, err := api.Submit(ctx, uploadURL)
	if err != nil {
		return "", err
	}
	log.Run(sess.id, "submitted job="+id)

	t, err := api.Poll(ctx, id, func(assemblyai.Transcript) { m.Polls++ })
	if err != nil {
		return "", err
	}
	return t.Text, nil
}

func (w *Workflow) stage(runID, text string) {
	w.send(stageEvent{runID: runID, text: text})
}
