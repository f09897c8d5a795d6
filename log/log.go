package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

const diagFileName = "diagnostics_log.txt"

var (
	diagLog  zerolog.Logger
	diagFile *lumberjack.Logger
	logMu    sync.Mutex
	logReady bool
	pid      int
	dir      string
)

// JobMetrics describes one record→upload→transcribe run.
type JobMetrics struct {
	RunID        string
	AudioLengthS float64
	RawSizeKB    float64
	PayloadKB    float64
	EncodeTimeMs float64
	UploadMs     float64
	TLSTimeMs    float64
	TTFBMs       float64
	Polls        int
	TotalTimeMs  float64
	ConnReused   bool
}

func ResolveDir(flagPath string) (string, error) {
	// Priority 1: -logpath flag
	if flagPath != "" {
		return absFromWd(flagPath)
	}

	// Priority 2: DICTATE_LOG_PATH environment variable
	if envPath := os.Getenv("DICTATE_LOG_PATH"); envPath != "" {
		return absFromWd(envPath)
	}

	// Priority 3: Default OS-specific location
	return getDefaultDir()
}

func absFromWd(p string) (string, error) {
	if filepath.IsAbs(p) {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, p), nil
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	diagFile = &lumberjack.Logger{
		Filename:   filepath.Join(dir, diagFileName),
		MaxSize:    5, // MB
		MaxBackups: 3,
		MaxAge:     30,
	}
	// lumberjack opens lazily; touch the file so a bad directory surfaces here
	if _, err := diagFile.Write(nil); err != nil {
		diagFile = nil
		return err
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).With().Timestamp().Int("pid", pid).Logger()

	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	logReady = false
}

func Info(msg string) {
	if logReady {
		diagLog.Info().Msg(msg)
	}
}

func Infof(format string, args ...any) {
	if logReady {
		diagLog.Info().Msg(fmt.Sprintf(format, args...))
	}
}

func Error(msg string) {
	if logReady {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if logReady {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if logReady {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if logReady {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

// Run logs a run-scoped event, e.g. Run(id, "upload_done").
func Run(runID, event string) {
	if logReady {
		diagLog.Info().Str("run", runID).Msg(event)
	}
}

func RunError(runID, event string, err error) {
	if logReady {
		diagLog.Error().Str("run", runID).Err(err).Msg(event)
	}
}

func JobDone(m JobMetrics, textLen int) {
	if !logReady {
		return
	}

	connStatus := "new"
	if m.ConnReused {
		connStatus = "reused"
	}

	diagLog.Info().
		Str("run", m.RunID).
		Str("conn", connStatus).
		Float64("audio_s", m.AudioLengthS).
		Float64("raw_kb", m.RawSizeKB).
		Float64("payload_kb", m.PayloadKB).
		Float64("encode_ms", m.EncodeTimeMs).
		Float64("upload_ms", m.UploadMs).
		Float64("tls_ms", m.TLSTimeMs).
		Float64("ttfb_ms", m.TTFBMs).
		Int("polls", m.Polls).
		Float64("total_ms", m.TotalTimeMs).
		Int("text_len", textLen).
		Msg("transcription")
}

func SessionStart(apiURL, device string, configured bool) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("api", apiURL).
		Str("device", device).
		Bool("configured", configured).
		Msg("session_start")
}

func SessionEnd(count int) {
	if !logReady {
		return
	}
	diagLog.Info().
		Int("count", count).
		Msg("session_end")
}
