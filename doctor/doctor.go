package doctor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"dictate/assemblyai"
	"dictate/audio"
	"dictate/config"
	"dictate/encoder"
	"dictate/hotkey"
	"dictate/notify"
	"dictate/shutdown"
)

const totalChecks = 7

// Run executes interactive diagnostic checks and returns an exit code (0=all pass, 1=any fail).
func Run(cfg config.Config) int {
	resetTerminal()
	setupInterruptHandler()

	fmt.Println("dictate doctor - interactive system diagnostics")
	fmt.Println("===============================================")

	allPass := true

	keyOK := checkAPIKey(cfg)
	if !keyOK {
		allPass = false
	}
	if keyOK && !checkAPIReachable(cfg) {
		allPass = false
	}
	if !checkHotkey() {
		allPass = false
	}
	if !checkMicAndTranscription(cfg, keyOK) {
		allPass = false
	}
	if !checkNotification() {
		allPass = false
	}
	if !checkClipboardCopy() {
		allPass = false
	}
	if !checkClipboardPaste() {
		allPass = false
	}

	fmt.Println()
	if allPass {
		fmt.Println("All checks passed!")
		return 0
	}
	fmt.Println("Some checks failed. See details above.")
	return 1
}

func setupInterruptHandler() {
	sig := shutdown.Channel()
	go func() {
		<-sig
		resetTerminal()
		println("\nInterrupted")
		os.Exit(1)
	}()
}

func header(n int, title string) {
	fmt.Println()
	fmt.Printf("[%d/%d] %s\n", n, totalChecks, title)
}

func checkAPIKey(cfg config.Config) bool {
	header(1, "AssemblyAI API key")

	if err := cfg.CheckAPIKey(); err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		fmt.Printf("  Set %s in the environment, a .env file or the config file.\n", config.APIKeyEnv)
		return false
	}
	fmt.Printf("  PASS: key configured (%s)\n", maskKey(cfg.APIKey))
	return true
}

func maskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}

func checkAPIReachable(cfg config.Config) bool {
	header(2, "AssemblyAI reachability")

	client := assemblyai.New(cfg.APIKey, cfg.APIURL, cfg.PollInterval)
	start := time.Now()
	tls, err := client.Warm()
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}
	fmt.Printf("  PASS: %s reachable in %dms (tls %dms)\n",
		cfg.APIURL, time.Since(start).Milliseconds(), tls.Milliseconds())
	return true
}

func checkHotkey() bool {
	header(3, "Hotkey detection")

	msg, err := hotkey.Diagnose()
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}
	fmt.Printf("  %s\n", msg)
	fmt.Printf("Press %s...\n", hotkey.Combo)

	hk := hotkey.New()
	if err := hk.Register(); err != nil {
		fmt.Printf("  FAIL: could not register hotkey: %v\n", err)
		return false
	}
	defer hk.Unregister()

	select {
	case <-hk.Keydown():
		fmt.Println("  PASS: hotkey detected")
		// Wait for keyup to avoid triggering next step
		select {
		case <-hk.Keyup():
		case <-time.After(5 * time.Second):
		}
		// the hotkey may leave the terminal in raw mode
		resetTerminal()
		return true
	case <-time.After(10 * time.Second):
		fmt.Println("  FAIL: timeout waiting for hotkey")
		return false
	}
}

func checkMicAndTranscription(cfg config.Config, transcribe bool) bool {
	header(4, "Microphone and transcription")

	reader := bufio.NewReader(os.Stdin)

	ctx, err := audio.NewContext()
	if err != nil {
		fmt.Printf("  FAIL: cannot connect to audio: %v\n", err)
		return false
	}
	defer ctx.Close()

	var device *audio.DeviceInfo
	if cfg.Device != "" {
		device, err = audio.FindDevice(ctx, cfg.Device)
	} else {
		device, err = audio.SelectDevice(ctx)
	}
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}
	fmt.Printf("Using device: %s\n", device.Name)
	if audio.IsBluetooth(device.Name) {
		fmt.Println("  Note: bluetooth microphones often switch the headset to low-quality mode")
	}

	fmt.Println()
	fmt.Print("Press Enter and speak for 3 seconds...")
	reader.ReadString('\n')

	stop := make(chan struct{})
	go func() {
		time.Sleep(3 * time.Second)
		close(stop)
	}()

	pcm, peak, err := recordAudio(ctx, device, stop)
	if err != nil {
		fmt.Printf("  FAIL: recording error: %v\n", err)
		return false
	}
	if len(pcm) == 0 {
		fmt.Println("  FAIL: no audio captured")
		return false
	}
	fmt.Printf("  Recorded %.1f KB, peak level %.2f\n", float64(len(pcm))/1024, peak)
	if peak < 0.01 {
		fmt.Println("  Warning: input is nearly silent, check the microphone gain or mute switch")
	}

	if !transcribe {
		fmt.Println("  PASS: microphone captured audio (transcription skipped, no API key)")
		return true
	}

	text, err := transcribeOnce(cfg, pcm)
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}
	if text == "" {
		text = "(no speech detected)"
	}
	fmt.Printf("\n  Transcribed text: %s\n\n", text)

	// fresh reader to clear any buffered input
	confirmReader := bufio.NewReader(os.Stdin)
	fmt.Print("Is this correct? [y/n]: ")
	confirm, _ := confirmReader.ReadString('\n')
	confirm = strings.TrimSpace(strings.ToLower(confirm))

	if confirm == "y" || confirm == "yes" {
		fmt.Println("  PASS: transcription verified by user")
		return true
	}

	fmt.Println("  FAIL: transcription not confirmed")
	return false
}

// transcribeOnce runs the upload, submit and poll steps the workflow uses.
func transcribeOnce(cfg config.Config, pcm []byte) (string, error) {
	payload, err := encoder.EncodePCM(pcm)
	if err != nil {
		return "", fmt.Errorf("encode: %w", err)
	}

	client := assemblyai.New(cfg.APIKey, cfg.APIURL, cfg.PollInterval)
	client.SetLanguage(cfg.Language)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	fmt.Printf("  Uploading %.1f KB...\n", float64(len(payload.Data))/1024)
	url, _, err := client.Upload(ctx, payload.Data)
	if err != nil {
		return "", err
	}
	id, err := client.Submit(ctx, url)
	if err != nil {
		return "", err
	}

	fmt.Print("  Transcribing")
	t, err := client.Poll(ctx, id, func(assemblyai.Transcript) { fmt.Print(".") })
	fmt.Println()
	if errors.Is(err, context.DeadlineExceeded) {
		return "", fmt.Errorf("transcription %s still %s after 2m", id, t.Status)
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(t.Text), nil
}

func recordAudio(ctx audio.Context, device *audio.DeviceInfo, stop <-chan struct{}) ([]byte, float64, error) {
	var (
		mu      sync.Mutex
		pcmBuf  []byte
		peak    float64
		stopped bool
	)
	done := make(chan struct{})

	captureCfg := audio.CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
	}

	capture, err := audio.Open(ctx, device, captureCfg, func(data []byte, frameCount uint32) {
		level := audio.Level(data)
		mu.Lock()
		defer mu.Unlock()
		if stopped {
			return
		}
		pcmBuf = append(pcmBuf, data...)
		if level > peak {
			peak = level
		}
	})
	if err != nil {
		return nil, 0, err
	}

	fmt.Print("  Recording")
	ticker := time.NewTicker(500 * time.Millisecond)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fmt.Print(".")
			}
		}
	}()

	<-stop
	close(done)

	capture.Stop()
	fmt.Println(" done")
	capture.ClearCallback()
	capture.Close()

	mu.Lock()
	stopped = true
	raw, p := pcmBuf, peak
	mu.Unlock()

	return raw, p, nil
}

func checkNotification() bool {
	header(5, "Desktop notification")

	if err := notify.Notify("dictate doctor", "If you can read this, notifications work."); err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}

	confirmReader := bufio.NewReader(os.Stdin)
	fmt.Print("Did a notification appear? [y/n]: ")
	confirm, _ := confirmReader.ReadString('\n')
	confirm = strings.TrimSpace(strings.ToLower(confirm))
	if confirm != "y" && confirm != "yes" {
		fmt.Println("  FAIL: notification not confirmed")
		return false
	}
	fmt.Println("  PASS: notification verified by user")
	return true
}
