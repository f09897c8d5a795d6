package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"dictate/audio"
	"dictate/beep"
	"dictate/clipboard"
	"dictate/config"
	"dictate/doctor"
	"dictate/hotkey"
	"dictate/log"
	"dictate/notify"
	"dictate/shutdown"
	"dictate/tray"
	"dictate/workflow"
)

var version = "dev"

const bgEnv = "_DICTATE_BG"

var (
	shutdownOnce sync.Once
	shutdownHook func()
)

func gracefulShutdown() {
	shutdownOnce.Do(func() {
		if shutdownHook != nil {
			shutdownHook()
		}
		log.Close()
		tray.Quit()
		quitGUI()
		os.Exit(0)
	})
}

func run() {
	configFlag := flag.String("config", "", "YAML config file")
	envFlag := flag.String("env", "", "extra .env file, read before the default locations")
	deviceFlag := flag.String("device", "", "Use named microphone device")
	setupFlag := flag.Bool("setup", false, "Select microphone device interactively")
	devicesFlag := flag.Bool("devices", false, "List capture devices and exit")
	tuiFlag := flag.Bool("tui", true, "Run with terminal UI")
	flag.Bool("gui", false, "Run with a desktop window (requires a build with -tags gui)")
	autoPasteFlag := flag.Bool("autopaste", false, "Paste into the focused window after copying")
	langFlag := flag.String("lang", "", "Language code for transcription (e.g. en, es). Empty = auto-detect")
	pollFlag := flag.Duration("poll", config.DefaultPollInterval, "Interval between transcript status checks")
	logPathFlag := flag.String("logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	testFlag := flag.String("test", "", "Test mode: replay a WAV file as the microphone, commands on stdin")
	doctorFlag := flag.Bool("doctor", false, "Run system diagnostics and exit")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	longPressFlag := flag.Duration("longpress", 350*time.Millisecond, "Long-press threshold for PTT vs tap (e.g., 350ms)")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("dictate %s\n", version)
		os.Exit(0)
	}

	// Resolve log directory early
	logPath, err := log.ResolveDir(*logPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}

	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
	}

	envFiles := config.DefaultEnvFiles()
	if *envFlag != "" {
		envFiles = append([]string{*envFlag}, envFiles...)
	}
	cfg, err := config.Load(*configFlag, envFiles...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "device":
			cfg.Device = *deviceFlag
		case "autopaste":
			cfg.AutoPaste = *autoPasteFlag
		case "lang":
			cfg.Language = *langFlag
		case "poll":
			cfg.PollInterval = *pollFlag
		}
	})

	if *doctorFlag {
		os.Exit(doctor.Run(cfg))
	}

	if *devicesFlag {
		os.Exit(listDevices())
	}

	// Resolve -setup into -device early (before daemonization)
	if *setupFlag && cfg.Device == "" {
		ctx, err := audio.NewContext()
		if err != nil {
			fmt.Printf("Error initializing audio: %v\n", err)
			os.Exit(1)
		}
		dev, err := audio.SelectDevice(ctx)
		ctx.Close()
		switch {
		case errors.Is(err, audio.ErrSelectionAborted):
			os.Exit(0)
		case err != nil:
			fmt.Printf("Warning: device selection failed: %v\n", err)
			fmt.Println("Falling back to default device")
		default:
			cfg.Device = dev.Name
		}
	}

	gui := guiWindow() != nil

	// Daemonize in tray-only mode: re-exec in background, return shell prompt
	if !*tuiFlag && !gui && *testFlag == "" && os.Getenv(bgEnv) == "" {
		args := os.Args[1:]
		if cfg.Device != "" {
			args = append(args, "-device", cfg.Device)
		}
		exe, _ := os.Executable()
		cmd := exec.Command(exe, args...)
		cmd.Env = append(os.Environ(), bgEnv+"=1")
		devnull, _ := os.Open(os.DevNull)
		cmd.Stdin, cmd.Stdout, cmd.Stderr = devnull, devnull, devnull
		if err := cmd.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	} else {
		log.SessionStart(cfg.APIURL, cfg.Device, cfg.CheckAPIKey() == nil)
	}

	beep.SetEnabled(cfg.Sounds)
	notify.Init("dictate", tray.AppIcon())
	notify.SetEnabled(cfg.Notifications)

	if *testFlag != "" {
		code := runTestMode(cfg, *testFlag)
		log.Close()
		os.Exit(code)
	}

	if cfg.AutoPaste {
		if err := clipboard.Init(); err != nil {
			fmt.Printf("Warning: paste init failed: %v\n", err)
		}
	}

	actx, err := audio.NewContext()
	if err != nil {
		log.Errorf("audio context init error: %v", err)
		fmt.Printf("Error initializing audio context: %v\n", err)
		os.Exit(1)
	}
	defer actx.Close()

	mic := newMicrophone(actx, cfg.Device)

	a := newApp(appOptions{
		Config:       cfg,
		Acquire:      mic.Acquire,
		Window:       guiWindow(),
		Copy:         clipboard.Copy,
		Notify:       notify.Notify,
		SetTrayState: tray.SetState,
		Paste:        clipboard.Paste,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownHook = func() {
		a.shell.Quit()
		cancel()
		log.SessionEnd(int(a.done.Load()))
	}

	var tuiProgram *tea.Program
	if *tuiFlag && !gui {
		tuiProgram = NewTUIProgram(newTUIModel(tuiActions{
			toggle:    a.wf.Toggle,
			cancel:    func() { a.wf.Cancel() },
			autoPaste: a.wf.SetAutoPaste,
			language:  a.SetLanguage,
		}, &a.stats, a.configured()))
		a.addSink(tuiSink{tuiProgram})
	}
	if sink := wireGUI(a, gracefulShutdown); sink != nil {
		a.addSink(sink)
	}

	settings := func(lang string, autoPaste bool) {
		if tuiProgram != nil {
			tuiProgram.Send(SettingsMsg{Language: lang, AutoPaste: autoPaste})
		}
	}
	var autoPaste atomic.Bool
	autoPaste.Store(cfg.AutoPaste)

	sh := a.shell
	tray.OnClick(sh.TrayClicked)
	tray.OnShowWindow(sh.ShowWindow)
	tray.SetAutoPaste(cfg.AutoPaste, func(on bool) {
		autoPaste.Store(on)
		a.wf.SetAutoPaste(on)
		settings(a.Language(), on)
	})
	tray.SetLanguage(cfg.Language, func(code string) {
		a.SetLanguage(code)
		settings(code, autoPaste.Load())
	})
	tray.SetDevices(mic.Names(), cfg.Device, mic.Select)
	mic.OnChange(a.sinks.Device)
	a.OnStatus(func(st workflow.Status) {
		if st.Phase == workflow.Idle && strings.HasPrefix(st.Text, "Error") {
			tray.SetError(strings.TrimPrefix(st.Text, "Error: "))
		}
	})

	trayQuit := tray.Init()
	a.start(ctx)
	go mic.watch(ctx, 3*time.Second)

	if tuiProgram != nil {
		go func() {
			if _, err := tuiProgram.Run(); err != nil {
				log.Errorf("TUI error: %v", err)
			}
			gracefulShutdown()
		}()
	}
	a.sinks.Device(mic.Name())
	settings(cfg.Language, cfg.AutoPaste)

	go func() {
		select {
		case <-shutdown.Channel():
		case <-trayQuit:
		}
		gracefulShutdown()
	}()

	hk := hotkey.New()
	if err := hk.Register(); err != nil {
		log.Errorf("hotkey register error: %v", err)
		if !*tuiFlag && !gui {
			fmt.Printf("Error registering hotkey: %v\n", err)
		}
		<-ctx.Done()
		return
	}
	defer hk.Unregister()

	hy := hotkey.NewHybrid(hk, *longPressFlag)
	defer hy.Close()
	a.OnStatus(func(st workflow.Status) {
		if st.Phase != workflow.Listening {
			hy.Reset()
		}
	})

	runHotkeys(ctx, hy, a.wf)
}

func listDevices() int {
	ctx, err := audio.NewContext()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing audio: %v\n", err)
		return 1
	}
	defer ctx.Close()
	devices, err := ctx.Devices()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	for _, d := range devices {
		fmt.Println(deviceLabel(&d))
	}
	return 0
}
