package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/getlantern/systray"
	"github.com/rs/zerolog"

	"chrisper/pkg/config"
	"chrisper/pkg/dictation"
	"chrisper/pkg/hotkey"
	"chrisper/pkg/logging"
)

var (
	service     *dictation.Service
	cfg         config.Config
	logger      zerolog.Logger
	stopHotkeys context.CancelFunc
	// embeddedAPIKey can be set via -ldflags "-X main.embeddedAPIKey=..."
	embeddedAPIKey string
)

func main() {
	configPath := flag.String("config", "", "path to YAML config (default $CHRISPER_CONFIG)")
	verbose := flag.Bool("v", false, "enable verbose output for debugging")
	flag.Parse()

	var err error
	cfg, err = config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if cfg.Speech.APIKey == "" && cfg.Speech.CredentialsFile == "" {
		cfg.Speech.APIKey = embeddedAPIKey
	}

	// Log to a file; app bundles have no usable stderr
	var closer io.Closer
	logger, closer, err = logging.Open(cfg.Log.File, logging.ParseLevel(cfg.Log.Level, *verbose))
	if err != nil {
		logger.Warn().Err(err).Msg("logging to stderr")
	}
	defer closer.Close()
	logger.Info().Msg("Chrisper Application Started")

	systray.Run(onReady, onExit)
}

func onReady() {
	systray.SetIcon(iconIdle)
	systray.SetTitle("")
	systray.SetTooltip("Real-time Dictation")

	mToggle := systray.AddMenuItem("Start Dictation", "Start or stop dictation")
	mQuit := systray.AddMenuItem("Quit", "Quit the application")

	// 1. Initialize Dictation Service
	var err error
	service, err = dictation.Open(context.Background(), cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to initialize dictation service")
		systray.Quit()
		return
	}

	// Setup Callbacks
	service.OnStart = func() {
		logger.Info().Msg("recording started")
		systray.SetIcon(iconRecording)
		mToggle.SetTitle("Stop Dictation")
	}
	service.OnStop = func() {
		logger.Info().Msg("recording stopped")
		systray.SetIcon(iconIdle)
		mToggle.SetTitle("Start Dictation")
	}
	service.OnFinish = func(dictation.SessionStats) {
		systray.SetTitle("")
	}
	service.OnError = func(err error) {
		systray.SetTitle("Dictation: Error")
	}

	// 2. Start Hotkey Listener
	var ctx context.Context
	ctx, stopHotkeys = context.WithCancel(context.Background())
	go func() {
		err := hotkey.Listen(ctx, cfg.Hotkeys.Toggle, cfg.Hotkeys.Terminate,
			service.ToggleRecording, systray.Quit)
		if err != nil {
			logger.Error().Err(err).Msg("hotkey listener")
		}
	}()
	logger.Info().
		Str("toggle", cfg.Hotkeys.Toggle).
		Str("terminate", cfg.Hotkeys.Terminate).
		Msg("listening for hotkeys")

	// 3. Handle menu
	go func() {
		for {
			select {
			case <-mToggle.ClickedCh:
				service.ToggleRecording()
			case <-mQuit.ClickedCh:
				systray.Quit()
				return
			}
		}
	}()
}

func onExit() {
	if stopHotkeys != nil {
		stopHotkeys()
	}
	if service != nil {
		if err := service.Close(); err != nil {
			logger.Error().Err(err).Msg("close dictation service")
		}
	}
	logger.Info().Msg("Chrisper Application Stopped")
}
