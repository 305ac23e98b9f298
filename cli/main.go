package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"chrisper/pkg/config"
	"chrisper/pkg/dictation"
	"chrisper/pkg/hotkey"
	"chrisper/pkg/logging"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config (default $CHRISPER_CONFIG)")
	verbose := flag.Bool("v", false, "enable verbose output for debugging")
	useHotkeys := flag.Bool("hotkeys", true, "listen for the global toggle/terminate shortcuts")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logging.New(os.Stderr, logging.ParseLevel(cfg.Log.Level, *verbose))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := dictation.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize dictation service")
	}
	defer s.Close()

	s.OnStart = func() { fmt.Println("Recording started...") }
	s.OnStop = func() { fmt.Println("Recording stopped...") }
	s.OnFinish = func(st dictation.SessionStats) {
		fmt.Printf("Done: %d updates, %d utterances, %d backspaces, %d characters typed\n",
			st.Hypotheses, st.Finals, st.Backspaces, st.TypedRunes)
	}
	s.OnError = func(err error) { fmt.Printf("Error: %v\n", err) }

	if *useHotkeys {
		go func() {
			if err := hotkey.Listen(ctx, cfg.Hotkeys.Toggle, cfg.Hotkeys.Terminate, s.ToggleRecording, stop); err != nil {
				log.Error().Err(err).Msg("hotkey listener")
			}
		}()
		fmt.Printf("Press %s to start and stop recording...\n", cfg.Hotkeys.Toggle)
		fmt.Printf("Press %s to terminate the program...\n", cfg.Hotkeys.Terminate)
	}

	fmt.Println("Press Enter to toggle recording. Ctrl+C to exit.")
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			s.ToggleRecording()
		}
	}()

	<-ctx.Done()
	fmt.Println("Program terminated...we're done!")
}
