package dictation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/rs/zerolog"

	"chrisper/pkg/config"
	"chrisper/pkg/reconcile"
)

// ErrAlreadyRecording is returned when a session is still running.
var ErrAlreadyRecording = errors.New("already recording")

// Deps are the collaborators a Service drives.
type Deps struct {
	Source     AudioSource
	Recognizer Recognizer
	Typist     Typist
	Logger     zerolog.Logger
}

// Service handles the dictation logic.
type Service struct {
	deps       Deps
	startDelay time.Duration
	closers    []func() error

	isRecording bool
	mu          sync.Mutex
	session     *Session
	cancel      context.CancelFunc // Abandons the session (emergency stop)
	done        chan struct{}

	// Callbacks
	OnStart      func()
	OnStop       func()
	OnFinish     func(SessionStats)
	OnError      func(error)
	OnTranscript func(text string, final bool)
}

// New creates a Service over the given collaborators.
func New(typing config.TypingConfig, deps Deps) (*Service, error) {
	if deps.Source == nil || deps.Recognizer == nil || deps.Typist == nil {
		return nil, errors.New("dictation: source, recognizer and typist are required")
	}
	return &Service{
		deps:       deps,
		startDelay: time.Duration(typing.StartDelayMs) * time.Millisecond,
	}, nil
}

// Open wires the microphone, Google speech and robotgo into a Service.
func Open(ctx context.Context, cfg config.Config, log zerolog.Logger) (*Service, error) {
	// Initialize PortAudio globally
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio init error: %w", err)
	}
	rec, err := NewGoogleRecognizer(ctx, cfg.Speech, cfg.Audio.SampleRate)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}

	s, err := New(cfg.Typing, Deps{
		Source:     NewMicrophone(cfg.Audio, log),
		Recognizer: rec,
		Typist:     RobotTypist{KeyDelay: time.Duration(cfg.Typing.KeyDelayMs) * time.Millisecond},
		Logger:     log,
	})
	if err != nil {
		rec.Close()
		portaudio.Terminate()
		return nil, err
	}
	s.closers = []func() error{rec.Close, portaudio.Terminate}
	return s, nil
}

// Close abandons any recording and releases resources.
func (s *Service) Close() error {
	s.CancelRecording()
	s.Wait()
	var errs []error
	for _, c := range s.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// IsRecording reports whether audio is being captured.
func (s *Service) IsRecording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRecording
}

// ToggleRecording starts or stops recording.
func (s *Service) ToggleRecording() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRecording {
		s.stopRecordingLocked()
	} else if err := s.startRecordingLocked(); err != nil {
		s.reportError(err)
	}
}

// StartRecording begins a new session. Only one session runs at a time,
// including one still typing out results after StopRecording.
func (s *Service) StartRecording() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startRecordingLocked()
}

// StopRecording stops capture if active; pending results are still typed.
func (s *Service) StopRecording() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRecording {
		s.stopRecordingLocked()
	}
}

// CancelRecording stops immediately and types nothing further.
func (s *Service) CancelRecording() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRecording {
		s.stopRecordingLocked()
	}
	if s.cancel != nil {
		s.cancel()
	}
}

// Wait blocks until the current session, if any, has finished.
func (s *Service) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (s *Service) startRecordingLocked() error {
	if s.isRecording || s.session != nil {
		return ErrAlreadyRecording
	}
	if s.OnStart != nil {
		s.OnStart()
	}
	s.isRecording = true

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	sess := NewSession(s.deps.Source, s.deps.Recognizer, s.deps.Typist, s.deps.Logger, s.startDelay)
	sess.OnUpdate = func(h reconcile.Hypothesis, plan reconcile.EditPlan) {
		if s.OnTranscript != nil {
			s.OnTranscript(h.Text, h.IsFinal)
		}
	}
	s.session = sess

	go s.runLoop(ctx, sess, cancel, s.done)
	return nil
}

func (s *Service) stopRecordingLocked() {
	if s.OnStop != nil {
		s.OnStop()
	}
	s.isRecording = false

	// Stop audio recording; the session drains the recognizer
	if s.session != nil {
		s.session.Stop()
	}
}

func (s *Service) runLoop(ctx context.Context, sess *Session, cancel context.CancelFunc, done chan struct{}) {
	log := s.deps.Logger
	log.Info().Msg("session_start")

	stats, err := sess.Run(ctx)

	s.mu.Lock()
	if s.isRecording && s.session == sess {
		// The recognizer ended on its own.
		s.isRecording = false
		if s.OnStop != nil {
			s.OnStop()
		}
	}
	s.session = nil
	s.cancel = nil
	s.mu.Unlock()

	cancel()
	if err != nil && !errors.Is(err, context.Canceled) {
		s.reportError(fmt.Errorf("transcription failed: %w", err))
	}

	log.Info().
		Int("hypotheses", stats.Hypotheses).
		Int("finals", stats.Finals).
		Int("backspaces", stats.Backspaces).
		Int("typed_runes", stats.TypedRunes).
		Dur("duration", stats.Duration).
		Msg("session_end")

	if s.OnFinish != nil {
		s.OnFinish(stats)
	}
	close(done)
}

func (s *Service) reportError(err error) {
	s.deps.Logger.Error().Err(err).Msg("dictation")
	if s.OnError != nil {
		s.OnError(err)
	}
}
