package dictation

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"chrisper/pkg/config"
	"chrisper/pkg/reconcile"
)

func newTestService(t *testing.T, rec Recognizer, typist Typist) *Service {
	t.Helper()
	s, err := New(config.TypingConfig{}, Deps{
		Source:     &fakeSource{},
		Recognizer: rec,
		Typist:     typist,
		Logger:     zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func waitFinish(t *testing.T, finished <-chan SessionStats) SessionStats {
	t.Helper()
	select {
	case st := <-finished:
		return st
	case <-time.After(2 * time.Second):
		t.Fatal("session did not finish")
		return SessionStats{}
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := New(config.Default().Typing, Deps{}); err == nil {
		t.Fatal("expected error without collaborators")
	}
}

func TestServiceToggleTypesTranscript(t *testing.T) {
	sent := make(chan struct{})
	rec := &scriptedRecognizer{
		before:    []reconcile.Hypothesis{hyp("toggle"), hyp("toggled")},
		after:     []reconcile.Hypothesis{final("toggled it")},
		waitAudio: true,
		sent:      sent,
	}
	typist := &mirrorTypist{}
	s := newTestService(t, rec, typist)

	var mu sync.Mutex
	var events []string
	var finals []string
	s.OnStart = func() { mu.Lock(); events = append(events, "start"); mu.Unlock() }
	s.OnStop = func() { mu.Lock(); events = append(events, "stop"); mu.Unlock() }
	s.OnTranscript = func(text string, isFinal bool) {
		if isFinal {
			mu.Lock()
			finals = append(finals, text)
			mu.Unlock()
		}
	}
	finished := make(chan SessionStats, 1)
	s.OnFinish = func(st SessionStats) { finished <- st }

	s.ToggleRecording()
	if !s.IsRecording() {
		t.Fatal("expected recording after toggle")
	}
	<-sent
	s.ToggleRecording()
	st := waitFinish(t, finished)
	s.Wait()

	if typist.Text() != "toggled it" {
		t.Errorf("typed %q", typist.Text())
	}
	if st.Hypotheses != 3 || st.Finals != 1 {
		t.Errorf("stats = %+v", st)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(events) != 2 || events[0] != "start" || events[1] != "stop" {
		t.Errorf("events = %v", events)
	}
	if len(finals) != 1 || finals[0] != "toggled it" {
		t.Errorf("finals = %v", finals)
	}
	if s.IsRecording() {
		t.Error("still recording")
	}
}

func TestServiceRejectsSecondStart(t *testing.T) {
	rec := &scriptedRecognizer{block: true}
	s := newTestService(t, rec, &mirrorTypist{})
	if err := s.StartRecording(); err != nil {
		t.Fatalf("StartRecording: %v", err)
	}
	if err := s.StartRecording(); !errors.Is(err, ErrAlreadyRecording) {
		t.Errorf("second start = %v, want ErrAlreadyRecording", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if s.IsRecording() {
		t.Error("still recording after Close")
	}
}

func TestServiceCancelIsNotAnError(t *testing.T) {
	rec := &scriptedRecognizer{before: []reconcile.Hypothesis{hyp("abandoned")}, block: true}
	s := newTestService(t, rec, &mirrorTypist{})
	var gotErr error
	s.OnError = func(err error) { gotErr = err }
	finished := make(chan SessionStats, 1)
	s.OnFinish = func(st SessionStats) { finished <- st }

	if err := s.StartRecording(); err != nil {
		t.Fatal(err)
	}
	s.CancelRecording()
	waitFinish(t, finished)
	s.Wait()
	if gotErr != nil {
		t.Errorf("OnError(%v) after cancel", gotErr)
	}
}

func TestServiceReportsRecognizerFailure(t *testing.T) {
	boom := errors.New("quota exceeded")
	s := newTestService(t, &scriptedRecognizer{err: boom}, &mirrorTypist{})
	errs := make(chan error, 1)
	s.OnError = func(err error) { errs <- err }
	stops := make(chan struct{}, 1)
	s.OnStop = func() { stops <- struct{}{} }

	if err := s.StartRecording(); err != nil {
		t.Fatal(err)
	}
	select {
	case err := <-errs:
		if !errors.Is(err, boom) {
			t.Errorf("err = %v, want %v", err, boom)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no error reported")
	}
	s.Wait()
	select {
	case <-stops:
	default:
		t.Error("OnStop not called when the stream ended by itself")
	}
	if s.IsRecording() {
		t.Error("still recording")
	}
}
