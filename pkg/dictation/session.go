package dictation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"chrisper/pkg/reconcile"
)

// SessionStats summarises one recording.
type SessionStats struct {
	Hypotheses int
	Finals     int
	Backspaces int
	TypedRunes int
	Duration   time.Duration
}

// Session runs one capture → recognize → type pipeline. Hypotheses are
// reconciled and typed strictly in arrival order; the next one is not read
// until the previous edit has been applied.
type Session struct {
	source     AudioSource
	recognizer Recognizer
	typist     Typist
	log        zerolog.Logger
	startDelay time.Duration

	// OnUpdate, if set, sees every hypothesis after its edit was typed.
	OnUpdate func(h reconcile.Hypothesis, plan reconcile.EditPlan)

	stopOnce sync.Once
	stop     chan struct{}

	rec   *reconcile.Reconciler
	stats SessionStats
	typed bool
}

// NewSession returns a Session that types with typist after startDelay.
func NewSession(source AudioSource, recognizer Recognizer, typist Typist, log zerolog.Logger, startDelay time.Duration) *Session {
	return &Session{
		source:     source,
		recognizer: recognizer,
		typist:     typist,
		log:        log,
		startDelay: startDelay,
		stop:       make(chan struct{}),
		rec:        reconcile.New(),
	}
}

// Stop ends audio capture. Results the recognizer still holds for audio
// already sent are typed before Run returns.
func (s *Session) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// Run blocks until the recognizer is done or ctx is cancelled. Cancelling
// ctx abandons the utterance in progress without any further edits.
func (s *Session) Run(ctx context.Context) (stats SessionStats, err error) {
	started := time.Now()
	defer func() {
		s.stats.Duration = time.Since(started)
		stats = s.stats
		s.rec.Reset()
	}()

	g, gctx := errgroup.WithContext(ctx)
	audioCtx, stopAudio := context.WithCancel(gctx)
	defer stopAudio()
	go func() {
		select {
		case <-s.stop:
			stopAudio()
		case <-audioCtx.Done():
		}
	}()

	audio, err := s.source.Start(audioCtx)
	if err != nil {
		return s.stats, fmt.Errorf("start audio: %w", err)
	}

	hyps := make(chan reconcile.Hypothesis, 16)
	g.Go(func() error {
		return s.recognizer.Recognize(gctx, audio, hyps)
	})
	g.Go(func() error {
		return s.consume(gctx, hyps)
	})
	return s.stats, g.Wait()
}

func (s *Session) consume(ctx context.Context, hyps <-chan reconcile.Hypothesis) error {
	for {
		var h reconcile.Hypothesis
		var ok bool
		select {
		case <-ctx.Done():
			return ctx.Err()
		case h, ok = <-hyps:
			if !ok {
				return nil
			}
		}
		// A ready hypothesis can win the select after cancellation.
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.handle(ctx, h); err != nil {
			return err
		}
	}
}

func (s *Session) handle(ctx context.Context, h reconcile.Hypothesis) error {
	prev := s.rec.Display()
	plan := s.rec.Reconcile(h)
	written := plan.Apply(prev)
	s.stats.Hypotheses++

	if !plan.Empty() && !s.typed {
		s.typed = true
		// Let the shortcut keys come up before typing over them.
		if s.startDelay > 0 {
			select {
			case <-time.After(s.startDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	if err := applyPlan(s.typist, plan); err != nil {
		return fmt.Errorf("apply edit: %w", err)
	}
	s.stats.Backspaces += plan.Retract
	s.stats.TypedRunes += len([]rune(plan.Append))

	s.log.Debug().
		Float64("stability", h.Stability).
		Str("heard", h.Text).
		Str("written", written).
		Int("backspaced", plan.Retract).
		Str("typed", plan.Append).
		Msg("transcript")

	if h.IsFinal {
		s.stats.Finals++
		s.log.Debug().Float64("confidence", h.Confidence).Msg("final transcript")
	}
	if s.OnUpdate != nil {
		s.OnUpdate(h, plan)
	}
	return nil
}
