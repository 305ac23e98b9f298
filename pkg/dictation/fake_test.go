package dictation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"chrisper/pkg/reconcile"
)

// fakeSource emits chunks until ctx is done, then closes its channel.
type fakeSource struct {
	chunks [][]byte
	err    error
}

func (f *fakeSource) Start(ctx context.Context) (<-chan []byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make(chan []byte)
	go func() {
		defer close(out)
		for _, c := range f.chunks {
			select {
			case out <- c:
			case <-ctx.Done():
				return
			}
		}
		<-ctx.Done()
	}()
	return out, nil
}

// scriptedRecognizer sends before in order, then optionally waits for audio
// to close before sending after.
type scriptedRecognizer struct {
	before    []reconcile.Hypothesis
	after     []reconcile.Hypothesis
	waitAudio bool
	block     bool
	err       error
	sent      chan struct{}
}

func (r *scriptedRecognizer) Recognize(ctx context.Context, audio <-chan []byte, out chan<- reconcile.Hypothesis) error {
	defer close(out)
	send := func(hs []reconcile.Hypothesis) error {
		for _, h := range hs {
			select {
			case out <- h:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	}
	if err := send(r.before); err != nil {
		return err
	}
	if r.sent != nil {
		close(r.sent)
	}
	if r.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if r.waitAudio {
		for range audio {
		}
	}
	if err := send(r.after); err != nil {
		return err
	}
	return r.err
}

// mirrorTypist keeps the text it would have produced on screen.
type mirrorTypist struct {
	mu     sync.Mutex
	text   []rune
	ops    []string
	failOn int
	calls  int
	typed  chan struct{}
}

func (t *mirrorTypist) step() error {
	t.calls++
	if t.failOn > 0 && t.calls == t.failOn {
		return errors.New("injection failed")
	}
	return nil
}

func (t *mirrorTypist) Backspace(n int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.step(); err != nil {
		return err
	}
	t.ops = append(t.ops, fmt.Sprintf("bs%d", n))
	if n > len(t.text) {
		n = len(t.text)
	}
	t.text = t.text[:len(t.text)-n]
	return nil
}

func (t *mirrorTypist) Type(text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.step(); err != nil {
		return err
	}
	t.ops = append(t.ops, "type:"+text)
	t.text = append(t.text, []rune(text)...)
	if t.typed != nil {
		select {
		case t.typed <- struct{}{}:
		default:
		}
	}
	return nil
}

func (t *mirrorTypist) Text() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.text)
}

func (t *mirrorTypist) Ops() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.ops...)
}
