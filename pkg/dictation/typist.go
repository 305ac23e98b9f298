package dictation

import (
	"fmt"
	"time"

	"github.com/go-vgo/robotgo"

	"chrisper/pkg/reconcile"
)

// Typist replays edits into whatever window has keyboard focus.
type Typist interface {
	Backspace(n int) error
	Type(text string) error
}

// RobotTypist injects keystrokes with robotgo.
type RobotTypist struct {
	KeyDelay time.Duration
}

// Backspace taps the backspace key n times.
func (t RobotTypist) Backspace(n int) error {
	for i := 0; i < n; i++ {
		if err := robotgo.KeyTap("backspace"); err != nil {
			return fmt.Errorf("backspace %d/%d: %w", i+1, n, err)
		}
		t.pause()
	}
	return nil
}

// Type enters text verbatim.
func (t RobotTypist) Type(text string) error {
	if text == "" {
		return nil
	}
	robotgo.TypeStr(text)
	t.pause()
	return nil
}

func (t RobotTypist) pause() {
	if t.KeyDelay > 0 {
		robotgo.MilliSleep(int(t.KeyDelay / time.Millisecond))
	}
}

// applyPlan deletes first and types second, matching the order the
// reconciler computed the plan in.
func applyPlan(t Typist, plan reconcile.EditPlan) error {
	if plan.Retract > 0 {
		if err := t.Backspace(plan.Retract); err != nil {
			return err
		}
	}
	if plan.Append != "" {
		if err := t.Type(plan.Append); err != nil {
			return err
		}
	}
	return nil
}
