// Package reconcile keeps typed text in step with a stream of refining
// speech hypotheses.
//
// Every hypothesis is turned into an EditPlan: a number of trailing
// characters to delete followed by text to type. Characters are Unicode
// code points, never bytes.
package reconcile

// Hypothesis is one streaming transcript update.
type Hypothesis struct {
	Text      string
	IsFinal   bool
	Stability float64
	// Confidence is only meaningful when IsFinal is set.
	Confidence float64
}

// EditPlan removes the last Retract characters of the displayed text and
// then appends Append.
type EditPlan struct {
	Retract int
	Append  string
}

// Empty reports whether applying the plan changes nothing.
func (p EditPlan) Empty() bool {
	return p.Retract == 0 && p.Append == ""
}

// Apply returns s with the plan applied. Retracting more characters than s
// holds leaves an empty prefix.
func (p EditPlan) Apply(s string) string {
	r := []rune(s)
	keep := len(r) - p.Retract
	if keep < 0 {
		keep = 0
	}
	return string(r[:keep]) + p.Append
}

// DivergenceIndex returns the first rune index at which a and b differ,
// looking only at their overlap. If the overlap matches, the result is the
// rune length of a, even when b is the shorter of the two.
func DivergenceIndex(a, b string) int {
	return divergence([]rune(a), []rune(b))
}

func divergence(a, b []rune) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return len(a)
}

// Reconciler tracks the text currently on screen for one utterance stream.
// It is not safe for concurrent use.
type Reconciler struct {
	display []rune
}

// New returns a Reconciler with nothing displayed.
func New() *Reconciler {
	return &Reconciler{}
}

// Reconcile computes the edit that moves the displayed text to h.Text and
// records the result. A final hypothesis resets the display afterwards so
// the next call starts a new utterance.
func (r *Reconciler) Reconcile(h Hypothesis) EditPlan {
	next := []rune(h.Text)
	at := divergence(r.display, next)

	var tail []rune
	if at < len(next) {
		tail = next[at:]
	}
	plan := EditPlan{
		Retract: len(r.display) - at,
		Append:  string(tail),
	}

	display := make([]rune, 0, at+len(tail))
	display = append(display, r.display[:at]...)
	r.display = append(display, tail...)

	if h.IsFinal {
		r.Reset()
	}
	return plan
}

// Display returns the text the reconciler believes is on screen.
func (r *Reconciler) Display() string {
	return string(r.display)
}

// Reset forgets the displayed text without producing an edit.
func (r *Reconciler) Reset() {
	r.display = nil
}
