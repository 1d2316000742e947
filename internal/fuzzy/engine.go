package fuzzy

import "time"

// PolicyState is the change-detection baseline of one display.
// The zero value means "never observed".
type PolicyState struct {
	lastSample TimeSample
	lastBucket BucketID
	observed   bool
}

// LastSample returns the previous sample, if any.
func (st PolicyState) LastSample() (TimeSample, bool) {
	return st.lastSample, st.observed
}

// LastBucket returns the previous bucket, if any.
func (st PolicyState) LastBucket() (BucketID, bool) {
	if !st.observed {
		return NoBucket, false
	}
	return st.lastBucket, true
}

// Observe is the pure form of Engine.Observe: it returns the updated state,
// whether the display must redraw, and the phrase for s. The baseline always
// moves to s, whether or not it triggers a redraw.
func Observe(p Policy, st PolicyState, s TimeSample) (PolicyState, bool, Phrase) {
	cur := p.Bucket(s.Minute())
	changed := !st.observed || p.Changed(st.lastBucket, st.lastSample.Hour(), cur, s.Hour())
	next := PolicyState{lastSample: s, lastBucket: cur, observed: true}
	return next, changed, p.Phrase(s)
}

// Engine pairs a Policy with the state of one live display.
type Engine struct {
	policy Policy
	state  PolicyState
}

// NewEngine creates an engine that has not observed anything yet.
func NewEngine(p Policy) *Engine {
	return &Engine{policy: p}
}

// Observe records s and reports whether the phrase needs redrawing.
func (e *Engine) Observe(s TimeSample) (bool, Phrase) {
	var changed bool
	var phrase Phrase
	e.state, changed, phrase = Observe(e.policy, e.state, s)
	return changed, phrase
}

// NextWakeOffset is the delay until the phrase for s next changes.
func (e *Engine) NextWakeOffset(s TimeSample) time.Duration {
	return e.policy.WakeOffset(s)
}

// Reset forgets the baseline so the next Observe reports a change.
func (e *Engine) Reset() {
	e.state = PolicyState{}
}

// SetPolicy swaps the policy and resets the baseline.
func (e *Engine) SetPolicy(p Policy) {
	e.policy = p
	e.state = PolicyState{}
}

func (e *Engine) Policy() Policy     { return e.policy }
func (e *Engine) State() PolicyState { return e.state }
