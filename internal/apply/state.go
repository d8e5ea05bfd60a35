package apply

import "fmt"

// State is a step of one account flow.
type State string

const (
	StateInit             State = "INIT"
	StateAuthenticated    State = "AUTHENTICATED"
	StateOfferingsFetched State = "OFFERINGS_FETCHED"
	StateNoOfferings      State = "NO_OFFERINGS"
	StateFiltering        State = "FILTERING"
	StateNoEligible       State = "NO_ELIGIBLE"
	StateApplying         State = "APPLYING"
	StateDone             State = "DONE"
)

// transitions lists the forward moves allowed from each state.
// Any state may end in DONE on failure.
var transitions = map[State][]State{
	StateInit:             {StateAuthenticated},
	StateAuthenticated:    {StateOfferingsFetched},
	StateOfferingsFetched: {StateNoOfferings, StateFiltering},
	StateFiltering:        {StateNoEligible, StateApplying},
	StateNoOfferings:      {StateDone},
	StateNoEligible:       {StateDone},
	StateApplying:         {StateDone},
}

// flow tracks the state of one account run.
type flow struct {
	state   State
	history []State
}

func newFlow() *flow {
	return &flow{state: StateInit, history: []State{StateInit}}
}

// advance moves to the next state if the transition is allowed.
func (f *flow) advance(to State) error {
	for _, next := range transitions[f.state] {
		if next == to {
			f.state = to
			f.history = append(f.history, to)
			return nil
		}
	}
	return fmt.Errorf("invalid transition %s -> %s", f.state, to)
}

// abort ends the flow from whatever state it is in.
func (f *flow) abort() {
	if f.state == StateDone {
		return
	}
	f.state = StateDone
	f.history = append(f.history, StateDone)
}

// finish ends a flow that completed normally.
func (f *flow) finish() error {
	if f.state == StateDone {
		return nil
	}
	return f.advance(StateDone)
}
