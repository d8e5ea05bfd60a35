package apply

import (
	"reflect"
	"testing"
)

func TestFlow_HappyPaths(t *testing.T) {
	paths := map[string][]State{
		"no offerings": {StateAuthenticated, StateOfferingsFetched, StateNoOfferings},
		"no eligible":  {StateAuthenticated, StateOfferingsFetched, StateFiltering, StateNoEligible},
		"applying":     {StateAuthenticated, StateOfferingsFetched, StateFiltering, StateApplying},
	}

	for name, path := range paths {
		t.Run(name, func(t *testing.T) {
			f := newFlow()
			for _, s := range path {
				if err := f.advance(s); err != nil {
					t.Fatalf("advance(%s) error = %v", s, err)
				}
			}
			if err := f.finish(); err != nil {
				t.Fatalf("finish() error = %v", err)
			}
			want := append([]State{StateInit}, path...)
			want = append(want, StateDone)
			if !reflect.DeepEqual(f.history, want) {
				t.Errorf("history = %v, want %v", f.history, want)
			}
		})
	}
}

func TestFlow_GuardsRejectSkippedStates(t *testing.T) {
	tests := []struct {
		name string
		path []State
	}{
		{"fetch before login", []State{StateOfferingsFetched}},
		{"apply before filtering", []State{StateAuthenticated, StateOfferingsFetched, StateApplying}},
		{"filter after no offerings", []State{StateAuthenticated, StateOfferingsFetched, StateNoOfferings, StateFiltering}},
		{"done straight from init", []State{StateDone}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFlow()
			var err error
			for _, s := range tc.path {
				if err = f.advance(s); err != nil {
					break
				}
			}
			if err == nil {
				t.Errorf("path %v should be rejected", tc.path)
			}
		})
	}
}

func TestFlow_AbortFromAnyState(t *testing.T) {
	f := newFlow()
	if err := f.advance(StateAuthenticated); err != nil {
		t.Fatal(err)
	}
	f.abort()
	f.abort()

	if f.state != StateDone {
		t.Errorf("state = %s, want DONE", f.state)
	}
	if len(f.history) != 3 {
		t.Errorf("history = %v, DONE should be recorded once", f.history)
	}
}
