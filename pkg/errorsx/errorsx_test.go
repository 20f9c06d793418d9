package errorsx

import "testing"

func TestWrapAndReason(t *testing.T) {
	err := Wrap(assertErr{}, ReasonPipelineBind)
	if Reason(err) != ReasonPipelineBind {
		t.Fatalf("expected reason %s, got %s", ReasonPipelineBind, Reason(err))
	}
	if !HasReason(err, ReasonPipelineBind) {
		t.Fatalf("expected HasReason true")
	}
}

func TestWrapPreservesExistingReason(t *testing.T) {
	first := Wrap(assertErr{}, ReasonConfig)
	second := Wrap(first, ReasonPipelineBind)
	if Reason(second) != ReasonConfig {
		t.Fatalf("expected reason preserved, got %s", Reason(second))
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, ReasonConfig) != nil {
		t.Fatalf("expected nil")
	}
	if Reason(nil) != ReasonUnknown {
		t.Fatalf("expected unknown reason for nil error")
	}
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }
