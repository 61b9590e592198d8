package value

import (
	"errors"
	"testing"
)

func TestEquationEngine_Apply(t *testing.T) {
	eng, err := NewEquationEngine()
	if err != nil {
		t.Fatalf("NewEquationEngine() error = %v", err)
	}

	out, err := eng.Apply("x / 2.0 + 16.0", Float(20))
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if got, _ := out.Float64(); got != 26 {
		t.Errorf("Apply(x/2+16, 20) = %v, want 26", got)
	}

	// Ints are widened to double before evaluation.
	out, err = eng.Apply("x * 10.0", Int(5))
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if got, _ := out.Float64(); got != 50 {
		t.Errorf("Apply(x*10, 5) = %v, want 50", got)
	}
}

func TestEquationEngine_NonNumericNoOp(t *testing.T) {
	eng, err := NewEquationEngine()
	if err != nil {
		t.Fatalf("NewEquationEngine() error = %v", err)
	}

	out, err := eng.Apply("x * 2.0", String("heat"))
	if err != nil {
		t.Fatalf("Apply(string) error = %v", err)
	}
	if out.FlattenString() != "heat" {
		t.Errorf("Apply(string) = %q, want heat (no-op)", out.FlattenString())
	}

	out, err = eng.Apply("x * 2.0", Null())
	if err != nil {
		t.Fatalf("Apply(null) error = %v", err)
	}
	if !out.IsNull() {
		t.Error("Apply(null) should stay null")
	}
}

func TestEquationEngine_BadExpression(t *testing.T) {
	eng, err := NewEquationEngine()
	if err != nil {
		t.Fatalf("NewEquationEngine() error = %v", err)
	}

	if _, err := eng.Apply("x +* 2", Float(1)); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("Apply(bad expression) error = %v, want ErrInvalidValue", err)
	}

	// Unknown variables fail compilation.
	if _, err := eng.Apply("y * 2.0", Float(1)); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("Apply(unknown variable) error = %v, want ErrInvalidValue", err)
	}
}

func TestEquationEngine_CachesPrograms(t *testing.T) {
	eng, err := NewEquationEngine()
	if err != nil {
		t.Fatalf("NewEquationEngine() error = %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := eng.Apply("x + 1.0", Float(float64(i))); err != nil {
			t.Fatalf("Apply() error = %v", err)
		}
	}

	eng.mu.RLock()
	defer eng.mu.RUnlock()
	if len(eng.programs) != 1 {
		t.Errorf("program cache has %d entries, want 1", len(eng.programs))
	}
}
