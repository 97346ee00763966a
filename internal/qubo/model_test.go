package qubo

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParsePair(t *testing.T) {
	tests := []struct {
		key     string
		want    Pair
		wantErr bool
	}{
		{key: "(0,1)", want: Pair{0, 1}},
		{key: "(1,0)", want: Pair{0, 1}}, // normalized
		{key: "(2,2)", want: Pair{2, 2}},
		{key: "0,1", want: Pair{0, 1}}, // parens optional
		{key: "(0, 1)", want: Pair{0, 1}},
		{key: " ( 3 , 7 ) ", want: Pair{3, 7}},
		{key: "(-1,4)", want: Pair{-1, 4}},
		{key: "(0)", wantErr: true}, // wrong arity
		{key: "7", wantErr: true},
		{key: "(0,1,2)", wantErr: true},
		{key: "(a,b)", wantErr: true},
		{key: "(0,)", wantErr: true},
		{key: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParsePair(tt.key)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParsePair(%q) = %v, want error", tt.key, got)
				continue
			}
			var keyErr *KeyError
			if !errors.As(err, &keyErr) {
				t.Errorf("ParsePair(%q) error = %T, want *KeyError", tt.key, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParsePair(%q): %v", tt.key, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParsePair(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestParseVar(t *testing.T) {
	if v, err := ParseVar(" 42 "); err != nil || v != 42 {
		t.Errorf("ParseVar(\" 42 \") = %d, %v", v, err)
	}
	if _, err := ParseVar("(0,1)"); err == nil {
		t.Error("ParseVar(\"(0,1)\") should fail")
	}
}

func TestFromQUBO(t *testing.T) {
	m, err := FromQUBO(map[string]float64{
		"(0,0)": -1.0,
		"(1,1)": -1.0,
		"(0,1)": 2.0,
	})
	if err != nil {
		t.Fatalf("FromQUBO: %v", err)
	}
	if m.Kind != KindQUBO {
		t.Errorf("Kind = %s, want %s", m.Kind, KindQUBO)
	}
	wantLinear := map[int]float64{0: -1.0, 1: -1.0}
	if diff := cmp.Diff(wantLinear, m.Linear); diff != "" {
		t.Errorf("Linear mismatch (-want +got):\n%s", diff)
	}
	wantQuad := map[Pair]float64{{0, 1}: 2.0}
	if diff := cmp.Diff(wantQuad, m.Quadratic); diff != "" {
		t.Errorf("Quadratic mismatch (-want +got):\n%s", diff)
	}
	if got := m.NumVariables(); got != 2 {
		t.Errorf("NumVariables = %d, want 2", got)
	}
}

func TestFromQUBOMalformedKey(t *testing.T) {
	_, err := FromQUBO(map[string]float64{"(0)": 1.0})
	var keyErr *KeyError
	if !errors.As(err, &keyErr) {
		t.Fatalf("FromQUBO with wrong-arity key: error = %v, want *KeyError", err)
	}
	if keyErr.Key != "(0)" {
		t.Errorf("KeyError.Key = %q, want \"(0)\"", keyErr.Key)
	}
}

func TestFromIsing(t *testing.T) {
	m, err := FromIsing(
		map[string]float64{"0": 1.0, "1": -1.0},
		map[string]float64{"(0,1)": -1.0},
	)
	if err != nil {
		t.Fatalf("FromIsing: %v", err)
	}
	if m.Kind != KindIsing {
		t.Errorf("Kind = %s, want %s", m.Kind, KindIsing)
	}
	if got := m.NumVariables(); got != 2 {
		t.Errorf("NumVariables = %d, want 2", got)
	}
	if m.Linear[0] != 1.0 || m.Linear[1] != -1.0 {
		t.Errorf("Linear = %v", m.Linear)
	}
	if m.Quadratic[Pair{0, 1}] != -1.0 {
		t.Errorf("Quadratic = %v", m.Quadratic)
	}
}

func TestFromIsingSelfCouplingFoldsToLinear(t *testing.T) {
	m, err := FromIsing(
		map[string]float64{"0": 0.5},
		map[string]float64{"(0,0)": 2.0},
	)
	if err != nil {
		t.Fatalf("FromIsing: %v", err)
	}
	// J applied after h: last write wins.
	if m.Linear[0] != 2.0 {
		t.Errorf("Linear[0] = %v, want 2.0", m.Linear[0])
	}
	if len(m.Quadratic) != 0 {
		t.Errorf("Quadratic = %v, want empty", m.Quadratic)
	}
}

func TestEnergyQUBO(t *testing.T) {
	m, err := FromQUBO(map[string]float64{
		"(0,0)": -1.0,
		"(1,1)": -1.0,
		"(0,1)": 2.0,
	})
	if err != nil {
		t.Fatalf("FromQUBO: %v", err)
	}
	tests := []struct {
		assignment map[int]int8
		want       float64
	}{
		{map[int]int8{0: 0, 1: 0}, 0},
		{map[int]int8{0: 1, 1: 0}, -1},
		{map[int]int8{0: 0, 1: 1}, -1},
		{map[int]int8{0: 1, 1: 1}, 0},
	}
	for _, tt := range tests {
		if got := m.Energy(tt.assignment); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("Energy(%v) = %v, want %v", tt.assignment, got, tt.want)
		}
	}
}

func TestEnergyIsing(t *testing.T) {
	m, err := FromIsing(
		map[string]float64{"0": 1.0, "1": -1.0},
		map[string]float64{"(0,1)": -1.0},
	)
	if err != nil {
		t.Fatalf("FromIsing: %v", err)
	}
	// h0*s0 + h1*s1 + J01*s0*s1 at s = (-1, +1): -1 - 1 + 1 = -1
	if got := m.Energy(map[int]int8{0: -1, 1: 1}); math.Abs(got-(-1)) > 1e-12 {
		t.Errorf("Energy = %v, want -1", got)
	}
	// Ground state (-1, +1) vs (+1, -1): symmetric couple, h breaks the tie.
	if best := m.Energy(map[int]int8{0: -1, 1: 1}); m.Energy(map[int]int8{0: 1, 1: -1}) < best {
		t.Error("expected (-1,+1) to be no worse than (+1,-1)")
	}
}

func TestVariablesSortedAndUnique(t *testing.T) {
	m, err := FromQUBO(map[string]float64{
		"(5,2)": 1.0,
		"(2,2)": 1.0,
		"(9,5)": 1.0,
	})
	if err != nil {
		t.Fatalf("FromQUBO: %v", err)
	}
	want := []int{2, 5, 9}
	if diff := cmp.Diff(want, m.Variables()); diff != "" {
		t.Errorf("Variables mismatch (-want +got):\n%s", diff)
	}
}
