package cache

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
)

func digestOf(s string) string {
	sum := sha256.Sum256([]byte(s))
	return base64.StdEncoding.EncodeToString(sum[:])
}

func TestCanonicalize_BasicTypes(t *testing.T) {
	tests := []struct {
		name string
		args []any
		want string
	}{
		{name: "no args", args: nil, want: ""},
		{name: "single int", args: []any{42}, want: "42"},
		{name: "mixed scalars", args: []any{1, "hello", true, 3.14}, want: "1:hello:true:3.14"},
		{name: "nil value", args: []any{nil, "x"}, want: "null:x"},
		{name: "nil pointer", args: []any{(*int)(nil)}, want: "null"},
		{name: "pointer to scalar", args: []any{ptr(7)}, want: "7"},
		{name: "slice", args: []any{[]int{3, 1, 2}}, want: "[3,1,2]"},
		{name: "nil slice", args: []any{[]string(nil)}, want: "null"},
		{name: "map values in key order", args: []any{map[string]int{"b": 2, "a": 1}}, want: "[1,2]"},
		{name: "uuid uses text form", args: []any{uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")}, want: "6ba7b810-9dad-11d1-80b4-00c04fd430c8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Canonicalize(tt.args...); got != tt.want {
				t.Errorf("Canonicalize() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCanonicalize_StructValuesSortedByJSONKey(t *testing.T) {
	type query struct {
		Zeta  string `json:"zeta"`
		Alpha int    `json:"alpha"`
	}

	got := Canonicalize(query{Zeta: "z", Alpha: 9})
	if want := `[9,"z"]`; got != want {
		t.Errorf("Canonicalize(struct) = %q, want %q", got, want)
	}

	if got := Canonicalize(&query{Zeta: "z", Alpha: 9}); got != `[9,"z"]` {
		t.Errorf("Canonicalize(*struct) = %q, want same as value form", got)
	}
}

func TestDefaultKeyHasher_Deterministic(t *testing.T) {
	hasher := NewDefaultKeyHasher()
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	args := []any{"sha", 12, map[string]any{"limit": 10, "offset": 0}, at}

	first := hasher.Hash(args...)
	for i := 0; i < 10; i++ {
		if got := hasher.Hash(args...); got != first {
			t.Fatalf("Hash() not deterministic: %q != %q", got, first)
		}
	}

	if len(first) != 44 {
		t.Errorf("expected 44 character base64 digest, got %d (%q)", len(first), first)
	}
}

func TestDefaultKeyHasher_TimeMillisecondSensitivity(t *testing.T) {
	hasher := NewDefaultKeyHasher()
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	a := hasher.Hash(at)
	b := hasher.Hash(at.Add(time.Millisecond))
	if a == b {
		t.Error("expected dates one millisecond apart to produce different digests")
	}

	if got, want := a, digestOf("1714564800000"); got != want {
		t.Errorf("Hash(time) = %q, want digest of epoch millis %q", got, want)
	}

	if hasher.Hash(&at) != a {
		t.Error("expected *time.Time to hash like time.Time")
	}
}

func TestDefaultKeyHasher_OrderSensitive(t *testing.T) {
	hasher := NewDefaultKeyHasher()
	if hasher.Hash("a", "b") == hasher.Hash("b", "a") {
		t.Error("expected argument order to change the digest")
	}
}

func TestDefaultKeyHasher_ZeroArguments(t *testing.T) {
	hasher := NewDefaultKeyHasher()
	if got, want := hasher.Hash(), digestOf(""); got != want {
		t.Errorf("Hash() = %q, want digest of empty string %q", got, want)
	}
	// Zero arguments and a single empty string both canonicalize to "".
	if hasher.Hash() != hasher.Hash("") {
		t.Error("expected zero args to hash like a single empty string")
	}
}

func TestDefaultKeyHasher_ObjectKeysDiscarded(t *testing.T) {
	hasher := NewDefaultKeyHasher()

	ab := map[string]int{"a": 1, "b": 2}
	xy := map[string]int{"x": 1, "y": 2}
	if hasher.Hash(ab) != hasher.Hash(xy) {
		t.Error("expected objects with equal sorted value lists to collide")
	}

	ba := map[string]int{"a": 2, "b": 1}
	if hasher.Hash(ab) == hasher.Hash(ba) {
		t.Error("expected different value order to produce different digests")
	}
}

func TestDefaultKeyHasher_FunctionsStablePerProcess(t *testing.T) {
	hasher := NewDefaultKeyHasher()
	fn := func() {}
	if hasher.Hash(fn) != hasher.Hash(fn) {
		t.Error("expected the same function value to hash identically")
	}
}

func ptr[T any](v T) *T { return &v }

func TestDefaultKeyHasher_FunctionSlices(t *testing.T) {
	hasher := NewDefaultKeyHasher()
	byName := func(string) string { return "name" }
	byID := func(string) string { return "id" }

	one := []func(string) string{byName}
	two := []func(string) string{byName, byID}

	if hasher.Hash(one) == hasher.Hash(two) {
		t.Error("expected criteria lists of different contents to hash differently")
	}
	if hasher.Hash(one) != hasher.Hash([]func(string) string{byName}) {
		t.Error("expected identical criteria lists to hash identically")
	}
	if got := Canonicalize(one); got != fmt.Sprintf("[func:%p]", byName) {
		t.Errorf("Canonicalize() = %q", got)
	}
}

type criteria struct {
	ID     int               `json:"id"`
	Filter func(string) bool `json:"filter"`
	Note   string            `json:"-"`
}

func TestDefaultKeyHasher_UnmarshalableObjects(t *testing.T) {
	hasher := NewDefaultKeyHasher()
	filter := func(string) bool { return true }

	if hasher.Hash(criteria{ID: 1, Filter: filter}) == hasher.Hash(criteria{ID: 2, Filter: filter}) {
		t.Error("expected structs with function fields to hash by their other values")
	}
	if hasher.Hash(criteria{ID: 1, Filter: filter, Note: "a"}) != hasher.Hash(criteria{ID: 1, Filter: filter, Note: "b"}) {
		t.Error("expected fields tagged json:\"-\" to be ignored")
	}
	if got, want := Canonicalize(criteria{ID: 7, Filter: filter}), fmt.Sprintf("[func:%p,7]", filter); got != want {
		t.Errorf("Canonicalize() = %q, want %q", got, want)
	}

	nan := math.NaN()
	if hasher.Hash(map[string]float64{"x": nan, "id": 1}) == hasher.Hash(map[string]float64{"x": nan, "id": 2}) {
		t.Error("expected maps holding NaN to hash by their values")
	}

	cells := func(v string) map[[2]int]string { return map[[2]int]string{{0, 0}: "a", {0, 1}: v} }
	if hasher.Hash(cells("b")) == hasher.Hash(cells("c")) {
		t.Error("expected maps with array keys to hash by their values")
	}
	if got := Canonicalize(cells("b")); got != "[a,b]" {
		t.Errorf("Canonicalize() = %q, want [a,b]", got)
	}
}

func TestDefaultKeyHasher_ClosuresShareCodePointer(t *testing.T) {
	hasher := NewDefaultKeyHasher()
	whereID := func(id int) func() int { return func() int { return id } }

	// Closures built from one literal share a code pointer, so bound values
	// must be passed as plain arguments to reach the digest.
	if hasher.Hash(whereID(1)) != hasher.Hash(whereID(2)) {
		t.Error("expected closures of the same literal to hash identically")
	}
	if hasher.Hash(whereID(1), 1) == hasher.Hash(whereID(2), 2) {
		t.Error("expected plain arguments to distinguish the calls")
	}
}
