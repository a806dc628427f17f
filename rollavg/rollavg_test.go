package rollavg

import "testing"

func TestRollingAverage_EmptyIsZero(t *testing.T) {
	r := New(3)
	if got := r.Avg(); got != 0 {
		t.Fatalf("Avg() = %v, want 0", got)
	}
}

func TestRollingAverage_PartialWindow(t *testing.T) {
	r := New(4)
	r.Add(2)
	r.Add(4)
	if got, want := r.Avg(), 3.0; got != want {
		t.Fatalf("Avg() = %v, want %v", got, want)
	}
}

func TestRollingAverage_OverwritesOldest(t *testing.T) {
	r := New(3)
	r.Add(1)
	r.Add(2)
	r.Add(3)
	if got, want := r.Avg(), 2.0; got != want {
		t.Fatalf("Avg() = %v, want %v", got, want)
	}

	r.Add(9) // overwrites the 1
	if got, want := r.Avg(), (9.0+2.0+3.0)/3.0; got != want {
		t.Fatalf("Avg() = %v, want %v", got, want)
	}
}

func TestRollingAverage_CacheInvalidatedOnAdd(t *testing.T) {
	r := New(2)
	r.Add(0)
	r.Add(0)
	if got := r.Avg(); got != 0 {
		t.Fatalf("Avg() = %v, want 0", got)
	}
	r.Add(10)
	if got, want := r.Avg(), 5.0; got != want {
		t.Fatalf("Avg() after add = %v, want %v", got, want)
	}
}
