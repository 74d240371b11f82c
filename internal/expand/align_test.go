package expand

import (
	"reflect"
	"testing"

	"github.com/setexpand/setexpand/internal/corpus"
	seterrors "github.com/setexpand/setexpand/internal/errors"
	"github.com/setexpand/setexpand/internal/seedset"
)

func loadSeed(rows ...string) *seedset.SeedSet {
	seed := seedset.New(seedset.Options{})
	parsed := make([]seedset.Row, len(rows))
	refs := make([]seedset.RowRef, len(rows))
	for i, r := range rows {
		parsed[i] = seedset.ParseRow(r)
		refs[i] = seedset.RowRef{TableID: 1, RowID: int64(i)}
	}
	seed.Load(refs, parsed)
	return seed
}

func TestAlignText(t *testing.T) {
	seed := loadSeed("a || x", "b || y")
	cols := []corpus.Column{
		{ColID: 0, Values: []string{"x", "y", "z"}},
		{ColID: 3, Values: []string{"a", "b"}},
		{ColID: 5, Values: []string{"q"}},
	}

	perm, score, err := alignText(seed, []int{0, 1}, cols)
	if err != nil {
		t.Fatalf("alignText() error: %v", err)
	}
	if !reflect.DeepEqual(perm, []int{3, 0}) {
		t.Errorf("perm = %v, want [3 0]", perm)
	}
	if want := 1 + 2.0/3; score < want-1e-9 || score > want+1e-9 {
		t.Errorf("score = %v, want %v", score, want)
	}
}

func TestAlignText_Infeasible(t *testing.T) {
	seed := loadSeed("a || x", "b || y")

	_, _, err := alignText(seed, []int{0, 1}, []corpus.Column{{ColID: 0, Values: []string{"a"}}})
	if seterrors.GetCode(err) != seterrors.CodeInfeasibleAlignment {
		t.Errorf("too few columns: got %v, want infeasible", err)
	}

	// The best assignment leaves column 1 with zero overlap, below slider 50.
	_, _, err = alignText(seed, []int{0, 1}, []corpus.Column{
		{ColID: 0, Values: []string{"a", "b"}},
		{ColID: 1, Values: []string{"nope"}},
	})
	if seterrors.GetCode(err) != seterrors.CodeInfeasibleAlignment {
		t.Errorf("below threshold: got %v, want infeasible", err)
	}

	// Slider 0 accepts any overlap.
	seed.ApplySettings([]int{50, 0}, nil, 0)
	if _, _, err := alignText(seed, []int{0, 1}, []corpus.Column{
		{ColID: 0, Values: []string{"a", "b"}},
		{ColID: 1, Values: []string{"nope"}},
	}); err != nil {
		t.Errorf("slider 0: unexpected error %v", err)
	}
}

func TestAlignNumeric(t *testing.T) {
	seed := loadSeed("a || 5 || 100", "b || 7 || 300")
	cols := []corpus.Column{
		{ColID: 1, Values: []string{"150", "250", "320"}},
		{ColID: 2, Values: []string{"5", "6", "7"}},
		{ColID: 4, Values: []string{"-9000", "-9100"}},
	}

	perm, score, err := alignNumeric(seed, []int{1, 2}, cols)
	if err != nil {
		t.Fatalf("alignNumeric() error: %v", err)
	}
	if !reflect.DeepEqual(perm, []int{2, 1}) {
		t.Errorf("perm = %v, want [2 1]", perm)
	}
	if score > 0 {
		t.Errorf("score = %v, want <= 0", score)
	}

	_, _, err = alignNumeric(seed, []int{1, 2}, cols[:1])
	if seterrors.GetCode(err) != seterrors.CodeInfeasibleAlignment {
		t.Errorf("too few columns: got %v, want infeasible", err)
	}
}

func TestFreeColumns(t *testing.T) {
	got := freeColumns([]int{0, 1, 2, 3, 4}, []int{2}, []int{0}, 2)
	if !reflect.DeepEqual(got, []int{1, 3}) {
		t.Errorf("freeColumns() = %v, want [1 3]", got)
	}

	got = freeColumns([]int{0, 1}, []int{0}, []int{1}, 2)
	if len(got) != 0 {
		t.Errorf("freeColumns() = %v, want none", got)
	}
}

func TestCandidateInverse(t *testing.T) {
	seed := loadSeed("a || 1 || NULL || b", "c || 2 || NULL || d")
	cand := &Candidate{TextPerm: []int{4, 0}, NumericPerm: []int{2}, NullPerm: []int{1}}

	got := cand.inverse(seed)
	want := map[int]int{4: 0, 2: 1, 1: 2, 0: 3}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("inverse() = %v, want %v", got, want)
	}

	// A NULL column left without a candidate column stays unmapped.
	cand.NullPerm = nil
	if _, ok := cand.inverse(seed)[1]; ok {
		t.Error("expected column 1 to be unmapped")
	}
}
