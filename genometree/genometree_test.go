package genometree

import "testing"

func TestExportIdentityWithNoInsertions(t *testing.T) {
	tr := Build(&Insertion{}, 5) // sentinel only, no real events
	old := []int{0, 1, 2, 3, 4}
	out, err := tr.Export(old, 5, -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range old {
		if out[i] != old[i] {
			t.Fatalf("expected identity export, got %v want %v", out, old)
		}
	}
}

func TestExportSingleInsertionProducesGapColumns(t *testing.T) {
	sentinel := &Insertion{}
	ins := &Insertion{Position: 2, Length: 3}
	sentinel.Next = ins

	tr := Build(sentinel, 5)
	if tr.Length() != 8 {
		t.Fatalf("expected length 8, got %d", tr.Length())
	}

	old := []int{10, 11, 12, 13, 14}
	out, err := tr.Export(old, 8, -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int{10, 11, -1, -1, -1, 12, 13, 14}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("export mismatch at %d: got %v want %v", i, out, want)
		}
	}
}

func TestUpdateMatchesEquivalentBuild(t *testing.T) {
	sentinel := &Insertion{}
	a := &Insertion{Position: 1, Length: 2}
	b := &Insertion{Position: 6, Length: 1}
	sentinel.Next = a
	a.Next = b

	built := Build(sentinel, 4)

	incr := BuildUpTo(sentinel, 4, a)
	if err := incr.Update(sentinel, a); err != nil {
		t.Fatalf("update a: %v", err)
	}
	if err := incr.Update(a, b); err != nil {
		t.Fatalf("update b: %v", err)
	}

	if built.Length() != incr.Length() {
		t.Fatalf("length mismatch: built=%d incremental=%d", built.Length(), incr.Length())
	}
	old := []int{0, 1, 2, 3}
	wantSeq, err := built.Export(old, built.Length(), -1)
	if err != nil {
		t.Fatalf("export built: %v", err)
	}
	gotSeq, err := incr.Export(old, incr.Length(), -1)
	if err != nil {
		t.Fatalf("export incremental: %v", err)
	}
	for i := range wantSeq {
		if wantSeq[i] != gotSeq[i] {
			t.Fatalf("sequence mismatch at %d: got %v want %v", i, gotSeq, wantSeq)
		}
	}
}

func TestUpdateRejectsNonConsecutive(t *testing.T) {
	sentinel := &Insertion{}
	a := &Insertion{Position: 0, Length: 1}
	b := &Insertion{Position: 0, Length: 1}
	sentinel.Next = a

	tr := Build(sentinel, 2)
	if err := tr.Update(sentinel, b); err == nil {
		t.Fatalf("expected error for non-consecutive update")
	}
}
