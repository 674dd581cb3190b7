package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/evolbioinfo/alisim/alphabet"
)

func TestWriteLeafThenFlushPhylip(t *testing.T) {
	ctx, err := alphabet.New(alphabet.DNA, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := NewSink("PHYLIP", ctx)
	if err := s.WriteLeaf("t1", []int{0, 1, 2, 3}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.WriteLeaf("t2", []int{3, 2, 1, 0}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var buf bytes.Buffer
	if err := s.Flush(&buf, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if lines[0] != "2 4" {
		t.Fatalf("expected header %q, got %q", "2 4", lines[0])
	}
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %v", len(lines), lines)
	}
	if !strings.Contains(lines[1], "ACGT") {
		t.Fatalf("expected t1 row to decode to ACGT, got %q", lines[1])
	}
}

func TestWriteLeafThenFlushFasta(t *testing.T) {
	ctx, err := alphabet.New(alphabet.DNA, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := NewSink("fasta", ctx)
	if err := s.WriteLeaf("t1", []int{0, 1, -1, 3}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var buf bytes.Buffer
	if err := s.Flush(&buf, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := buf.String()
	if !strings.HasPrefix(got, ">t1\n") {
		t.Fatalf("expected fasta header, got %q", got)
	}
	if !strings.Contains(got, "AC-T") {
		t.Fatalf("expected AC-T sequence with gap at position 3, got %q", got)
	}
}

func TestFlushErrorsWithNoLeaves(t *testing.T) {
	ctx, err := alphabet.New(alphabet.DNA, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := NewSink("PHYLIP", ctx)
	var buf bytes.Buffer
	if err := s.Flush(&buf, false); err == nil {
		t.Fatalf("expected error when flushing with no leaves")
	}
}

func TestSpillWriteAndReadRoundTrips(t *testing.T) {
	sp, err := NewSpill()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer sp.Remove()

	if err := sp.WriteLeaf("b", []int{1, 2, 3}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := sp.WriteLeaf("a", []int{-1, 0}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := sp.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	order, leaves, err := ReadSpill(sp.Path())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("expected sorted order [a b], got %v", order)
	}
	if len(leaves["b"]) != 3 || leaves["b"][0] != 1 || leaves["b"][1] != 2 || leaves["b"][2] != 3 {
		t.Fatalf("unexpected leaf b: %v", leaves["b"])
	}
	if len(leaves["a"]) != 2 || leaves["a"][0] != -1 || leaves["a"][1] != 0 {
		t.Fatalf("unexpected leaf a: %v", leaves["a"])
	}
}

func TestReadSpillRejectsMalformedLine(t *testing.T) {
	sp, err := NewSpill()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer sp.Remove()
	if _, err := sp.w.WriteString("not-a-valid-line\n"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := sp.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := ReadSpill(sp.Path()); err == nil {
		t.Fatalf("expected error for malformed spill line")
	}
}
