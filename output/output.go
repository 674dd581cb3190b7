// Package output writes finalized leaf alignments in the PHYLIP-like or
// FASTA-like formats §6 defines, optionally gzip-compressed, and provides
// a writer and reader for §6's temporary spill format.
package output

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/evolbioinfo/alisim/alphabet"
)

// Sink accumulates finalized leaf sequences (in state-code form) and
// writes them out once every leaf has arrived. PHYLIP's header line needs
// the final leaf count and length up front, so Sink buffers rather than
// writing byte-by-byte; "streaming" in §4.6's sense means a leaf is handed
// to the sink the moment its branch finishes, not that bytes hit disk
// immediately.
type Sink struct {
	ctx     *alphabet.Ctx
	format  string // "PHYLIP" or "FASTA", validated by config.Config.Validate
	gapChar byte

	order []string
	seqs  map[string][]int
}

// NewSink builds an empty Sink for format over ctx's alphabet.
func NewSink(format string, ctx *alphabet.Ctx) *Sink {
	return &Sink{ctx: ctx, format: strings.ToUpper(format), gapChar: '-', seqs: make(map[string][]int)}
}

// WriteLeaf records name's finalized sequence. Calling it twice for the
// same name overwrites the first (the traversal never does this in
// practice, but it keeps the method total rather than panicking).
func (s *Sink) WriteLeaf(name string, seq []int) error {
	if _, seen := s.seqs[name]; !seen {
		s.order = append(s.order, name)
	}
	s.seqs[name] = seq
	return nil
}

// Leaves returns the accumulated name->sequence map, for callers (FunDi,
// ConstantSiteFilter, dnaerror) that need to transform every leaf before
// the final Flush.
func (s *Sink) Leaves() map[string][]int { return s.seqs }

// SetLeaves replaces the accumulated sequences wholesale, used after
// ConstantSiteFilter compacts every leaf to the target length.
func (s *Sink) SetLeaves(seqs map[string][]int) { s.seqs = seqs }

// Flush writes every accumulated leaf to w in the configured format,
// gzip-compressing first if compress is set.
func (s *Sink) Flush(w io.Writer, compress bool) (err error) {
	var out io.Writer = w
	var gz *gzip.Writer
	if compress {
		gz = gzip.NewWriter(w)
		out = gz
		defer func() {
			if cerr := gz.Close(); err == nil {
				err = cerr
			}
		}()
	}
	bw := bufio.NewWriter(out)
	defer func() {
		if ferr := bw.Flush(); err == nil {
			err = ferr
		}
	}()

	switch s.format {
	case "FASTA":
		return s.writeFasta(bw)
	default:
		return s.writePhylip(bw)
	}
}

// writePhylip writes §6's PHYLIP-like format: a header line
// "<num_leaves> <length>\n", then one line per leaf with the name
// left-padded to the longest taxon name, a space, then the encoded
// sequence.
func (s *Sink) writePhylip(w *bufio.Writer) error {
	if len(s.order) == 0 {
		return fmt.Errorf("output: no leaves to write")
	}
	length := s.ctx.SequenceLenChars(len(s.seqs[s.order[0]]))
	maxName := 0
	for _, name := range s.order {
		if len(name) > maxName {
			maxName = len(name)
		}
	}
	if _, err := fmt.Fprintf(w, "%d %d\n", len(s.order), length); err != nil {
		return err
	}
	buf := make([]byte, s.ctx.CharsPerState())
	for _, name := range s.order {
		if _, err := fmt.Fprintf(w, "%-*s ", maxName, name); err != nil {
			return err
		}
		seq := s.seqs[name]
		line := make([]byte, 0, length)
		for _, st := range seq {
			s.ctx.Encode(st, s.gapChar, buf)
			line = append(line, buf...)
		}
		if _, err := w.Write(line); err != nil {
			return err
		}
		if err := w.WriteByte('\n'); err != nil {
			return err
		}
	}
	return nil
}

// writeFasta writes §6's FASTA-like format: ">name\n<sequence>\n" per
// leaf, in the order leaves were written.
func (s *Sink) writeFasta(w *bufio.Writer) error {
	buf := make([]byte, s.ctx.CharsPerState())
	for _, name := range s.order {
		if _, err := fmt.Fprintf(w, ">%s\n", name); err != nil {
			return err
		}
		seq := s.seqs[name]
		line := make([]byte, 0, len(seq)*s.ctx.CharsPerState())
		for _, st := range seq {
			s.ctx.Encode(st, s.gapChar, buf)
			line = append(line, buf...)
		}
		if _, err := w.Write(line); err != nil {
			return err
		}
		if err := w.WriteByte('\n'); err != nil {
			return err
		}
	}
	return nil
}

// Spill writes leaf sequences to a temporary file in §6's spill format
// ("<name>@<len>@s0 s1 … sN\n"); ReadSpill reads such a file back. The
// traversal in package treewalker does not use it: under indels it keeps
// reconciled leaves in the Sink until the deferred FunDi and
// sequencing-error pass has run.
type Spill struct {
	f *os.File
	w *bufio.Writer
}

// NewSpill creates a fresh temporary spill file.
func NewSpill() (*Spill, error) {
	f, err := os.CreateTemp("", "alisim-spill-*.txt")
	if err != nil {
		return nil, fmt.Errorf("output: creating spill file: %w", err)
	}
	return &Spill{f: f, w: bufio.NewWriter(f)}, nil
}

// WriteLeaf appends one spill line for name's finalized sequence; it
// gives Spill the same narrow signature as Sink so both can sit behind
// the treewalker's node-id-to-name LeafExporter adapter.
func (s *Spill) WriteLeaf(name string, seq []int) error {
	parts := make([]string, len(seq))
	for i, st := range seq {
		parts[i] = strconv.Itoa(st)
	}
	_, err := fmt.Fprintf(s.w, "%s@%d@%s\n", name, len(seq), strings.Join(parts, " "))
	return err
}

// Close flushes and closes the underlying file, keeping it on disk for a
// subsequent Read.
func (s *Spill) Close() error {
	if err := s.w.Flush(); err != nil {
		return err
	}
	return s.f.Close()
}

// Path returns the temporary file's path.
func (s *Spill) Path() string { return s.f.Name() }

// Remove deletes the temporary spill file; callers should defer this once
// its contents have been re-materialized.
func (s *Spill) Remove() error { return os.Remove(s.f.Name()) }

// ReadSpill re-materializes every leaf written to a spill file at path,
// returning the names sorted alphabetically (not in write order) together
// with the name->sequence map.
func ReadSpill(path string) (order []string, leaves map[string][]int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("output: reopening spill file: %w", err)
	}
	defer f.Close()

	leaves = make(map[string][]int)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<24)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, "@", 3)
		if len(fields) != 3 {
			return nil, nil, fmt.Errorf("output: malformed spill line %q", line)
		}
		name := fields[0]
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, nil, fmt.Errorf("output: malformed spill length in %q: %w", line, err)
		}
		toks := strings.Fields(fields[2])
		if len(toks) != n {
			return nil, nil, fmt.Errorf("output: spill line for %q declares length %d but has %d states", name, n, len(toks))
		}
		seq := make([]int, n)
		for i, tok := range toks {
			v, err := strconv.Atoi(tok)
			if err != nil {
				return nil, nil, fmt.Errorf("output: malformed spill state in %q: %w", line, err)
			}
			seq[i] = v
		}
		if _, seen := leaves[name]; !seen {
			order = append(order, name)
		}
		leaves[name] = seq
	}
	if err := sc.Err(); err != nil {
		return nil, nil, fmt.Errorf("output: scanning spill file: %w", err)
	}
	sort.Strings(order) // returned sorted by name, not in write order
	return order, leaves, nil
}
