// Package alphabet holds the immutable facts about the character set a
// simulation runs over: how many states it has, how many characters each
// state occupies once written out, and the sentinel used for gaps and
// missing data.
package alphabet

import "fmt"

// Kind identifies one of the alphabets a simulation can run over.
type Kind string

// Supported alphabet kinds, matching the -alphabet-kind configuration
// option.
const (
	BIN   Kind = "BIN"
	DNA   Kind = "DNA"
	AA    Kind = "AA"
	NT2AA Kind = "NT2AA"
	CODON Kind = "CODON"
	MORPH Kind = "MORPH"
)

// UNKNOWN is the sentinel state code used both for true missing data and
// for deletion-induced gaps. It never participates in substitution rates.
const UNKNOWN = -1

// standard genetic code, indexed by codon (T=0,C=1,A=2,G=3 per position,
// first position most significant): codon index = 16*p1 + 4*p2 + p3.
var geneticCode = [64]byte{
	'F', 'F', 'L', 'L', 'S', 'S', 'S', 'S', 'Y', 'Y', '*', '*', 'C', 'C', '*', 'W',
	'L', 'L', 'L', 'L', 'P', 'P', 'P', 'P', 'H', 'H', 'Q', 'Q', 'R', 'R', 'R', 'R',
	'I', 'I', 'I', 'M', 'T', 'T', 'T', 'T', 'N', 'N', 'K', 'K', 'S', 'S', 'R', 'R',
	'V', 'V', 'V', 'V', 'A', 'A', 'A', 'A', 'D', 'D', 'E', 'E', 'G', 'G', 'G', 'G',
}

var nucLetters = [4]byte{'T', 'C', 'A', 'G'}

// Ctx holds the immutable alphabet facts consumed by every other
// component. It is built once, at configuration time, and never mutated.
type Ctx struct {
	kind Kind

	// S is the number of non-gap states.
	S int

	// K is the number of output characters written per state (1 for
	// nucleotide/amino-acid/binary/morphological, 3 for codon).
	K int

	// codons lists the S sense-codon indices into the 64-entry genetic
	// code table, in state order. Empty for non-codon alphabets.
	codons []int
}

// New builds an alphabet context for kind. For MORPH, nstates gives the
// number of morphological character states; it is ignored otherwise.
func New(kind Kind, nstates int) (*Ctx, error) {
	switch kind {
	case BIN:
		return &Ctx{kind: kind, S: 2, K: 1}, nil
	case DNA:
		return &Ctx{kind: kind, S: 4, K: 1}, nil
	case AA, NT2AA:
		return &Ctx{kind: kind, S: 20, K: 1}, nil
	case CODON:
		codons := senseCodons()
		return &Ctx{kind: kind, S: len(codons), K: 3, codons: codons}, nil
	case MORPH:
		if nstates < 2 {
			return nil, fmt.Errorf("alphabet: MORPH alphabet needs at least 2 states, got %d", nstates)
		}
		return &Ctx{kind: kind, S: nstates, K: 1}, nil
	default:
		return nil, fmt.Errorf("alphabet: unknown alphabet kind %q", kind)
	}
}

func senseCodons() []int {
	codons := make([]int, 0, 61)
	for i := 0; i < 64; i++ {
		if geneticCode[i] != '*' {
			codons = append(codons, i)
		}
	}
	return codons
}

// Kind returns the alphabet kind this context was built for.
func (c *Ctx) Kind() Kind { return c.kind }

// NumStates returns S, the number of non-gap states.
func (c *Ctx) NumStates() int { return c.S }

// CharsPerState returns K, the number of output characters per state.
func (c *Ctx) CharsPerState() int { return c.K }

// IsGap reports whether state is the UNKNOWN sentinel.
func (c *Ctx) IsGap(state int) bool { return state == UNKNOWN }

// Encode writes the K output characters for state into dst (which must
// have length K), or K copies of gapChar if state is UNKNOWN.
func (c *Ctx) Encode(state int, gapChar byte, dst []byte) {
	if state == UNKNOWN {
		for i := 0; i < c.K; i++ {
			dst[i] = gapChar
		}
		return
	}
	switch c.kind {
	case CODON:
		codon := c.codons[state]
		dst[0] = nucLetters[(codon>>4)&3]
		dst[1] = nucLetters[(codon>>2)&3]
		dst[2] = nucLetters[codon&3]
	default:
		dst[0] = c.letter(state)
	}
}

var dnaLetters = [4]byte{'A', 'C', 'G', 'T'}
var aaLetters = [20]byte{'A', 'R', 'N', 'D', 'C', 'Q', 'E', 'G', 'H', 'I', 'L', 'K', 'M', 'F', 'P', 'S', 'T', 'W', 'Y', 'V'}
var binLetters = [2]byte{'0', '1'}

func (c *Ctx) letter(state int) byte {
	switch c.kind {
	case DNA:
		return dnaLetters[state]
	case AA, NT2AA:
		return aaLetters[state]
	case BIN:
		return binLetters[state]
	case MORPH:
		if state < 10 {
			return byte('0' + state)
		}
		return byte('A' + state - 10)
	default:
		return '?'
	}
}

// SequenceLenChars returns the number of output characters a sequence of
// the given number of sites (states) occupies.
func (c *Ctx) SequenceLenChars(numSites int) int { return numSites * c.K }

// Codons returns the sense-codon indices this alphabet was built with, in
// state order; nil for non-CODON alphabets. Used by the model adapter to
// build the codon rate matrix over the same state ordering.
func (c *Ctx) Codons() []int { return c.codons }

// Decode reads one state's worth of characters (K of them, starting at
// offset off in chars) and returns its state code, or UNKNOWN if every
// character in the span is gapChar. It is the inverse of Encode, used to
// parse an ancestral-sequence FASTA record into state codes.
func (c *Ctx) Decode(chars []byte, off int, gapChar byte) (int, error) {
	span := chars[off : off+c.K]
	allGap := true
	for _, b := range span {
		if b != gapChar {
			allGap = false
			break
		}
	}
	if allGap {
		return UNKNOWN, nil
	}
	switch c.kind {
	case CODON:
		idx := (nucIndex(span[0]) << 4) | (nucIndex(span[1]) << 2) | nucIndex(span[2])
		for state, codon := range c.codons {
			if codon == idx {
				return state, nil
			}
		}
		return 0, fmt.Errorf("alphabet: %q is not a sense codon", string(span))
	default:
		return c.stateOf(span[0])
	}
}

func nucIndex(b byte) int {
	switch b {
	case 'T', 't':
		return 0
	case 'C', 'c':
		return 1
	case 'A', 'a':
		return 2
	case 'G', 'g':
		return 3
	}
	return 0
}

func (c *Ctx) stateOf(b byte) (int, error) {
	var letters []byte
	switch c.kind {
	case DNA:
		letters = dnaLetters[:]
	case AA, NT2AA:
		letters = aaLetters[:]
	case BIN:
		letters = binLetters[:]
	case MORPH:
		for i := 0; i < c.S; i++ {
			if c.letter(i) == b {
				return i, nil
			}
		}
		return 0, fmt.Errorf("alphabet: %q is not a valid MORPH character", string(b))
	}
	for i, l := range letters {
		if l == b {
			return i, nil
		}
	}
	return 0, fmt.Errorf("alphabet: %q is not a valid character for alphabet %s", string(b), c.kind)
}
