package simulator

import (
	"fmt"
	"os"

	"github.com/evolbioinfo/goalign/io/fasta"
)

// readFastaFirstRecord reads a single-sequence FASTA file the way
// snag.go's -root-seq handling does (fasta.NewParser(r).Parse(), then
// requiring exactly one record), returning its raw characters.
func readFastaFirstRecord(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ali, err := fasta.NewParser(f).Parse()
	if err != nil {
		return nil, err
	}
	if ali.NbSequences() != 1 {
		return nil, fmt.Errorf("ancestral sequence file must contain exactly one sequence, got %d", ali.NbSequences())
	}
	chars, ok := ali.GetSequenceCharById(0)
	if !ok {
		return nil, fmt.Errorf("ancestral sequence file: could not read sequence 0")
	}
	return chars, nil
}
