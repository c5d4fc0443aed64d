// Package store persists one party's triple shares as CSV.
package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"math/big"
	"os"
	"path/filepath"

	"github.com/chain5j/chain5j-beaver/beaver"
	"github.com/pkg/errors"
)

var header = []string{"a", "b", "c"}

// ErrFormat is returned for files that are not triple CSVs.
var ErrFormat = errors.New("store: invalid triple file")

// FileName returns the output file name of the party with the given rank.
func FileName(rank int) string {
	return fmt.Sprintf("p%d.csv", rank+1)
}

// Write stores triples at path, creating its directory if needed.
func Write(path string, triples []*beaver.Triple) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "store: create directory")
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "store: create file")
	}
	if err := Encode(f, triples); err != nil {
		f.Close()
		return err
	}
	return errors.Wrap(f.Close(), "store: close file")
}

// Encode writes the header and one row per triple.
func Encode(w io.Writer, triples []*beaver.Triple) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return errors.Wrap(err, "store: write header")
	}
	for _, t := range triples {
		if err := cw.Write([]string{t.A.String(), t.B.String(), t.C.String()}); err != nil {
			return errors.Wrap(err, "store: write triple")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "store: flush")
}

// Read loads the triples stored at path.
func Read(path string) ([]*beaver.Triple, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "store: open file")
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses what Encode wrote.
func Decode(r io.Reader) ([]*beaver.Triple, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(header)

	first, err := cr.Read()
	if err == io.EOF {
		return nil, errors.Wrap(ErrFormat, "missing header")
	}
	if err != nil {
		return nil, errors.Wrapf(ErrFormat, "header: %v", err)
	}
	for i, h := range header {
		if first[i] != h {
			return nil, errors.Wrapf(ErrFormat, "header %q", first)
		}
	}

	var triples []*beaver.Triple
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			return triples, nil
		}
		if err != nil {
			return nil, errors.Wrapf(ErrFormat, "%v", err)
		}
		var v [3]*big.Int
		for i, s := range rec {
			n, ok := new(big.Int).SetString(s, 10)
			if !ok {
				return nil, errors.Wrapf(ErrFormat, "line %d: %q is not an integer", line, s)
			}
			v[i] = n
		}
		triples = append(triples, &beaver.Triple{A: v[0], B: v[1], C: v[2]})
	}
}
