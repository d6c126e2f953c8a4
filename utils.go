// Copyright 2019 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package tcglog

import (
	"encoding/binary"
	"errors"
	"io"

	"golang.org/x/exp/constraints"
)

func readLengthPrefixed[T constraints.Unsigned, V any](r io.Reader) ([]V, error) {
	var n T
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}

	data := make([]V, n)
	if err := binary.Read(r, binary.LittleEndian, &data); err != nil {
		return nil, err
	}

	return data, nil
}

func writeLengthPrefixed[T constraints.Unsigned, V any](w io.Writer, data []V) error {
	n := uint64(len(data))
	if n != uint64(T(n)) {
		return errors.New("size overflow")
	}

	if err := binary.Write(w, binary.LittleEndian, T(n)); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, data)
}
