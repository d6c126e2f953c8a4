// Copyright 2024 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package decode

import (
	"encoding/binary"
	"errors"
	"io"
	"strings"
	"unicode/utf16"

	"github.com/canonical/tcglog-diff/internal/ioerr"
)

var (
	// ErrNotASCII is returned when a supposedly ASCII string
	// contains a byte outside of the 7-bit range.
	ErrNotASCII = errors.New("string contains a non-ASCII byte")

	// ErrInvalidUTF16 is returned when a UTF-16 string contains an
	// unpaired surrogate.
	ErrInvalidUTF16 = errors.New("string contains an unpaired UTF-16 surrogate")
)

const (
	surr1 = 0xd800
	surr2 = 0xdc00
	surr3 = 0xe000
)

// ReadASCIIZ reads a NUL terminated ASCII string from r. Bytes outside
// of the 7-bit range and a missing terminator are both errors.
func ReadASCIIZ(r io.Reader) (string, error) {
	var builder strings.Builder
	var b [1]byte
	for {
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return "", ioerr.EOFIsUnexpected(err)
		}
		if b[0] == 0 {
			return builder.String(), nil
		}
		if b[0] > 0x7f {
			return "", ErrNotASCII
		}
		builder.WriteByte(b[0])
	}
}

// WriteASCIIZ writes s to w as a NUL terminated ASCII string.
func WriteASCIIZ(w io.Writer, s string) error {
	for i := 0; i < len(s); i++ {
		if s[i] == 0 || s[i] > 0x7f {
			return ErrNotASCII
		}
	}
	if _, err := io.WriteString(w, s); err != nil {
		return err
	}
	_, err := w.Write([]byte{0})
	return err
}

// ReadUCS2Z reads a NUL terminated, little-endian UTF-16 string from r.
// Unpaired surrogates and a missing terminator are both errors.
func ReadUCS2Z(r io.Reader) (string, error) {
	var units []uint16
	for {
		var u uint16
		if err := binary.Read(r, binary.LittleEndian, &u); err != nil {
			return "", ioerr.EOFIsUnexpected(err)
		}
		if u == 0 {
			break
		}
		units = append(units, u)
	}
	return decodeUTF16(units)
}

// ReadUTF16 reads the specified number of little-endian UTF-16 code
// units from r and decodes them. Unpaired surrogates are an error.
func ReadUTF16(r io.Reader, n uint64) (string, error) {
	units := make([]uint16, n)
	if err := binary.Read(r, binary.LittleEndian, &units); err != nil {
		return "", ioerr.EOFIsUnexpected(err)
	}
	return decodeUTF16(units)
}

// WriteUCS2Z writes s to w as a NUL terminated, little-endian UTF-16
// string.
func WriteUCS2Z(w io.Writer, s string) error {
	units := utf16.Encode([]rune(s))
	units = append(units, 0)
	return binary.Write(w, binary.LittleEndian, units)
}

func decodeUTF16(units []uint16) (string, error) {
	var builder strings.Builder
	for i := 0; i < len(units); i++ {
		switch {
		case units[i] < surr1 || units[i] >= surr3:
			builder.WriteRune(rune(units[i]))
		case units[i] < surr2:
			if i+1 == len(units) || units[i+1] < surr2 || units[i+1] >= surr3 {
				return "", ErrInvalidUTF16
			}
			builder.WriteRune(utf16.DecodeRune(rune(units[i]), rune(units[i+1])))
			i++
		default:
			return "", ErrInvalidUTF16
		}
	}
	return builder.String(), nil
}
