// Copyright 2021 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package ioerr

import (
	"errors"
	"fmt"
	"io"
	"unicode"
	"unicode/utf8"
)

// Return the argument index of the first %w verb in format, or -1 if
// there is none.
func percentWIndex(format string) int {
	n := 0
	for i := 0; i < len(format); {
		if format[i] != '%' {
			i++
			continue
		}
		if i+1 < len(format) && format[i+1] == '%' {
			i += 2
			continue
		}
		// Scan the verb: non-letters followed by a single letter.
		j := i + 1
		for j < len(format) {
			r, sz := utf8.DecodeRuneInString(format[j:])
			j += sz
			if unicode.IsLetter(r) {
				if r == 'w' {
					return n
				}
				break
			}
		}
		i = j
		n++
	}
	return -1
}

// EOFIsUnexpected converts [io.EOF] errors into [io.ErrUnexpectedEOF],
// which is useful when decoding fields that aren't at the start of a
// structure and where an [io.EOF] error would hide the truncation.
//
// It can be called with a single argument, which must be an error or
// nil - a raw [io.EOF] is converted and anything else is returned
// untouched. Alternatively it can be called with a format string and
// arguments, in which case any raw [io.EOF] corresponding to a %w verb
// is converted before the arguments are passed to [fmt.Errorf].
func EOFIsUnexpected(args ...any) error {
	switch {
	case len(args) > 1:
		format, ok := args[0].(string)
		if !ok {
			panic(fmt.Sprintf("expected a format string, got %T", args[0]))
		}
		if idx := percentWIndex(format); idx >= 0 {
			if err, isErr := args[idx+1].(error); isErr && err == io.EOF {
				args[idx+1] = io.ErrUnexpectedEOF
			}
		}
		return fmt.Errorf(format, args[1:]...)
	case len(args) == 1:
		switch err := args[0].(type) {
		case error:
			if err == io.EOF {
				return io.ErrUnexpectedEOF
			}
			return err
		case nil:
			return nil
		default:
			panic("invalid type")
		}
	default:
		panic("no arguments")
	}
}

// PassRawEOF converts any wrapped or unwrapped [io.EOF] into a plain
// [io.EOF]. It accepts either a single error (or nil), or a format
// string and arguments that are passed to [fmt.Errorf] first.
func PassRawEOF(args ...any) error {
	switch {
	case len(args) > 1:
		format, ok := args[0].(string)
		if !ok {
			panic(fmt.Sprintf("expected a format string, got %T", args[0]))
		}
		return PassRawEOF(fmt.Errorf(format, args[1:]...))
	case len(args) == 1:
		switch err := args[0].(type) {
		case error:
			if errors.Is(err, io.EOF) {
				return io.EOF
			}
			return err
		case nil:
			return nil
		default:
			panic("invalid type")
		}
	default:
		panic("no arguments")
	}
}
