// Copyright 2021 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package flags

import (
	"strconv"
	"strings"

	"github.com/bsiegert/ranges"

	"github.com/canonical/tcglog-diff"
)

// PCRRange is a go-flags value that accepts comma separated PCR
// indices and ranges (eg, "0-7,14").
type PCRRange []tcglog.PCRIndex

func (r PCRRange) MarshalFlag() (string, error) {
	var s []string
	for _, p := range r {
		s = append(s, strconv.FormatUint(uint64(p), 10))
	}
	return strings.Join(s, ","), nil
}

func (r *PCRRange) UnmarshalFlag(value string) error {
	i, err := ranges.Parse(value)
	if err != nil {
		return err
	}
	for _, p := range i {
		*r = append(*r, tcglog.PCRIndex(p))
	}
	return nil
}

func (r PCRRange) Contains(index tcglog.PCRIndex) bool {
	for _, p := range r {
		if p == index {
			return true
		}
	}
	return false
}
