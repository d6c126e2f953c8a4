// Copyright 2024 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package analysis

import (
	"regexp"
	"strconv"

	"golang.org/x/xerrors"

	"github.com/canonical/tcglog-diff/efivars"
)

// Variable is one EFI variable as captured from the platform. Value
// retains the leading 4-byte attributes word that efivarfs exposes.
type Variable struct {
	Name  string `json:"Name"`
	Value []byte `json:"Value"`
}

var bootEntryNameRegexp = regexp.MustCompile(`^Boot[0-9A-F]{4}$`)

// ParsedVariable is the decoded form of one captured variable: a
// *ParsedBootOrder, a *ParsedBootEntry, or an *UnparsedVariable.
type ParsedVariable interface {
	parsedVariable()
}

// ParsedBootOrder is the decoded BootOrder variable.
type ParsedBootOrder struct {
	Order []uint16
}

func (*ParsedBootOrder) parsedVariable() {}

// ParsedBootEntry is one decoded Boot#### variable.
type ParsedBootEntry struct {
	Num    uint16
	Option *efivars.LoadOption
}

func (*ParsedBootEntry) parsedVariable() {}

// UnparsedVariable is a captured variable with no decoder.
type UnparsedVariable struct {
	Variable Variable
}

func (*UnparsedVariable) parsedVariable() {}

// ParseVariables decodes a captured variable list into a map keyed by
// variable name. BootOrder and Boot#### variables that fail to decode
// make the whole store invalid.
func ParseVariables(vars []Variable) (map[string]ParsedVariable, error) {
	out := make(map[string]ParsedVariable)

	for _, v := range vars {
		switch {
		case v.Name == "BootOrder":
			order, err := efivars.ReadBootOrder(v.Value)
			if err != nil {
				return nil, xerrors.Errorf("cannot parse BootOrder: %w", err)
			}
			out[v.Name] = &ParsedBootOrder{Order: order}
		case bootEntryNameRegexp.MatchString(v.Name):
			opt, err := efivars.ReadLoadOption(v.Value)
			if err != nil {
				return nil, xerrors.Errorf("cannot parse load option for %s: %w", v.Name, err)
			}
			num, err := strconv.ParseUint(v.Name[4:], 16, 16)
			if err != nil {
				return nil, xerrors.Errorf("cannot parse boot entry number from %s: %w", v.Name, err)
			}
			out[v.Name] = &ParsedBootEntry{Num: uint16(num), Option: opt}
		default:
			out[v.Name] = &UnparsedVariable{Variable: v}
		}
	}

	return out, nil
}

func lookupVariable(vars []Variable, name string) (*Variable, bool) {
	for i, v := range vars {
		if v.Name == name {
			return &vars[i], true
		}
	}
	return nil, false
}
