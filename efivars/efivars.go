// Copyright 2024 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

// Package efivars decodes the boot related UEFI variables that the
// firmware measures during boot, as read from efivarfs.
package efivars

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/xerrors"

	"github.com/canonical/tcglog-diff/devicepath"
	"github.com/canonical/tcglog-diff/internal/decode"
	"github.com/canonical/tcglog-diff/internal/ioerr"
)

// LoadOptionAttributes corresponds to the attributes of an
// EFI_LOAD_OPTION.
type LoadOptionAttributes uint32

const (
	LoadOptionActive         LoadOptionAttributes = 0x00000001
	LoadOptionForceReconnect LoadOptionAttributes = 0x00000002
	LoadOptionHidden         LoadOptionAttributes = 0x00000008
	LoadOptionCategoryApp    LoadOptionAttributes = 0x00000100

	loadOptionCategoryMask LoadOptionAttributes = 0x00001f00

	loadOptionAllowedMask = LoadOptionActive | LoadOptionForceReconnect |
		LoadOptionHidden | LoadOptionCategoryApp
)

// InvalidAttributesError is returned when a load option carries
// attribute bits that the UEFI specification doesn't define.
type InvalidAttributesError struct {
	Attributes uint32
}

func (e *InvalidAttributesError) Error() string {
	return fmt.Sprintf("invalid load option attributes 0x%08x", e.Attributes)
}

func (a LoadOptionAttributes) IsActive() bool {
	return a&LoadOptionActive != 0
}

func (a LoadOptionAttributes) IsForceReconnect() bool {
	return a&LoadOptionForceReconnect != 0
}

func (a LoadOptionAttributes) IsHidden() bool {
	return a&LoadOptionHidden != 0
}

// Category returns the category field of the attributes.
func (a LoadOptionAttributes) Category() LoadOptionAttributes {
	return a & loadOptionCategoryMask
}

func (a LoadOptionAttributes) IsCategoryBoot() bool {
	return a.Category() == 0
}

func (a LoadOptionAttributes) IsCategoryApp() bool {
	return a&LoadOptionCategoryApp != 0
}

// LoadOption corresponds to a decoded EFI_LOAD_OPTION, as found in the
// Boot#### variables.
type LoadOption struct {
	Attributes   LoadOptionAttributes
	Description  string
	DevicePath   devicepath.DevicePath
	OptionalData []byte
}

func (o *LoadOption) String() string {
	return fmt.Sprintf("%s: %s", o.Description, o.DevicePath.Display(devicepath.DisplayShort))
}

// stripEfivarfsHeader removes the 4 byte attribute word that efivarfs
// prepends to variable contents.
func stripEfivarfsHeader(r io.Reader) error {
	var attrs uint32
	return binary.Read(r, binary.LittleEndian, &attrs)
}

// ReadLoadOption decodes an EFI_LOAD_OPTION from the contents of an
// efivarfs Boot#### file, including its leading attribute word.
func ReadLoadOption(data []byte) (*LoadOption, error) {
	r := bytes.NewReader(data)
	if err := stripEfivarfsHeader(r); err != nil {
		return nil, ioerr.EOFIsUnexpected(err)
	}

	var attrs uint32
	if err := binary.Read(r, binary.LittleEndian, &attrs); err != nil {
		return nil, ioerr.EOFIsUnexpected("cannot read attributes: %w", err)
	}
	if LoadOptionAttributes(attrs)&^loadOptionAllowedMask != 0 {
		return nil, &InvalidAttributesError{Attributes: attrs}
	}

	var filePathListLength uint16
	if err := binary.Read(r, binary.LittleEndian, &filePathListLength); err != nil {
		return nil, ioerr.EOFIsUnexpected("cannot read file path list length: %w", err)
	}

	description, err := decode.ReadUCS2Z(r)
	if err != nil {
		return nil, xerrors.Errorf("cannot read description: %w", err)
	}

	pathData := make([]byte, filePathListLength)
	if _, err := io.ReadFull(r, pathData); err != nil {
		return nil, ioerr.EOFIsUnexpected("cannot read file path list: %w", err)
	}
	path, err := devicepath.ReadDevicePath(pathData)
	if err != nil {
		return nil, xerrors.Errorf("cannot decode file path list: %w", err)
	}

	optionalData, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(optionalData) == 0 {
		optionalData = nil
	}

	return &LoadOption{
		Attributes:   LoadOptionAttributes(attrs),
		Description:  description,
		DevicePath:   path,
		OptionalData: optionalData}, nil
}

// ReadBootOrder decodes the contents of an efivarfs BootOrder file,
// including its leading attribute word, into a list of boot entry
// numbers.
func ReadBootOrder(data []byte) ([]uint16, error) {
	r := bytes.NewReader(data)
	if err := stripEfivarfsHeader(r); err != nil {
		return nil, ioerr.EOFIsUnexpected(err)
	}

	if r.Len()%2 != 0 {
		return nil, fmt.Errorf("invalid BootOrder length %d", len(data))
	}

	order := make([]uint16, r.Len()/2)
	if err := binary.Read(r, binary.LittleEndian, &order); err != nil {
		return nil, ioerr.EOFIsUnexpected(err)
	}
	return order, nil
}
