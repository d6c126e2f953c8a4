// Copyright 2024 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package analysis

import (
	"bytes"
	"encoding/binary"
	"io"
	"regexp"
	"strconv"
	"strings"

	efi "github.com/canonical/go-efilib"
	"github.com/snapcore/snapd/logger"
	"golang.org/x/xerrors"

	"github.com/canonical/tcglog-diff"
	"github.com/canonical/tcglog-diff/devicepath"
	"github.com/canonical/tcglog-diff/efivars"
	"github.com/canonical/tcglog-diff/internal/decode"
	"github.com/canonical/tcglog-diff/internal/ioerr"
)

// Diagnostic records a log record that could not be translated into a
// semantic event. The record still takes part in the diff as a
// RawEvent.
type Diagnostic struct {
	Index int
	PCR   tcglog.PCRIndex
	Err   error
}

func (d *Diagnostic) String() string {
	return "event " + strconv.Itoa(d.Index) + " (PCR " + strconv.FormatUint(uint64(d.PCR), 10) + "): " + d.Err.Error()
}

var measureConfigRegexp = regexp.MustCompile(`file:(\S+) exist:(true|false)(?: content-hash:(\S+))?`)

func parseMeasureConfigEvent(event *tcglog.Event) (TpmEvent, error) {
	m := measureConfigRegexp.FindStringSubmatch(string(event.Data))
	if m == nil {
		return nil, xerrors.Errorf("cannot parse config measurement from %q", string(event.Data))
	}
	exists := m[2] == "true"
	hash := m[3]
	if !exists && hash != "" {
		return nil, xerrors.New("config measurement has a content hash for a file that doesn't exist")
	}
	return &MeasureConfigEvent{File: m[1], Hash: hash, Exists: exists}, nil
}

func parseEfiActionEvent(event *tcglog.Event) (TpmEvent, error) {
	action := string(event.Data)

	switch event.PCRIndex {
	case 4:
		switch action {
		case "Calling EFI Application from Boot Option":
			return &CallingEfiAppEvent{}, nil
		case "Returning from EFI Application from Boot Option":
			return &FailedToStartEfiAppEvent{}, nil
		default:
			return &EfiActionEvent{Action: action}, nil
		}
	case 1, 3:
		if action == "Entering ROM Based Setup" {
			return &ActionEnterBiosSetupEvent{}, nil
		}
	}

	switch event.PCRIndex {
	case 1, 5, 7:
		return &EfiActionEvent{Action: action}, nil
	default:
		return nil, xerrors.Errorf("unexpected PCR %d for EV_EFI_ACTION event", event.PCRIndex)
	}
}

func parseActionEvent(event *tcglog.Event) (TpmEvent, error) {
	action := string(event.Data)

	switch event.PCRIndex {
	case 1, 3:
		if action == "Entering ROM Based Setup" {
			return &ActionEnterBiosSetupEvent{}, nil
		}
		fallthrough
	case 4, 5, 7:
		return &EfiActionEvent{Action: action}, nil
	default:
		return nil, xerrors.Errorf("unexpected PCR %d for EV_ACTION event", event.PCRIndex)
	}
}

// variableEventData is the UEFI_VARIABLE_DATA structure measured by
// EV_EFI_VARIABLE_* events.
type variableEventData struct {
	GUID efi.GUID
	Name string
	Data []byte
}

func decodeVariableEventData(data []byte) (*variableEventData, error) {
	r := bytes.NewReader(data)

	guid, err := efi.ReadGUID(r)
	if err != nil {
		return nil, ioerr.EOFIsUnexpected("cannot read variable GUID: %w", err)
	}

	var nameLen uint64
	if err := binary.Read(r, binary.LittleEndian, &nameLen); err != nil {
		return nil, ioerr.EOFIsUnexpected("cannot read variable name length: %w", err)
	}
	var dataLen uint64
	if err := binary.Read(r, binary.LittleEndian, &dataLen); err != nil {
		return nil, ioerr.EOFIsUnexpected("cannot read variable data length: %w", err)
	}

	name, err := decode.ReadUTF16(r, nameLen)
	if err != nil {
		return nil, ioerr.EOFIsUnexpected("cannot read variable name: %w", err)
	}

	value := make([]byte, dataLen)
	if _, err := io.ReadFull(r, value); err != nil {
		return nil, ioerr.EOFIsUnexpected("cannot read variable data: %w", err)
	}

	return &variableEventData{GUID: guid, Name: name, Data: value}, nil
}

func parseBootVariableEvent(event *tcglog.Event, vars []Variable) (TpmEvent, error) {
	ev, err := decodeVariableEventData(event.Data)
	if err != nil {
		return nil, err
	}

	v, ok := lookupVariable(vars, ev.Name)
	if !ok {
		return &EfiVariableEvent{Name: ev.Name, GUID: ev.GUID, Value: ev.Data, RawType: event.EventType}, nil
	}

	switch {
	case ev.Name == "BootOrder":
		order, err := efivars.ReadBootOrder(v.Value)
		if err != nil {
			return nil, xerrors.Errorf("cannot parse BootOrder: %w", err)
		}
		return &BootOrderEvent{Order: order}, nil
	case bootEntryNameRegexp.MatchString(ev.Name):
		opt, err := efivars.ReadLoadOption(v.Value)
		if err != nil {
			return nil, xerrors.Errorf("cannot parse %s: %w", ev.Name, err)
		}
		num, err := strconv.ParseUint(ev.Name[4:], 16, 16)
		if err != nil {
			return nil, xerrors.Errorf("cannot parse boot entry number from %s: %w", ev.Name, err)
		}
		logger.Debugf("%s: dp=%s", ev.Name, opt.DevicePath.Display(devicepath.DisplayShort))
		return &BootEntryEvent{
			BootNum:     uint16(num),
			Description: opt.Description,
			DevicePath:  opt.DevicePath,
			Attributes:  opt.Attributes,
			RawType:     event.EventType}, nil
	default:
		// A variable that is measured but that we don't have a
		// richer decoder for.
		return &EfiVariableEvent{Name: ev.Name, GUID: ev.GUID, Value: v.Value, RawType: event.EventType}, nil
	}
}

func parseGrubEvent(event *tcglog.Event) (TpmEvent, error) {
	data, err := decode.ReadASCIIZ(bytes.NewReader(event.Data))
	if err != nil {
		return nil, xerrors.Errorf("cannot read IPL event data: %w", err)
	}

	if event.PCRIndex == 9 {
		return &GrubPcr9Event{Data: data}, nil
	}

	kind, rest, found := strings.Cut(data, " ")
	if !found {
		return nil, xerrors.Errorf("no event kind prefix in IPL event data %q", data)
	}

	switch kind {
	case "grub_cmd":
		cmd, params, _ := strings.Cut(rest, " ")
		return &GrubCmdEvent{Cmd: cmd, Params: params}, nil
	case "grub_kernel_cmdline":
		return &GrubKernelCmdlineEvent{Cmdline: rest}, nil
	case "grub_linuxefi":
		return &GrubLinuxEfiEvent{Path: rest}, nil
	default:
		return &GrubGenericEvent{Kind: kind, Data: rest}, nil
	}
}

func parseMeasureRootEvent(event *tcglog.Event) (TpmEvent, error) {
	data, err := decode.ReadASCIIZ(bytes.NewReader(event.Data))
	if err != nil {
		return nil, xerrors.Errorf("cannot read IPL event data: %w", err)
	}

	parts := strings.Fields(data)
	if len(parts) != 2 {
		return nil, xerrors.Errorf("expected 2 fields in rootfs measurement, got %d", len(parts))
	}

	return &MeasureRootEvent{RootFS: parts[0], Hash: parts[1]}, nil
}

func parseImageLoadEvent(event *tcglog.Event) (TpmEvent, error) {
	r := bytes.NewReader(event.Data)

	// UEFI_IMAGE_LOAD_EVENT: location, length and link-time address
	// are recorded but only the device path identifies the image.
	var hdr struct {
		LocationInMemory uint64
		LengthInMemory   uint64
		LinkTimeAddress  uint64
		DevicePathLength uint64
	}
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, ioerr.EOFIsUnexpected("cannot read image load event: %w", err)
	}

	dpData := make([]byte, hdr.DevicePathLength)
	if _, err := io.ReadFull(r, dpData); err != nil {
		return nil, ioerr.EOFIsUnexpected("cannot read device path: %w", err)
	}

	path, err := devicepath.ReadDevicePath(dpData)
	if err != nil {
		return nil, xerrors.Errorf("cannot decode device path: %w", err)
	}

	logger.Debugf("boot services application: dp=%s", path.Display(devicepath.DisplayShort))
	return &BootApplicationEvent{Path: path}, nil
}

func translateEvent(event *tcglog.Event, vars []Variable) (TpmEvent, error) {
	switch event.EventType {
	case tcglog.EventTypeEFIAction:
		if event.PCRIndex == 14 {
			return parseMeasureConfigEvent(event)
		}
		return parseEfiActionEvent(event)
	case tcglog.EventTypeEFIVariableBoot, tcglog.EventTypeEFIVariableBoot2:
		return parseBootVariableEvent(event, vars)
	case tcglog.EventTypeIPL:
		switch event.PCRIndex {
		case 8, 9:
			return parseGrubEvent(event)
		case 13:
			return parseMeasureRootEvent(event)
		}
	case tcglog.EventTypeEFIBootServicesApplication:
		if event.PCRIndex == 2 || event.PCRIndex == 4 {
			return parseImageLoadEvent(event)
		}
	case tcglog.EventTypeAction:
		return parseActionEvent(event)
	}
	return &RawEvent{Type: event.EventType}, nil
}

// TranslateLog converts every record of a log into its semantic form.
// A record that fails to translate degrades to a RawEvent and is
// reported in the returned diagnostics rather than aborting the run.
func TranslateLog(log *tcglog.Log, vars []Variable) ([]TpmEventRef, []Diagnostic) {
	var refs []TpmEventRef
	var diags []Diagnostic

	for i, event := range log.Events {
		ev, err := translateEvent(event, vars)
		if err != nil {
			diags = append(diags, Diagnostic{Index: i, PCR: event.PCRIndex, Err: err})
			ev = &RawEvent{Type: event.EventType}
		}
		refs = append(refs, TpmEventRef{OriginalIndex: i, PCR: event.PCRIndex, Event: ev})
	}

	return refs, diags
}
