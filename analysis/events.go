// Copyright 2024 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

// Package analysis turns a pair of TCG event logs into an explanation
// of why their measurements diverged. Raw records are translated into
// semantic events, the two event streams are diffed, and per-PCR
// interpreters convert the surviving differences into findings.
package analysis

import (
	"fmt"
	"reflect"

	efi "github.com/canonical/go-efilib"

	"github.com/canonical/tcglog-diff"
	"github.com/canonical/tcglog-diff/devicepath"
	"github.com/canonical/tcglog-diff/efivars"
)

// TpmEvent is the semantic form of one measured event. Key returns a
// string that collapses the event to the platform fact it measures:
// two events with the same key describe the same fact, possibly with
// different data. String renders the event for display.
type TpmEvent interface {
	Key() string
	String() string
}

// EventsEqual reports whether two semantic events are structurally
// identical.
func EventsEqual(a, b TpmEvent) bool {
	return reflect.DeepEqual(a, b)
}

// TpmEventRef attaches a semantic event to its position in the log it
// came from.
type TpmEventRef struct {
	OriginalIndex int
	PCR           tcglog.PCRIndex
	Event         TpmEvent
}

func (r *TpmEventRef) String() string {
	return fmt.Sprintf("%d: pcr=%d %s", r.OriginalIndex, r.PCR, r.Event.Key())
}

// EfiActionEvent is an EV_EFI_ACTION or EV_ACTION measurement that
// carries a free-form action string.
type EfiActionEvent struct {
	Action string
}

func (e *EfiActionEvent) Key() string    { return e.Action }
func (e *EfiActionEvent) String() string { return e.Action }

// ActionEnterBiosSetupEvent records that the user entered the firmware
// setup menu.
type ActionEnterBiosSetupEvent struct{}

func (e *ActionEnterBiosSetupEvent) Key() string    { return "EnterBiosSetupAction" }
func (e *ActionEnterBiosSetupEvent) String() string { return "ActionEnterBiosSetup" }

// CallingEfiAppEvent records that the firmware handed control to a
// boot option.
type CallingEfiAppEvent struct{}

func (e *CallingEfiAppEvent) Key() string    { return "Calling app from boot option" }
func (e *CallingEfiAppEvent) String() string { return "CallingEfiAppFromBootOption" }

// FailedToStartEfiAppEvent records that a boot option returned to the
// firmware without booting.
type FailedToStartEfiAppEvent struct{}

func (e *FailedToStartEfiAppEvent) Key() string    { return "Failed to start app from boot option" }
func (e *FailedToStartEfiAppEvent) String() string { return "FailedToStartEfiAppFromBootOption" }

// BootEntryEvent is the measurement of one Boot#### load option,
// resolved against the snapshot's variable store.
type BootEntryEvent struct {
	BootNum     uint16
	Description string
	DevicePath  devicepath.DevicePath
	Attributes  efivars.LoadOptionAttributes
	RawType     tcglog.EventType
}

func (e *BootEntryEvent) Key() string {
	return fmt.Sprintf("BootEntry-%d-%s", e.BootNum, e.Description)
}

func (e *BootEntryEvent) String() string {
	return fmt.Sprintf("Boot%04X %s", e.BootNum, e.Description)
}

// BootOrderEvent is the measurement of the BootOrder variable.
type BootOrderEvent struct {
	Order []uint16
}

func (e *BootOrderEvent) Key() string    { return "BootOrder" }
func (e *BootOrderEvent) String() string { return fmt.Sprintf("BootOrder: %v", e.Order) }

// EfiVariableEvent is a measured EFI variable with no richer
// decoding.
type EfiVariableEvent struct {
	Name    string
	GUID    efi.GUID
	Value   []byte
	RawType tcglog.EventType
}

func (e *EfiVariableEvent) Key() string {
	return fmt.Sprintf("EfiVariable-%s-%s", e.Name, e.GUID)
}

func (e *EfiVariableEvent) String() string {
	return fmt.Sprintf("%s guid=%s: %x", e.Name, e.GUID, e.Value)
}

// MeasureRootEvent records the root filesystem measurement on PCR 13.
type MeasureRootEvent struct {
	RootFS string
	Hash   string
}

func (e *MeasureRootEvent) Key() string { return "MeasureRootFs" }

func (e *MeasureRootEvent) String() string {
	return fmt.Sprintf("rootfs=%s hash=%s", e.RootFS, e.Hash)
}

// MeasureConfigEvent records the measurement of one configuration
// file on PCR 14. Hash is empty when the file did not exist.
type MeasureConfigEvent struct {
	File   string
	Hash   string
	Exists bool
}

func (e *MeasureConfigEvent) Key() string { return e.File }

func (e *MeasureConfigEvent) String() string {
	if e.Exists {
		return fmt.Sprintf("file=%s hash=%s", e.File, e.Hash)
	}
	return fmt.Sprintf("file=%s hash=%s exists=false", e.File, e.Hash)
}

// GrubCmdEvent is a grub_cmd measurement from the boot loader.
type GrubCmdEvent struct {
	Cmd    string
	Params string
}

func (e *GrubCmdEvent) Key() string    { return e.Cmd }
func (e *GrubCmdEvent) String() string { return fmt.Sprintf("%s=%s", e.Cmd, e.Params) }

// GrubKernelCmdlineEvent is the measured kernel command line.
type GrubKernelCmdlineEvent struct {
	Cmdline string
}

func (e *GrubKernelCmdlineEvent) Key() string    { return "GrubKernelCmdLine" }
func (e *GrubKernelCmdlineEvent) String() string { return e.Cmdline }

// GrubLinuxEfiEvent is the measured kernel image path.
type GrubLinuxEfiEvent struct {
	Path string
}

func (e *GrubLinuxEfiEvent) Key() string    { return "GrubLinuxEfi" }
func (e *GrubLinuxEfiEvent) String() string { return "GrubLinuxEfi: " + e.Path }

// GrubGenericEvent is a boot loader measurement with a kind prefix the
// translator doesn't know.
type GrubGenericEvent struct {
	Kind string
	Data string
}

func (e *GrubGenericEvent) Key() string    { return e.Kind }
func (e *GrubGenericEvent) String() string { return fmt.Sprintf("%s=%s", e.Kind, e.Data) }

// GrubPcr9Event is an opaque boot loader measurement on PCR 9.
type GrubPcr9Event struct {
	Data string
}

func (e *GrubPcr9Event) Key() string    { return "GrubPcr9" }
func (e *GrubPcr9Event) String() string { return e.Data }

// BootApplicationEvent is the measurement of a loaded boot services
// application, identified by its device path.
type BootApplicationEvent struct {
	Path devicepath.DevicePath
}

func (e *BootApplicationEvent) Key() string {
	return "BootApplication: " + e.Path.Display(devicepath.DisplayShort)
}

func (e *BootApplicationEvent) String() string {
	return "BootApplication: " + e.Path.Display(devicepath.DisplayShort)
}

// RawEvent is a record the translator has no semantic model for. The
// original event type is preserved.
type RawEvent struct {
	Type tcglog.EventType
}

func (e *RawEvent) Key() string { return fmt.Sprintf("UnparsedEvent-%s", e.Type) }

func (e *RawEvent) String() string {
	switch e.Type {
	case tcglog.EventTypeSeparator, tcglog.EventTypeSCRTMContents,
		tcglog.EventTypeSCRTMVersion, tcglog.EventTypeCPUMicrocode:
		return ""
	default:
		return e.Type.String()
	}
}
