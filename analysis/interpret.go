// Copyright 2024 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package analysis

import (
	"math"
	"sort"

	efi "github.com/canonical/go-efilib"
	"github.com/snapcore/snapd/logger"

	"github.com/canonical/tcglog-diff"
	"github.com/canonical/tcglog-diff/devicepath"
	"github.com/canonical/tcglog-diff/diff"
)

// ConfigFileStatus says what happened to a measured config file.
type ConfigFileStatus int

const (
	ConfigFileAdded ConfigFileStatus = iota
	ConfigFileDeleted
	ConfigFileChanged
)

func (s ConfigFileStatus) String() string {
	switch s {
	case ConfigFileAdded:
		return "Added"
	case ConfigFileDeleted:
		return "Deleted"
	case ConfigFileChanged:
		return "Modified"
	default:
		return "unknown"
	}
}

// InterpretedBootEntry summarizes one Boot#### variable for a
// BootOptionsModified finding.
type InterpretedBootEntry struct {
	BootNum     uint16
	Description string
	FromUSB     bool
}

// InterpretedTpmEvent is one explanation produced by a per-PCR
// interpreter.
type InterpretedTpmEvent interface {
	String() string
}

// ConfigFileModified reports a config file that changed between the
// two snapshots.
type ConfigFileModified struct {
	File   string
	Status ConfigFileStatus
}

func (*ConfigFileModified) String() string { return "ConfigFileModified" }

// KernelCmdLineModified reports a change to the measured kernel
// command line.
type KernelCmdLineModified struct {
	Old string
	New string
}

func (*KernelCmdLineModified) String() string { return "KernelCmdLineModified" }

// GrubCfgModified reports that the boot loader configuration changed
// in some way that can't be narrowed down further.
type GrubCfgModified struct{}

func (*GrubCfgModified) String() string { return "GrubCfgModified" }

// BootOrderModified reports a change to the BootOrder variable.
type BootOrderModified struct {
	Old []uint16
	New []uint16
}

func (*BootOrderModified) String() string { return "BootOrderModified" }

// BootOptionsModified reports a change to the set of Boot####
// variables. Old and New summarize both snapshots' variable stores.
type BootOptionsModified struct {
	Old []InterpretedBootEntry
	New []InterpretedBootEntry
}

func (*BootOptionsModified) String() string { return "BootOptionsModified" }

// EnterBios reports that the firmware setup menu was entered.
type EnterBios struct{}

func (*EnterBios) String() string { return "EnterBios" }

// Uninterpreted marks a difference that none of the interpreters could
// explain.
type Uninterpreted struct{}

func (*Uninterpreted) String() string { return "Uninterpreted" }

// Finding ties an interpreted event to the log records it was derived
// from. Indexes are positions in the respective original logs; a
// finding that has no anchor in one of the logs leaves that index at
// zero.
type Finding struct {
	PCR              tcglog.PCRIndex
	OldOriginalIndex int
	NewOriginalIndex int
	Event            InterpretedTpmEvent
}

func newFinding() Finding {
	return Finding{PCR: math.MaxUint32, Event: &Uninterpreted{}}
}

// ModPair couples the two sides of a modification.
type ModPair struct {
	Old *TpmEventRef
	New *TpmEventRef
}

// diffForPCR diffs the events of a single PCR and maps the result
// back to event references.
func diffForPCR(old, new []TpmEventRef, pcr tcglog.PCRIndex) (deleted, added []*TpmEventRef, mods []ModPair) {
	var oldFiltered, newFiltered []*TpmEventRef
	for i := range old {
		if old[i].PCR == pcr {
			oldFiltered = append(oldFiltered, &old[i])
		}
	}
	for i := range new {
		if new[i].PCR == pcr {
			newFiltered = append(newFiltered, &new[i])
		}
	}

	res := diff.Diff(oldFiltered, newFiltered,
		func(a, b *TpmEventRef) bool { return EventsEqual(a.Event, b.Event) },
		func(r *TpmEventRef) string { return r.Event.Key() })

	for _, d := range res.Deleted {
		deleted = append(deleted, oldFiltered[d])
	}
	for _, i := range res.Inserted {
		added = append(added, newFiltered[i])
	}
	for _, m := range res.Modified {
		mods = append(mods, ModPair{Old: oldFiltered[m.Old], New: newFiltered[m.New]})
	}
	return deleted, added, mods
}

// interpretPCR14 explains config file measurements. A measured file
// can only change, so deletions and insertions are ignored: a file
// that disappears is still measured, with exists=false.
func interpretPCR14(deleted, added []*TpmEventRef, mods []ModPair) []Finding {
	var findings []Finding

	for _, m := range mods {
		f := newFinding()
		f.PCR = 14
		f.OldOriginalIndex = m.Old.OriginalIndex
		f.NewOriginalIndex = m.New.OriginalIndex

		if e1, ok := m.Old.Event.(*MeasureConfigEvent); ok {
			if e2, ok := m.New.Event.(*MeasureConfigEvent); ok && e1.File == e2.File {
				switch {
				case e1.Exists && !e2.Exists:
					f.Event = &ConfigFileModified{File: e1.File, Status: ConfigFileDeleted}
				case !e1.Exists && e2.Exists:
					f.Event = &ConfigFileModified{File: e1.File, Status: ConfigFileAdded}
				case e1.Exists && e2.Exists && e1.Hash != e2.Hash:
					f.Event = &ConfigFileModified{File: e1.File, Status: ConfigFileChanged}
				}
			}
		}
		findings = append(findings, f)
	}

	return findings
}

// interpretPCR8 explains boot loader measurements. A modified kernel
// command line is reported directly. Changes to other boot loader
// commands can't be attributed to a specific cause without parsing
// the boot loader configuration, so they collapse into a single
// GrubCfgModified finding.
func interpretPCR8(deleted, added []*TpmEventRef, mods []ModPair) []Finding {
	var findings []Finding
	grubCfgChanged := false

	for _, m := range mods {
		switch e1 := m.Old.Event.(type) {
		case *GrubKernelCmdlineEvent:
			if e2, ok := m.New.Event.(*GrubKernelCmdlineEvent); ok {
				findings = append(findings, Finding{
					PCR:              8,
					OldOriginalIndex: m.Old.OriginalIndex,
					NewOriginalIndex: m.New.OriginalIndex,
					Event:            &KernelCmdLineModified{Old: e1.Cmdline, New: e2.Cmdline}})
			}
		case *GrubCmdEvent:
			if _, ok := m.New.Event.(*GrubCmdEvent); ok {
				grubCfgChanged = true
			}
		case *GrubLinuxEfiEvent:
			if _, ok := m.New.Event.(*GrubLinuxEfiEvent); ok {
				grubCfgChanged = true
			}
		}
	}

	if grubCfgChanged {
		f := newFinding()
		f.PCR = 8
		f.Event = &GrubCfgModified{}
		findings = append(findings, f)
	}

	return findings
}

func bootEntriesFromVariables(vars map[string]ParsedVariable) []InterpretedBootEntry {
	var entries []InterpretedBootEntry
	for _, v := range vars {
		entry, ok := v.(*ParsedBootEntry)
		if !ok {
			continue
		}
		entries = append(entries, InterpretedBootEntry{
			BootNum:     entry.Num,
			Description: entry.Option.Description,
			FromUSB:     entry.Option.DevicePath.IsUSB()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].BootNum < entries[j].BootNum })
	return entries
}

// interpretPCR1 explains firmware configuration measurements. Any
// change that touches a Boot#### entry collapses into a single
// BootOptionsModified finding built from the variable stores, which
// describe the boot menu more completely than the measured events.
func interpretPCR1(deleted, added []*TpmEventRef, mods []ModPair, varsOld, varsNew map[string]ParsedVariable) []Finding {
	var findings []Finding
	bootOptionsChanged := false

	for _, e := range deleted {
		switch e.Event.(type) {
		case *BootEntryEvent:
			bootOptionsChanged = true
		case *ActionEnterBiosSetupEvent:
			findings = append(findings, Finding{
				PCR:              1,
				OldOriginalIndex: e.OriginalIndex,
				Event:            &EnterBios{}})
		default:
			f := newFinding()
			f.PCR = 1
			f.OldOriginalIndex = e.OriginalIndex
			findings = append(findings, f)
		}
	}

	for _, e := range added {
		switch e.Event.(type) {
		case *BootEntryEvent:
			bootOptionsChanged = true
		case *ActionEnterBiosSetupEvent:
			findings = append(findings, Finding{
				PCR:              1,
				NewOriginalIndex: e.OriginalIndex,
				Event:            &EnterBios{}})
		default:
			f := newFinding()
			f.PCR = 1
			f.NewOriginalIndex = e.OriginalIndex
			findings = append(findings, f)
		}
	}

	var oldEntryIndexes, newEntryIndexes []int

	for _, m := range mods {
		f := newFinding()
		f.PCR = 1
		f.OldOriginalIndex = m.Old.OriginalIndex
		f.NewOriginalIndex = m.New.OriginalIndex
		switch e1 := m.Old.Event.(type) {
		case *BootEntryEvent:
			if _, ok := m.New.Event.(*BootEntryEvent); ok {
				bootOptionsChanged = true
				oldEntryIndexes = append(oldEntryIndexes, m.Old.OriginalIndex)
				newEntryIndexes = append(newEntryIndexes, m.New.OriginalIndex)
			}
		case *BootOrderEvent:
			if e2, ok := m.New.Event.(*BootOrderEvent); ok {
				f.Event = &BootOrderModified{Old: e1.Order, New: e2.Order}
			}
		}
		findings = append(findings, f)
	}

	if bootOptionsChanged {
		f := Finding{
			PCR: 1,
			Event: &BootOptionsModified{
				Old: bootEntriesFromVariables(varsOld),
				New: bootEntriesFromVariables(varsNew)}}
		if len(oldEntryIndexes) > 0 {
			sort.Ints(oldEntryIndexes)
			f.OldOriginalIndex = oldEntryIndexes[0]
		}
		if len(newEntryIndexes) > 0 {
			sort.Ints(newEntryIndexes)
			f.NewOriginalIndex = newEntryIndexes[0]
		}
		findings = append(findings, f)
	}

	return findings
}

// firmwareSetupGUIDs are firmware volume file GUIDs of known firmware
// setup applications.
var firmwareSetupGUIDs = []efi.GUID{
	efi.MakeGUID(0x462CAA21, 0x7614, 0x4503, 0x836E, [...]uint8{0x8A, 0xB6, 0xF4, 0x66, 0x23, 0x31}),
	efi.MakeGUID(0xD89A7D8B, 0xD016, 0x4D26, 0x93E3, [...]uint8{0xEA, 0xB6, 0xB4, 0xD3, 0xB0, 0xA2}),
	efi.MakeGUID(0xEEC25BDC, 0x67F2, 0x4D95, 0xB1D5, [...]uint8{0xF8, 0x1B, 0x20, 0x39, 0xD1, 0x1D}),
}

func isFirmwareSetupApplication(path devicepath.DevicePath) bool {
	for _, node := range path {
		fv, ok := node.(*devicepath.FwVolFileNode)
		if !ok {
			continue
		}
		for _, guid := range firmwareSetupGUIDs {
			if fv.GUID == guid {
				return true
			}
		}
	}
	return false
}

// interpretPCR4 explains boot application measurements. Only
// insertions matter here: the generic calling/returning actions can't
// be attributed to a specific application, so they are suppressed.
func interpretPCR4(deleted, added []*TpmEventRef, mods []ModPair) []Finding {
	var findings []Finding

	for _, e := range added {
		f := newFinding()
		f.PCR = 4
		f.NewOriginalIndex = e.OriginalIndex

		switch ev := e.Event.(type) {
		case *CallingEfiAppEvent, *FailedToStartEfiAppEvent:
			continue
		case *BootApplicationEvent:
			if isFirmwareSetupApplication(ev.Path) {
				f.Event = &EnterBios{}
			}
		}
		findings = append(findings, f)
	}

	return findings
}

// Interpret runs the per-PCR interpreters over the diff of two
// translated logs. PCR 13 measurements are routed to the config file
// interpreter together with PCR 14. Differences on other PCRs produce
// no findings and are logged instead.
func Interpret(old, new []TpmEventRef, varsOld, varsNew map[string]ParsedVariable, pcrs []tcglog.PCRIndex) []Finding {
	var findings []Finding

	for _, pcr := range pcrs {
		deleted, added, mods := diffForPCR(old, new, pcr)

		switch pcr {
		case 13, 14:
			findings = append(findings, interpretPCR14(deleted, added, mods)...)
		case 8:
			findings = append(findings, interpretPCR8(deleted, added, mods)...)
		case 1:
			findings = append(findings, interpretPCR1(deleted, added, mods, varsOld, varsNew)...)
		case 4:
			findings = append(findings, interpretPCR4(deleted, added, mods)...)
		default:
			for _, e := range deleted {
				logger.Noticef("uninterpreted deleted event for PCR %d: %s", pcr, e)
			}
			for _, e := range added {
				logger.Noticef("uninterpreted added event for PCR %d: %s", pcr, e)
			}
			for _, m := range mods {
				logger.Noticef("uninterpreted modified event for PCR %d: %s -> %s", pcr, m.Old, m.New)
			}
		}
	}

	return findings
}
