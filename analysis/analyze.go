// Copyright 2024 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package analysis

import (
	"bytes"

	"golang.org/x/xerrors"

	"github.com/canonical/tcglog-diff"
	"github.com/canonical/tcglog-diff/diff"
)

// MissingInputError is returned by Analyze when one of the required
// inputs was not supplied.
type MissingInputError struct {
	Input string
}

func (e *MissingInputError) Error() string {
	return "missing input: " + e.Input
}

// Report is the complete result of one analysis run.
type Report struct {
	// Findings are the interpreted differences, in PCR processing
	// order.
	Findings []Finding

	// OldEvents and NewEvents are the translated event streams.
	OldEvents []TpmEventRef
	NewEvents []TpmEventRef

	// OldOps and NewOps annotate, per PCR, each of that PCR's
	// events with the diff operation that applies to it. Op indexes
	// are positions in the original logs.
	OldOps map[tcglog.PCRIndex][]diff.Op
	NewOps map[tcglog.PCRIndex][]diff.Op

	// OldVariables and NewVariables are the decoded variable
	// stores.
	OldVariables map[string]ParsedVariable
	NewVariables map[string]ParsedVariable

	// Diagnostics lists records that failed semantic translation.
	Diagnostics []Diagnostic
}

// opsForPCR diffs one PCR's events and annotates them, with op
// indexes mapped back to original log positions.
func opsForPCR(old, new []TpmEventRef, pcr tcglog.PCRIndex) (oldOps, newOps []diff.Op) {
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
	oldOps, newOps = diff.Ops(len(oldFiltered), len(newFiltered), res)

	for i := range oldOps {
		if oldOps[i].Old >= 0 {
			oldOps[i].Old = oldFiltered[oldOps[i].Old].OriginalIndex
		}
		if oldOps[i].New >= 0 {
			oldOps[i].New = newFiltered[oldOps[i].New].OriginalIndex
		}
	}
	for i := range newOps {
		if newOps[i].Old >= 0 {
			newOps[i].Old = oldFiltered[newOps[i].Old].OriginalIndex
		}
		if newOps[i].New >= 0 {
			newOps[i].New = newFiltered[newOps[i].New].OriginalIndex
		}
	}
	return oldOps, newOps
}

func readLog(data []byte, which string) (*tcglog.Log, []Diagnostic, error) {
	if len(data) == 0 {
		return nil, nil, &MissingInputError{Input: which}
	}

	log, err := tcglog.ReadLog(bytes.NewReader(data))
	if log == nil {
		return nil, nil, xerrors.Errorf("cannot read %s: %w", which, err)
	}

	var diags []Diagnostic
	if err != nil {
		// The log decoded up to some truncated or inconsistent
		// record. Analyze what we have.
		diags = append(diags, Diagnostic{Index: len(log.Events), Err: err})
	}
	return log, diags, nil
}

// Analyze explains why the measurements of two boots diverged. It
// decodes and translates both logs, diffs the event streams of each
// of the supplied PCRs and interprets the differences into findings.
// The variable stores must come from the same snapshots as the logs.
func Analyze(goodLog, badLog []byte, varsGood, varsBad []Variable, pcrs []tcglog.PCRIndex) (*Report, error) {
	if varsGood == nil {
		return nil, &MissingInputError{Input: "good variable store"}
	}
	if varsBad == nil {
		return nil, &MissingInputError{Input: "bad variable store"}
	}

	good, goodDiags, err := readLog(goodLog, "good log")
	if err != nil {
		return nil, err
	}
	bad, badDiags, err := readLog(badLog, "bad log")
	if err != nil {
		return nil, err
	}

	oldEvents, diags := TranslateLog(good, varsGood)
	goodDiags = append(goodDiags, diags...)
	newEvents, diags := TranslateLog(bad, varsBad)
	badDiags = append(badDiags, diags...)

	oldVars, err := ParseVariables(varsGood)
	if err != nil {
		return nil, xerrors.Errorf("cannot parse good variable store: %w", err)
	}
	newVars, err := ParseVariables(varsBad)
	if err != nil {
		return nil, xerrors.Errorf("cannot parse bad variable store: %w", err)
	}

	report := &Report{
		OldEvents:    oldEvents,
		NewEvents:    newEvents,
		OldOps:       make(map[tcglog.PCRIndex][]diff.Op),
		NewOps:       make(map[tcglog.PCRIndex][]diff.Op),
		OldVariables: oldVars,
		NewVariables: newVars,
		Diagnostics:  append(goodDiags, badDiags...),
	}

	for _, pcr := range pcrs {
		report.OldOps[pcr], report.NewOps[pcr] = opsForPCR(oldEvents, newEvents, pcr)
	}

	report.Findings = Interpret(oldEvents, newEvents, oldVars, newVars, pcrs)

	return report, nil
}
