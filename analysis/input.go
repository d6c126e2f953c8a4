// Copyright 2024 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package analysis

import (
	"encoding/json"

	"golang.org/x/xerrors"

	"github.com/canonical/tcglog-diff"
)

// Bundle is the JSON document a monitored host submits for analysis.
// Each log buffer is base64-encoded on the wire. The backup buffers
// are older copies used when the primary ones were not captured.
type Bundle struct {
	LastGoodLog     []byte `json:"LastGoodLog,omitempty"`
	BackupGoodLog   []byte `json:"BackupGoodLog,omitempty"`
	LastFailedLog   []byte `json:"LastFailedLog,omitempty"`
	BackupFailedLog []byte `json:"BackupFailedLog,omitempty"`

	GoodVariables []Variable `json:"EfiVarsSuccess"`
	BadVariables  []Variable `json:"EfiVarsFailed"`
}

// ReadBundle decodes a submitted analysis request.
func ReadBundle(data []byte) (*Bundle, error) {
	var bundle *Bundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, xerrors.Errorf("cannot decode bundle: %w", err)
	}
	return bundle, nil
}

// GoodLog returns the serialized log of the last successful boot,
// falling back to the backup copy.
func (b *Bundle) GoodLog() []byte {
	if len(b.LastGoodLog) > 0 {
		return b.LastGoodLog
	}
	return b.BackupGoodLog
}

// BadLog returns the serialized log of the failed boot, falling back
// to the backup copy.
func (b *Bundle) BadLog() []byte {
	if len(b.LastFailedLog) > 0 {
		return b.LastFailedLog
	}
	return b.BackupFailedLog
}

// Analyze runs the analysis pipeline over the bundle's contents.
func (b *Bundle) Analyze(pcrs []tcglog.PCRIndex) (*Report, error) {
	return Analyze(b.GoodLog(), b.BadLog(), b.GoodVariables, b.BadVariables, pcrs)
}
