// Copyright 2024 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package main

import (
	"bytes"
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/jessevdk/go-flags"

	"github.com/canonical/tcglog-diff"
	"github.com/canonical/tcglog-diff/analysis"
	internal_flags "github.com/canonical/tcglog-diff/internal/flags"
)

type options struct {
	VarsGood string                  `long:"vars-good" description:"Directory containing the good snapshot's EFI variables, in efivarfs layout"`
	VarsBad  string                  `long:"vars-bad" description:"Directory containing the bad snapshot's EFI variables, in efivarfs layout"`
	Pcrs     internal_flags.PCRRange `short:"p" long:"pcrs" description:"Analyze events associated with the specified PCRs. Can be specified multiple times"`
	Dump     bool                    `long:"dump" description:"Print the translated events of the good log and exit"`

	Positional struct {
		GoodLogPath string `positional-arg-name:"good-log-path"`
		BadLogPath  string `positional-arg-name:"bad-log-path"`
	} `positional-args:"true"`
}

var opts options

// loadVariables reads an efivarfs-style directory where each file is
// named <VariableName>-<VendorGuid> and starts with a 4 byte
// attributes word.
func loadVariables(dir string) ([]analysis.Variable, error) {
	if dir == "" {
		return []analysis.Variable{}, nil
	}

	entries, err := ioutil.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var vars []analysis.Variable
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		// strip the "-xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx" suffix
		if len(name) > 37 && name[len(name)-37] == '-' {
			name = name[:len(name)-37]
		}

		value, err := ioutil.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		vars = append(vars, analysis.Variable{Name: name, Value: value})
	}

	return vars, nil
}

func eventString(ref *analysis.TpmEventRef) string {
	if s := ref.Event.String(); s != "" {
		return s
	}
	return ref.Event.Key()
}

func findingDetails(f *analysis.Finding) string {
	switch e := f.Event.(type) {
	case *analysis.ConfigFileModified:
		return fmt.Sprintf("%s: %s", e.Status, e.File)
	case *analysis.KernelCmdLineModified:
		return fmt.Sprintf("%q -> %q", e.Old, e.New)
	case *analysis.BootOrderModified:
		return fmt.Sprintf("%v -> %v", e.Old, e.New)
	case *analysis.BootOptionsModified:
		var entries []string
		for _, entry := range e.New {
			s := fmt.Sprintf("Boot%04X %q", entry.BootNum, entry.Description)
			if entry.FromUSB {
				s += " (USB)"
			}
			entries = append(entries, s)
		}
		return "boot menu is now: " + strings.Join(entries, ", ")
	default:
		return ""
	}
}

func run() error {
	if _, err := flags.Parse(&opts); err != nil {
		return err
	}

	if opts.Positional.GoodLogPath == "" {
		return errors.New("missing log path")
	}
	if !opts.Dump && opts.Positional.BadLogPath == "" {
		return errors.New("missing bad log path")
	}

	goodLog, err := ioutil.ReadFile(opts.Positional.GoodLogPath)
	if err != nil {
		return err
	}

	varsGood, err := loadVariables(opts.VarsGood)
	if err != nil {
		return fmt.Errorf("cannot load variables: %v", err)
	}
	varsBad, err := loadVariables(opts.VarsBad)
	if err != nil {
		return fmt.Errorf("cannot load variables: %v", err)
	}

	pcrs := opts.Pcrs
	if len(pcrs) == 0 {
		pcrs = internal_flags.PCRRange{1, 4, 8, 13, 14}
	}

	if opts.Dump {
		log, err := tcglog.ReadLog(bytes.NewReader(goodLog))
		if err != nil {
			return fmt.Errorf("cannot read log: %v", err)
		}
		refs, diags := analysis.TranslateLog(log, varsGood)
		for i := range refs {
			if !pcrs.Contains(refs[i].PCR) {
				continue
			}
			fmt.Printf("%5d %3d %s\n", refs[i].OriginalIndex, refs[i].PCR, eventString(&refs[i]))
		}
		for i := range diags {
			fmt.Fprintf(os.Stderr, "cannot translate %s\n", &diags[i])
		}
		return nil
	}

	badLog, err := ioutil.ReadFile(opts.Positional.BadLogPath)
	if err != nil {
		return err
	}

	report, err := analysis.Analyze(goodLog, badLog, varsGood, varsBad, pcrs)
	if err != nil {
		return err
	}

	if len(report.Findings) == 0 {
		fmt.Println("No differences found on the analyzed PCRs.")
	}
	for i := range report.Findings {
		f := &report.Findings[i]
		fmt.Printf("PCR %d: %s", f.PCR, f.Event)
		if details := findingDetails(f); details != "" {
			fmt.Printf(" (%s)", details)
		}
		fmt.Println()
	}

	for i := range report.Diagnostics {
		fmt.Fprintf(os.Stderr, "cannot translate %s\n", &report.Diagnostics[i])
	}

	return nil
}

func main() {
	if err := run(); err != nil {
		switch e := err.(type) {
		case *flags.Error:
			// flags already prints this
			if e.Type != flags.ErrHelp {
				os.Exit(1)
			}
		default:
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
}
