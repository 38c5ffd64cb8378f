// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package analytics

import (
	"fmt"
	"io"

	"github.com/dotandev/erst/internal/simulator"
)

// ResourceReport summarizes the resources a simulation says an invocation needs.
type ResourceReport struct {
	Outcome         simulator.Kind
	LatestLedger    uint32
	ReadOnlyKeys    int
	ReadWriteKeys   int
	Instructions    uint32
	WriteBytes      uint32
	ResourceFee     int64
	MinResourceFee  string
	CPUInstructions string
	MemoryBytes     string
	AuthEntries     int
	Events          int
	Error           string
}

// NewResourceReport builds a report for any outcome. For RestoreRequired it
// describes the restore preamble.
func NewResourceReport(outcome simulator.Outcome) *ResourceReport {
	common := outcome.Common()
	report := &ResourceReport{
		Outcome:      outcome.Kind(),
		LatestLedger: common.LatestLedger,
		Events:       len(common.Events),
	}
	switch o := outcome.(type) {
	case *simulator.Success:
		res := o.TransactionData.Resources
		report.ReadOnlyKeys = len(res.Footprint.ReadOnly)
		report.ReadWriteKeys = len(res.Footprint.ReadWrite)
		report.Instructions = uint32(res.Instructions)
		report.WriteBytes = uint32(res.WriteBytes)
		report.ResourceFee = int64(o.TransactionData.ResourceFee)
		report.MinResourceFee = o.MinResourceFee
		report.CPUInstructions = o.Cost.CPUInstructions.String()
		report.MemoryBytes = o.Cost.MemoryBytes.String()
		if o.Result != nil {
			report.AuthEntries = len(o.Result.Auth)
		}
	case *simulator.RestoreRequired:
		res := o.RestorePreamble.TransactionData.Resources
		report.ReadOnlyKeys = len(res.Footprint.ReadOnly)
		report.ReadWriteKeys = len(res.Footprint.ReadWrite)
		report.Instructions = uint32(res.Instructions)
		report.WriteBytes = uint32(res.WriteBytes)
		report.ResourceFee = int64(o.RestorePreamble.TransactionData.ResourceFee)
		report.MinResourceFee = o.RestorePreamble.MinResourceFee
	case *simulator.Failure:
		report.Error = o.Error
	}
	return report
}

func PrintResourceReport(w io.Writer, report *ResourceReport) {
	fmt.Fprintln(w, "Simulation Resource Report")
	fmt.Fprintln(w, "--------------------------")
	fmt.Fprintf(w, "Outcome:        %s\n", report.Outcome)
	fmt.Fprintf(w, "Latest ledger:  %d\n", report.LatestLedger)
	fmt.Fprintf(w, "Events:         %d\n", report.Events)

	if report.Outcome == simulator.KindFailure {
		fmt.Fprintf(w, "Error:          %s\n", report.Error)
		return
	}
	if report.Outcome == simulator.KindRestoreRequired {
		fmt.Fprintln(w, "\nArchived entries must be restored first. Restore preamble:")
	}

	fmt.Fprintln(w, "\nFootprint:")
	fmt.Fprintf(w, "  read-only:  %d key(s)\n", report.ReadOnlyKeys)
	fmt.Fprintf(w, "  read-write: %d key(s)\n", report.ReadWriteKeys)
	fmt.Fprintln(w, "Resources:")
	fmt.Fprintf(w, "  instructions: %d\n", report.Instructions)
	fmt.Fprintf(w, "  write bytes:  %d\n", report.WriteBytes)
	fmt.Fprintf(w, "Fee Impact: %s stroops (resource fee %d)\n", report.MinResourceFee, report.ResourceFee)

	if report.Outcome == simulator.KindSuccess {
		fmt.Fprintf(w, "Cost: %s cpu insns, %s mem bytes\n", report.CPUInstructions, report.MemoryBytes)
		fmt.Fprintf(w, "Auth entries: %d\n", report.AuthEntries)
	}
}
