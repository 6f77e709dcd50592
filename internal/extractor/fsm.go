package extractor

import (
	"strings"

	"github.com/shopspring/decimal"
)

// State is the position of a line scanner relative to a statement table.
type State int

const (
	OutsideTable State = iota
	TableHeaderSeen
	AccumulatingRow
	TableEnded
)

func (s State) String() string {
	switch s {
	case OutsideTable:
		return "OutsideTable"
	case TableHeaderSeen:
		return "TableHeaderSeen"
	case AccumulatingRow:
		return "AccumulatingRow"
	case TableEnded:
		return "TableEnded"
	}
	return "Unknown"
}

// InTable reports whether rows are being read.
func (s State) InTable() bool {
	return s == TableHeaderSeen || s == AccumulatingRow
}

// Row accumulates one statement row across lines.
type Row struct {
	DateText  string // dd/mm/yyyy
	ValueDate string
	Desc      []string
	Amount    decimal.Decimal
	HasAmount bool
	Balance   decimal.NullDecimal
	Concept   string
}

// Started reports whether a date opened this row.
func (r Row) Started() bool {
	return r.DateText != ""
}

// Complete reports whether the row has both a date and an amount.
func (r Row) Complete() bool {
	return r.DateText != "" && r.HasAmount
}

// Description joins the description buffer.
func (r Row) Description() string {
	return strings.TrimSpace(strings.Join(r.Desc, " "))
}

// WithDesc returns a copy of r with s appended to the description buffer.
func (r Row) WithDesc(s string) Row {
	desc := make([]string, len(r.Desc), len(r.Desc)+1)
	copy(desc, r.Desc)
	r.Desc = append(desc, s)
	return r
}

// Machine is the scanner value threaded through a fold over lines.
type Machine struct {
	State State
	Row   Row
	Rows  []Row
}

// Flush emits the pending row when it is complete and resets the accumulator.
func (m Machine) Flush() Machine {
	if m.Row.Complete() {
		rows := make([]Row, len(m.Rows), len(m.Rows)+1)
		copy(rows, m.Rows)
		m.Rows = append(rows, m.Row)
	}
	m.Row = Row{}
	return m
}

// StepFunc advances a Machine by one line.
type StepFunc func(m Machine, line string) Machine

// Scanner describes a bank's line scanner.
type Scanner struct {
	Start State
	Step  StepFunc
	// Finish closes the machine after the last line. Defaults to Machine.Flush.
	Finish func(Machine) Machine
}

// Run folds Step over lines and returns the completed rows.
func (s Scanner) Run(lines []string) []Row {
	m := Machine{State: s.Start}
	for _, line := range lines {
		m = s.Step(m, line)
	}
	if s.Finish != nil {
		return s.Finish(m).Rows
	}
	return m.Flush().Rows
}
