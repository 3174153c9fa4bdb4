// Package report projects the attendance ledger into a presence matrix.
// Everything here is a pure function of the records it is given; nothing
// mutates the ledger.
package report

import (
	"bytes"
	"encoding/csv"
	"sort"
	"strconv"

	"classmark/internal/admission"
)

// Row is one student's presence line. Cells align with Matrix.Days and hold
// "P" or "A".
type Row struct {
	RollNumber string   `json:"roll_number"`
	Name       string   `json:"name"`
	Cells      []string `json:"cells"`
}

// Matrix is the per-class presence table: one column per distinct day observed
// in the ledger, one row per roll number.
type Matrix struct {
	ClassName string   `json:"class_name"`
	Days      []string `json:"days"`
	Rows      []Row    `json:"rows"`
}

// Build projects records into a matrix. Columns are the distinct days actually
// observed (no generated calendar range), ascending. Rows sort by roll number
// interpreted numerically; rolls that do not parse are dropped from the
// projection, never from the ledger.
func Build(className string, records []admission.Record) Matrix {
	daySet := map[string]bool{}
	type student struct {
		roll    int
		rollStr string
		name    string
		present map[string]bool
	}
	byRoll := map[string]*student{}

	for _, rec := range records {
		n, err := strconv.Atoi(rec.RollNumber)
		if err != nil {
			continue
		}
		daySet[rec.Day] = true
		st, ok := byRoll[rec.RollNumber]
		if !ok {
			st = &student{roll: n, rollStr: rec.RollNumber, name: rec.Name, present: map[string]bool{}}
			byRoll[rec.RollNumber] = st
		}
		st.present[rec.Day] = true
	}

	days := make([]string, 0, len(daySet))
	for d := range daySet {
		days = append(days, d)
	}
	sort.Strings(days)

	students := make([]*student, 0, len(byRoll))
	for _, st := range byRoll {
		students = append(students, st)
	}
	sort.Slice(students, func(i, j int) bool { return students[i].roll < students[j].roll })

	rows := make([]Row, 0, len(students))
	for _, st := range students {
		cells := make([]string, len(days))
		for i, d := range days {
			if st.present[d] {
				cells[i] = "P"
			} else {
				cells[i] = "A"
			}
		}
		rows = append(rows, Row{RollNumber: st.rollStr, Name: st.name, Cells: cells})
	}

	return Matrix{ClassName: className, Days: days, Rows: rows}
}

// CSV renders the matrix with a roll_number,name,<day...> header.
func (m Matrix) CSV() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := append([]string{"roll_number", "name"}, m.Days...)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, row := range m.Rows {
		line := append([]string{row.RollNumber, row.Name}, row.Cells...)
		if err := w.Write(line); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
