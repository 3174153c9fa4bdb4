package report

import (
	"reflect"
	"strings"
	"testing"

	"classmark/internal/admission"
)

func rec(roll, name, day string) admission.Record {
	return admission.Record{ClassName: "CS101", RollNumber: roll, Name: name, Day: day}
}

func TestBuildMatrix(t *testing.T) {
	records := []admission.Record{
		rec("2", "Bob", "2025-07-01"),
		rec("1", "Alice", "2025-07-01"),
		rec("1", "Alice", "2025-07-02"),
		rec("10", "Jane", "2025-07-02"),
	}

	m := Build("CS101", records)

	if !reflect.DeepEqual(m.Days, []string{"2025-07-01", "2025-07-02"}) {
		t.Fatalf("days: %v", m.Days)
	}
	// Numeric sort: 1, 2, 10 — not lexicographic.
	gotRolls := []string{}
	for _, row := range m.Rows {
		gotRolls = append(gotRolls, row.RollNumber)
	}
	if !reflect.DeepEqual(gotRolls, []string{"1", "2", "10"}) {
		t.Fatalf("row order: %v", gotRolls)
	}
	if !reflect.DeepEqual(m.Rows[0].Cells, []string{"P", "P"}) {
		t.Fatalf("alice cells: %v", m.Rows[0].Cells)
	}
	if !reflect.DeepEqual(m.Rows[1].Cells, []string{"P", "A"}) {
		t.Fatalf("bob cells: %v", m.Rows[1].Cells)
	}
	if !reflect.DeepEqual(m.Rows[2].Cells, []string{"A", "P"}) {
		t.Fatalf("jane cells: %v", m.Rows[2].Cells)
	}
}

func TestBuildIsPure(t *testing.T) {
	records := []admission.Record{
		rec("1", "Alice", "2025-07-01"),
		rec("2", "Bob", "2025-07-01"),
	}
	first := Build("CS101", records)
	second := Build("CS101", records)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("same ledger produced different matrices")
	}

	// A record for a new date adds exactly one column with P only in its row.
	extended := append(records, rec("1", "Alice", "2025-07-02"))
	third := Build("CS101", extended)
	if len(third.Days) != len(first.Days)+1 {
		t.Fatalf("want one new column, got days %v", third.Days)
	}
	if third.Rows[0].Cells[1] != "P" || third.Rows[1].Cells[1] != "A" {
		t.Fatalf("new column cells wrong: %+v", third.Rows)
	}
}

func TestBuildDropsNonNumericRolls(t *testing.T) {
	records := []admission.Record{
		rec("1", "Alice", "2025-07-01"),
		rec("A17", "Ghost", "2025-07-01"),
	}
	m := Build("CS101", records)
	if len(m.Rows) != 1 || m.Rows[0].RollNumber != "1" {
		t.Fatalf("non-numeric roll not dropped: %+v", m.Rows)
	}
}

func TestBuildEmptyLedger(t *testing.T) {
	m := Build("CS101", nil)
	if len(m.Days) != 0 || len(m.Rows) != 0 {
		t.Fatalf("empty ledger should yield empty matrix: %+v", m)
	}
}

func TestCSV(t *testing.T) {
	m := Build("CS101", []admission.Record{
		rec("1", "Alice", "2025-07-01"),
		rec("2", "Bob", "2025-07-02"),
	})
	data, err := m.CSV()
	if err != nil {
		t.Fatalf("csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	want := []string{
		"roll_number,name,2025-07-01,2025-07-02",
		"1,Alice,P,A",
		"2,Bob,A,P",
	}
	if !reflect.DeepEqual(lines, want) {
		t.Fatalf("csv output:\n%s", string(data))
	}
}
