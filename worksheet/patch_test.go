// Copyright 2025 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package worksheet

import (
	"strings"
	"testing"
)

const testSheetXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><sheetData><row r="1"><c r="A1"><v>1</v></c><c r="B1" s="3"><v>2</v></c></row><row r="3"><c r="A3" t="s"><v>0</v></c></row></sheetData></worksheet>`

func patchOne(t *testing.T, doc string, p CellPatch) string {
	t.Helper()
	out, err := Patch([]byte(doc), []CellPatch{p})
	if err != nil {
		t.Fatalf("%+v", err)
	}
	return string(out)
}

func number(n float64) *CellValue { return &CellValue{Kind: Number, Number: n} }
func str(s string) *CellValue     { return &CellValue{Kind: String, Text: s} }
func boolean(b bool) *CellValue   { return &CellValue{Kind: Boolean, Bool: b} }
func formula(f string) *CellValue { return &CellValue{Kind: Formula, Text: f} }

func TestReplaceValue(t *testing.T) {
	got := patchOne(t, testSheetXML, CellPatch{Row: 1, Col: 1, Value: number(42)})
	if !strings.Contains(got, `<c r="A1"><v>42</v></c>`) {
		t.Errorf("missing replacement:\n%s", got)
	}
	if strings.Contains(got, `<v>1</v>`) {
		t.Errorf("old value survived:\n%s", got)
	}
	// The untouched sibling keeps its style and value.
	if !strings.Contains(got, `<c r="B1" s="3"><v>2</v></c>`) {
		t.Errorf("sibling cell changed:\n%s", got)
	}
}

func TestInsertRowBetween(t *testing.T) {
	got := patchOne(t, testSheetXML, CellPatch{Row: 2, Col: 1, Value: number(7)})
	want := `<row r="2"><c r="A2"><v>7</v></c></row>`
	if !strings.Contains(got, want) {
		t.Fatalf("missing inserted row:\n%s", got)
	}
	// Rows stay in ascending order.
	r1 := strings.Index(got, `<row r="1">`)
	r2 := strings.Index(got, `<row r="2">`)
	r3 := strings.Index(got, `<row r="3">`)
	if !(r1 < r2 && r2 < r3) {
		t.Errorf("row order %d %d %d:\n%s", r1, r2, r3, got)
	}
}

func TestAppendRowAtEnd(t *testing.T) {
	got := patchOne(t, testSheetXML, CellPatch{Row: 9, Col: 2, Value: str("x")})
	want := `<row r="9"><c r="B9" t="str"><v>x</v></c></row></sheetData>`
	if !strings.Contains(got, want) {
		t.Errorf("missing appended row:\n%s", got)
	}
}

func TestInsertCellInRow(t *testing.T) {
	got := patchOne(t, testSheetXML, CellPatch{Row: 1, Col: 3, Value: number(5)})
	want := `<c r="B1" s="3"><v>2</v></c><c r="C1"><v>5</v></c></row>`
	if !strings.Contains(got, want) {
		t.Errorf("missing inserted cell:\n%s", got)
	}
}

func TestStyleOnlyKeepsContent(t *testing.T) {
	got := patchOne(t, testSheetXML, CellPatch{Row: 1, Col: 2, Style: 7})
	if !strings.Contains(got, `<c r="B1" s="7"><v>2</v></c>`) {
		t.Errorf("style-only patch lost content:\n%s", got)
	}
}

func TestValueKeepsStyle(t *testing.T) {
	got := patchOne(t, testSheetXML, CellPatch{Row: 1, Col: 2, Value: number(42)})
	if !strings.Contains(got, `<c r="B1" s="3"><v>42</v></c>`) {
		t.Errorf("replacement dropped the style:\n%s", got)
	}
}

func TestValueWithNewStyle(t *testing.T) {
	got := patchOne(t, testSheetXML, CellPatch{Row: 1, Col: 2, Value: number(42), Style: 9})
	if !strings.Contains(got, `<c r="B1" s="9"><v>42</v></c>`) {
		t.Errorf("replacement kept the old style:\n%s", got)
	}
}

func TestValueKinds(t *testing.T) {
	for _, tc := range []struct {
		name  string
		value *CellValue
		want  string
	}{
		{"integral", number(99), `<c r="A1"><v>99</v></c>`},
		{"fraction", number(3.14), `<c r="A1"><v>3.14</v></c>`},
		{"string", str("hello"), `<c r="A1" t="str"><v>hello</v></c>`},
		{"true", boolean(true), `<c r="A1" t="b"><v>1</v></c>`},
		{"false", boolean(false), `<c r="A1" t="b"><v>0</v></c>`},
		{"formula", formula("SUM(B1:B9)"), `<c r="A1"><f>SUM(B1:B9)</f></c>`},
		{"blank", &CellValue{Kind: Blank}, `<c r="A1"/>`},
		{"escaped", str(`a<b & c>"d"`), `<c r="A1" t="str"><v>a&lt;b &amp; c&gt;"d"</v></c>`},
	} {
		got := patchOne(t, testSheetXML, CellPatch{Row: 1, Col: 1, Value: tc.value})
		if !strings.Contains(got, tc.want) {
			t.Errorf("%s: missing %q:\n%s", tc.name, tc.want, got)
		}
	}
}

func TestFormulaHasNoCachedValue(t *testing.T) {
	got := patchOne(t, testSheetXML, CellPatch{Row: 1, Col: 1, Value: formula("A3*2")})
	if i := strings.Index(got, `<c r="A1">`); i >= 0 {
		cell := got[i:strings.Index(got, `</c>`)]
		if strings.Contains(cell, "<v>") {
			t.Errorf("formula cell carries a cached value: %q", cell)
		}
	} else {
		t.Fatalf("cell not found:\n%s", got)
	}
}

func TestEmptySheetData(t *testing.T) {
	const doc = `<worksheet><sheetData/></worksheet>`
	out, err := Patch([]byte(doc), []CellPatch{
		{Row: 2, Col: 2, Value: number(1)},
		{Row: 1, Col: 1, Value: number(2)},
	})
	if err != nil {
		t.Fatal(err)
	}
	const want = `<worksheet><sheetData><row r="1"><c r="A1"><v>2</v></c></row><row r="2"><c r="B2"><v>1</v></c></row></sheetData></worksheet>`
	if string(out) != want {
		t.Errorf("got  %s\nwant %s", out, want)
	}
}

func TestEmptyRowElement(t *testing.T) {
	const doc = `<worksheet><sheetData><row r="2" ht="20"/></sheetData></worksheet>`
	out, err := Patch([]byte(doc), []CellPatch{{Row: 2, Col: 1, Value: number(8)}})
	if err != nil {
		t.Fatal(err)
	}
	const want = `<row r="2" ht="20"><c r="A2"><v>8</v></c></row>`
	if !strings.Contains(string(out), want) {
		t.Errorf("empty row not expanded:\n%s", out)
	}
}

func TestNoPatchesUnchanged(t *testing.T) {
	out, err := Patch([]byte(testSheetXML), nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != testSheetXML {
		t.Errorf("document changed without patches:\n%s", out)
	}
}

func TestManyPatchesSorted(t *testing.T) {
	patches := []CellPatch{
		{Row: 5, Col: 2, Value: number(52)},
		{Row: 2, Col: 3, Value: number(23)},
		{Row: 2, Col: 1, Value: number(21)},
		{Row: 1, Col: 1, Value: number(11)},
	}
	out, err := Patch([]byte(testSheetXML), patches)
	if err != nil {
		t.Fatal(err)
	}
	got := string(out)
	prev := -1
	for _, ref := range []string{`r="A1"`, `r="A2"`, `r="C2"`, `r="A3"`, `r="B5"`} {
		i := strings.Index(got, ref)
		if i < 0 {
			t.Fatalf("missing %s:\n%s", ref, got)
		}
		if i < prev {
			t.Errorf("%s out of order:\n%s", ref, got)
		}
		prev = i
	}
}
