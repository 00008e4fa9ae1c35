// Copyright 2025 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package xlsx

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/UNO-SOFT/xlsxpatch"
)

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	sh, err := w.NewSheet("Report", []xlsxpatch.Column{
		{Name: "Name", Header: xlsxpatch.Style{FontBold: true}},
		{Name: "Qty", Column: xlsxpatch.Style{Format: "0"}},
		{Name: "Date"},
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, row := range [][]any{
		{"apples", 10, time.Date(2025, 11, 3, 12, 0, 0, 0, time.UTC)},
		{"pears", xlsxpatch.Number("4"), nil},
	} {
		if err = sh.AppendRow(row...); err != nil {
			t.Fatal(err)
		}
	}
	if err = sh.Close(); err != nil {
		t.Fatal(err)
	}
	if err = w.Close(); err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("written workbook does not open: %+v", err)
	}
	defer f.Close()
	for cell, want := range map[string]string{
		"A1": "Name", "B1": "Qty", "C1": "Date",
		"A2": "apples", "B2": "10", "C2": "2025-11-03",
		"A3": "pears", "B3": "4", "C3": "",
	} {
		if got, err := f.GetCellValue("Report", cell); err != nil || got != want {
			t.Errorf("%s: got %q (%v), want %q", cell, got, err, want)
		}
	}
}

func TestWriterMultipleSheets(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	for _, name := range []string{"First", "Second"} {
		sh, err := w.NewSheet(name, nil)
		if err != nil {
			t.Fatal(err)
		}
		if err = sh.AppendRow(name); err != nil {
			t.Fatal(err)
		}
		if err = sh.Close(); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	got := f.GetSheetList()
	if len(got) != 2 || got[0] != "First" || got[1] != "Second" {
		t.Errorf("sheets: got %q", got)
	}
	if v, _ := f.GetCellValue("Second", "A1"); v != "Second" {
		t.Errorf("Second!A1: got %q", v)
	}
}
