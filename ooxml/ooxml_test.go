// Copyright 2025 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package ooxml

import (
	"bytes"
	"errors"
	"testing"

	"github.com/klauspost/compress/zip"
)

func TestParseRef(t *testing.T) {
	for _, tc := range []struct {
		ref      string
		row, col int
	}{
		{"A1", 1, 1},
		{"a1", 1, 1},
		{"B2", 2, 2},
		{"Z1", 1, 26},
		{"AA1", 1, 27},
		{"AB30", 30, 28},
		{"ZZ1", 1, 702},
		{"AAA1048576", 1048576, 703},
	} {
		row, col, err := ParseRef(tc.ref)
		if err != nil {
			t.Errorf("%q: %+v", tc.ref, err)
			continue
		}
		if row != tc.row || col != tc.col {
			t.Errorf("%q: got (%d,%d), want (%d,%d)", tc.ref, row, col, tc.row, tc.col)
		}
	}

	for _, ref := range []string{"", "A", "1", "13", "A0", "$A$1", "A 1", "Sheet1!A1", "1A", "A1B2"} {
		if _, _, err := ParseRef(ref); !errors.Is(err, ErrBadReference) {
			t.Errorf("%q: got %v, want ErrBadReference", ref, err)
		}
	}
}

func TestFormatRef(t *testing.T) {
	for _, tc := range []struct {
		row, col int
		want     string
	}{
		{1, 1, "A1"},
		{30, 28, "AB30"},
		{1, 26, "Z1"},
		{1, 27, "AA1"},
		{1, 702, "ZZ1"},
		{1, 703, "AAA1"},
	} {
		if got := FormatRef(tc.row, tc.col); got != tc.want {
			t.Errorf("(%d,%d): got %q, want %q", tc.row, tc.col, got, tc.want)
		}
	}

	// ParseRef and FormatRef are inverses over the whole column range.
	for col := 1; col <= 2000; col++ {
		ref := FormatRef(7, col)
		row, c, err := ParseRef(ref)
		if err != nil || row != 7 || c != col {
			t.Fatalf("col %d: %q parsed to (%d,%d,%v)", col, ref, row, c, err)
		}
	}
}

func TestNormalizePath(t *testing.T) {
	for _, tc := range [][2]string{
		{"xl/worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"xl/./worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"xl/../docProps/core.xml", "docProps/core.xml"},
		{"xl//worksheets//sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"../../a", "a"},
	} {
		if got := NormalizePath(tc[0]); got != tc[1] {
			t.Errorf("%q: got %q, want %q", tc[0], got, tc[1])
		}
	}
}

func TestResolveTarget(t *testing.T) {
	for _, tc := range [][2]string{
		{"worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"/xl/worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"xl/worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
	} {
		if got := ResolveTarget("xl/", tc[0]); got != tc[1] {
			t.Errorf("%q: got %q, want %q", tc[0], got, tc[1])
		}
	}
}

const testWorkbookXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
<sheets>
<sheet name="First" sheetId="1" r:id="rId1"/>
<sheet name="Zweites Blatt" sheetId="2" r:id="rId2"/>
</sheets>
</workbook>`

const testRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet" Target="worksheets/sheet2.xml"/>
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet" Target="worksheets/sheet1.xml"/>
<Relationship Id="rId3" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>
</Relationships>`

func TestBuildIndex(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, entry := range [][2]string{
		{"xl/workbook.xml", testWorkbookXML},
		{"xl/_rels/workbook.xml.rels", testRelsXML},
	} {
		w, err := zw.Create(entry[0])
		if err != nil {
			t.Fatal(err)
		}
		if _, err = w.Write([]byte(entry[1])); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatal(err)
	}

	ix, err := BuildIndex(zr)
	if err != nil {
		t.Fatal(err)
	}
	names := ix.Names()
	if len(names) != 2 || names[0] != "First" || names[1] != "Zweites Blatt" {
		t.Errorf("names: got %q", names)
	}
	if p, ok := ix.Part("First"); !ok || p != "xl/worksheets/sheet1.xml" {
		t.Errorf("First: got %q, %t", p, ok)
	}
	if p, ok := ix.Part("Zweites Blatt"); !ok || p != "xl/worksheets/sheet2.xml" {
		t.Errorf("Zweites Blatt: got %q, %t", p, ok)
	}
	if _, ok := ix.Part("Missing"); ok {
		t.Error("found a sheet that is not there")
	}
}

func TestReadPartMissing(t *testing.T) {
	zr, err := zip.NewReader(bytes.NewReader(emptyZip(t)), int64(len(emptyZip(t))))
	if err != nil {
		t.Fatal(err)
	}
	if _, err = ReadPart(zr, "xl/styles.xml"); !errors.Is(err, ErrMissingPart) {
		t.Errorf("got %v, want ErrMissingPart", err)
	}
}

func emptyZip(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	if _, err := zw.Create("placeholder.txt"); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}
