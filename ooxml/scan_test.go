// Copyright 2025 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package ooxml

import (
	"io"
	"testing"
)

// roundTrip scans doc and re-emits every event.
func roundTrip(t *testing.T, doc string) string {
	t.Helper()
	sc := NewScanner([]byte(doc))
	var e Emitter
	for {
		ev, err := sc.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("scan: %+v", err)
		}
		e.Event(ev)
	}
	return string(e.Bytes())
}

func TestRoundTrip(t *testing.T) {
	for name, doc := range map[string]string{
		"decl":       `<?xml version="1.0" encoding="UTF-8" standalone="yes"?><a/>`,
		"empty":      `<root><a/><b x="1"/><c>t</c></root>`,
		"firstChild": `<row r="1"><c r="A1" s="2"/><c r="B1"/></row>`,
		"chain":      `<a><b><c/></b><d/></a>`,
		"namespaces": `<w:a xmlns:w="urn:x" w:v="1"><w:b/></w:a>`,
		"comment":    `<a><!-- keep me --><b/></a>`,
		"indented": `<sheetData>
	<row r="1">
		<c r="A1"><v>1</v></c>
	</row>
</sheetData>`,
		"worksheet": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><sheetData><row r="1" spans="1:2"><c r="A1" t="s"><v>0</v></c><c r="B1" s="2"><v>3.14</v></c></row></sheetData></worksheet>`,
	} {
		if got := roundTrip(t, doc); got != doc {
			t.Errorf("%s:\n got %q\nwant %q", name, got, doc)
		}
	}
}

func TestScannerEmpty(t *testing.T) {
	sc := NewScanner([]byte(`<r><a/><b></b><c x="1"/></r>`))
	var got []Event
	for {
		ev, err := sc.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, ev)
	}
	// <a/> and <c/> come as a lone StartEvent, <b></b> as a pair.
	kinds := []struct {
		kind  EventKind
		local string
		empty bool
	}{
		{StartEvent, "r", false},
		{StartEvent, "a", true},
		{StartEvent, "b", false},
		{EndEvent, "b", false},
		{StartEvent, "c", true},
		{EndEvent, "r", false},
	}
	if len(got) != len(kinds) {
		t.Fatalf("got %d events, want %d: %+v", len(got), len(kinds), got)
	}
	for i, want := range kinds {
		ev := got[i]
		if ev.Kind != want.kind || ev.Name.Local != want.local || ev.Empty != want.empty {
			t.Errorf("%d: got %+v, want %+v", i, ev, want)
		}
	}
	if v, ok := Attr(got[4].Attr, "x"); !ok || v != "1" {
		t.Errorf("c/@x: got %q, %t", v, ok)
	}
}

func TestEmitterEscaping(t *testing.T) {
	var e Emitter
	e.Open("v")
	e.Text(`a & b < c > d "e"`)
	e.Close("v")
	const want = `<v>a &amp; b &lt; c &gt; d "e"</v>`
	if got := string(e.Bytes()); got != want {
		t.Errorf("text: got %q, want %q", got, want)
	}

	e = Emitter{}
	e.Empty("c", A("r", "A1"), A("t", `a"<&`))
	const wantAttr = `<c r="A1" t="a&quot;&lt;&amp;"/>`
	if got := string(e.Bytes()); got != wantAttr {
		t.Errorf("attr: got %q, want %q", got, wantAttr)
	}
}

func TestAttrPrefixed(t *testing.T) {
	sc := NewScanner([]byte(`<sheet name="S" r:id="rId7"/>`))
	ev, err := sc.Next()
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := Attr(ev.Attr, "r:id"); !ok || v != "rId7" {
		t.Errorf("r:id: got %q, %t", v, ok)
	}
	if v, ok := Attr(ev.Attr, "name"); !ok || v != "S" {
		t.Errorf("name: got %q, %t", v, ok)
	}
	if _, ok := Attr(ev.Attr, "id"); ok {
		t.Error("bare id matched the prefixed attribute")
	}
}

func TestSetAttr(t *testing.T) {
	a := SetAttr(nil, "count", "3")
	if v, ok := Attr(a, "count"); !ok || v != "3" {
		t.Errorf("append: got %q, %t", v, ok)
	}
	a = SetAttr(a, "count", "5")
	if len(a) != 1 {
		t.Fatalf("got %d attrs", len(a))
	}
	if v, _ := Attr(a, "count"); v != "5" {
		t.Errorf("replace: got %q", v)
	}
}
