// Copyright 2025 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

// Package styles manages the shared style tables of an xlsx package
// (xl/styles.xml): fonts, fills, borders, number formats and cellXfs.
//
// The catalog is append-only: resolving a format specification appends the
// needed component records and a new xf, never renumbering existing entries.
// Identical specifications resolve to distinct indices; deduplication is
// deliberately not attempted.
package styles

import (
	"encoding/xml"
	"strconv"
	"strings"

	"github.com/UNO-SOFT/xlsxpatch/ooxml"
)

// FontSpec describes a font record. Zero-valued Name, Size and Color
// are omitted from the record.
type FontSpec struct {
	Bold          bool
	Italic        bool
	Underline     bool
	Strikethrough bool
	Name          string
	Size          int
	Color         string // ARGB, "FFRRGGBB"
}

// FillSpec describes a pattern fill record.
type FillSpec struct {
	Pattern string // "solid"
	Color   string // foreground ARGB
}

// Side is one edge of a border.
type Side struct {
	Style string // "thin", "medium", "thick", ...
	Color string // ARGB
}

// BorderSpec describes a border record; zero-valued sides become empty edges.
type BorderSpec struct {
	Left, Right, Top, Bottom Side
}

// AlignmentSpec describes cell alignment, embedded in the xf record.
type AlignmentSpec struct {
	Horizontal   string
	Vertical     string
	WrapText     bool
	Indent       int
	TextRotation int
}

// FormatSpec is a full cell format request. Nil sub-specs leave the
// corresponding component at the default (index 0).
type FormatSpec struct {
	Font         *FontSpec
	Fill         *FillSpec
	Border       *BorderSpec
	Alignment    *AlignmentSpec
	NumberFormat string // "" = unset
}

// Empty reports whether the spec requests nothing.
func (s *FormatSpec) Empty() bool {
	return s == nil || s.Font == nil && s.Fill == nil && s.Border == nil &&
		s.Alignment == nil && s.NumberFormat == ""
}

// XfEntry is one resolved style record of cellXfs.
type XfEntry struct {
	NumFmtID int
	FontID   int
	FillID   int
	BorderID int
}

// NormalizeColor converts "#RRGGBB" or "RRGGBB" to the ARGB form OOXML
// expects ("FFRRGGBB"); 8-digit input is only upcased.
func NormalizeColor(color string) string {
	hex := strings.ToUpper(strings.TrimPrefix(color, "#"))
	if len(hex) == 8 {
		return hex
	}
	return "FF" + hex
}

func fontXML(spec *FontSpec) string {
	var e ooxml.Emitter
	e.Open("font")
	if spec.Bold {
		e.Empty("b")
	}
	if spec.Italic {
		e.Empty("i")
	}
	if spec.Underline {
		e.Empty("u")
	}
	if spec.Strikethrough {
		e.Empty("strike")
	}
	if spec.Size != 0 {
		e.Empty("sz", ooxml.A("val", strconv.Itoa(spec.Size)))
	}
	if spec.Color != "" {
		e.Empty("color", ooxml.A("rgb", spec.Color))
	}
	if spec.Name != "" {
		e.Empty("name", ooxml.A("val", spec.Name))
	}
	e.Close("font")
	return string(e.Bytes())
}

func fillXML(spec *FillSpec) string {
	var e ooxml.Emitter
	e.Open("fill")
	if spec.Color != "" {
		e.Open("patternFill", ooxml.A("patternType", spec.Pattern))
		e.Empty("fgColor", ooxml.A("rgb", spec.Color))
		e.Close("patternFill")
	} else {
		e.Empty("patternFill", ooxml.A("patternType", spec.Pattern))
	}
	e.Close("fill")
	return string(e.Bytes())
}

func borderXML(spec *BorderSpec) string {
	var e ooxml.Emitter
	e.Open("border")
	for _, edge := range []struct {
		tag  string
		side Side
	}{
		{"left", spec.Left}, {"right", spec.Right},
		{"top", spec.Top}, {"bottom", spec.Bottom},
	} {
		switch {
		case edge.side.Style != "" && edge.side.Color != "":
			e.Open(edge.tag, ooxml.A("style", edge.side.Style))
			e.Empty("color", ooxml.A("rgb", edge.side.Color))
			e.Close(edge.tag)
		case edge.side.Style != "":
			e.Empty(edge.tag, ooxml.A("style", edge.side.Style))
		default:
			e.Empty(edge.tag)
		}
	}
	e.Empty("diagonal")
	e.Close("border")
	return string(e.Bytes())
}

func numFmtXML(id int, code string) string {
	var e ooxml.Emitter
	e.Empty("numFmt",
		ooxml.A("numFmtId", strconv.Itoa(id)),
		ooxml.A("formatCode", code))
	return string(e.Bytes())
}

func xfXML(entry XfEntry, spec *FormatSpec) string {
	attrs := []xml.Attr{
		ooxml.A("numFmtId", strconv.Itoa(entry.NumFmtID)),
		ooxml.A("fontId", strconv.Itoa(entry.FontID)),
		ooxml.A("fillId", strconv.Itoa(entry.FillID)),
		ooxml.A("borderId", strconv.Itoa(entry.BorderID)),
	}
	if spec.Font != nil {
		attrs = append(attrs, ooxml.A("applyFont", "1"))
	}
	if spec.Fill != nil {
		attrs = append(attrs, ooxml.A("applyFill", "1"))
	}
	if spec.Border != nil {
		attrs = append(attrs, ooxml.A("applyBorder", "1"))
	}
	if spec.NumberFormat != "" {
		attrs = append(attrs, ooxml.A("applyNumberFormat", "1"))
	}
	var e ooxml.Emitter
	if align := alignmentAttrs(spec.Alignment); len(align) != 0 {
		e.Open("xf", append(attrs, ooxml.A("applyAlignment", "1"))...)
		e.Empty("alignment", align...)
		e.Close("xf")
	} else {
		e.Empty("xf", attrs...)
	}
	return string(e.Bytes())
}

func alignmentAttrs(a *AlignmentSpec) []xml.Attr {
	if a == nil {
		return nil
	}
	var attrs []xml.Attr
	if a.Horizontal != "" {
		attrs = append(attrs, ooxml.A("horizontal", a.Horizontal))
	}
	if a.Vertical != "" {
		attrs = append(attrs, ooxml.A("vertical", a.Vertical))
	}
	if a.WrapText {
		attrs = append(attrs, ooxml.A("wrapText", "1"))
	}
	if a.Indent > 0 {
		attrs = append(attrs, ooxml.A("indent", strconv.Itoa(a.Indent)))
	}
	if a.TextRotation > 0 {
		attrs = append(attrs, ooxml.A("textRotation", strconv.Itoa(a.TextRotation)))
	}
	return attrs
}

// builtinNumFmtID returns the builtin id of well-known format codes.
// Custom codes get ids above 163.
func builtinNumFmtID(code string) (int, bool) {
	switch code {
	case "General":
		return 0, true
	case "0":
		return 1, true
	case "0.00":
		return 2, true
	case "#,##0":
		return 3, true
	case "#,##0.00":
		return 4, true
	case "0%":
		return 9, true
	case "0.00%":
		return 10, true
	case "0.00E+00":
		return 11, true
	case "mm-dd-yy":
		return 14, true
	case "d-mmm-yy":
		return 15, true
	case "d-mmm":
		return 16, true
	case "mmm-yy":
		return 17, true
	case "h:mm AM/PM":
		return 18, true
	case "h:mm:ss AM/PM":
		return 19, true
	case "h:mm":
		return 20, true
	case "h:mm:ss":
		return 21, true
	case "m/d/yy h:mm":
		return 22, true
	case "@":
		return 49, true
	}
	return 0, false
}
