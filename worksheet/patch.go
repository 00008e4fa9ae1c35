// Copyright 2025 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

// Package worksheet rewrites worksheet XML parts cell by cell.
//
// Patch streams the document in one forward pass, re-emitting everything
// verbatim except the rows and cells that have pending patches. Missing
// rows and cells are inserted in ascending (row, column) order, so the
// output stays a valid sheetData section. New string cells are written as
// inline strings; the shared string table is never touched.
package worksheet

import (
	"encoding/xml"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/UNO-SOFT/xlsxpatch/ooxml"
)

// ValueKind tags the variants of CellValue.
type ValueKind uint8

const (
	Blank ValueKind = iota
	Number
	String
	Boolean
	Formula
)

// CellValue is what to write into a cell.
type CellValue struct {
	Kind   ValueKind
	Number float64 // Number
	Text   string  // String literal or Formula expression (no leading "=")
	Bool   bool    // Boolean
}

// CellPatch is a single cell modification. A nil Value leaves the cell's
// content untouched (style-only change). Style 0 preserves the cell's
// existing style index.
type CellPatch struct {
	Row   int // 1-based
	Col   int // 1-based
	Value *CellValue
	Style int
}

// Patch applies the given cell modifications to a worksheet XML document.
// Existing cells are replaced in place; absent cells and rows are inserted
// at their sorted position. Cost is proportional to the document length
// plus the number of patches.
func Patch(doc []byte, patches []CellPatch) ([]byte, error) {
	if len(patches) == 0 {
		return doc, nil
	}

	rowPatches := make(map[int]map[int]*CellPatch)
	for i := range patches {
		p := &patches[i]
		cols := rowPatches[p.Row]
		if cols == nil {
			cols = make(map[int]*CellPatch)
			rowPatches[p.Row] = cols
		}
		cols[p.Col] = p
	}
	pendingRows := sortedKeys(rowPatches)

	sc := ooxml.NewScanner(doc)
	var e ooxml.Emitter

	inSheetData := false
	currentRow := 0
	colsSeen := make(map[int]bool)
	rowsSeen := make(map[int]bool)
	skipping := false // inside a cell element being replaced

	for {
		ev, err := sc.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: worksheet: %w", ooxml.ErrBadPackage, err)
		}

		switch ev.Kind {
		case ooxml.StartEvent:
			switch {
			case ev.Name.Local == "sheetData":
				if ev.Empty {
					// An empty container expands into one holding
					// every patched row.
					e.Event(ooxml.Event{Kind: ooxml.StartEvent, Name: ev.Name, Attr: ev.Attr})
					for _, r := range pendingRows {
						writeRow(&e, r, rowPatches[r])
						rowsSeen[r] = true
					}
					e.Event(ooxml.Event{Kind: ooxml.EndEvent, Name: ev.Name})
					continue
				}
				inSheetData = true
				e.Event(ev)

			case ev.Name.Local == "row" && inSheetData:
				rowNum := 0
				if v, ok := ooxml.Attr(ev.Attr, "r"); ok {
					rowNum, _ = strconv.Atoi(v)
				}
				for _, r := range pendingRows {
					if r >= rowNum {
						break
					}
					if !rowsSeen[r] {
						writeRow(&e, r, rowPatches[r])
						rowsSeen[r] = true
					}
				}
				rowsSeen[rowNum] = true
				if ev.Empty {
					if cols := rowPatches[rowNum]; cols != nil {
						ev.Empty = false
						e.Event(ev)
						writeCells(&e, rowNum, cols, nil)
						e.Event(ooxml.Event{Kind: ooxml.EndEvent, Name: ev.Name})
					} else {
						e.Event(ev)
					}
					continue
				}
				currentRow = rowNum
				clear(colsSeen)
				e.Event(ev)

			case ev.Name.Local == "c" && inSheetData && currentRow != 0:
				ref, _ := ooxml.Attr(ev.Attr, "r")
				col := 0
				if _, c, err := ooxml.ParseRef(ref); err == nil {
					col = c
				}
				colsSeen[col] = true
				patch := rowPatches[currentRow][col]
				if patch == nil {
					e.Event(ev)
					continue
				}
				if patch.Value == nil {
					writeStyledStart(&e, ref, ev, patch)
					continue
				}
				writeCell(&e, ref, ev.Attr, patch)
				if !ev.Empty {
					skipping = true
				}

			default:
				if !skipping {
					e.Event(ev)
				}
			}

		case ooxml.EndEvent:
			switch {
			case ev.Name.Local == "c" && skipping:
				skipping = false
			case ev.Name.Local == "row" && inSheetData:
				if cols := rowPatches[currentRow]; cols != nil {
					for _, col := range sortedKeys(cols) {
						if !colsSeen[col] {
							writeCell(&e, ooxml.FormatRef(currentRow, col), nil, cols[col])
						}
					}
				}
				currentRow = 0
				e.Event(ev)
			case ev.Name.Local == "sheetData":
				for _, r := range pendingRows {
					if !rowsSeen[r] {
						writeRow(&e, r, rowPatches[r])
						rowsSeen[r] = true
					}
				}
				inSheetData = false
				e.Event(ev)
			default:
				if !skipping {
					e.Event(ev)
				}
			}

		default:
			if !skipping {
				e.Event(ev)
			}
		}
	}

	return e.Bytes(), nil
}

// writeStyledStart rewrites a cell's opening tag for a style-only patch,
// keeping every original attribute except the style, and leaving the
// element's children (cached value, formula, rich text) to stream through.
func writeStyledStart(e *ooxml.Emitter, ref string, ev ooxml.Event, patch *CellPatch) {
	attrs := make([]xml.Attr, 0, len(ev.Attr)+1)
	origStyle := 0
	for _, a := range ev.Attr {
		if a.Name.Space == "" && (a.Name.Local == "r" || a.Name.Local == "s") {
			if a.Name.Local == "s" {
				origStyle, _ = strconv.Atoi(a.Value)
			}
			continue
		}
		attrs = append(attrs, a)
	}
	attrs = append(attrs, ooxml.A("r", ref))
	style := patch.Style
	if style == 0 {
		style = origStyle
	}
	if style > 0 {
		attrs = append(attrs, ooxml.A("s", strconv.Itoa(style)))
	}
	e.Event(ooxml.Event{Kind: ooxml.StartEvent, Name: ev.Name, Attr: attrs, Empty: ev.Empty})
}

// writeCell emits a complete replacement (or new) cell element.
// orig carries the replaced cell's attributes for style preservation,
// nil for insertions.
func writeCell(e *ooxml.Emitter, ref string, orig []xml.Attr, patch *CellPatch) {
	attrs := []xml.Attr{ooxml.A("r", ref)}
	style := patch.Style
	if style == 0 && orig != nil {
		if v, ok := ooxml.Attr(orig, "s"); ok {
			style, _ = strconv.Atoi(v)
		}
	}
	if style > 0 {
		attrs = append(attrs, ooxml.A("s", strconv.Itoa(style)))
	}

	if patch.Value == nil || patch.Value.Kind == Blank {
		e.Empty("c", attrs...)
		return
	}
	switch v := patch.Value; v.Kind {
	case Number:
		e.Open("c", attrs...)
		e.Open("v")
		e.Text(formatNumber(v.Number))
		e.Close("v")
		e.Close("c")
	case String:
		attrs = append(attrs, ooxml.A("t", "str"))
		e.Open("c", attrs...)
		e.Open("v")
		e.Text(v.Text)
		e.Close("v")
		e.Close("c")
	case Boolean:
		attrs = append(attrs, ooxml.A("t", "b"))
		e.Open("c", attrs...)
		e.Open("v")
		if v.Bool {
			e.Text("1")
		} else {
			e.Text("0")
		}
		e.Close("v")
		e.Close("c")
	case Formula:
		// No cached <v>: downstream readers must recalculate.
		e.Open("c", attrs...)
		e.Open("f")
		e.Text(v.Text)
		e.Close("f")
		e.Close("c")
	}
}

func writeCells(e *ooxml.Emitter, row int, cols map[int]*CellPatch, seen map[int]bool) {
	for _, col := range sortedKeys(cols) {
		if seen != nil && seen[col] {
			continue
		}
		writeCell(e, ooxml.FormatRef(row, col), nil, cols[col])
	}
}

func writeRow(e *ooxml.Emitter, row int, cols map[int]*CellPatch) {
	e.Open("row", ooxml.A("r", strconv.Itoa(row)))
	writeCells(e, row, cols, nil)
	e.Close("row")
}

// formatNumber renders integral values without a decimal point.
func formatNumber(n float64) string {
	if n == float64(int64(n)) {
		return strconv.FormatInt(int64(n), 10)
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
