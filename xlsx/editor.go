// Copyright 2025 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package xlsx

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/UNO-SOFT/xlsxpatch"
	"github.com/UNO-SOFT/xlsxpatch/ooxml"
	"github.com/UNO-SOFT/xlsxpatch/styles"
	"github.com/UNO-SOFT/xlsxpatch/worksheet"
)

var _ = (xlsxpatch.Editor)((*Editor)(nil))

type cellKey struct {
	Sheet, Cell string
}

// Editor queues the same per-cell changes xlsxpatch.Patcher does, but
// applies them by loading the whole workbook into a document model and
// re-serializing every part. Meant as the reference backend: slower,
// but exercised by the same boundary schema.
type Editor struct {
	path    string
	sheets  []string
	values  map[cellKey]worksheet.CellValue
	formats map[cellKey]*styles.FormatSpec
}

// OpenEditor reads the workbook's sheet list and prepares an Editor.
// The file itself is re-read on Save.
func OpenEditor(path string) (*Editor, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %q: %w", ooxml.ErrBadPackage, path, err)
	}
	sheets := f.GetSheetList()
	if err = f.Close(); err != nil {
		return nil, err
	}
	return &Editor{
		path:    path,
		sheets:  sheets,
		values:  make(map[cellKey]worksheet.CellValue),
		formats: make(map[cellKey]*styles.FormatSpec),
	}, nil
}

// SheetNames returns the workbook's sheet names in workbook order.
func (e *Editor) SheetNames() []string { return slices.Clone(e.sheets) }

// QueueValue queues a cell value change; a second call for the same
// (sheet, cell) overwrites the first.
func (e *Editor) QueueValue(sheet, cell string, payload map[string]any) error {
	if err := e.checkTarget(sheet, cell); err != nil {
		return err
	}
	value, err := xlsxpatch.ParseValue(payload)
	if err != nil {
		return fmt.Errorf("%s!%s: %w", sheet, cell, err)
	}
	e.values[cellKey{sheet, cell}] = value
	return nil
}

// QueueFormat queues font/fill/alignment/number-format changes,
// merging into any pending spec for the cell; a pending border stays.
func (e *Editor) QueueFormat(sheet, cell string, format map[string]any) error {
	if err := e.checkTarget(sheet, cell); err != nil {
		return err
	}
	next, err := xlsxpatch.ParseFormat(format)
	if err != nil {
		return fmt.Errorf("%s!%s: %w", sheet, cell, err)
	}
	key := cellKey{sheet, cell}
	spec := e.formats[key]
	if spec == nil {
		spec = &styles.FormatSpec{}
		e.formats[key] = spec
	}
	if next.Font != nil {
		spec.Font = next.Font
	}
	if next.Fill != nil {
		spec.Fill = next.Fill
	}
	if next.Alignment != nil {
		spec.Alignment = next.Alignment
	}
	if next.NumberFormat != "" {
		spec.NumberFormat = next.NumberFormat
	}
	return nil
}

// QueueBorder queues a border change, merging it into any pending spec.
func (e *Editor) QueueBorder(sheet, cell string, border map[string]any) error {
	if err := e.checkTarget(sheet, cell); err != nil {
		return err
	}
	spec, err := xlsxpatch.ParseBorder(border)
	if err != nil {
		return fmt.Errorf("%s!%s: %w", sheet, cell, err)
	}
	key := cellKey{sheet, cell}
	if pending := e.formats[key]; pending != nil {
		pending.Border = spec
	} else {
		e.formats[key] = &styles.FormatSpec{Border: spec}
	}
	return nil
}

// Save applies the queued changes and writes the workbook to path.
func (e *Editor) Save(path string) error {
	f, err := excelize.OpenFile(e.path)
	if err != nil {
		return fmt.Errorf("%w: open %q: %w", ooxml.ErrBadPackage, e.path, err)
	}
	defer f.Close()
	for _, key := range sortedCellKeys(e.values) {
		if err = applyValue(f, key, e.values[key]); err != nil {
			return err
		}
	}
	for _, key := range sortedCellKeys(e.formats) {
		if spec := e.formats[key]; !spec.Empty() {
			if err = applyFormat(f, key, spec); err != nil {
				return err
			}
		}
	}
	if err = f.SaveAs(path); err != nil {
		return fmt.Errorf("save %q: %w", path, err)
	}
	return nil
}

// SaveInPlace replaces the original file with the rewritten workbook.
func (e *Editor) SaveInPlace() error { return e.Save(e.path) }

func (e *Editor) checkTarget(sheet, cell string) error {
	if !slices.Contains(e.sheets, sheet) {
		return fmt.Errorf("%w: %q", xlsxpatch.ErrUnknownSheet, sheet)
	}
	_, _, err := ooxml.ParseRef(cell)
	return err
}

func applyValue(f *excelize.File, key cellKey, v worksheet.CellValue) error {
	var err error
	switch v.Kind {
	case worksheet.Blank:
		err = f.SetCellValue(key.Sheet, key.Cell, nil)
	case worksheet.Number:
		err = f.SetCellFloat(key.Sheet, key.Cell, v.Number, -1, 64)
	case worksheet.String:
		err = f.SetCellStr(key.Sheet, key.Cell, v.Text)
	case worksheet.Boolean:
		err = f.SetCellBool(key.Sheet, key.Cell, v.Bool)
	case worksheet.Formula:
		err = f.SetCellFormula(key.Sheet, key.Cell, v.Text)
	}
	if err != nil {
		return fmt.Errorf("%s!%s: %w", key.Sheet, key.Cell, err)
	}
	return nil
}

func applyFormat(f *excelize.File, key cellKey, spec *styles.FormatSpec) error {
	st := excelize.Style{}
	if fs := spec.Font; fs != nil {
		font := excelize.Font{
			Bold: fs.Bold, Italic: fs.Italic, Strike: fs.Strikethrough,
			Family: fs.Name, Size: float64(fs.Size),
			Color: rgbHex(fs.Color),
		}
		if fs.Underline {
			font.Underline = "single"
		}
		st.Font = &font
	}
	if fl := spec.Fill; fl != nil {
		st.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{rgbHex(fl.Color)}}
	}
	if b := spec.Border; b != nil {
		for _, edge := range []struct {
			name string
			side *styles.Side
		}{
			{"left", &b.Left}, {"right", &b.Right},
			{"top", &b.Top}, {"bottom", &b.Bottom},
		} {
			if edge.side.Style == "" {
				continue
			}
			st.Border = append(st.Border, excelize.Border{
				Type:  edge.name,
				Style: borderStyleID(edge.side.Style),
				Color: rgbHex(edge.side.Color),
			})
		}
	}
	if a := spec.Alignment; a != nil {
		st.Alignment = &excelize.Alignment{
			Horizontal: a.Horizontal, Vertical: a.Vertical,
			WrapText: a.WrapText, Indent: a.Indent,
			TextRotation: a.TextRotation,
		}
	}
	if spec.NumberFormat != "" {
		code := spec.NumberFormat
		st.CustomNumFmt = &code
	}
	styleID, err := f.NewStyle(&st)
	if err == nil {
		err = f.SetCellStyle(key.Sheet, key.Cell, key.Cell, styleID)
	}
	if err != nil {
		return fmt.Errorf("%s!%s: %w", key.Sheet, key.Cell, err)
	}
	return nil
}

// rgbHex strips the alpha byte off an ARGB color.
func rgbHex(argb string) string {
	if len(argb) == 8 {
		return argb[2:]
	}
	return argb
}

func borderStyleID(style string) int {
	switch style {
	case "thin":
		return 1
	case "medium":
		return 2
	case "dashed":
		return 3
	case "dotted":
		return 4
	case "thick":
		return 5
	case "double":
		return 6
	case "hair":
		return 7
	case "mediumDashed":
		return 8
	case "dashDot":
		return 9
	case "mediumDashDot":
		return 10
	case "dashDotDot":
		return 11
	case "mediumDashDotDot":
		return 12
	case "slantDashDot":
		return 13
	}
	return 1
}

func sortedCellKeys[V any](m map[cellKey]V) []cellKey {
	return slices.SortedFunc(maps.Keys(m), func(a, b cellKey) int {
		if c := strings.Compare(a.Sheet, b.Sheet); c != 0 {
			return c
		}
		ar, ac, _ := ooxml.ParseRef(a.Cell)
		br, bc, _ := ooxml.ParseRef(b.Cell)
		if c := cmp.Compare(ar, br); c != 0 {
			return c
		}
		return cmp.Compare(ac, bc)
	})
}
