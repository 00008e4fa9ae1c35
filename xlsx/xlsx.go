// Copyright 2025 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

// Package xlsx reads and writes .xlsx workbooks through a full
// document-model library. It carries two surfaces: Writer creates
// workbooks from scratch, Editor applies the same queued cell changes
// xlsxpatch.Patcher does, by rewriting the whole package.
package xlsx

import (
	"database/sql/driver"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/UNO-SOFT/xlsxpatch"
)

var _ = (xlsxpatch.Writer)((*Writer)(nil))

// Writer builds a workbook in memory and writes it out on Close.
//
// It allows concurrent writes to separate sheets, but collects
// everything in memory, so big sheets may impose problems.
type Writer struct {
	w      io.Writer
	xl     *excelize.File
	styles map[string]int
	sheets []string
	mu     sync.Mutex
}

type sheet struct {
	xl   *excelize.File
	name string
	row  int64
	mu   sync.Mutex
}

// NewWriter returns a Writer that writes the finished workbook to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, xl: excelize.NewFile()}
}

func (xlw *Writer) Close() error {
	if xlw == nil {
		return nil
	}
	xlw.mu.Lock()
	defer xlw.mu.Unlock()
	xl, w := xlw.xl, xlw.w
	xlw.xl, xlw.w = nil, nil
	if xl == nil || w == nil {
		return nil
	}
	_, err := xl.WriteTo(w)
	return err
}

func (xlw *Writer) NewSheet(name string, columns []xlsxpatch.Column) (xlsxpatch.Sheet, error) {
	xlw.mu.Lock()
	defer xlw.mu.Unlock()
	xlw.sheets = append(xlw.sheets, name)
	if len(xlw.sheets) == 1 { // first
		xlw.xl.SetSheetName("Sheet1", name)
	} else {
		xlw.xl.NewSheet(name)
	}
	var hasHeader bool
	for i, c := range columns {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if s := xlw.getStyle(c.Column); s != 0 {
			if err = xlw.xl.SetColStyle(name, col, s); err != nil {
				return nil, err
			}
		}
		if s := xlw.getStyle(c.Header); s != 0 {
			if err = xlw.xl.SetCellStyle(name, col+"1", col+"1", s); err != nil {
				return nil, err
			}
		}
		if c.Name != "" {
			hasHeader = true
			if err = xlw.xl.SetCellStr(name, col+"1", c.Name); err != nil {
				return nil, err
			}
		}
	}
	sh := &sheet{xl: xlw.xl, name: name}
	if hasHeader {
		sh.row++
	}
	return sh, nil
}

func (xlw *Writer) getStyle(style xlsxpatch.Style) int {
	if !style.FontBold && style.Format == "" {
		return 0
	}
	k := fmt.Sprintf("%t\t%s", style.FontBold, style.Format)
	s, ok := xlw.styles[k]
	if ok {
		return s
	}
	var st excelize.Style
	if style.FontBold {
		st.Font = &excelize.Font{Bold: true}
	}
	if style.Format != "" {
		st.CustomNumFmt = &style.Format
	}
	s, err := xlw.xl.NewStyle(&st)
	if err != nil {
		panic(err)
	}
	if xlw.styles == nil {
		xlw.styles = make(map[string]int)
	}
	xlw.styles[k] = s
	return s
}

// MaxRowCount is the number of maximum rows.
const MaxRowCount = 1_048_576

func (sh *sheet) Close() error { return nil }

func (sh *sheet) AppendRow(values ...any) error {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if sh.row >= MaxRowCount {
		return xlsxpatch.ErrTooManyRows
	}
	sh.row++
	for i, v := range values {
		axis, err := excelize.CoordinatesToCellName(i+1, int(sh.row))
		if err != nil {
			return fmt.Errorf("%d/%d: %w", i, int(sh.row), err)
		}
		if v == nil {
			continue
		}
		if vr, ok := v.(driver.Valuer); ok {
			if vv, err := vr.Value(); err == nil {
				v = vv
			}
		}
		switch x := v.(type) {
		case nil:
			continue
		case time.Time:
			if x.IsZero() {
				continue
			}
			err = sh.xl.SetCellStr(sh.name, axis, x.Format("2006-01-02"))
		case xlsxpatch.Number:
			err = sh.xl.SetCellValue(sh.name, axis, string(x))
		case fmt.Stringer:
			err = sh.xl.SetCellStr(sh.name, axis, x.String())
		case string:
			err = sh.xl.SetCellStr(sh.name, axis, x)
		default:
			err = sh.xl.SetCellValue(sh.name, axis, v)
		}
		if err != nil {
			return fmt.Errorf("%s[%s]: %w", sh.name, axis, err)
		}
	}
	return nil
}
