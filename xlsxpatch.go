// Copyright 2025 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

// Package xlsxpatch modifies cells of an existing .xlsx package surgically:
// instead of deserializing the whole workbook into an object model and
// re-serializing it, it queues per-cell changes and on save rewrites only
// the worksheet parts (and the style table) those changes touch, copying
// every other ZIP entry byte for byte.
//
// The xlsx subpackage provides the same Editor interface on top of a
// full-DOM library for comparison; this package is the O(changed region)
// path.
package xlsxpatch

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/klauspost/compress/zip"

	"github.com/UNO-SOFT/xlsxpatch/ooxml"
	"github.com/UNO-SOFT/xlsxpatch/styles"
	"github.com/UNO-SOFT/xlsxpatch/worksheet"
)

var (
	// ErrUnknownType is wrapped when a value payload carries an
	// unrecognized type tag.
	ErrUnknownType = errors.New("unknown cell value type")
	// ErrBadPayload is wrapped when a payload or format dict field
	// has the wrong shape.
	ErrBadPayload = errors.New("malformed payload")
	// ErrUnknownSheet is wrapped when a queued change names a sheet
	// the workbook does not have.
	ErrUnknownSheet = errors.New("unknown sheet")
)

// Editor is the common surface of the patching backends. *Patcher is the
// surgical implementation; xlsx.Editor wraps a full-DOM library.
//
// Payloads follow the boundary schema: value payloads are
// {"type": "blank"|"string"|"number"|"boolean"|"formula", "value": ...},
// format dicts use bold/italic/underline/strikethrough/font_name/font_size/
// font_color/bg_color/number_format and alignment keys, border dicts map
// edge names to {"style": ..., "color": "#RRGGBB"}.
type Editor interface {
	SheetNames() []string
	QueueValue(sheet, cell string, payload map[string]any) error
	QueueFormat(sheet, cell string, format map[string]any) error
	QueueBorder(sheet, cell string, border map[string]any) error
	Save(path string) error
	SaveInPlace() error
}

var _ = (Editor)((*Patcher)(nil))

type cellKey struct {
	Sheet, Cell string
}

type valuePatch struct {
	row, col int
	value    worksheet.CellValue
}

// Patcher accumulates cell changes for one .xlsx file. It owns its queues
// exclusively: concurrent use needs external synchronization.
//
// Save and SaveInPlace re-read the untouched original file, so a Patcher
// may be saved any number of times.
type Patcher struct {
	path    string
	index   *ooxml.Index
	values  map[cellKey]valuePatch
	formats map[cellKey]*styles.FormatSpec
	logger  *slog.Logger
}

// Open reads the package's workbook index and prepares a Patcher for it.
func Open(path string) (*Patcher, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %q: %w", ooxml.ErrBadPackage, path, err)
	}
	defer rc.Close()
	index, err := ooxml.BuildIndex(&rc.Reader)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", path, err)
	}
	return &Patcher{
		path:    path,
		index:   index,
		values:  make(map[cellKey]valuePatch),
		formats: make(map[cellKey]*styles.FormatSpec),
		logger:  slog.New(slog.DiscardHandler),
	}, nil
}

// SetLogger replaces the discarding default logger.
func (p *Patcher) SetLogger(logger *slog.Logger) {
	if logger != nil {
		p.logger = logger
	}
}

// SheetNames returns the workbook's sheet names in workbook order.
func (p *Patcher) SheetNames() []string { return p.index.Names() }

// SheetPart returns the worksheet part path backing the named sheet.
func (p *Patcher) SheetPart(sheet string) (string, bool) { return p.index.Part(sheet) }

// QueueValue queues a cell value change. The payload is validated eagerly;
// a second call for the same (sheet, cell) overwrites the first.
// Cell references are used as given: "A1" and "$A$1" would be distinct
// keys, but absolute markers are rejected outright.
func (p *Patcher) QueueValue(sheet, cell string, payload map[string]any) error {
	row, col, err := p.checkTarget(sheet, cell)
	if err != nil {
		return err
	}
	value, err := ParseValue(payload)
	if err != nil {
		return fmt.Errorf("%s!%s: %w", sheet, cell, err)
	}
	p.values[cellKey{sheet, cell}] = valuePatch{row: row, col: col, value: value}
	return nil
}

// QueueFormat queues font/fill/alignment/number-format changes for a cell,
// merging into any pending format spec for the same key. A border queued
// earlier via QueueBorder stays untouched.
func (p *Patcher) QueueFormat(sheet, cell string, format map[string]any) error {
	if _, _, err := p.checkTarget(sheet, cell); err != nil {
		return err
	}
	next, err := ParseFormat(format)
	if err != nil {
		return fmt.Errorf("%s!%s: %w", sheet, cell, err)
	}
	key := cellKey{sheet, cell}
	spec := p.formats[key]
	if spec == nil {
		spec = &styles.FormatSpec{}
		p.formats[key] = spec
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

// QueueBorder queues a border change for a cell, merging it into any
// pending format spec and leaving the other components untouched.
func (p *Patcher) QueueBorder(sheet, cell string, border map[string]any) error {
	if _, _, err := p.checkTarget(sheet, cell); err != nil {
		return err
	}
	spec, err := ParseBorder(border)
	if err != nil {
		return fmt.Errorf("%s!%s: %w", sheet, cell, err)
	}
	key := cellKey{sheet, cell}
	if pending := p.formats[key]; pending != nil {
		pending.Border = spec
	} else {
		p.formats[key] = &styles.FormatSpec{Border: spec}
	}
	return nil
}

func (p *Patcher) checkTarget(sheet, cell string) (row, col int, err error) {
	if _, ok := p.index.Part(sheet); !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrUnknownSheet, sheet)
	}
	return ooxml.ParseRef(cell)
}
