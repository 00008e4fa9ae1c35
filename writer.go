// Copyright 2025 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package xlsxpatch

import (
	"errors"
	"io"
)

// Writer builds a new workbook from scratch, sheet by sheet.
// It is the complement of Editor: Editor changes cells of an existing
// package, Writer produces one. The write finishes when Close is called.
//
// Implementations SHOULD allow writing to separate sheets concurrently,
// and document it when they do not.
type Writer interface {
	io.Closer
	NewSheet(name string, cols []Column) (Sheet, error)
}

// Sheet should be Closed when finished.
type Sheet interface {
	io.Closer
	AppendRow(values ...any) error
}

// Style is a creation-time style for a column, row or cell.
type Style struct {
	// Format is the number format code.
	Format string
	// FontBold is true if the font is bold.
	FontBold bool
}

// Column contains the Name of the column and the header's and the
// column's style.
type Column struct {
	Name           string
	Header, Column Style
}

var ErrTooManyRows = errors.New("too many rows")

// Number is a string that contains a number.
type Number string
