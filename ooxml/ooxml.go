// Copyright 2025 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

// Package ooxml contains the small shared pieces of OOXML package handling:
// resolving sheet names to worksheet part paths, A1 cell references,
// and a streaming XML event scanner/emitter pair used by the patchers.
package ooxml

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zip"
)

var (
	// ErrMissingPart is wrapped when a required package part is absent.
	ErrMissingPart = errors.New("missing package part")
	// ErrBadPackage is wrapped when a package part cannot be parsed.
	ErrBadPackage = errors.New("malformed package")
	// ErrBadReference is wrapped for malformed A1 cell references.
	ErrBadReference = errors.New("invalid cell reference")
)

// SheetRef is one sheet entry of workbook.xml, in workbook order.
type SheetRef struct {
	Name string
	RID  string
}

// Index maps sheet names to worksheet part paths, preserving workbook order.
//
// Duplicate sheet names cannot occur in a valid workbook; if they do,
// the last relationship wins, deterministically.
type Index struct {
	names []string
	parts map[string]string
}

// Names returns the sheet names in workbook order.
func (ix *Index) Names() []string {
	names := make([]string, len(ix.names))
	copy(names, ix.names)
	return names
}

// Part returns the worksheet part path for the given sheet name.
func (ix *Index) Part(sheet string) (string, bool) {
	p, ok := ix.parts[sheet]
	return p, ok
}

// BuildIndex reads workbook.xml and its rels part and chains
// sheet name → relationship id → normalized part path.
func BuildIndex(zr *zip.Reader) (*Index, error) {
	wbXML, err := ReadPart(zr, "xl/workbook.xml")
	if err != nil {
		return nil, err
	}
	relsXML, err := ReadPart(zr, "xl/_rels/workbook.xml.rels")
	if err != nil {
		return nil, err
	}
	sheets, err := ParseWorkbookSheets(wbXML)
	if err != nil {
		return nil, err
	}
	targets, err := ParseRelationships(relsXML)
	if err != nil {
		return nil, err
	}

	ix := &Index{parts: make(map[string]string, len(sheets))}
	for _, sh := range sheets {
		target, ok := targets[sh.RID]
		if !ok {
			continue
		}
		if _, seen := ix.parts[sh.Name]; !seen {
			ix.names = append(ix.names, sh.Name)
		}
		ix.parts[sh.Name] = ResolveTarget("xl/", target)
	}
	return ix, nil
}

// ParseWorkbookSheets returns the ordered (name, r:id) pairs of the
// <sheet> elements in workbook.xml.
func ParseWorkbookSheets(xmlData []byte) ([]SheetRef, error) {
	sc := NewScanner(xmlData)
	var out []SheetRef
	for {
		ev, err := sc.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: workbook.xml: %w", ErrBadPackage, err)
		}
		if ev.Kind == StartEvent && ev.Name.Local == "sheet" {
			name, nameOK := Attr(ev.Attr, "name")
			rid, ridOK := Attr(ev.Attr, "r:id")
			if nameOK && ridOK {
				out = append(out, SheetRef{Name: name, RID: rid})
			}
		}
	}
	return out, nil
}

// ParseRelationships returns the Id → Target mapping of a .rels part.
func ParseRelationships(xmlData []byte) (map[string]string, error) {
	sc := NewScanner(xmlData)
	out := make(map[string]string)
	for {
		ev, err := sc.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: rels: %w", ErrBadPackage, err)
		}
		if ev.Kind == StartEvent && ev.Name.Local == "Relationship" {
			id, idOK := Attr(ev.Attr, "Id")
			target, tOK := Attr(ev.Attr, "Target")
			if idOK && tOK {
				out[id] = target
			}
		}
	}
	return out, nil
}

// NormalizePath collapses "." and ".." segments of a zip entry path.
func NormalizePath(p string) string {
	var stack []string
	for _, part := range strings.Split(p, "/") {
		switch part {
		case "", ".":
		case "..":
			if len(stack) != 0 {
				stack = stack[:len(stack)-1]
			}
		default:
			stack = append(stack, part)
		}
	}
	return strings.Join(stack, "/")
}

// ResolveTarget resolves a relationship target against the given base
// directory (such as "xl/"), yielding a normalized zip entry path.
func ResolveTarget(base, target string) string {
	t := strings.TrimPrefix(target, "/")
	if !strings.HasPrefix(t, base) {
		t = base + t
	}
	return NormalizePath(t)
}

// ReadPart reads a named entry of the archive, wrapping ErrMissingPart
// when the entry does not exist.
func ReadPart(zr *zip.Reader, name string) ([]byte, error) {
	f, err := zr.Open(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMissingPart, name, err)
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return b, nil
}

// ParseRef parses an A1-style cell reference into 1-based (row, col).
// Only column letters followed by row digits are accepted; absolute
// markers ("$A$1"), interleaved forms ("1A", "A1B2") and anything else
// outside [A-Za-z0-9] are rejected: callers normalize upstream.
func ParseRef(ref string) (row, col int, err error) {
	var digits strings.Builder
	for _, ch := range ref {
		switch {
		case 'A' <= ch && ch <= 'Z':
			if digits.Len() != 0 {
				return 0, 0, fmt.Errorf("%w: %q", ErrBadReference, ref)
			}
			col = col*26 + int(ch-'A') + 1
		case 'a' <= ch && ch <= 'z':
			if digits.Len() != 0 {
				return 0, 0, fmt.Errorf("%w: %q", ErrBadReference, ref)
			}
			col = col*26 + int(ch-'a') + 1
		case '0' <= ch && ch <= '9':
			digits.WriteRune(ch)
		default:
			return 0, 0, fmt.Errorf("%w: %q", ErrBadReference, ref)
		}
	}
	if col == 0 || digits.Len() == 0 {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadReference, ref)
	}
	row, err = strconv.Atoi(digits.String())
	if err != nil || row == 0 {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadReference, ref)
	}
	return row, col, nil
}

// FormatRef renders 1-based (row, col) as an A1-style reference.
func FormatRef(row, col int) string {
	var letters [8]byte
	i := len(letters)
	for col > 0 {
		col--
		i--
		letters[i] = byte('A' + col%26)
		col /= 26
	}
	return string(letters[i:]) + strconv.Itoa(row)
}
