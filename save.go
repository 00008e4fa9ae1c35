// Copyright 2025 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package xlsxpatch

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/UNO-SOFT/xlsxpatch/ooxml"
	"github.com/UNO-SOFT/xlsxpatch/styles"
	"github.com/UNO-SOFT/xlsxpatch/worksheet"
)

const stylesPart = "xl/styles.xml"

// Save writes the patched package to path, atomically: the bytes go to a
// sibling temporary file first, which then replaces the destination.
// An empty queue degrades to a plain copy of the source.
func (p *Patcher) Save(path string) error { return p.save(path) }

// SaveInPlace replaces the original file with the patched package,
// through the same temporary-file swap Save uses.
func (p *Patcher) SaveInPlace() error { return p.save(p.path) }

func (p *Patcher) save(dest string) error {
	tmp := dest + ".xlsxpatch.tmp"
	if err := p.writeTo(tmp); err != nil {
		os.Remove(tmp)
		return err
	}
	return replaceFile(tmp, dest)
}

func (p *Patcher) writeTo(out string) error {
	if len(p.values) == 0 && len(p.formats) == 0 {
		p.logger.Debug("save", "dest", out, "fastPath", true)
		return copyFile(p.path, out)
	}

	rc, err := zip.OpenReader(p.path)
	if err != nil {
		return fmt.Errorf("%w: open %q: %w", ooxml.ErrBadPackage, p.path, err)
	}
	defer rc.Close()

	partPatches, stylesXML, err := p.preparePatches(&rc.Reader)
	if err != nil {
		return err
	}

	filePatches := make(map[string][]byte, len(partPatches)+1)
	for part, patches := range partPatches {
		src, err := ooxml.ReadPart(&rc.Reader, part)
		if err != nil {
			return err
		}
		patched, err := worksheet.Patch(src, patches)
		if err != nil {
			return fmt.Errorf("%s: %w", part, err)
		}
		filePatches[part] = patched
	}
	if stylesXML != nil {
		filePatches[stylesPart] = stylesXML
	}

	p.logger.Debug("save", "dest", out, "patchedParts", len(filePatches))
	return rewriteArchive(&rc.Reader, out, filePatches)
}

// preparePatches resolves every queued format spec to a style index and
// merges the value and style queues into per-part cell patch lists.
// The second return is the rewritten style table, nil when untouched.
func (p *Patcher) preparePatches(zr *zip.Reader) (map[string][]worksheet.CellPatch, []byte, error) {
	styleIdx := make(map[cellKey]int, len(p.formats))
	var stylesXML []byte
	if len(p.formats) != 0 {
		src, err := ooxml.ReadPart(zr, stylesPart)
		if err != nil {
			if !errors.Is(err, ooxml.ErrMissingPart) {
				return nil, nil, err
			}
			src = nil // the catalog synthesizes a minimal table
		}
		catalog, err := styles.New(src)
		if err != nil {
			return nil, nil, err
		}
		// Catalog growth is append-only, so resolve in a fixed order to
		// keep the output deterministic. A spec that requests nothing
		// gets no record.
		for _, key := range sortedCellKeys(p.formats) {
			if spec := p.formats[key]; !spec.Empty() {
				styleIdx[key] = catalog.Resolve(spec)
			}
		}
		if catalog.Dirty() {
			if stylesXML, err = catalog.Flush(); err != nil {
				return nil, nil, err
			}
		}
	}

	parts := make(map[string][]worksheet.CellPatch)
	for key, vp := range p.values {
		part, ok := p.index.Part(key.Sheet)
		if !ok {
			return nil, nil, fmt.Errorf("%w: %q", ErrUnknownSheet, key.Sheet)
		}
		value := vp.value
		patch := worksheet.CellPatch{Row: vp.row, Col: vp.col, Value: &value}
		if idx, ok := styleIdx[key]; ok {
			patch.Style = idx
		}
		parts[part] = append(parts[part], patch)
	}
	for key := range p.formats {
		if _, hasValue := p.values[key]; hasValue {
			continue // style rides along with the value patch
		}
		idx, ok := styleIdx[key]
		if !ok {
			continue
		}
		part, ok := p.index.Part(key.Sheet)
		if !ok {
			return nil, nil, fmt.Errorf("%w: %q", ErrUnknownSheet, key.Sheet)
		}
		row, col, err := ooxml.ParseRef(key.Cell)
		if err != nil {
			return nil, nil, err
		}
		parts[part] = append(parts[part],
			worksheet.CellPatch{Row: row, Col: col, Style: idx})
	}
	return parts, stylesXML, nil
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

// rewriteArchive streams the source archive to out, substituting the
// patched parts and copying every other entry raw (still compressed),
// preserving method, timestamp and permission bits throughout.
func rewriteArchive(zr *zip.Reader, out string, patched map[string][]byte) error {
	dst, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create %q: %w", out, err)
	}
	zw := zip.NewWriter(dst)
	for _, f := range zr.File {
		data, ok := patched[f.Name]
		if !ok {
			rr, err := f.OpenRaw()
			if err != nil {
				dst.Close()
				return fmt.Errorf("%s: %w", f.Name, err)
			}
			fh := f.FileHeader
			w, err := zw.CreateRaw(&fh)
			if err == nil {
				_, err = io.Copy(w, rr)
			}
			if err != nil {
				dst.Close()
				return fmt.Errorf("%s: %w", f.Name, err)
			}
			continue
		}

		fh := &zip.FileHeader{
			Name:     f.Name,
			Method:   f.Method,
			Modified: f.Modified,
			Comment:  f.Comment,
		}
		fh.SetMode(f.Mode())
		w, err := zw.CreateHeader(fh)
		if err == nil {
			_, err = w.Write(data)
		}
		if err != nil {
			dst.Close()
			return fmt.Errorf("%s: %w", f.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		dst.Close()
		return fmt.Errorf("finalize %q: %w", out, err)
	}
	return dst.Close()
}

// replaceFile moves tmp over dest. When the direct rename fails (other
// filesystem, locked destination), it retries after removing dest, and
// as a last resort copies the bytes over.
func replaceFile(tmp, dest string) error {
	err := os.Rename(tmp, dest)
	if err == nil {
		return nil
	}
	if rmErr := os.Remove(dest); rmErr == nil || errors.Is(rmErr, os.ErrNotExist) {
		if os.Rename(tmp, dest) == nil {
			return nil
		}
	}
	if copyErr := copyFile(tmp, dest); copyErr != nil {
		return fmt.Errorf("replace %q: %w", dest, errors.Join(err, copyErr))
	}
	return os.Remove(tmp)
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %q: %w", src, err)
	}
	defer in.Close()
	mode := os.FileMode(0o644)
	if fi, err := in.Stat(); err == nil {
		mode = fi.Mode().Perm()
	}
	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("create %q: %w", dest, err)
	}
	if _, err = io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %q: %w", dest, err)
	}
	return out.Close()
}
