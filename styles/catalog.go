// Copyright 2025 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package styles

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"

	"github.com/UNO-SOFT/xlsxpatch/ooxml"
)

// minimalStylesXML is the style table synthesized for packages
// that carry none: one default font, fill, border and style record.
const minimalStylesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<styleSheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
<fonts count="1"><font><sz val="11"/><name val="Calibri"/></font></fonts>
<fills count="2"><fill><patternFill patternType="none"/></fill><fill><patternFill patternType="gray125"/></fill></fills>
<borders count="1"><border><left/><right/><top/><bottom/><diagonal/></border></borders>
<cellXfs count="1"><xf numFmtId="0" fontId="0" fillId="0" borderId="0"/></cellXfs>
</styleSheet>`

// Catalog holds a parsed xl/styles.xml and the records appended to it.
// Appends only become visible in the XML returned by Flush; indices
// returned by Resolve account for them immediately.
type Catalog struct {
	src []byte

	fonts, fills, borders, cellXfs, numFmts int // existing child counts

	xfs         []XfEntry
	numFmtIDs   map[string]int // custom format code → id
	maxNumFmtID int
	hasNumFmts  bool

	addFonts, addFills, addBorders, addNumFmts, addXfs []string
}

// New parses a styles.xml document into a Catalog. Empty input
// synthesizes the minimal style table.
func New(src []byte) (*Catalog, error) {
	if len(src) == 0 {
		src = []byte(minimalStylesXML)
	}
	c := &Catalog{
		src:         src,
		numFmtIDs:   make(map[string]int),
		maxNumFmtID: 163, // builtin ids end here, custom ones follow
	}

	sc := ooxml.NewScanner(src)
	var stack []string
	for {
		ev, err := sc.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: styles.xml: %w", ooxml.ErrBadPackage, err)
		}
		switch ev.Kind {
		case ooxml.StartEvent:
			parent := ""
			if len(stack) != 0 {
				parent = stack[len(stack)-1]
			}
			switch {
			case parent == "fonts" && ev.Name.Local == "font":
				c.fonts++
			case parent == "fills" && ev.Name.Local == "fill":
				c.fills++
			case parent == "borders" && ev.Name.Local == "border":
				c.borders++
			case parent == "cellXfs" && ev.Name.Local == "xf":
				c.cellXfs++
				c.xfs = append(c.xfs, parseXf(ev.Attr))
			case parent == "numFmts" && ev.Name.Local == "numFmt":
				c.numFmts++
				code, _ := ooxml.Attr(ev.Attr, "formatCode")
				if id, ok := ooxml.Attr(ev.Attr, "numFmtId"); ok {
					n, err := strconv.Atoi(id)
					if err == nil {
						c.numFmtIDs[code] = n
						if n > c.maxNumFmtID {
							c.maxNumFmtID = n
						}
					}
				}
			}
			if ev.Name.Local == "numFmts" {
				c.hasNumFmts = true
			}
			if !ev.Empty {
				stack = append(stack, ev.Name.Local)
			}
		case ooxml.EndEvent:
			if len(stack) != 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}
	return c, nil
}

// Xfs returns the style records parsed from cellXfs.
func (c *Catalog) Xfs() []XfEntry { return c.xfs }

// Dirty reports whether Resolve appended anything since New.
func (c *Catalog) Dirty() bool {
	return len(c.addFonts)+len(c.addFills)+len(c.addBorders)+
		len(c.addNumFmts)+len(c.addXfs) != 0
}

// Resolve realizes the spec as catalog records and returns the index of
// the style record referencing them. Components absent from the spec
// stay at index 0.
func (c *Catalog) Resolve(spec *FormatSpec) int {
	var entry XfEntry
	if spec.Font != nil {
		entry.FontID = c.fonts + len(c.addFonts)
		c.addFonts = append(c.addFonts, fontXML(spec.Font))
	}
	if spec.Fill != nil {
		entry.FillID = c.fills + len(c.addFills)
		c.addFills = append(c.addFills, fillXML(spec.Fill))
	}
	if spec.Border != nil {
		entry.BorderID = c.borders + len(c.addBorders)
		c.addBorders = append(c.addBorders, borderXML(spec.Border))
	}
	if spec.NumberFormat != "" {
		entry.NumFmtID = c.numFmtID(spec.NumberFormat)
	}

	idx := c.cellXfs + len(c.addXfs)
	c.addXfs = append(c.addXfs, xfXML(entry, spec))
	c.xfs = append(c.xfs, entry)
	return idx
}

func (c *Catalog) numFmtID(code string) int {
	if id, ok := builtinNumFmtID(code); ok {
		return id
	}
	if id, ok := c.numFmtIDs[code]; ok {
		return id
	}
	id := c.maxNumFmtID + 1
	c.maxNumFmtID = id
	c.numFmtIDs[code] = id
	c.addNumFmts = append(c.addNumFmts, numFmtXML(id, code))
	return id
}

// pending returns the appended fragments and the existing child count
// of a governed section; nil for other elements.
func (c *Catalog) pending(section string) ([]string, int) {
	switch section {
	case "fonts":
		return c.addFonts, c.fonts
	case "fills":
		return c.addFills, c.fills
	case "borders":
		return c.addBorders, c.borders
	case "cellXfs":
		return c.addXfs, c.cellXfs
	case "numFmts":
		if c.hasNumFmts {
			return c.addNumFmts, c.numFmts
		}
	}
	return nil, 0
}

// Flush re-streams the style table XML with every appended record
// injected before its section's closing tag and the section counts
// rewritten. Without appends it returns the source unchanged.
func (c *Catalog) Flush() ([]byte, error) {
	if !c.Dirty() {
		return c.src, nil
	}
	sc := ooxml.NewScanner(c.src)
	var e ooxml.Emitter
	flushed := make(map[string]bool)
	for {
		ev, err := sc.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: styles.xml: %w", ooxml.ErrBadPackage, err)
		}
		switch ev.Kind {
		case ooxml.StartEvent:
			name := ev.Name.Local
			if name == "fonts" && !c.hasNumFmts && len(c.addNumFmts) != 0 {
				// The numFmts section is optional; synthesize it just
				// before fonts, where the schema expects it.
				e.Open("numFmts", ooxml.A("count", strconv.Itoa(len(c.addNumFmts))))
				for _, f := range c.addNumFmts {
					e.Raw(f)
				}
				e.Close("numFmts")
				flushed["numFmts"] = true
			}
			adds, base := c.pending(name)
			if len(adds) == 0 {
				e.Event(ev)
				continue
			}
			ev.Attr = ooxml.SetAttr(ev.Attr, "count", strconv.Itoa(base+len(adds)))
			if ev.Empty {
				ev.Empty = false
				e.Event(ev)
				for _, f := range adds {
					e.Raw(f)
				}
				e.Event(ooxml.Event{Kind: ooxml.EndEvent, Name: ev.Name})
				flushed[name] = true
				continue
			}
			e.Event(ev)
		case ooxml.EndEvent:
			if adds, _ := c.pending(ev.Name.Local); len(adds) != 0 {
				for _, f := range adds {
					e.Raw(f)
				}
				flushed[ev.Name.Local] = true
			}
			e.Event(ev)
		default:
			e.Event(ev)
		}
	}
	// Resolve already handed out indices past the section tables, so a
	// document missing a governed section cannot be written back.
	if len(c.addNumFmts) != 0 && !flushed["numFmts"] {
		return nil, fmt.Errorf("%w: styles.xml has no <numFmts> or <fonts> section", ooxml.ErrBadPackage)
	}
	for _, section := range []string{"fonts", "fills", "borders", "cellXfs"} {
		if adds, _ := c.pending(section); len(adds) != 0 && !flushed[section] {
			return nil, fmt.Errorf("%w: styles.xml has no <%s> section", ooxml.ErrBadPackage, section)
		}
	}
	return e.Bytes(), nil
}

func parseXf(attrs []xml.Attr) XfEntry {
	geti := func(name string) int {
		if v, ok := ooxml.Attr(attrs, name); ok {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return 0
	}
	return XfEntry{
		NumFmtID: geti("numFmtId"),
		FontID:   geti("fontId"),
		FillID:   geti("fillId"),
		BorderID: geti("borderId"),
	}
}
