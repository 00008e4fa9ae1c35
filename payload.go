// Copyright 2025 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package xlsxpatch

import (
	"fmt"
	"strings"

	"github.com/UNO-SOFT/xlsxpatch/styles"
	"github.com/UNO-SOFT/xlsxpatch/worksheet"
)

// ParseValue converts a boundary value payload to a CellValue.
// Formula text has any leading "=" stripped.
func ParseValue(payload map[string]any) (worksheet.CellValue, error) {
	typ, _, err := dictString(payload, "type")
	if err != nil {
		return worksheet.CellValue{}, err
	}
	switch typ {
	case "blank":
		return worksheet.CellValue{Kind: worksheet.Blank}, nil
	case "string", "str":
		s, _, err := dictString(payload, "value")
		if err != nil {
			return worksheet.CellValue{}, err
		}
		return worksheet.CellValue{Kind: worksheet.String, Text: s}, nil
	case "number", "float", "int", "integer":
		n, _, err := dictFloat(payload, "value")
		if err != nil {
			return worksheet.CellValue{}, err
		}
		return worksheet.CellValue{Kind: worksheet.Number, Number: n}, nil
	case "boolean", "bool":
		b, _, err := dictBool(payload, "value")
		if err != nil {
			return worksheet.CellValue{}, err
		}
		return worksheet.CellValue{Kind: worksheet.Boolean, Bool: b}, nil
	case "formula":
		f, ok, err := dictString(payload, "formula")
		if err != nil {
			return worksheet.CellValue{}, err
		}
		if !ok {
			if f, _, err = dictString(payload, "value"); err != nil {
				return worksheet.CellValue{}, err
			}
		}
		return worksheet.CellValue{
			Kind: worksheet.Formula,
			Text: strings.TrimPrefix(f, "="),
		}, nil
	}
	return worksheet.CellValue{}, fmt.Errorf("%w: %q", ErrUnknownType, typ)
}

// ParseFormat converts the recognized font/fill/alignment/number-format
// keys of a format dict into a FormatSpec. Sub-specs are only created when
// at least one of their fields was supplied.
func ParseFormat(d map[string]any) (*styles.FormatSpec, error) {
	spec := &styles.FormatSpec{}

	bold, boldOK, err := dictBool(d, "bold")
	if err != nil {
		return nil, err
	}
	italic, italicOK, err := dictBool(d, "italic")
	if err != nil {
		return nil, err
	}
	underline, underlineOK, err := dictBool(d, "underline")
	if err != nil {
		return nil, err
	}
	strike, strikeOK, err := dictBool(d, "strikethrough")
	if err != nil {
		return nil, err
	}
	name, nameOK, err := dictString(d, "font_name")
	if err != nil {
		return nil, err
	}
	size, sizeOK, err := dictInt(d, "font_size")
	if err != nil {
		return nil, err
	}
	color, colorOK, err := dictString(d, "font_color")
	if err != nil {
		return nil, err
	}
	if boldOK || italicOK || underlineOK || strikeOK || nameOK || sizeOK || colorOK {
		spec.Font = &styles.FontSpec{
			Bold: bold, Italic: italic,
			Underline: underline, Strikethrough: strike,
			Name: name, Size: size,
		}
		if colorOK {
			spec.Font.Color = styles.NormalizeColor(color)
		}
	}

	if bg, ok, err := dictString(d, "bg_color"); err != nil {
		return nil, err
	} else if ok {
		spec.Fill = &styles.FillSpec{Pattern: "solid", Color: styles.NormalizeColor(bg)}
	}

	if code, _, err := dictString(d, "number_format"); err != nil {
		return nil, err
	} else {
		spec.NumberFormat = code
	}

	// Alignment keys come in two spellings; either is accepted.
	horizontal, hOK, err := dictStringAlias(d, "horizontal", "h_align")
	if err != nil {
		return nil, err
	}
	vertical, vOK, err := dictStringAlias(d, "vertical", "v_align")
	if err != nil {
		return nil, err
	}
	wrap, wrapOK, err := dictBoolAlias(d, "wrap_text", "wrap")
	if err != nil {
		return nil, err
	}
	indent, indentOK, err := dictInt(d, "indent")
	if err != nil {
		return nil, err
	}
	rotation, rotOK, err := dictIntAlias(d, "text_rotation", "rotation")
	if err != nil {
		return nil, err
	}
	if hOK || vOK || wrapOK || indentOK || rotOK {
		spec.Alignment = &styles.AlignmentSpec{
			Horizontal: horizontal, Vertical: vertical,
			WrapText: wrap, Indent: indent, TextRotation: rotation,
		}
	}
	return spec, nil
}

// ParseBorder converts a border dict ({edge: {style, color}}) into a
// BorderSpec; absent edges stay empty.
func ParseBorder(d map[string]any) (*styles.BorderSpec, error) {
	spec := &styles.BorderSpec{}
	for edge, side := range map[string]*styles.Side{
		"left": &spec.Left, "right": &spec.Right,
		"top": &spec.Top, "bottom": &spec.Bottom,
	} {
		v, ok := d[edge]
		if !ok || v == nil {
			continue
		}
		m, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s is not a dict", ErrBadPayload, edge)
		}
		style, _, err := dictString(m, "style")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", edge, err)
		}
		color, colorOK, err := dictString(m, "color")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", edge, err)
		}
		side.Style = style
		if colorOK {
			side.Color = styles.NormalizeColor(color)
		}
	}
	return spec, nil
}

func dictString(d map[string]any, key string) (string, bool, error) {
	v, ok := d[key]
	if !ok || v == nil {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", false, fmt.Errorf("%w: %s is not a string", ErrBadPayload, key)
	}
	return s, true, nil
}

func dictBool(d map[string]any, key string) (bool, bool, error) {
	v, ok := d[key]
	if !ok || v == nil {
		return false, false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, false, fmt.Errorf("%w: %s is not a boolean", ErrBadPayload, key)
	}
	return b, true, nil
}

func dictFloat(d map[string]any, key string) (float64, bool, error) {
	v, ok := d[key]
	if !ok || v == nil {
		return 0, false, nil
	}
	switch n := v.(type) {
	case float64:
		return n, true, nil
	case float32:
		return float64(n), true, nil
	case int:
		return float64(n), true, nil
	case int64:
		return float64(n), true, nil
	}
	return 0, false, fmt.Errorf("%w: %s is not a number", ErrBadPayload, key)
}

func dictInt(d map[string]any, key string) (int, bool, error) {
	n, ok, err := dictFloat(d, key)
	return int(n), ok, err
}

func dictStringAlias(d map[string]any, key, alias string) (string, bool, error) {
	if s, ok, err := dictString(d, key); ok || err != nil {
		return s, ok, err
	}
	return dictString(d, alias)
}

func dictBoolAlias(d map[string]any, key, alias string) (bool, bool, error) {
	if b, ok, err := dictBool(d, key); ok || err != nil {
		return b, ok, err
	}
	return dictBool(d, alias)
}

func dictIntAlias(d map[string]any, key, alias string) (int, bool, error) {
	if n, ok, err := dictInt(d, key); ok || err != nil {
		return n, ok, err
	}
	return dictInt(d, alias)
}
