// Copyright 2025 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package xlsxpatch

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

var EncName = "utf-8"

func init() {
	EncName = os.Getenv("LANG")
	if i := strings.IndexByte(EncName, '.'); i >= 0 {
		EncName = strings.ToLower(EncName[i+1:])
	}
	if EncName == "" {
		EncName = "utf-8"
	}
}

func GetEncoding(encName string) (encoding.Encoding, error) {
	encName = strings.ToLower(encName)
	if encName == "" || encName == "utf-8" || encName == "utf8" {
		return nil, nil
	}
	enc, err := htmlindex.Get(encName)
	if err != nil {
		err = fmt.Errorf("%q: %w", encName, err)
	}
	return enc, err
}

type csvReadCloser struct {
	*csv.Reader
	io.Closer
}

// OpenCsv opens a patch script, decoding from the given charset and
// sniffing the field separator from the first KiB. fn of "" or "-"
// reads the standard input.
func OpenCsv(fn, encName string) (csvReadCloser, error) {
	var enc encoding.Encoding
	if encName != "" {
		var err error
		if enc, err = GetEncoding(encName); err != nil {
			return csvReadCloser{}, err
		}
	}
	fh := os.Stdin
	if !(fn == "" || fn == "-") {
		var err error
		if fh, err = os.Open(fn); err != nil {
			return csvReadCloser{}, err
		}
	}
	r := io.ReadCloser(fh)
	if enc != nil {
		r = struct {
			io.Reader
			io.Closer
		}{enc.NewDecoder().Reader(r), r}
	}
	br := bufio.NewReaderSize(r, 1<<20)
	b, err := br.Peek(1024)
	if err != nil && len(b) == 0 {
		return csvReadCloser{}, err
	}
	sep := rune(',')
	for _, r := range string(b) {
		if r == '"' || r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r) {
			continue
		}
		sep = r
		break
	}

	cr := csv.NewReader(br)
	cr.ReuseRecord = true
	cr.Comma = sep
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	return csvReadCloser{cr, r}, nil
}

// ApplyScript reads patch records and queues them on ed. A record is
//
//	sheet, cell, op, payload
//
// where op is "value", "format" or "border" and payload is a JSON object
// in that op's boundary schema. Errors carry the record's line number.
func ApplyScript(ed Editor, cr *csv.Reader) error {
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if len(rec) == 0 || (len(rec) == 1 && rec[0] == "") {
			continue
		}
		line, _ := cr.FieldPos(0)
		if len(rec) < 4 {
			return fmt.Errorf("%w: line %d: want sheet,cell,op,payload, got %d fields",
				ErrBadPayload, line, len(rec))
		}
		sheet, cell, op := rec[0], rec[1], rec[2]
		var payload map[string]any
		if err = json.Unmarshal([]byte(rec[3]), &payload); err != nil {
			return fmt.Errorf("%w: line %d: payload: %w", ErrBadPayload, line, err)
		}
		switch op {
		case "value", "set":
			err = ed.QueueValue(sheet, cell, payload)
		case "format":
			err = ed.QueueFormat(sheet, cell, payload)
		case "border":
			err = ed.QueueBorder(sheet, cell, payload)
		default:
			err = fmt.Errorf("%w: op %q", ErrBadPayload, op)
		}
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
}
