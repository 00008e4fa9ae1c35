// Copyright 2025 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

// Command patchxlsx applies a cell patch script to an .xlsx workbook.
//
// The script is CSV, one change per record:
//
//	sheet;cell;op;payload
//
// with op one of value, format or border, and payload a JSON object.
// By default the changes are applied surgically, rewriting only the
// touched worksheet parts; -dom switches to the full document-model
// backend instead.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"

	"github.com/UNO-SOFT/zlog/v2"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/UNO-SOFT/xlsxpatch"
	"github.com/UNO-SOFT/xlsxpatch/xlsx"
)

var verbose zlog.VerboseVar
var logger = zlog.NewLogger(zlog.MaybeConsoleHandler(&verbose, os.Stderr)).SLog()

func main() {
	if err := Main(); err != nil {
		logger.Error("Main", "error", err)
		os.Exit(1)
	}
}

func Main() error {
	fs := flag.NewFlagSet("patchxlsx", flag.ContinueOnError)
	fs.Var(&verbose, "v", "verbose logging")
	flagOut := fs.String("o", "", "output file (default: <workbook>.patched.xlsx)")
	flagInPlace := fs.Bool("in-place", false, "overwrite the input workbook")
	flagCharset := fs.String("charset", xlsxpatch.EncName, "script charset name")
	flagDOM := fs.Bool("dom", false, "use the full document-model backend")

	app := ffcli.Command{Name: "patchxlsx", FlagSet: fs,
		ShortUsage: "patchxlsx [flags] workbook.xlsx [script.csv]",
		ShortHelp:  "apply a cell patch script to an .xlsx workbook",
		Exec: func(ctx context.Context, args []string) error {
			if len(args) == 0 {
				return flag.ErrHelp
			}
			wbPath := args[0]
			scriptFn := "-"
			if len(args) > 1 {
				scriptFn = args[1]
			}

			var ed xlsxpatch.Editor
			if *flagDOM {
				var err error
				if ed, err = xlsx.OpenEditor(wbPath); err != nil {
					return err
				}
			} else {
				p, err := xlsxpatch.Open(wbPath)
				if err != nil {
					return err
				}
				p.SetLogger(logger)
				ed = p
			}
			logger.Debug("open", "workbook", wbPath, "sheets", ed.SheetNames())

			cr, err := xlsxpatch.OpenCsv(scriptFn, *flagCharset)
			if err != nil {
				return err
			}
			defer cr.Close()
			if err = xlsxpatch.ApplyScript(ed, cr.Reader); err != nil {
				return err
			}
			if err = ctx.Err(); err != nil {
				return err
			}

			if *flagInPlace {
				return ed.SaveInPlace()
			}
			out := *flagOut
			if out == "" {
				out = strings.TrimSuffix(wbPath, ".xlsx") + ".patched.xlsx"
			}
			logger.Info("save", "dest", out)
			return ed.Save(out)
		},
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	return app.ParseAndRun(ctx, os.Args[1:])
}
