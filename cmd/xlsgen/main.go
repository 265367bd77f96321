// Command xlsgen writes a small sample workbook, mostly as a smoke
// test for the writer package.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/yamitzky/xlwt-go/xlwt"
)

var version = "dev"

type options struct {
	output   string
	encoding string
	verbose  bool
}

func main() {
	var opts options
	flag.StringVar(&opts.output, "o", "out.xls", "output file name")
	flag.StringVar(&opts.encoding, "encoding", "", "8-bit encoding for compressed strings (default latin_1)")
	flag.BoolVar(&opts.verbose, "v", false, "print write diagnostics")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	if err := run(&opts); err != nil {
		fmt.Fprintf(os.Stderr, "xlsgen: %v\n", err)
		os.Exit(1)
	}
}

func run(opts *options) error {
	bold := xlwt.Style{Font: xlwt.Font{Name: "Arial", Height: 200, Weight: 700, ColourIndex: 0x7FFF}}
	percent := xlwt.Style{Font: xlwt.DefaultFont, NumFormat: "0.00%"}

	wb := xlwt.NewWorkbook()
	wb.Encoding = opts.encoding
	wb.AddStyle(bold)
	wb.AddStyle(percent)

	sheet := wb.AddSheet("Sheet1")
	sheet.WriteStr(0, 0, "item", bold)
	sheet.WriteStr(0, 1, "ratio", bold)
	sheet.WriteStr(1, 0, "apples", xlwt.DefaultStyle)
	sheet.WriteNumber(1, 1, 0.42, percent)
	sheet.WriteStr(2, 0, "oranges", xlwt.DefaultStyle)
	sheet.WriteNumber(2, 1, 0.58, percent)

	f, err := os.Create(opts.output)
	if err != nil {
		return err
	}
	defer f.Close()

	saveOpts := &xlwt.SaveOptions{Logfile: os.Stderr}
	if opts.verbose {
		saveOpts.Verbosity = 1
	}
	if _, err := xlwt.Save(wb, f, saveOpts); err != nil {
		return err
	}
	return nil
}
