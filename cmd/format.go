package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// printJSON writes v as indented JSON to stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeXLSX writes a single-sheet workbook to path: one header row, then
// one row per entry of rows.
func writeXLSX(path, sheetName string, header []string, rows [][]any) error {
	wb := xlsx.NewFile()
	sheet, err := wb.AddSheet(sheetName)
	if err != nil {
		return eris.Wrap(err, "xlsx: add sheet")
	}

	hr := sheet.AddRow()
	for _, h := range header {
		hr.AddCell().SetString(h)
	}

	for _, row := range rows {
		r := sheet.AddRow()
		for _, v := range row {
			cell := r.AddCell()
			switch x := v.(type) {
			case string:
				cell.SetString(x)
			case int:
				cell.SetInt(x)
			case float64:
				cell.SetFloat(x)
			default:
				cell.SetValue(x)
			}
		}
	}

	if err := wb.Save(path); err != nil {
		return eris.Wrapf(err, "xlsx: save %s", path)
	}
	return nil
}
