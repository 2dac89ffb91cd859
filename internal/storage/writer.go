package storage

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/xuri/excelize/v2"

	"github.com/skyyyyy916/my-cyber-dashboard/internal/engine"
)

// Export formats accepted by Exporter.Write.
const (
	FormatCSV     = "csv"
	FormatCSVZstd = "csv.zst"
	FormatXLSX    = "xlsx"
)

const sheetName = "Events"

// Exporter writes filtered views back out as files.
type Exporter struct {
	encoder *zstd.Encoder
}

func NewExporter() (*Exporter, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	return &Exporter{encoder: enc}, nil
}

// ContentType returns the MIME type and file extension of an export format.
func ContentType(format string) (string, string, bool) {
	switch format {
	case FormatCSV:
		return "text/csv; charset=utf-8", ".csv", true
	case FormatCSVZstd:
		return "application/zstd", ".csv.zst", true
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", ".xlsx", true
	default:
		return "", "", false
	}
}

// Write encodes the view in the given format.
func (e *Exporter) Write(w io.Writer, v engine.View, format string) error {
	switch format {
	case FormatCSV:
		return writeCSV(w, v)
	case FormatCSVZstd:
		return e.writeCSVZstd(w, v)
	case FormatXLSX:
		return writeXLSX(w, v)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

// writeCSV writes the header and every view row; missing cells are blank.
func writeCSV(w io.Writer, v engine.View) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(v.Table().Columns()); err != nil {
		return err
	}
	for i := 0; i < v.Len(); i++ {
		if err := cw.Write(v.Row(i)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (e *Exporter) writeCSVZstd(w io.Writer, v engine.View) error {
	buf := new(bytes.Buffer)
	if err := writeCSV(buf, v); err != nil {
		return err
	}
	compressed := e.encoder.EncodeAll(buf.Bytes(), make([]byte, 0, buf.Len()/4))
	_, err := w.Write(compressed)
	return err
}

// writeXLSX streams the view into a single "Events" sheet.
func writeXLSX(w io.Writer, v engine.View) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}
	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return err
	}

	cols := v.Table().Columns()
	header := make([]interface{}, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	for i := 0; i < v.Len(); i++ {
		row := make([]interface{}, len(cols))
		for j, c := range cols {
			if val, ok := v.Value(i, c); ok {
				row[j] = val
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return err
		}
	}

	if err := sw.Flush(); err != nil {
		return err
	}
	return f.Write(w)
}
