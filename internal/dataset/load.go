package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"
)

// naToken is the cell text gota treats as missing for every column type.
const naToken = "NaN"

// missingTokens are cell values read as missing, matching common CSV exporters.
var missingTokens = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
	"<nil>": {},
}

// Options controls how tabular files are read.
type Options struct {
	// MaxRows limits data rows read; 0 means unlimited.
	MaxRows int
	// Delimiter for CSV. If 0, picked from the file extension.
	Delimiter rune
	// DecimalSeparator and ThousandsSeparator enable locale-aware numeric parsing.
	// When both are 0 numbers are parsed as plain Go floats.
	DecimalSeparator   rune
	ThousandsSeparator rune
	// Sheet selects a workbook sheet by name; empty means the first sheet.
	Sheet string
}

// DefaultOptions returns the loader defaults.
func DefaultOptions() Options {
	return Options{}
}

// LoadFile reads a CSV, TSV or XLSX file into a table, picking the reader by extension.
func LoadFile(path string, opt Options) (dataframe.DataFrame, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return LoadXLSX(path, opt)
	default:
		return LoadCSV(path, opt)
	}
}

// LoadCSV reads a delimited text file. The first line is the header.
func LoadCSV(path string, opt Options) (dataframe.DataFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(path)
	}
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.Comma = delim

	var records [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("read csv: %w", err)
		}
		records = append(records, rec)
		if opt.MaxRows > 0 && len(records) > opt.MaxRows {
			break
		}
	}
	if len(records) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("%s: %w", filepath.Base(path), ErrEmpty)
	}
	return LoadRecords(records, opt)
}

// LoadXLSX reads one sheet of an Excel workbook using raw cell values.
func LoadXLSX(path string, opt Options) (dataframe.DataFrame, error) {
	wb, err := excelize.OpenFile(path)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("open xlsx: %w", err)
	}
	defer wb.Close()
	sheet := opt.Sheet
	if sheet == "" {
		sheets := wb.GetSheetList()
		if len(sheets) == 0 {
			return dataframe.DataFrame{}, fmt.Errorf("%s: %w", filepath.Base(path), ErrEmpty)
		}
		sheet = sheets[0]
	}
	rows, err := wb.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if opt.MaxRows > 0 && len(rows) > opt.MaxRows+1 {
		rows = rows[:opt.MaxRows+1]
	}
	if len(rows) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("%s: %w", filepath.Base(path), ErrEmpty)
	}
	return LoadRecords(rows, opt)
}

// LoadRecords builds a table from a header row followed by data rows.
// A column is numeric when every non-missing cell parses as a number;
// otherwise it is text. Short rows are padded with missing cells.
func LoadRecords(records [][]string, opt Options) (dataframe.DataFrame, error) {
	if len(records) == 0 {
		return dataframe.DataFrame{}, ErrEmpty
	}
	if opt.MaxRows > 0 && len(records) > opt.MaxRows+1 {
		records = records[:opt.MaxRows+1]
	}
	header, err := normalizeHeader(records[0])
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	ncol := len(header)
	rows := records[1:]
	if len(rows) == 0 {
		return dataframe.DataFrame{}, ErrEmpty
	}

	cells := make([][]string, len(rows))
	for i, rec := range rows {
		if len(rec) > ncol {
			return dataframe.DataFrame{}, fmt.Errorf("row %d has %d fields, header has %d", i+1, len(rec), ncol)
		}
		row := make([]string, ncol)
		for j := 0; j < ncol; j++ {
			if j >= len(rec) {
				row[j] = naToken
				continue
			}
			v := strings.TrimSpace(rec[j])
			if _, ok := missingTokens[v]; ok {
				v = naToken
			}
			row[j] = v
		}
		cells[i] = row
	}

	types := make(map[string]series.Type, ncol)
	for j, name := range header {
		numeric := true
		for _, row := range cells {
			v := row[j]
			if v == naToken {
				continue
			}
			x, ok := parseNumeric(v, opt)
			if !ok {
				numeric = false
				break
			}
			row[j] = strconv.FormatFloat(x, 'g', -1, 64)
		}
		if numeric {
			types[name] = series.Float
			continue
		}
		types[name] = series.String
		// undo numeric rewrites done before the column proved to be text
		for i, rec := range rows {
			if j < len(rec) && cells[i][j] != naToken {
				cells[i][j] = strings.TrimSpace(rec[j])
			}
		}
	}

	all := make([][]string, 0, len(cells)+1)
	all = append(all, header)
	all = append(all, cells...)
	df := dataframe.LoadRecords(all,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.WithTypes(types),
		dataframe.NaNValues([]string{naToken}),
	)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("build table: %w", df.Err)
	}
	return df, nil
}

func normalizeHeader(raw []string) ([]string, error) {
	header := make([]string, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for i, h := range raw {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		seen[name] = struct{}{}
		header[i] = name
	}
	if len(header) == 0 {
		return nil, ErrEmpty
	}
	return header, nil
}

func sniffDelimiter(path string) rune {
	name := strings.ToLower(path)
	if strings.HasSuffix(name, ".tsv") {
		return '\t'
	}
	return ','
}

// parseNumeric parses a cell as a number. Without explicit separators it
// accepts exactly what strconv.ParseFloat accepts.
func parseNumeric(s string, opt Options) (float64, bool) {
	raw := strings.TrimSpace(strings.ReplaceAll(s, "\u00a0", " "))
	dec := opt.DecimalSeparator
	thou := opt.ThousandsSeparator
	if dec == 0 && thou == 0 {
		f, err := strconv.ParseFloat(raw, 64)
		return f, err == nil
	}
	if dec == 0 {
		dec = '.'
	}
	if thou != 0 && thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
