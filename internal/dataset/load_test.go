package dataset

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var sessionRows = []string{
	"Bearer Id,IMSI,Handset Manufacturer,Handset Type,Dur. (ms),Total DL (Bytes),Total UL (Bytes)",
	"1,208201,Apple,Apple iPhone 6S,1000,500,100",
	"2,208201,Apple,Apple iPhone 6S,2000,,200",
	"3,208202,Samsung,Samsung Galaxy S8,NA,700",
	"4,,Huawei,Huawei P20,400,300,30",
}

func writeCSVFixture(t *testing.T, name string, lines []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

func TestLoadCSVInfersTypesAndMissing(t *testing.T) {
	path := writeCSVFixture(t, "xdr.csv", sessionRows)

	df, err := LoadFile(path, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 4, df.Nrow())
	assert.Equal(t, 7, df.Ncol())

	assert.Equal(t, series.Float, df.Col(ColIMSI).Type())
	assert.Equal(t, series.String, df.Col(ColHandsetType).Type())

	dl, err := Floats(df, ColTotalDL)
	require.NoError(t, err)
	assert.Equal(t, 500.0, dl[0])
	assert.True(t, math.IsNaN(dl[1]), "empty cell should be missing")

	dur, err := Floats(df, ColDuration)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(dur[2]), "NA token should be missing")

	// the short third row is padded
	ul, err := Floats(df, ColTotalUL)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(ul[2]))

	imsi, missing, err := Strings(df, ColIMSI)
	require.NoError(t, err)
	assert.Equal(t, "208201", imsi[0])
	assert.True(t, missing[3])
}

func TestLoadCSVMixedColumnIsText(t *testing.T) {
	path := writeCSVFixture(t, "mixed.tsv", []string{
		"code\tvalue",
		"10\t1",
		"abc\t2",
	})
	df, err := LoadFile(path, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, series.String, df.Col("code").Type())
	vals, _, err := Strings(df, "code")
	require.NoError(t, err)
	assert.Equal(t, []string{"10", "abc"}, vals)

	_, err = Floats(df, "code")
	assert.ErrorIs(t, err, ErrNotNumeric)
}

func TestLoadCSVLocaleNumbers(t *testing.T) {
	path := writeCSVFixture(t, "locale.csv", []string{
		"name;amount",
		"a;1.000,5",
		"b;2,25",
	})
	df, err := LoadFile(path, Options{Delimiter: ';', DecimalSeparator: ',', ThousandsSeparator: '.'})
	require.NoError(t, err)
	vals, err := Floats(df, "amount")
	require.NoError(t, err)
	assert.InDelta(t, 1000.5, vals[0], 1e-9)
	assert.InDelta(t, 2.25, vals[1], 1e-9)
}

func TestLoadCSVMaxRows(t *testing.T) {
	path := writeCSVFixture(t, "xdr.csv", sessionRows)
	df, err := LoadFile(path, Options{MaxRows: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, df.Nrow())
}

func TestLoadErrors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.csv"), DefaultOptions())
	require.Error(t, err)

	headerOnly := writeCSVFixture(t, "empty.csv", []string{"a,b"})
	_, err = LoadFile(headerOnly, DefaultOptions())
	assert.ErrorIs(t, err, ErrEmpty)

	dup := writeCSVFixture(t, "dup.csv", []string{"a,a", "1,2"})
	_, err = LoadFile(dup, DefaultOptions())
	assert.ErrorContains(t, err, "duplicate column")

	long := writeCSVFixture(t, "long.csv", []string{"a,b", "1,2,3"})
	_, err = LoadFile(long, DefaultOptions())
	assert.ErrorContains(t, err, "3 fields")
}

func TestLoadXLSXFirstAndNamedSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xdr.xlsx")
	wb := excelize.NewFile()
	require.NoError(t, wb.SetSheetRow("Sheet1", "A1", &[]interface{}{"IMSI", "Handset Type", "Dur. (ms)"}))
	require.NoError(t, wb.SetSheetRow("Sheet1", "A2", &[]interface{}{208201, "Apple iPhone 6S", 1500.5}))
	require.NoError(t, wb.SetSheetRow("Sheet1", "A3", &[]interface{}{208202, "Huawei P20", 800}))
	_, err := wb.NewSheet("Other")
	require.NoError(t, err)
	require.NoError(t, wb.SetSheetRow("Other", "A1", &[]interface{}{"x"}))
	require.NoError(t, wb.SetSheetRow("Other", "A2", &[]interface{}{"only"}))
	require.NoError(t, wb.SaveAs(path))
	require.NoError(t, wb.Close())

	df, err := LoadFile(path, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 2, df.Nrow())
	dur, err := Floats(df, ColDuration)
	require.NoError(t, err)
	assert.Equal(t, []float64{1500.5, 800}, dur)

	other, err := LoadFile(path, Options{Sheet: "Other"})
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, other.Names())
}

func TestWriteCSVRoundTrip(t *testing.T) {
	path := writeCSVFixture(t, "xdr.csv", sessionRows)
	df, err := LoadFile(path, DefaultOptions())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, df))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, sessionRows[0], lines[0])
	assert.Equal(t, "2,208201,Apple,Apple iPhone 6S,2000,,200", lines[2])
	assert.Equal(t, "4,,Huawei,Huawei P20,400,300,30", lines[4])
}

func TestSelectRowsKeepsTypes(t *testing.T) {
	path := writeCSVFixture(t, "xdr.csv", sessionRows)
	df, err := LoadFile(path, DefaultOptions())
	require.NoError(t, err)

	sub, err := SelectRows(df, []int{3, 0})
	require.NoError(t, err)
	assert.Equal(t, 2, sub.Nrow())
	assert.Equal(t, df.Names(), sub.Names())
	types, _, err := Strings(sub, ColHandsetType)
	require.NoError(t, err)
	assert.Equal(t, []string{"Huawei P20", "Apple iPhone 6S"}, types)
	dur, err := Floats(sub, ColDuration)
	require.NoError(t, err)
	assert.Equal(t, []float64{400, 1000}, dur)
}
