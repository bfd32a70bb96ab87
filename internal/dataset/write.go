package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/go-gota/gota/dataframe"
)

// WriteCSV writes df with a header row. Missing cells are written empty and
// numbers use their shortest exact form.
func WriteCSV(w io.Writer, df dataframe.DataFrame) error {
	names := df.Names()
	cols := make([][]string, len(names))
	for j, name := range names {
		vals, missing, err := Strings(df, name)
		if err != nil {
			return err
		}
		for i := range vals {
			if missing[i] {
				vals[i] = ""
			}
		}
		cols[j] = vals
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(names); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	row := make([]string, len(names))
	for i := 0; i < df.Nrow(); i++ {
		for j := range names {
			row[j] = cols[j][i]
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes df to path, replacing any existing file.
func WriteCSVFile(path string, df dataframe.DataFrame) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteCSV(f, df); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
