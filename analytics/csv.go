package analytics

import (
	"encoding/csv"
	"io"
	"strconv"
)

// WriteCSV writes the top queries of report as "query,frequency" rows under a
// header line.
func WriteCSV(w io.Writer, report *Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"query", "frequency"}); err != nil {
		return err
	}
	for _, q := range report.TopQueries {
		if err := cw.Write([]string{q.Query, strconv.Itoa(q.Frequency)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
