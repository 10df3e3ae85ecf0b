package report

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
)

var failedRowsHeader = []string{
	"log_timestamp", "input_row_identifier", "CompanyName", "GivenURL",
	"stage_of_failure", "error_reason", "error_details",
	"Associated_Pathful_Canonical_URL",
}

// writeFailedRows writes the failure log CSV. An empty failure list still
// produces a file with the header row.
func writeFailedRows(path string, failed []FailedRow) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "failed rows: create file")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(failedRowsHeader); err != nil {
		return eris.Wrap(err, "failed rows: write header")
	}
	for _, fr := range failed {
		record := []string{
			fr.Timestamp.Format(time.RFC3339),
			strconv.Itoa(fr.RowID),
			fr.CompanyName,
			fr.GivenURL,
			fr.Stage,
			fr.Reason,
			fr.DetailsJSON,
			fr.PathfulURL,
		}
		if err := w.Write(record); err != nil {
			return eris.Wrap(err, "failed rows: write record")
		}
	}
	w.Flush()
	return eris.Wrap(w.Error(), "failed rows: flush")
}
