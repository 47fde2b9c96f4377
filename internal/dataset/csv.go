package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"synthflow/internal/table"
)

// FromCSV loads a headered CSV file. A column where every value parses as a
// number becomes continuous; everything else is categorical.
func FromCSV(path string) (Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return Dataset{}, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return Dataset{}, fmt.Errorf("read csv %s: %w", path, err)
	}
	if len(records) < 2 {
		return Dataset{}, fmt.Errorf("csv %s: need a header and at least one row", path)
	}

	header := records[0]
	body := records[1:]

	numeric := make([]bool, len(header))
	for j := range header {
		numeric[j] = true
		for _, record := range body {
			if j >= len(record) {
				return Dataset{}, fmt.Errorf("csv %s: ragged row", path)
			}
			if _, err := strconv.ParseFloat(record[j], 64); err != nil {
				numeric[j] = false
				break
			}
		}
	}

	rows := make([][]any, len(body))
	for i, record := range body {
		row := make([]any, len(header))
		for j, raw := range record {
			if numeric[j] {
				v, err := strconv.ParseFloat(raw, 64)
				if err != nil {
					return Dataset{}, fmt.Errorf("csv %s row %d column %s: %w", path, i+1, header[j], err)
				}
				row[j] = v
			} else {
				row[j] = raw
			}
		}
		rows[i] = row
	}

	t, err := table.New(header, rows)
	if err != nil {
		return Dataset{}, err
	}
	return FromTable(t)
}
