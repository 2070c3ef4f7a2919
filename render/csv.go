package render

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"loan-calculator/domain"
)

var csvHeader = []string{"Period", "Date", "Principal", "Interest", "Total", "Balance"}

// CSVFilename is the download name for a product's schedule.
func CSVFilename(productKey string) string {
	if productKey == "" {
		productKey = "loan"
	}
	return productKey + "_schedule.csv"
}

// WriteCSV writes the schedule with plain two-decimal amounts.
func WriteCSV(w io.Writer, schedule []domain.ScheduleRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range schedule {
		record := []string{
			strconv.Itoa(r.Period),
			r.Date,
			r.Principal.StringFixed(2),
			r.Interest.StringFixed(2),
			r.Total.StringFixed(2),
			r.Balance.StringFixed(2),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row %d: %w", r.Period, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
