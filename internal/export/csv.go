package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/polyfarm/backend/internal/models"
)

// WriteStatsCSV overwrites path with the full report, totals row included.
func WriteStatsCSV(path string, rows []models.StatsRow, total models.StatsRow) error {
	records := make([][]string, 0, len(rows)+1)
	for _, r := range rows {
		records = append(records, r.Record())
	}
	records = append(records, total.Record())
	return writeCSV(path, models.StatsHeaders(), records)
}

// WriteAddressCSV overwrites path with the owner-to-proxy-wallet mapping.
func WriteAddressCSV(path string, infos []models.AddressInfo) error {
	records := make([][]string, 0, len(infos))
	for _, info := range infos {
		records = append(records, info.Record())
	}
	return writeCSV(path, models.AddressHeaders(), records)
}

func writeCSV(path string, headers []string, records [][]string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create export dir: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(headers); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("write records: %w", err)
	}
	return w.Error()
}
