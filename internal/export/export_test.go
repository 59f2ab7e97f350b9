package export

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/polyfarm/backend/internal/models"
)

func sampleRows() ([]models.StatsRow, models.StatsRow) {
	rows := []models.StatsRow{
		{
			Address:            "0x1111111111111111111111111111111111111111",
			Balance:            "10.00",
			OpenPositionsCount: 2,
			Volume:             120.5,
			TradeCount:         7,
			IsRegistered:       true,
			LastActivity:       "2023-11-15 06:13:20 (2d ago)",
		},
		{
			Address: "0x2222222222222222222222222222222222222222",
			Balance: "5.50",
		},
	}
	total := models.StatsRow{
		Address: "Total (Registered: 1/2)",
		Balance: "15.50",
		Volume:  120.5,
	}
	return rows, total
}

func TestWriteStatsCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats", "statistic.csv")
	rows, total := sampleRows()

	if err := WriteStatsCSV(path, rows, total); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}

	if len(records) != 4 {
		t.Fatalf("expected header + 2 rows + total, got %d records", len(records))
	}
	if records[0][0] != "Proxy Address" {
		t.Fatalf("header = %v", records[0])
	}
	if len(records[0]) != len(models.StatsHeaders()) {
		t.Fatalf("header width = %d", len(records[0]))
	}

	last := records[len(records)-1]
	if last[0] != "Total (Registered: 1/2)" || last[1] != "15.50" {
		t.Fatalf("totals row = %v", last)
	}
}

func TestWriteStatsCSV_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statistic.csv")
	rows, total := sampleRows()

	if err := WriteStatsCSV(path, rows, total); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteStatsCSV(path, rows[:1], total); err != nil {
		t.Fatalf("second write: %v", err)
	}

	f, _ := os.Open(path)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected a clean overwrite, got %d records", len(records))
	}
}

func TestWriteAddressCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "address_info.csv")
	infos := []models.AddressInfo{
		{Address: "0xaaaa", ProxyWallet: "0xbbbb"},
	}

	if err := WriteAddressCSV(path, infos); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	f, _ := os.Open(path)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 2 || records[1][1] != "0xbbbb" {
		t.Fatalf("records = %v", records)
	}
}

func TestWriteStatsTable(t *testing.T) {
	var buf bytes.Buffer
	rows, total := sampleRows()

	if err := WriteStatsTable(&buf, rows, total); err != nil {
		t.Fatalf("render: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"Proxy Address", "Total", "15.50"} {
		if !bytes.Contains([]byte(out), []byte(want)) {
			t.Fatalf("table output missing %q:\n%s", want, out)
		}
	}
}
