package export

import (
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/polyfarm/backend/internal/models"
)

// WriteStatsTable renders the report as a console table, totals row last.
func WriteStatsTable(w io.Writer, rows []models.StatsRow, total models.StatsRow) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithHeader(models.StatsHeaders()),
	)
	for _, r := range rows {
		table.Append(r.Record())
	}
	table.Append(total.Record())
	return table.Render()
}

// WriteAddressTable renders the owner-to-proxy-wallet mapping.
func WriteAddressTable(w io.Writer, infos []models.AddressInfo) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithHeader(models.AddressHeaders()),
	)
	for _, info := range infos {
		table.Append(info.Record())
	}
	return table.Render()
}
