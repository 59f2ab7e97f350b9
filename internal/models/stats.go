package models

import (
	"fmt"
	"time"
)

// StatsRow is one aggregated report line, keyed by the proxy wallet address.
// The totals row uses the same shape with a synthetic label in Address.
type StatsRow struct {
	Address            string  `json:"address"`
	Balance            string  `json:"balance"`
	OpenPositionsCount int     `json:"openPositionsCount"`
	OpenPositionsValue float64 `json:"openPositionsValue"`
	Volume             float64 `json:"volume"`
	PnL                float64 `json:"pnl"`
	TradeCount         uint64  `json:"tradeCount"`
	IsRegistered       bool    `json:"isRegistered"`
	LastActivity       string  `json:"lastActivity"`
}

// StatsHeaders is the display/CSV column order. Every exporter uses this and
// Record so the console table and the CSV file always carry the same fields.
func StatsHeaders() []string {
	return []string{
		"Proxy Address",
		"USDC.e Balance",
		"Open positions count",
		"Open positions value",
		"Volume",
		"P&L",
		"Trade count",
		"Is Registered",
		"Last Activity Time",
	}
}

// Record renders the row in StatsHeaders order.
func (r StatsRow) Record() []string {
	return []string{
		r.Address,
		r.Balance,
		fmt.Sprintf("%d", r.OpenPositionsCount),
		fmt.Sprintf("%.2f", r.OpenPositionsValue),
		fmt.Sprintf("%.2f", r.Volume),
		fmt.Sprintf("%.2f", r.PnL),
		fmt.Sprintf("%d", r.TradeCount),
		fmt.Sprintf("%t", r.IsRegistered),
		r.LastActivity,
	}
}

// RunSummary describes one finished aggregation run, for the history
// database and the webhook notification.
type RunSummary struct {
	ID           int64     `json:"id"`
	RanAt        time.Time `json:"ranAt"`
	Accounts     int       `json:"accounts"`
	Registered   int       `json:"registered"`
	TotalBalance string    `json:"totalBalance"`
	TotalVolume  float64   `json:"totalVolume"`
	TotalPnL     float64   `json:"totalPnl"`
	TotalTrades  uint64    `json:"totalTrades"`
}

// AddressInfo maps an owner EOA to its derived proxy wallet.
type AddressInfo struct {
	Address     string `json:"address"`
	ProxyWallet string `json:"proxyWallet"`
}

func AddressHeaders() []string {
	return []string{"Address", "Proxy Address"}
}

func (a AddressInfo) Record() []string {
	return []string{a.Address, a.ProxyWallet}
}
