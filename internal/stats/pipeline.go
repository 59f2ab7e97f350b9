package stats

import (
	"context"
	"fmt"
	"math/big"
	"net/url"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/polyfarm/backend/internal/models"
	"github.com/polyfarm/backend/internal/scrape"
)

// BalanceSource answers one batched token balance lookup for all holders.
// A failure here is fatal for the whole run: without balances the report
// is meaningless.
type BalanceSource interface {
	Balances(ctx context.Context, holders []common.Address) ([]*big.Int, error)
}

// RegistrationSource reports whether a proxy wallet has been deployed.
type RegistrationSource interface {
	IsRegistered(ctx context.Context, proxyWallet common.Address) (bool, error)
}

// Target is one report subject: the proxy wallet address the statistics are
// keyed by, plus the outbound proxy its data-API requests must use.
type Target struct {
	ProxyWallet string
	Proxy       *url.URL
}

// Report is the finished aggregation: one row per target in input order,
// a synthetic totals row, and a summary for the history DB and webhook.
type Report struct {
	Rows    []models.StatsRow
	Total   models.StatsRow
	Summary models.RunSummary
}

type Pipeline struct {
	balances     BalanceSource
	registration RegistrationSource
	sources      []scrape.Source
	decimals     int32
	now          func() time.Time
}

func New(balances BalanceSource, registration RegistrationSource, sources []scrape.Source, decimals int) *Pipeline {
	return &Pipeline{
		balances:     balances,
		registration: registration,
		sources:      sources,
		decimals:     int32(decimals),
		now:          time.Now,
	}
}

// Run executes the full aggregation. The balance lookup runs first and its
// failure aborts the run; every statistic source then fetches concurrently,
// and a source failure only degrades its column to defaults. Registration
// is checked per target after the fan-out. Rows keep the input order.
func (p *Pipeline) Run(ctx context.Context, targets []Target) (*Report, error) {
	holders := lo.Map(targets, func(t Target, _ int) common.Address {
		return common.HexToAddress(t.ProxyWallet)
	})

	balances, err := p.balances.Balances(ctx, holders)
	if err != nil {
		return nil, fmt.Errorf("balance lookup: %w", err)
	}
	if len(balances) != len(targets) {
		return nil, fmt.Errorf("balance lookup returned %d results for %d holders", len(balances), len(targets))
	}

	addresses := lo.Map(targets, func(t Target, _ int) string { return t.ProxyWallet })
	proxies := make(map[string]*url.URL, len(targets))
	for _, t := range targets {
		if t.Proxy != nil {
			proxies[t.ProxyWallet] = t.Proxy
		}
	}

	byName := p.fetchAll(ctx, addresses, proxies)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	registered := make([]bool, len(targets))
	for i, holder := range holders {
		ok, err := p.registration.IsRegistered(ctx, holder)
		if err != nil {
			return nil, fmt.Errorf("registration check for %s: %w", targets[i].ProxyWallet, err)
		}
		registered[i] = ok
	}

	now := p.now()
	totalBalance := decimal.Zero
	rows := make([]models.StatsRow, 0, len(targets))
	for i, t := range targets {
		balance := decimal.NewFromBigInt(balances[i], -p.decimals)
		totalBalance = totalBalance.Add(balance)

		rows = append(rows, models.StatsRow{
			Address:            t.ProxyWallet,
			Balance:            balance.StringFixed(2),
			OpenPositionsCount: int(value(byName, scrape.SourcePositionsCount, t.ProxyWallet)),
			OpenPositionsValue: value(byName, scrape.SourcePositionsValue, t.ProxyWallet),
			Volume:             value(byName, scrape.SourceVolume, t.ProxyWallet),
			PnL:                value(byName, scrape.SourcePnL, t.ProxyWallet),
			TradeCount:         uint64(value(byName, scrape.SourceTradeCount, t.ProxyWallet)),
			IsRegistered:       registered[i],
			LastActivity:       FormatLastActivity(int64(value(byName, scrape.SourceLastActivity, t.ProxyWallet)), now),
		})
	}

	regCount := lo.Count(registered, true)
	total := models.StatsRow{
		Address:            fmt.Sprintf("Total (Registered: %d/%d)", regCount, len(targets)),
		Balance:            totalBalance.StringFixed(2),
		OpenPositionsCount: lo.SumBy(rows, func(r models.StatsRow) int { return r.OpenPositionsCount }),
		OpenPositionsValue: lo.SumBy(rows, func(r models.StatsRow) float64 { return r.OpenPositionsValue }),
		Volume:             lo.SumBy(rows, func(r models.StatsRow) float64 { return r.Volume }),
		PnL:                lo.SumBy(rows, func(r models.StatsRow) float64 { return r.PnL }),
		TradeCount:         lo.SumBy(rows, func(r models.StatsRow) uint64 { return r.TradeCount }),
	}

	return &Report{
		Rows:  rows,
		Total: total,
		Summary: models.RunSummary{
			RanAt:        now.UTC(),
			Accounts:     len(targets),
			Registered:   regCount,
			TotalBalance: total.Balance,
			TotalVolume:  total.Volume,
			TotalPnL:     total.PnL,
			TotalTrades:  total.TradeCount,
		},
	}, nil
}

// fetchAll runs every source concurrently and indexes the results by source
// name. A failed source keeps whatever partial data it returned; missing
// entries become column defaults at join time.
func (p *Pipeline) fetchAll(ctx context.Context, addresses []string, proxies map[string]*url.URL) map[string]map[string]float64 {
	results := make([]map[string]float64, len(p.sources))

	var g errgroup.Group
	for i, src := range p.sources {
		g.Go(func() error {
			data, err := src.Fetch(ctx, addresses, proxies)
			if err != nil {
				fmt.Printf("[STATS] Source %s failed, using defaults: %v\n", src.Name(), err)
			}
			results[i] = data
			return nil
		})
	}
	g.Wait()

	byName := make(map[string]map[string]float64, len(p.sources))
	for i, src := range p.sources {
		byName[src.Name()] = results[i]
	}
	return byName
}

func value(byName map[string]map[string]float64, source, address string) float64 {
	return byName[source][address]
}
