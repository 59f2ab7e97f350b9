package scrape

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

// Source names. The pipeline joins per-source results into rows by these keys.
const (
	SourcePositionsCount = "open_positions_count"
	SourcePositionsValue = "open_positions_value"
	SourceVolume         = "volume"
	SourcePnL            = "pnl"
	SourceTradeCount     = "trade_count"
	SourceLastActivity   = "last_activity"
)

// Source is one external statistic provider. Fetch receives the full address
// batch plus each address's proxy endpoint and returns a partial mapping:
// a missing key means "no data from this source", which the pipeline fills
// with the source default. Implementations must be safe to run concurrently
// with each other and must not block past their internal timeout.
type Source interface {
	Name() string
	Fetch(ctx context.Context, addresses []string, proxies map[string]*url.URL) (map[string]float64, error)
}

// source runs one fetchOne call per address. A per-address failure only
// drops that address's entry; the batch always completes.
type source struct {
	name     string
	client   *Client
	fetchOne func(ctx context.Context, proxy *url.URL, address string) (float64, error)
}

func (s *source) Name() string { return s.name }

func (s *source) Fetch(ctx context.Context, addresses []string, proxies map[string]*url.URL) (map[string]float64, error) {
	out := make(map[string]float64, len(addresses))
	for _, address := range addresses {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		value, err := s.fetchOne(ctx, proxies[address], address)
		if errors.Is(err, errNoData) {
			continue
		}
		if err != nil {
			fmt.Printf("[SCRAPE] %s: skipping %s: %v\n", s.name, address, err)
			continue
		}
		out[address] = value
	}
	return out, nil
}

// Sources returns all six data-API fetchers backed by the shared client.
func Sources(client *Client) []Source {
	return []Source{
		&source{SourcePositionsCount, client, client.fetchPositionsCount},
		&source{SourcePositionsValue, client, client.fetchPositionsValue},
		&source{SourceVolume, client, client.fetchVolume},
		&source{SourcePnL, client, client.fetchPnL},
		&source{SourceTradeCount, client, client.fetchTradeCount},
		&source{SourceLastActivity, client, client.fetchLastActivity},
	}
}

func userQuery(address string) url.Values {
	return url.Values{"user": {address}}
}

func (c *Client) fetchPositionsCount(ctx context.Context, proxy *url.URL, address string) (float64, error) {
	var positions []struct {
		Asset string `json:"asset"`
	}
	if err := c.getJSON(ctx, proxy, "/positions", userQuery(address), &positions); err != nil {
		return 0, err
	}
	return float64(len(positions)), nil
}

func (c *Client) fetchPositionsValue(ctx context.Context, proxy *url.URL, address string) (float64, error) {
	var values []struct {
		Value float64 `json:"value"`
	}
	if err := c.getJSON(ctx, proxy, "/value", userQuery(address), &values); err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return 0, errNoData
	}
	return values[0].Value, nil
}

func (c *Client) fetchVolume(ctx context.Context, proxy *url.URL, address string) (float64, error) {
	var volumes []struct {
		Amount float64 `json:"amount"`
	}
	if err := c.getJSON(ctx, proxy, "/volume", userQuery(address), &volumes); err != nil {
		return 0, err
	}
	if len(volumes) == 0 {
		return 0, errNoData
	}
	return volumes[0].Amount, nil
}

func (c *Client) fetchPnL(ctx context.Context, proxy *url.URL, address string) (float64, error) {
	var entries []struct {
		Amount float64 `json:"amount"`
	}
	if err := c.getJSON(ctx, proxy, "/pnl", userQuery(address), &entries); err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, errNoData
	}
	return entries[0].Amount, nil
}

func (c *Client) fetchTradeCount(ctx context.Context, proxy *url.URL, address string) (float64, error) {
	var traded struct {
		Traded uint64 `json:"traded"`
	}
	if err := c.getJSON(ctx, proxy, "/traded", userQuery(address), &traded); err != nil {
		return 0, err
	}
	return float64(traded.Traded), nil
}

func (c *Client) fetchLastActivity(ctx context.Context, proxy *url.URL, address string) (float64, error) {
	query := userQuery(address)
	query.Set("limit", "1")
	query.Set("sortDirection", "DESC")

	var events []struct {
		Timestamp int64 `json:"timestamp"`
	}
	if err := c.getJSON(ctx, proxy, "/activity", query, &events); err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, errNoData
	}
	return float64(events[0].Timestamp), nil
}
