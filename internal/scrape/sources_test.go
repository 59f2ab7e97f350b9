package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const (
	addrA = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	addrB = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	addrC = "0xcccccccccccccccccccccccccccccccccccccccc"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 5*time.Second, 1)
}

func findSource(t *testing.T, sources []Source, name string) Source {
	t.Helper()
	for _, s := range sources {
		if s.Name() == name {
			return s
		}
	}
	t.Fatalf("source %s not found", name)
	return nil
}

func TestSources_AllSixRegistered(t *testing.T) {
	sources := Sources(NewClient("http://localhost", time.Second, 1))
	if len(sources) != 6 {
		t.Fatalf("expected 6 sources, got %d", len(sources))
	}
	for _, name := range []string{
		SourcePositionsCount, SourcePositionsValue, SourceVolume,
		SourcePnL, SourceTradeCount, SourceLastActivity,
	} {
		findSource(t, sources, name)
	}
}

func TestPositionsCount_PartialBatch(t *testing.T) {
	// A has two positions, B is unknown to the API, C has none.
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/positions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		switch r.URL.Query().Get("user") {
		case addrA:
			w.Write([]byte(`[{"asset":"x"},{"asset":"y"}]`))
		case addrC:
			w.Write([]byte(`[]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	src := findSource(t, Sources(client), SourcePositionsCount)
	got, err := src.Fetch(context.Background(), []string{addrA, addrB, addrC}, nil)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if got[addrA] != 2 {
		t.Fatalf("A count = %v, want 2", got[addrA])
	}
	if _, ok := got[addrB]; ok {
		t.Fatal("B should be absent, not zero")
	}
	if v, ok := got[addrC]; !ok || v != 0 {
		t.Fatalf("C should be present with 0, got %v (present=%t)", v, ok)
	}
}

func TestVolume_FirstEntryWins(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"amount":123.5},{"amount":9}]`))
	})

	src := findSource(t, Sources(client), SourceVolume)
	got, err := src.Fetch(context.Background(), []string{addrA}, nil)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got[addrA] != 123.5 {
		t.Fatalf("volume = %v, want 123.5", got[addrA])
	}
}

func TestTradeCount_ObjectBody(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"traded":17}`))
	})

	src := findSource(t, Sources(client), SourceTradeCount)
	got, err := src.Fetch(context.Background(), []string{addrA}, nil)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got[addrA] != 17 {
		t.Fatalf("trade count = %v, want 17", got[addrA])
	}
}

func TestLastActivity_EmptyHistoryMeansNoData(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("limit") != "1" {
			t.Errorf("expected limit=1, got %q", r.URL.Query().Get("limit"))
		}
		switch r.URL.Query().Get("user") {
		case addrA:
			w.Write([]byte(`[{"timestamp":1700000000}]`))
		default:
			w.Write([]byte(`[]`))
		}
	})

	src := findSource(t, Sources(client), SourceLastActivity)
	got, err := src.Fetch(context.Background(), []string{addrA, addrB}, nil)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got[addrA] != 1700000000 {
		t.Fatalf("timestamp = %v, want 1700000000", got[addrA])
	}
	if _, ok := got[addrB]; ok {
		t.Fatal("empty history should leave the address absent")
	}
}

func TestFetch_ServerErrorSkipsAddressOnly(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("user") == addrB {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`[{"value":42}]`))
	})

	src := findSource(t, Sources(client), SourcePositionsValue)
	got, err := src.Fetch(context.Background(), []string{addrA, addrB, addrC}, nil)
	if err != nil {
		t.Fatalf("fetch must not fail the batch: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[addrA] != 42 || got[addrC] != 42 {
		t.Fatalf("unexpected values: %v", got)
	}
}

func TestFetch_ContextCancelled(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := findSource(t, Sources(client), SourcePositionsCount)
	if _, err := src.Fetch(ctx, []string{addrA}, nil); err == nil {
		t.Fatal("expected context error")
	}
}
