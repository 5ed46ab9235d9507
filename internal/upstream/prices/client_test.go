package prices

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gasbot/pkg/logx"
)

func TestReportRendersWatchlistOrder(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("symbol"); got != "BTC,ETH" {
			t.Errorf("symbol query = %q, want %q", got, "BTC,ETH")
		}
		if got := r.Header.Get("X-CMC_PRO_API_KEY"); got != "k" {
			t.Errorf("api key header = %q", got)
		}
		w.Write([]byte(`{"data":{
			"ETH":[{"quote":{"USD":{"price":3500.5}}}],
			"BTC":[{"quote":{"USD":{"price":67000.125}}}]
		}}`))
	}))
	defer srv.Close()

	c := New(Config{QuoteURL: srv.URL, APIKey: "k"}, logx.Nop())
	got, err := c.Report(context.Background(), []string{"btc", "eth"})
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	btcIdx := strings.Index(got, "BTC")
	ethIdx := strings.Index(got, "ETH")
	if btcIdx < 0 || ethIdx < 0 || btcIdx > ethIdx {
		t.Fatalf("report out of watchlist order:\n%s", got)
	}
	if !strings.Contains(got, "67000.12") {
		t.Fatalf("missing BTC price in:\n%s", got)
	}
}

func TestReportSkipsUnknownSymbols(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"BTC":[{"quote":{"USD":{"price":1.0}}}]}}`))
	}))
	defer srv.Close()

	c := New(Config{QuoteURL: srv.URL}, logx.Nop())
	got, err := c.Report(context.Background(), []string{"btc", "nope"})
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if strings.Contains(got, "NOPE") {
		t.Fatalf("unknown symbol leaked into report:\n%s", got)
	}
}

func TestReportErrorOnEmptyData(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{}}`))
	}))
	defer srv.Close()

	c := New(Config{QuoteURL: srv.URL}, logx.Nop())
	if _, err := c.Report(context.Background(), []string{"xyz"}); err == nil {
		t.Fatal("expected error when no quotes were found")
	}
}

func TestReportUpstreamStatus(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New(Config{QuoteURL: srv.URL}, logx.Nop())
	if _, err := c.Report(context.Background(), []string{"btc"}); err == nil {
		t.Fatal("expected error for non-200 status")
	}
}

func TestQuoteDetail(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("fsyms"); got != "ETH" {
			t.Errorf("fsyms = %q, want ETH", got)
		}
		w.Write([]byte(`{"RAW":{"ETH":{"USD":{
			"PRICE":3500.5,"HIGH24HOUR":3600.0,"LOW24HOUR":3400.0,"CHANGEPCT24HOUR":-1.25
		}}}}`))
	}))
	defer srv.Close()

	c := New(Config{DetailURL: srv.URL}, logx.Nop())
	got, err := c.Quote(context.Background(), "eth")
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	for _, want := range []string{"ETH", "3500.50", "-1.25", "3600.00", "3400.00"} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q in:\n%s", want, got)
		}
	}
}

func TestQuoteUnknownCurrency(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"RAW":{}}`))
	}))
	defer srv.Close()

	c := New(Config{DetailURL: srv.URL}, logx.Nop())
	if _, err := c.Quote(context.Background(), "xyz"); err == nil {
		t.Fatal("expected error for unknown currency")
	}
}
