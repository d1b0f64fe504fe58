package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/bantoinese83/Portfolio-Watchdog/internal/model"
)

const rapidAPIDefaultHost = "yahoo-finance166.p.rapidapi.com"

// RapidAPIFetcher implements Fetcher using the RapidAPI Yahoo Finance get-chart endpoint.
type RapidAPIFetcher struct {
	client *resty.Client
	apiKey string
	host   string
}

// NewRapidAPIFetcher creates a fetcher for host. baseURL defaults to https://<host>.
func NewRapidAPIFetcher(apiKey, host, baseURL, proxyURL string) *RapidAPIFetcher {
	if host == "" {
		host = rapidAPIDefaultHost
	}
	if baseURL == "" {
		baseURL = "https://" + host
	}
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(15 * time.Second)
	if proxyURL != "" {
		client.SetProxy(proxyURL)
	}
	return &RapidAPIFetcher{client: client, apiKey: apiKey, host: host}
}

func (f *RapidAPIFetcher) Name() string { return "rapidapi" }

// Enabled reports whether an API key is configured.
func (f *RapidAPIFetcher) Enabled() bool { return f.apiKey != "" }

// FetchBars downloads bars for ticker over period at interval.
func (f *RapidAPIFetcher) FetchBars(ctx context.Context, ticker, period, interval string) ([]model.OHLCV, error) {
	if !f.Enabled() {
		return nil, fmt.Errorf("rapidapi: no api key: %w", model.ErrDataUnavailable)
	}

	var chart chartResponse
	resp, err := f.client.R().
		SetContext(ctx).
		SetHeader("X-RapidAPI-Key", f.apiKey).
		SetHeader("X-RapidAPI-Host", f.host).
		SetQueryParams(map[string]string{
			"symbol":   ticker,
			"interval": interval,
			"range":    period,
			"region":   "US",
		}).
		SetResult(&chart).
		Get("/api/stock/get-chart")
	if err != nil {
		return nil, fmt.Errorf("rapidapi fetch: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("rapidapi: status %d, body: %s", resp.StatusCode(), resp.String())
	}

	bars, err := chart.bars()
	if err != nil {
		return nil, fmt.Errorf("rapidapi: %w", err)
	}
	return bars, nil
}
