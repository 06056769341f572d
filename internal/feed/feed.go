// Package feed resolves the tracked symbol universe and its latest prices
// from the CryptoCompare min-api.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is the public CryptoCompare endpoint
const DefaultBaseURL = "https://min-api.cryptocompare.com"

// Client is the REST client for the market data provider
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient is constructor. An empty baseURL falls back to the public API
func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// topListResponse is the shape of /data/top/totalvolfull
type topListResponse struct {
	Response string `json:"Response"`
	Message  string `json:"Message"`
	Data     []struct {
		CoinInfo struct {
			Name string `json:"Name"`
		} `json:"CoinInfo"`
	} `json:"Data"`
}

// ListSymbols returns the names of the top coins by total volume in the
// given currency
func (c *Client) ListSymbols(ctx context.Context, currency string, limit int) ([]string, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("tsym", currency)
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}

	body, err := c.doGet(ctx, "/data/top/totalvolfull?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("feed: list symbols: %w", err)
	}

	var resp topListResponse
	if err = json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("feed: decode symbols: %w", err)
	}
	if resp.Response == "Error" {
		return nil, fmt.Errorf("feed: list symbols: %s", resp.Message)
	}

	symbols := make([]string, 0, len(resp.Data))
	for _, item := range resp.Data {
		symbols = append(symbols, item.CoinInfo.Name)
	}
	return symbols, nil
}

// errorResponse is what pricemulti returns instead of prices when the
// requested combination is invalid
type errorResponse struct {
	Response string `json:"Response"`
	Message  string `json:"Message"`
}

// GetPrices returns the latest price of every requested symbol in the given
// currency. Symbols the provider does not quote are simply absent from the
// result, that is not an error
func (c *Client) GetPrices(ctx context.Context, symbols []string, currency string) (map[string]float64, error) {
	params := url.Values{}
	params.Set("fsyms", strings.Join(symbols, ","))
	params.Set("tsyms", currency)
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}

	body, err := c.doGet(ctx, "/data/pricemulti?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("feed: get prices: %w", err)
	}

	// The API reports errors inside a 200 response.
	var apiErr errorResponse
	if err = json.Unmarshal(body, &apiErr); err == nil && apiErr.Response == "Error" {
		return nil, fmt.Errorf("feed: get prices: %s", apiErr.Message)
	}

	var raw map[string]map[string]float64
	if err = json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("feed: decode prices: %w", err)
	}

	prices := make(map[string]float64, len(raw))
	for symbol, quotes := range raw {
		if price, ok := quotes[currency]; ok {
			prices[symbol] = price
		}
	}
	return prices, nil
}

func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}
	return body, nil
}
