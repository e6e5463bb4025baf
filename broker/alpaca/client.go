// Package alpaca implements the brokerage and bar-source ports against the
// Alpaca trading and market data REST APIs.
package alpaca

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/quantpipe/quantpipe/broker"
	"github.com/quantpipe/quantpipe/market"
)

const (
	// PaperURL is the paper-trading environment.
	PaperURL = "https://paper-api.alpaca.markets"
	// LiveURL is the live trading environment.
	LiveURL = "https://api.alpaca.markets"
	// DataURL serves historical market data for both environments.
	DataURL = "https://data.alpaca.markets"
)

// Client is an Alpaca REST API client. It satisfies broker.Broker and
// market.BarSource.
type Client struct {
	baseURL    string
	dataURL    string
	keyID      string
	secretKey  string
	httpClient *http.Client
}

// NewClient creates an Alpaca client for the paper or live environment.
func NewClient(keyID, secretKey string, paper bool) *Client {
	baseURL := LiveURL
	if paper {
		baseURL = PaperURL
	}

	return &Client{
		baseURL:   baseURL,
		dataURL:   DataURL,
		keyID:     keyID,
		secretKey: secretKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// apiAccount mirrors the /v2/account response. Numeric fields arrive as
// strings.
type apiAccount struct {
	ID               string `json:"id"`
	Equity           string `json:"equity"`
	Cash             string `json:"cash"`
	BuyingPower      string `json:"buying_power"`
	PatternDayTrader bool   `json:"pattern_day_trader"`
}

// GetAccount fetches the current account snapshot.
func (c *Client) GetAccount(ctx context.Context) (broker.Account, error) {
	var apiResp apiAccount
	if err := c.get(ctx, c.baseURL+"/v2/account", &apiResp); err != nil {
		return broker.Account{}, err
	}

	equity, err := parseFloat(apiResp.Equity)
	if err != nil {
		return broker.Account{}, fmt.Errorf("parse equity: %w", err)
	}
	cash, err := parseFloat(apiResp.Cash)
	if err != nil {
		return broker.Account{}, fmt.Errorf("parse cash: %w", err)
	}
	buyingPower, err := parseFloat(apiResp.BuyingPower)
	if err != nil {
		return broker.Account{}, fmt.Errorf("parse buying_power: %w", err)
	}

	return broker.Account{
		ID:               apiResp.ID,
		Equity:           equity,
		Cash:             cash,
		BuyingPower:      buyingPower,
		PatternDayTrader: apiResp.PatternDayTrader,
	}, nil
}

type apiPosition struct {
	Symbol       string `json:"symbol"`
	Qty          string `json:"qty"`
	MarketValue  string `json:"market_value"`
	CostBasis    string `json:"cost_basis"`
	CurrentPrice string `json:"current_price"`
}

func (p apiPosition) toPosition() (broker.Position, error) {
	qty, err := parseFloat(p.Qty)
	if err != nil {
		return broker.Position{}, fmt.Errorf("parse qty: %w", err)
	}
	marketValue, err := parseFloat(p.MarketValue)
	if err != nil {
		return broker.Position{}, fmt.Errorf("parse market_value: %w", err)
	}
	costBasis, err := parseFloat(p.CostBasis)
	if err != nil {
		return broker.Position{}, fmt.Errorf("parse cost_basis: %w", err)
	}
	price, err := parseFloat(p.CurrentPrice)
	if err != nil {
		return broker.Position{}, fmt.Errorf("parse current_price: %w", err)
	}

	return broker.Position{
		Instrument:   p.Symbol,
		Quantity:     qty,
		MarketValue:  marketValue,
		CostBasis:    costBasis,
		CurrentPrice: price,
	}, nil
}

// GetAllPositions fetches every open position.
func (c *Client) GetAllPositions(ctx context.Context) ([]broker.Position, error) {
	var apiResp []apiPosition
	if err := c.get(ctx, c.baseURL+"/v2/positions", &apiResp); err != nil {
		return nil, err
	}

	positions := make([]broker.Position, 0, len(apiResp))
	for _, p := range apiResp {
		pos, err := p.toPosition()
		if err != nil {
			return nil, err
		}
		positions = append(positions, pos)
	}
	return positions, nil
}

// GetPosition fetches one position. A 404 maps to broker.ErrPositionNotFound.
func (c *Client) GetPosition(ctx context.Context, instrument string) (broker.Position, error) {
	var apiResp apiPosition
	err := c.get(ctx, c.baseURL+"/v2/positions/"+instrument, &apiResp)
	if err != nil {
		if apiErr, ok := err.(*APIError); ok && apiErr.StatusCode == http.StatusNotFound {
			return broker.Position{}, broker.ErrPositionNotFound
		}
		return broker.Position{}, err
	}
	return apiResp.toPosition()
}

type apiOrderRequest struct {
	Symbol      string `json:"symbol"`
	Qty         string `json:"qty"`
	Side        string `json:"side"`
	Type        string `json:"type"`
	TimeInForce string `json:"time_in_force"`
	LimitPrice  string `json:"limit_price,omitempty"`
}

type apiOrderResponse struct {
	ID string `json:"id"`
}

// SubmitOrder places an order and returns Alpaca's order id.
func (c *Client) SubmitOrder(ctx context.Context, req broker.OrderRequest) (string, error) {
	body := apiOrderRequest{
		Symbol:      req.Instrument,
		Qty:         strconv.FormatInt(req.Quantity, 10),
		Side:        string(req.Side),
		Type:        string(req.Kind),
		TimeInForce: string(req.TimeInForce),
	}
	if req.Kind == broker.Limit {
		if req.LimitPrice == nil {
			return "", fmt.Errorf("limit order requires a limit price")
		}
		body.LimitPrice = strconv.FormatFloat(*req.LimitPrice, 'f', 2, 64)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal order: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/orders", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.authorize(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", newAPIError(resp)
	}

	var apiResp apiOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return apiResp.ID, nil
}

type apiBar struct {
	Time   string  `json:"t"`
	Open   float64 `json:"o"`
	High   float64 `json:"h"`
	Low    float64 `json:"l"`
	Close  float64 `json:"c"`
	Volume float64 `json:"v"`
}

type apiBarsResponse struct {
	Bars []apiBar `json:"bars"`
}

// GetBars fetches historical bars from the data API, oldest first.
func (c *Client) GetBars(ctx context.Context, instrument string, g market.Granularity, limit int) ([]market.Bar, error) {
	if instrument == "" {
		return nil, fmt.Errorf("instrument is required")
	}
	if limit <= 0 {
		limit = 100
	}

	apiURL := fmt.Sprintf("%s/v2/stocks/%s/bars?timeframe=%s&limit=%d",
		c.dataURL, instrument, string(g), limit)

	var apiResp apiBarsResponse
	if err := c.get(ctx, apiURL, &apiResp); err != nil {
		return nil, err
	}

	bars := make([]market.Bar, 0, len(apiResp.Bars))
	for _, b := range apiResp.Bars {
		t, err := time.Parse(time.RFC3339, b.Time)
		if err != nil {
			return nil, fmt.Errorf("parse time %s: %w", b.Time, err)
		}
		bars = append(bars, market.Bar{
			Time:   t,
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		})
	}
	return bars, nil
}

type apiTrade struct {
	Time  string  `json:"t"`
	Price float64 `json:"p"`
	Size  float64 `json:"s"`
}

type apiQuote struct {
	BidPrice float64 `json:"bp"`
	AskPrice float64 `json:"ap"`
}

type apiLatestTradeResponse struct {
	Trade apiTrade `json:"trade"`
}

type apiLatestQuoteResponse struct {
	Quote apiQuote `json:"quote"`
}

// GetTick implements market.TickSource from the latest trade, decorated
// with the latest quote when one is available. A missing quote degrades to
// a trade-only tick rather than an error.
func (c *Client) GetTick(ctx context.Context, instrument string) (market.Tick, error) {
	if instrument == "" {
		return market.Tick{}, fmt.Errorf("instrument is required")
	}

	var tradeResp apiLatestTradeResponse
	if err := c.get(ctx, c.dataURL+"/v2/stocks/"+instrument+"/trades/latest", &tradeResp); err != nil {
		return market.Tick{}, err
	}
	t, err := time.Parse(time.RFC3339, tradeResp.Trade.Time)
	if err != nil {
		return market.Tick{}, fmt.Errorf("parse time %s: %w", tradeResp.Trade.Time, err)
	}

	tick := market.Tick{
		Instrument: instrument,
		Time:       t,
		Price:      tradeResp.Trade.Price,
		Volume:     tradeResp.Trade.Size,
	}

	var quoteResp apiLatestQuoteResponse
	if err := c.get(ctx, c.dataURL+"/v2/stocks/"+instrument+"/quotes/latest", &quoteResp); err == nil {
		tick.Bid = quoteResp.Quote.BidPrice
		tick.Ask = quoteResp.Quote.AskPrice
	}
	return tick, nil
}

// APIError is a non-2xx response from Alpaca.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Body)
}

func newAPIError(resp *http.Response) *APIError {
	body, _ := io.ReadAll(resp.Body)
	return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("APCA-API-KEY-ID", c.keyID)
	req.Header.Set("APCA-API-SECRET-KEY", c.secretKey)
}

func (c *Client) get(ctx context.Context, apiURL string, out interface{}) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.authorize(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return newAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}
