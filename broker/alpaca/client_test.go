package alpaca

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantpipe/quantpipe/broker"
	"github.com/quantpipe/quantpipe/market"
)

func TestNewClient(t *testing.T) {
	t.Run("paper mode", func(t *testing.T) {
		client := NewClient("key", "secret", true)
		assert.Equal(t, PaperURL, client.baseURL)
		assert.NotNil(t, client.httpClient)
	})

	t.Run("live mode", func(t *testing.T) {
		client := NewClient("key", "secret", false)
		assert.Equal(t, LiveURL, client.baseURL)
	})
}

func testClient(server *httptest.Server) *Client {
	client := NewClient("test-key", "test-secret", true)
	client.baseURL = server.URL
	client.dataURL = server.URL
	return client
}

func TestGetAccount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/account", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("APCA-API-KEY-ID"))
		assert.Equal(t, "test-secret", r.Header.Get("APCA-API-SECRET-KEY"))
		json.NewEncoder(w).Encode(apiAccount{
			ID:               "acct-1",
			Equity:           "100000.50",
			Cash:             "25000",
			BuyingPower:      "200001",
			PatternDayTrader: true,
		})
	}))
	defer server.Close()

	account, err := testClient(server).GetAccount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "acct-1", account.ID)
	assert.Equal(t, 100000.50, account.Equity)
	assert.Equal(t, 25000.0, account.Cash)
	assert.Equal(t, 200001.0, account.BuyingPower)
	assert.True(t, account.PatternDayTrader)
}

func TestGetAccountBadPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(apiAccount{Equity: "not-a-number"})
	}))
	defer server.Close()

	_, err := testClient(server).GetAccount(context.Background())
	assert.Error(t, err)
}

func TestGetAllPositions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/positions", r.URL.Path)
		json.NewEncoder(w).Encode([]apiPosition{
			{Symbol: "AAPL", Qty: "100", MarketValue: "15000", CostBasis: "14000", CurrentPrice: "150"},
			{Symbol: "MSFT", Qty: "50", MarketValue: "20000", CostBasis: "19000", CurrentPrice: "400"},
		})
	}))
	defer server.Close()

	positions, err := testClient(server).GetAllPositions(context.Background())
	require.NoError(t, err)
	require.Len(t, positions, 2)
	assert.Equal(t, "AAPL", positions[0].Instrument)
	assert.Equal(t, 100.0, positions[0].Quantity)
	assert.Equal(t, 400.0, positions[1].CurrentPrice)
}

func TestGetPositionNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"position does not exist"}`))
	}))
	defer server.Close()

	_, err := testClient(server).GetPosition(context.Background(), "TSLA")
	assert.ErrorIs(t, err, broker.ErrPositionNotFound)
}

func TestSubmitOrder(t *testing.T) {
	var received apiOrderRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/orders", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(apiOrderResponse{ID: "order-abc"})
	}))
	defer server.Close()

	limit := 199.98
	id, err := testClient(server).SubmitOrder(context.Background(), broker.OrderRequest{
		Instrument:  "AAPL",
		Quantity:    100,
		Side:        broker.Buy,
		Kind:        broker.Limit,
		TimeInForce: broker.Day,
		LimitPrice:  &limit,
	})
	require.NoError(t, err)
	assert.Equal(t, "order-abc", id)
	assert.Equal(t, "AAPL", received.Symbol)
	assert.Equal(t, "100", received.Qty)
	assert.Equal(t, "buy", received.Side)
	assert.Equal(t, "limit", received.Type)
	assert.Equal(t, "199.98", received.LimitPrice)
}

func TestSubmitOrderLimitRequiresPrice(t *testing.T) {
	client := NewClient("key", "secret", true)
	_, err := client.SubmitOrder(context.Background(), broker.OrderRequest{
		Instrument: "AAPL",
		Quantity:   10,
		Side:       broker.Buy,
		Kind:       broker.Limit,
	})
	assert.Error(t, err)
}

func TestSubmitOrderRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message":"insufficient buying power"}`))
	}))
	defer server.Close()

	_, err := testClient(server).SubmitOrder(context.Background(), broker.OrderRequest{
		Instrument:  "AAPL",
		Quantity:    1000000,
		Side:        broker.Buy,
		Kind:        broker.Market,
		TimeInForce: broker.Day,
	})
	require.Error(t, err)
	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "insufficient buying power")
}

func TestGetBars(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/stocks/AAPL/bars", r.URL.Path)
		assert.Equal(t, "1Day", r.URL.Query().Get("timeframe"))
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		json.NewEncoder(w).Encode(apiBarsResponse{
			Bars: []apiBar{
				{Time: "2026-02-27T05:00:00Z", Open: 150, High: 152, Low: 149, Close: 151, Volume: 1000000},
				{Time: "2026-03-02T05:00:00Z", Open: 151, High: 153, Low: 150, Close: 152, Volume: 900000},
			},
		})
	}))
	defer server.Close()

	bars, err := testClient(server).GetBars(context.Background(), "AAPL", market.Day, 50)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 151.0, bars[0].Close)
	assert.Equal(t, 900000.0, bars[1].Volume)
	assert.True(t, bars[0].Time.Before(bars[1].Time))
}

func TestGetTick(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/stocks/AAPL/trades/latest":
			json.NewEncoder(w).Encode(apiLatestTradeResponse{
				Trade: apiTrade{Time: "2026-03-02T15:00:00Z", Price: 151.25, Size: 200},
			})
		case "/v2/stocks/AAPL/quotes/latest":
			json.NewEncoder(w).Encode(apiLatestQuoteResponse{
				Quote: apiQuote{BidPrice: 151.20, AskPrice: 151.30},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	tick, err := testClient(server).GetTick(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", tick.Instrument)
	assert.Equal(t, 151.25, tick.Price)
	assert.Equal(t, 200.0, tick.Volume)
	assert.Equal(t, 151.20, tick.Bid)
	assert.Equal(t, 151.30, tick.Ask)
	assert.InDelta(t, 151.25, tick.Mid(), 1e-9)
}

func TestGetTickWithoutQuote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/stocks/AAPL/trades/latest":
			json.NewEncoder(w).Encode(apiLatestTradeResponse{
				Trade: apiTrade{Time: "2026-03-02T15:00:00Z", Price: 151.25, Size: 200},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	tick, err := testClient(server).GetTick(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Zero(t, tick.Bid)
	assert.Zero(t, tick.Ask)
	assert.Equal(t, 151.25, tick.Mid())
}

func TestGetTickRequiresInstrument(t *testing.T) {
	client := NewClient("key", "secret", true)
	_, err := client.GetTick(context.Background(), "")
	assert.Error(t, err)
}

func TestGetBarsRequiresInstrument(t *testing.T) {
	client := NewClient("key", "secret", true)
	_, err := client.GetBars(context.Background(), "", market.Day, 10)
	assert.Error(t, err)
}
