package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/xyths/fxbot/broker"
	"github.com/xyths/fxbot/types"
	"go.uber.org/zap"
)

type sidecar struct {
	lock   sync.Mutex
	orders []requestOrder
	ids    []string
	rates  []rawRate
	accept int // the only type_filling accepted
}

func (s *sidecar) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(pathLogin, func(w http.ResponseWriter, r *http.Request) {
		var req requestLogin
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "secret" {
			_ = json.NewEncoder(w).Encode(responseLogin{Error: "invalid account"})
			return
		}
		_ = json.NewEncoder(w).Encode(responseLogin{OK: true})
	})
	mux.HandleFunc(pathSymbol, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != pathSymbol+"USDCAD" {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(responseError{Error: "unknown symbol"})
			return
		}
		_ = json.NewEncoder(w).Encode(responseSymbol{Name: "USDCAD", Digits: 5, Point: 0.00001, ContractSize: 100000, VolumeMin: 0.01, VolumeMax: 100})
	})
	mux.HandleFunc(pathTick, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(responseTick{Time: 1700000000, Bid: 1.36010, Ask: 1.36025})
	})
	mux.HandleFunc(pathRates, func(w http.ResponseWriter, r *http.Request) {
		s.lock.Lock()
		defer s.lock.Unlock()
		if r.URL.Query().Get("count") != "300" || r.URL.Query().Get("timeframe") != "M5" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(s.rates)
	})
	mux.HandleFunc(pathPositions, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]rawPosition{
			{Ticket: 7, Symbol: "USDCAD", Type: orderTypeSell, Volume: 0.03, PriceOpen: 1.36, SL: 1.363, TP: 1.354},
		})
	})
	mux.HandleFunc(pathOrder, func(w http.ResponseWriter, r *http.Request) {
		var req requestOrder
		_ = json.NewDecoder(r.Body).Decode(&req)
		s.lock.Lock()
		s.orders = append(s.orders, req)
		s.ids = append(s.ids, r.Header.Get("X-Request-Id"))
		s.lock.Unlock()
		if req.TypeFilling != s.accept {
			_ = json.NewEncoder(w).Encode(responseOrder{Retcode: types.RetcodeInvalidFill, Comment: "Unsupported filling mode"})
			return
		}
		_ = json.NewEncoder(w).Encode(responseOrder{Retcode: types.RetcodeDone, Order: 42, Deal: 43, Volume: req.Volume, Price: req.Price, Comment: "Request executed"})
	})
	return mux
}

func newTestClient(t *testing.T, s *sidecar) *Client {
	srv := httptest.NewServer(s.handler())
	t.Cleanup(srv.Close)
	c, err := New(Config{Host: srv.URL + "/", Password: "secret", Timeout: "2s", RPS: 100}, zap.NewNop().Sugar())
	require.NoError(t, err)
	return c
}

func TestDial(t *testing.T) {
	srv := httptest.NewServer((&sidecar{}).handler())
	defer srv.Close()
	ctx := context.Background()

	c, err := Dial(ctx, Config{Host: srv.URL, Password: "secret"}, zap.NewNop().Sugar())
	require.NoError(t, err)
	require.NoError(t, c.Close())

	_, err = Dial(ctx, Config{Host: srv.URL, Password: "wrong"}, zap.NewNop().Sugar())
	var cf *broker.ConnectionFault
	require.True(t, errors.As(err, &cf))
	require.Equal(t, "login", cf.Op)
}

func TestDial_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	host := srv.URL
	srv.Close()
	_, err := Dial(context.Background(), Config{Host: host, Timeout: "1s"}, zap.NewNop().Sugar())
	var cf *broker.ConnectionFault
	require.True(t, errors.As(err, &cf))
}

func TestNew_BadTimeout(t *testing.T) {
	_, err := New(Config{Timeout: "soon"}, zap.NewNop().Sugar())
	require.Error(t, err)
}

func TestClient_SymbolTick(t *testing.T) {
	c := newTestClient(t, &sidecar{})
	ctx := context.Background()

	s, err := c.Symbol(ctx, "USDCAD")
	require.NoError(t, err)
	require.Equal(t, int32(5), s.Digits)
	require.Equal(t, 100000.0, s.ContractSize)

	_, err = c.Symbol(ctx, "XXXYYY")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown symbol")

	tick, err := c.Tick(ctx, "USDCAD")
	require.NoError(t, err)
	require.Equal(t, 1.36010, tick.Bid)
	require.Equal(t, 1.36025, tick.Ask)
}

func TestClient_Window(t *testing.T) {
	s := &sidecar{}
	c := newTestClient(t, s)
	ctx := context.Background()

	_, err := c.Window(ctx, "USDCAD", "M5", 300)
	require.True(t, errors.Is(err, broker.ErrDataUnavailable))

	s.rates = []rawRate{
		{Time: 1, Open: 1, High: 2, Low: 0.5, Close: 1.5, TickVolume: 10},
		{Time: 2, Open: 1.5, High: 2.5, Low: 1, Close: 2, TickVolume: 12},
	}
	candle, err := c.Window(ctx, "USDCAD", "M5", 300)
	require.NoError(t, err)
	require.Equal(t, 2, candle.Length())
	require.Equal(t, []float64{1.5, 2}, candle.Close)
	require.Equal(t, []float64{10, 12}, candle.Volume)
}

func TestClient_Positions(t *testing.T) {
	c := newTestClient(t, &sidecar{})
	positions, err := c.Positions(context.Background(), "USDCAD")
	require.NoError(t, err)
	require.Len(t, positions, 1)
	require.Equal(t, types.Short, positions[0].Direction)
	require.Equal(t, uint64(7), positions[0].Ticket)
}

func TestClient_PlaceOrder(t *testing.T) {
	s := &sidecar{accept: fillingIOC}
	c := newTestClient(t, s)
	ctx := context.Background()
	req := types.OrderRequest{Symbol: "USDCAD", Direction: types.Long, Volume: 0.03, Price: 1.36025, SL: 1.35725, TP: 1.36625, FillMode: types.FillReturn}

	_, err := c.PlaceOrder(ctx, req)
	var rej *broker.Rejected
	require.True(t, errors.As(err, &rej))
	require.Equal(t, types.RetcodeInvalidFill, rej.Code)

	req.FillMode = types.FillIOC
	r, err := c.PlaceOrder(ctx, req)
	require.NoError(t, err)
	require.Equal(t, uint64(42), r.OrderID)
	require.Equal(t, 1.35725, r.SL)

	require.Len(t, s.orders, 2)
	require.Equal(t, fillingReturn, s.orders[0].TypeFilling)
	require.Equal(t, orderTypeBuy, s.orders[1].Type)
	require.Equal(t, actionDeal, s.orders[1].Action)
	require.NotEmpty(t, s.ids[0])
	require.NotEqual(t, s.ids[0], s.ids[1])
}

func TestClient_ClosePosition(t *testing.T) {
	s := &sidecar{accept: fillingFOK}
	c := newTestClient(t, s)
	pos := types.Position{Ticket: 7, Symbol: "USDCAD", Direction: types.Short, Volume: 0.03}
	_, err := c.ClosePosition(context.Background(), broker.CloseRequest{Position: pos, Price: 1.36025, FillMode: types.FillFOK})
	require.NoError(t, err)
	require.Len(t, s.orders, 1)
	require.Equal(t, orderTypeBuy, s.orders[0].Type)
	require.Equal(t, uint64(7), s.orders[0].Position)
	require.Equal(t, 0.03, s.orders[0].Volume)
	require.Equal(t, fillingFOK, s.orders[0].TypeFilling)
}
