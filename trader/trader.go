// Package trader runs the polling loop that turns strategy signals into positions.
package trader

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/xyths/fxbot/broker"
	"github.com/xyths/fxbot/broker/bridge"
	"github.com/xyths/fxbot/broker/paper"
	"github.com/xyths/fxbot/decider"
	"github.com/xyths/fxbot/executor"
	"github.com/xyths/fxbot/history"
	"github.com/xyths/fxbot/metrics"
	"github.com/xyths/fxbot/notify"
	"github.com/xyths/fxbot/strategy"
	"github.com/xyths/fxbot/types"
	"github.com/xyths/hs"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// ErrDailyClose stops the loop after the daily flatten.
var ErrDailyClose = errors.New("stopped for the daily close")

type Trader struct {
	config   Config
	interval time.Duration
	window   *CloseWindow
	loc      *time.Location
	dry      bool

	Sugar    *zap.SugaredLogger
	db       *mongo.Database
	broker   broker.Broker
	engine   *strategy.Engine
	arbiter  decider.Arbiter
	executor *executor.Executor
	debounce *Debouncer
	notifier notify.Notifier
	history  history.Log
	metrics  *http.Server

	now func() time.Time
}

// New checks cfg and prepares a trader. Init must be called before use.
func New(cfg Config, dry bool) (*Trader, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	interval, _ := cfg.Interval()
	window, _ := cfg.CloseWindow()
	loc, err := ParseZone(cfg.Close.Zone)
	if err != nil {
		return nil, err
	}
	return &Trader{
		config:   cfg,
		interval: interval,
		window:   window,
		loc:      loc,
		dry:      dry,
		Sugar:    zap.NewNop().Sugar(),
		notifier: notify.Discard{},
		history:  history.Discard{},
		now:      time.Now,
	}, nil
}

// InitStore sets up logging and, when configured, the database.
func (t *Trader) InitStore(ctx context.Context) error {
	if err := t.initLogger(); err != nil {
		return err
	}
	if t.config.Mongo.URI == "" {
		return nil
	}
	db, err := hs.ConnectMongo(ctx, t.config.Mongo)
	if err != nil {
		return errors.Wrap(err, "connect mongo")
	}
	t.db = db
	t.Sugar.Info("Mongo connected")
	return nil
}

func (t *Trader) Init(ctx context.Context) error {
	if err := t.InitStore(ctx); err != nil {
		return err
	}
	b, err := t.initBroker(ctx)
	if err != nil {
		return err
	}
	h, err := t.initHistory()
	if err != nil {
		_ = b.Close()
		return err
	}
	if err = t.wire(ctx, b, t.initNotifier(), h); err != nil {
		_ = b.Close()
		return err
	}
	if addr := t.config.Metrics.Addr; addr != "" {
		t.metrics = metrics.Serve(addr)
		t.Sugar.Infof("metrics on %s/metrics", addr)
	}
	t.Sugar.Info("Trader initialized")
	return nil
}

func (t *Trader) initLogger() error {
	l, err := hs.NewZapLogger(t.config.Log)
	if err != nil {
		return err
	}
	t.Sugar = l.Sugar()
	t.Sugar.Info("Logger initialized")
	return nil
}

func (t *Trader) initBroker(ctx context.Context) (broker.Broker, error) {
	if t.dry || t.config.Broker.Name == BrokerPaper {
		t.Sugar.Info("using the paper broker")
		symbol := types.Symbol{
			Name:         t.config.Strategy.Symbol,
			Digits:       5,
			Point:        0.00001,
			ContractSize: 100000,
			VolumeMin:    0.01,
			VolumeMax:    100,
		}
		walk := paper.RandomWalk(time.Now().UnixNano(), 1.36, 0.0005, t.config.Strategy.Bars)
		return paper.New(symbol, paper.WithWindow(walk), paper.WithWalk(time.Now().UnixNano(), 0.0005)), nil
	}
	c, err := bridge.Dial(ctx, t.config.Broker.Config, t.Sugar)
	if err != nil {
		return nil, err
	}
	t.Sugar.Infof("Broker %s initialized", t.config.Broker.Server)
	return c, nil
}

func (t *Trader) initNotifier() notify.Notifier {
	robots := notify.NewRobots(t.config.Robots, t.loc, t.config.Strategy.Symbol, "fxbot", t.config.Broker.Server)
	n := notify.Multi{robots}
	if tg := t.config.Telegram; tg.Token != "" && tg.ChatID != "" {
		n = append(n, notify.NewTelegram(tg.Token, tg.ChatID))
	}
	t.Sugar.Infof("Broadcasters initialized, %d robots, telegram %v", robots.Len(), len(n) > 1)
	return n
}

func (t *Trader) initHistory() (history.Log, error) {
	var logs history.Multi
	if t.config.History.Csv != "" {
		l, err := history.NewCsvLog(t.config.History.Csv)
		if err != nil {
			return nil, errors.Wrap(err, "open trade log")
		}
		logs = append(logs, l)
	}
	if t.config.History.Mongo && t.db != nil {
		logs = append(logs, history.NewMongoLog(t.db))
	}
	return logs, nil
}

// wire builds the trading pipeline on top of the given collaborators.
func (t *Trader) wire(ctx context.Context, b broker.Broker, n notify.Notifier, h history.Log) error {
	s := t.config.Strategy
	symbol, err := b.Symbol(ctx, s.Symbol)
	if err != nil {
		return errors.Wrapf(err, "get symbol %s", s.Symbol)
	}
	t.Sugar.Infof("Symbol: %s, Digits: %d, Point: %v, ContractSize: %v, VolumeMin: %v",
		symbol.Name, symbol.Digits, symbol.Point, symbol.ContractSize, symbol.VolumeMin)
	strategies, err := strategy.Build(s.Strategies, s.Params)
	if err != nil {
		return err
	}
	arbiter, err := decider.New(s.Arbiter, s.Quorum)
	if err != nil {
		return err
	}
	id := executor.NewClientIdManager("-", nil)
	if t.db != nil {
		id = executor.NewPersistentIdManager(t.db)
	}
	if err = id.Load(ctx); err != nil {
		return errors.Wrap(err, "load order counters")
	}

	t.broker = b
	t.notifier = n
	t.history = h
	t.engine = strategy.NewEngine(t.Sugar, s.Parallel, strategies...)
	t.arbiter = arbiter
	t.executor = executor.New(b, symbol, id, t.Sugar)
	t.debounce = NewDebouncer(t.executor)
	return nil
}

func (t *Trader) Close(ctx context.Context) error {
	if t.metrics != nil {
		_ = t.metrics.Shutdown(ctx)
	}
	if t.broker != nil {
		_ = t.broker.Close()
	}
	if t.db != nil {
		_ = t.db.Client().Disconnect(ctx)
	}
	if t.Sugar != nil {
		t.Sugar.Info("Trader stopped")
		return t.Sugar.Sync()
	}
	return nil
}

// Print shows the symbol, the quote and the open positions.
func (t *Trader) Print(ctx context.Context) error {
	tick, err := t.broker.Tick(ctx, t.executor.Symbol())
	if err != nil {
		return err
	}
	positions, err := t.executor.Positions(ctx)
	if err != nil {
		return err
	}
	log.Printf(`Symbol
	Name: %s
	Digits: %d
	Point: %v
	Contract size: %v
	Bid / Ask: %v / %v (%s)`,
		t.executor.Symbol(), t.executor.Digits(), t.executor.Point(), t.executor.ContractSize(),
		tick.Bid, tick.Ask, types.TimestampToDate(tick.Time),
	)
	log.Printf("Positions: %d", len(positions))
	for _, p := range positions {
		log.Printf("	%s", p)
	}
	return nil
}

// Flatten closes all positions now.
func (t *Trader) Flatten(ctx context.Context) error {
	closed, err := t.executor.CloseAll(ctx)
	t.Notify("closed %d positions", closed)
	return err
}

// Size returns the volume a new position would get.
func (t *Trader) Size() (float64, error) {
	s := t.config.Strategy
	return t.executor.SizeVolume(s.Capital, s.Risk, s.StopLoss)
}

// Export writes the trades stored between start and end to csvfile.
func (t *Trader) Export(ctx context.Context, start, end, csvfile string) error {
	if t.db == nil {
		return errors.New("export needs the mongo config")
	}
	startTime, endTime, err := history.ParseStartEndTime(start, end, t.loc)
	if err != nil {
		return err
	}
	n, err := history.NewMongoLog(t.db).Export(ctx, startTime, endTime, csvfile)
	if err != nil {
		return err
	}
	t.Sugar.Infof("exported %d trades to %s", n, csvfile)
	return nil
}

// Start runs a cycle every interval until ctx is done or the daily close is reached.
func (t *Trader) Start(ctx context.Context) error {
	s := t.config.Strategy
	t.Notify("bot started: %s %s every %s", s.Symbol, s.Timeframe, t.interval)
	if t.window != nil {
		t.Sugar.Infof("daily close window %s", t.window)
	}
	for {
		if err := t.doWork(ctx); errors.Is(err, ErrDailyClose) {
			return err
		}
		select {
		case <-ctx.Done():
			t.Sugar.Info(ctx.Err())
			return nil
		case <-time.After(t.interval):
		}
	}
}

// doWork runs one cycle and reports its failure. Only ErrDailyClose is returned to the loop as fatal.
func (t *Trader) doWork(ctx context.Context) error {
	err := t.Cycle(ctx)
	switch {
	case err == nil:
		metrics.Cycles.WithLabelValues("ok").Inc()
	case errors.Is(err, ErrDailyClose):
		metrics.Cycles.WithLabelValues("daily_close").Inc()
	default:
		metrics.Cycles.WithLabelValues("error").Inc()
		metrics.Faults.WithLabelValues(faultKind(err)).Inc()
		t.Sugar.Errorf("cycle error: %s", err)
		t.Notify("error: %s", err)
	}
	return err
}

func faultKind(err error) string {
	var sizing *executor.SizingError
	var conn *broker.ConnectionFault
	switch {
	case errors.Is(err, broker.ErrDataUnavailable):
		return "data_unavailable"
	case broker.IsRejected(err):
		return "rejected"
	case errors.As(err, &sizing):
		return "sizing"
	case errors.As(err, &conn):
		return "connection"
	default:
		return "other"
	}
}

// Cycle pulls the window, decides and acts once. Panics are returned as errors.
func (t *Trader) Cycle(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("cycle panic: %v", r)
		}
	}()
	if t.window != nil && t.window.Contains(t.now()) {
		return t.dailyClose(ctx)
	}

	s := t.config.Strategy
	candle, err := t.broker.Window(ctx, s.Symbol, s.Timeframe, s.Bars)
	if err != nil {
		return errors.Wrap(err, "get price window")
	}
	set := t.engine.Evaluate(ctx, candle)
	for name, r := range set {
		label := r.Signal.String()
		if r.Failed() {
			label = "error"
		}
		metrics.Signals.WithLabelValues(name, label).Inc()
	}
	decision := t.arbiter.Decide(set)
	metrics.Decisions.WithLabelValues(decision.String()).Inc()
	t.Sugar.Infof("decision %s from %v", decision, set)

	closed, err := t.debounce.CloseOnChange(ctx, decision)
	for _, r := range closed {
		t.Notify("position closed: order %d @ %v", r.OrderID, r.Price)
	}
	if err != nil {
		return errors.Wrap(err, "close on change")
	}
	if !t.debounce.ShouldTrade(decision) {
		t.Sugar.Debugf("nothing to do, last decision %s", t.debounce.Last())
		return nil
	}
	if err = t.open(ctx, decision); err != nil {
		t.debounce.Rollback()
		return err
	}
	return nil
}

func (t *Trader) open(ctx context.Context, decision types.Decision) error {
	if p := t.debounce.Position(); p != nil {
		t.Sugar.Infof("position already open: %s", p)
		return nil
	}
	s := t.config.Strategy
	volume, err := t.executor.SizeVolume(s.Capital, s.Risk, s.StopLoss)
	if err != nil {
		return err
	}
	r, err := t.executor.Open(ctx, decision.Direction(), volume, s.StopLoss, s.TakeProfit)
	if err != nil {
		return err
	}
	t.Notify("order executed: %s %v %s @ %v | SL: %v | TP: %v", decision, volume, s.Symbol, r.Price, r.SL, r.TP)
	record := history.Record{
		Time:    t.now().In(t.loc),
		Symbol:  s.Symbol,
		Signal:  decision.String(),
		Volume:  volume,
		Price:   r.Price,
		SL:      r.SL,
		TP:      r.TP,
		OrderID: r.OrderID,
	}
	if err = t.history.Append(ctx, record); err != nil {
		t.Sugar.Errorf("append trade log error: %s", err)
	}
	return nil
}

func (t *Trader) dailyClose(ctx context.Context) error {
	t.Sugar.Infof("inside the daily close window %s, closing all positions", t.window)
	closed, err := t.executor.CloseAll(ctx)
	if err != nil {
		t.Sugar.Errorf("daily close error: %s", err)
		t.Notify("error: daily close: %s", err)
	}
	t.Notify("daily close: %d positions closed, stopping", closed)
	return ErrDailyClose
}

// Notify is best effort, failures are only logged.
func (t *Trader) Notify(format string, a ...interface{}) {
	if err := t.notifier.Send(fmt.Sprintf(format, a...)); err != nil {
		t.Sugar.Infof("broadcast error: %s", err)
	}
}
