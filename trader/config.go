package trader

import (
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/xyths/fxbot/broker/bridge"
	"github.com/xyths/fxbot/decider"
	"github.com/xyths/fxbot/strategy"
	"github.com/xyths/fxbot/types"
	"github.com/xyths/hs"
)

const (
	BrokerBridge = "bridge"
	BrokerPaper  = "paper"
)

type Config struct {
	Broker   BrokerConf
	Mongo    hs.MongoConf
	Log      hs.LogConf
	Robots   []hs.BroadcastConf
	Telegram TelegramConf
	Strategy StrategyConf
	Close    CloseConf
	History  HistoryConf
	Metrics  MetricsConf
}

type BrokerConf struct {
	Name string `json:"name"`
	bridge.Config
}

type TelegramConf struct {
	Token  string `json:"token"`
	ChatID string `json:"chatId"`
}

type StrategyConf struct {
	Symbol     string          `json:"symbol"`
	Timeframe  string          `json:"timeframe"`
	Bars       int             `json:"bars"`
	Interval   string          `json:"interval"`
	Capital    float64         `json:"capital"`
	Risk       float64         `json:"risk"` // percent of capital per trade
	StopLoss   float64         `json:"stopLoss"`
	TakeProfit float64         `json:"takeProfit"`
	Arbiter    string          `json:"arbiter"`
	Quorum     int             `json:"quorum"`
	Strategies []string        `json:"strategies"`
	Parallel   bool            `json:"parallel"`
	Params     strategy.Params `json:"params"`
}

// CloseConf is the daily flatten window, From <= t < To in Zone.
type CloseConf struct {
	Disabled bool   `json:"disabled"`
	From     string `json:"from"` // 15:04
	To       string `json:"to"`
	Zone     string `json:"zone"` // UTC-3 or an IANA name
}

type HistoryConf struct {
	Csv   string `json:"csv"`
	Mongo bool   `json:"mongo"`
}

type MetricsConf struct {
	Addr string `json:"addr"`
}

// LoadConfig reads the json config, then applies overrides from envFile and the environment.
// A missing envFile is ignored.
func LoadConfig(file, envFile string) (Config, error) {
	cfg := Config{}
	if err := hs.ParseJsonConfig(file, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", file)
	}
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(errors.Cause(err)) {
			return cfg, errors.Wrapf(err, "load env file %s", envFile)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	cfg.SetDefaults()
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("BROKER_LOGIN"); v != "" {
		login, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return errors.Wrap(err, "BROKER_LOGIN")
		}
		c.Broker.Login = login
	}
	if v := os.Getenv("BROKER_PASSWORD"); v != "" {
		c.Broker.Password = v
	}
	if v := os.Getenv("BROKER_SERVER"); v != "" {
		c.Broker.Server = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.Token = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	return nil
}

func (c *Config) SetDefaults() {
	if c.Broker.Name == "" {
		c.Broker.Name = BrokerBridge
	}
	s := &c.Strategy
	if s.Symbol == "" {
		s.Symbol = "USDCAD"
	}
	if s.Timeframe == "" {
		s.Timeframe = "M5"
	}
	if s.Bars == 0 {
		s.Bars = 300
	}
	if s.Interval == "" {
		s.Interval = "300s"
	}
	if s.Capital == 0 {
		s.Capital = 1000
	}
	if s.Risk == 0 {
		s.Risk = 1
	}
	if s.StopLoss == 0 {
		s.StopLoss = 30
	}
	if s.TakeProfit == 0 {
		s.TakeProfit = 60
	}
	if s.Arbiter == "" {
		s.Arbiter = decider.NameMajority
	}
	s.Params = s.Params.Merge()
	if c.Close.From == "" {
		c.Close.From = "17:00"
	}
	if c.Close.To == "" {
		c.Close.To = "17:20"
	}
	if c.Close.Zone == "" {
		c.Close.Zone = "UTC-3"
	}
	if c.History.Csv == "" {
		c.History.Csv = "trades_log.csv"
	}
}

func (c Config) Validate() error {
	switch c.Broker.Name {
	case BrokerBridge, BrokerPaper:
	default:
		return errors.Errorf("unknown broker %q", c.Broker.Name)
	}
	s := c.Strategy
	if _, err := types.TimeframeDuration(s.Timeframe); err != nil {
		return err
	}
	if s.Bars <= 0 {
		return errors.Errorf("bars must be positive, got %d", s.Bars)
	}
	if d, err := c.Interval(); err != nil {
		return err
	} else if d <= 0 {
		return errors.Errorf("interval must be positive, got %s", s.Interval)
	}
	if s.Capital <= 0 || s.Risk <= 0 {
		return errors.New("capital and risk must be positive")
	}
	if s.StopLoss <= 0 {
		return errors.Errorf("stop-loss must be positive, got %v", s.StopLoss)
	}
	if _, err := decider.New(s.Arbiter, s.Quorum); err != nil {
		return err
	}
	if _, err := strategy.Build(s.Strategies, s.Params); err != nil {
		return err
	}
	if c.History.Mongo && c.Mongo.URI == "" {
		return errors.New("history.mongo needs the mongo config")
	}
	_, err := c.CloseWindow()
	return err
}

func (c Config) Interval() (time.Duration, error) {
	d, err := time.ParseDuration(c.Strategy.Interval)
	return d, errors.Wrapf(err, "bad interval %q", c.Strategy.Interval)
}

// CloseWindow parses the close block. The window is nil when disabled.
func (c Config) CloseWindow() (*CloseWindow, error) {
	if c.Close.Disabled {
		return nil, nil
	}
	loc, err := ParseZone(c.Close.Zone)
	if err != nil {
		return nil, err
	}
	from, err := parseClock(c.Close.From)
	if err != nil {
		return nil, err
	}
	to, err := parseClock(c.Close.To)
	if err != nil {
		return nil, err
	}
	if to <= from {
		return nil, errors.Errorf("close window %s-%s is empty", c.Close.From, c.Close.To)
	}
	return &CloseWindow{From: from, To: to, Loc: loc}, nil
}

func parseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, errors.Wrapf(err, "bad clock %q", s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

var offsetZone = regexp.MustCompile(`^UTC([+-]\d{1,2})?$`)

// ParseZone accepts fixed offsets such as UTC-3 and IANA names such as America/Sao_Paulo.
func ParseZone(name string) (*time.Location, error) {
	if m := offsetZone.FindStringSubmatch(name); m != nil {
		if m[1] == "" {
			return time.UTC, nil
		}
		hours, _ := strconv.Atoi(m[1])
		return time.FixedZone(name, hours*3600), nil
	}
	loc, err := time.LoadLocation(name)
	return loc, errors.Wrapf(err, "bad zone %q", name)
}
