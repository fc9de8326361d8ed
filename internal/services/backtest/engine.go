package backtest

import (
	"math"
	"time"

	"StockPredictor/internal/domain/models"
	"StockPredictor/internal/domain/repository"
	"StockPredictor/pkg/config"
	"StockPredictor/pkg/logger"
)

// ExitConfidence is recorded on the synthetic end-of-data sell.
const ExitConfidence = 0.5

// Config holds the capital, cost and risk settings of one replay.
type Config struct {
	InitialCapital float64
	CommissionRate float64
	SlippageRate   float64
	Risk           config.RiskParams
}

// NewConfig combines BACKTEST_CONFIG with resolved regime risk parameters.
func NewConfig(bt config.BacktestConfig, risk config.RiskParams) Config {
	return Config{
		InitialCapital: bt.InitialCapital,
		CommissionRate: bt.CommissionRate,
		SlippageRate:   bt.SlippageRate,
		Risk:           risk,
	}
}

// Result is the output of one replay.
type Result struct {
	Symbol         string               `json:"symbol"`
	InitialCapital float64              `json:"initial_capital"`
	Risk           config.RiskParams    `json:"risk"`
	Trades         []models.Trade       `json:"trades"`
	Equity         []models.EquityPoint `json:"equity"`
	Refused        int                  `json:"refused"`
	Skipped        int                  `json:"skipped"`
}

// FinalEquity is the last recorded equity, or the initial capital when nothing was replayed.
func (r *Result) FinalEquity() float64 {
	if len(r.Equity) == 0 {
		return r.InitialCapital
	}
	return r.Equity[len(r.Equity)-1].Equity
}

// Engine replays signals over a single symbol: long only, at most one open
// position, fills at the decision bar's close.
type Engine struct {
	cfg     Config
	log     *logger.Logger
	metrics repository.Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithMetrics records fills and refusals.
func WithMetrics(m repository.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine creates an engine.
func NewEngine(cfg Config, opts ...Option) *Engine {
	e := &Engine{cfg: cfg, log: logger.Nop()}
	for _, o := range opts {
		o(e)
	}
	return e
}

type state struct {
	cash          float64
	qty           float64
	entryPrice    float64
	dailyTrades   int
	lastTradeDate time.Time
	mark          float64
}

// Run replays signals over the rows of fm in order. Rows and signals must be
// aligned one to one by date.
func (e *Engine) Run(fm *models.FeatureMatrix, signals []models.Signal) (*Result, error) {
	symbol := ""
	if fm != nil {
		symbol = fm.Symbol
	}
	if fm.Len() == 0 {
		return nil, models.NewPipelineError(models.ErrDataUnavailable, "backtest", symbol).
			WithMessage("no rows to replay")
	}
	if len(signals) != fm.Len() || len(fm.Close) != fm.Len() {
		return nil, models.NewPipelineError(models.ErrInsufficientFeatures, "backtest", symbol).
			WithMessage("%d rows, %d closes, %d signals", fm.Len(), len(fm.Close), len(signals))
	}
	for i, s := range signals {
		if !s.Date.IsZero() && !s.Date.Equal(fm.Dates[i]) {
			return nil, models.NewPipelineError(models.ErrInsufficientFeatures, "backtest", symbol).
				WithDate(fm.Dates[i]).WithMessage("signal dated %s", s.Date.Format("2006-01-02"))
		}
	}

	res := &Result{
		Symbol:         symbol,
		InitialCapital: e.cfg.InitialCapital,
		Risk:           e.cfg.Risk,
		Equity:         make([]models.EquityPoint, 0, fm.Len()),
	}
	st := &state{cash: e.cfg.InitialCapital}
	risk := e.cfg.Risk
	log := e.log.With(logger.String("symbol", symbol), logger.String("stage", "backtest"))

	for i := 0; i < fm.Len(); i++ {
		date := fm.Dates[i]
		price := fm.Close[i]
		if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
			log.Warn("invalid close, bar skipped", logger.Date("date", date), logger.Float64("close", price))
			res.Skipped++
			res.Equity = append(res.Equity, st.point(date))
			continue
		}
		st.mark = price

		day := models.CalendarDay(date)
		if !day.Equal(st.lastTradeDate) {
			st.dailyTrades = 0
		}

		sig := signals[i]
		conf := sig.Confidence()
		if st.qty > 0 {
			switch {
			case price <= st.entryPrice*(1-risk.StopLossPct):
				e.sell(res, st, date, price, conf, models.ReasonStopLoss)
			case price >= st.entryPrice*(1+risk.TakeProfitPct):
				e.sell(res, st, date, price, conf, models.ReasonTakeProfit)
			case sig.Prediction == 0 && conf > risk.ConfidenceThreshold:
				e.sell(res, st, date, price, conf, models.ReasonSignalExit)
			}
		} else if st.dailyTrades < risk.MaxDailyTrades {
			if sig.Prediction == 1 && conf > risk.ConfidenceThreshold {
				if err := e.buy(res, st, date, price, conf); err != nil {
					res.Refused++
					e.recordRefusal("capital")
					log.Warn("entry refused", logger.Date("date", date), logger.Error(err))
				}
			}
		}

		res.Equity = append(res.Equity, st.point(date))
	}

	if st.qty > 0 {
		last := len(res.Equity) - 1
		date := fm.Dates[last]
		e.sell(res, st, date, st.mark, ExitConfidence, models.ReasonEndOfData)
		res.Equity[last] = st.point(date)
	}

	log.Info("backtest finished",
		logger.Int("bars", fm.Len()),
		logger.Int("trades", len(res.Trades)),
		logger.Int("refused", res.Refused),
		logger.Float64("final_equity", res.FinalEquity()),
	)
	return res, nil
}

func (e *Engine) fillCost(price, qty float64) float64 {
	return price * qty * (e.cfg.CommissionRate + e.cfg.SlippageRate)
}

// buy sizes a position from initial capital and confidence. Quantity may be
// fractional; an entry whose notional plus costs exceeds cash is refused.
func (e *Engine) buy(res *Result, st *state, date time.Time, price, conf float64) error {
	notional := e.cfg.InitialCapital * e.cfg.Risk.MaxPositionSize * math.Min(1, 2*conf)
	qty := notional / price
	cost := e.fillCost(price, qty)
	if notional+cost > st.cash {
		return models.NewPipelineError(models.ErrCapitalExhausted, "backtest", res.Symbol).
			WithDate(date).WithMessage("need %.2f, have %.2f", notional+cost, st.cash)
	}
	st.cash -= notional + cost
	st.qty = qty
	st.entryPrice = price
	e.fill(res, st, models.Trade{
		Date:          date,
		Side:          models.SideBuy,
		Price:         price,
		Quantity:      qty,
		PositionValue: notional,
		Cost:          cost,
		Confidence:    conf,
		Reason:        models.ReasonSignalEntry,
	})
	return nil
}

func (e *Engine) sell(res *Result, st *state, date time.Time, price, conf float64, reason models.TradeReason) {
	qty := st.qty
	notional := price * qty
	cost := e.fillCost(price, qty)
	st.cash += notional - cost
	st.qty = 0
	st.entryPrice = 0
	e.fill(res, st, models.Trade{
		Date:          date,
		Side:          models.SideSell,
		Price:         price,
		Quantity:      qty,
		PositionValue: notional,
		Cost:          cost,
		Confidence:    conf,
		Reason:        reason,
	})
}

func (e *Engine) fill(res *Result, st *state, t models.Trade) {
	t.CapitalAfter = st.cash
	res.Trades = append(res.Trades, t)
	st.dailyTrades++
	st.lastTradeDate = models.CalendarDay(t.Date)
	if e.metrics != nil {
		e.metrics.RecordTrade(string(t.Side))
	}
	e.log.Debug("fill",
		logger.String("side", string(t.Side)),
		logger.String("reason", string(t.Reason)),
		logger.Date("date", t.Date),
		logger.Float64("price", t.Price),
		logger.Float64("qty", t.Quantity),
		logger.Float64("cash", st.cash),
	)
}

func (e *Engine) recordRefusal(reason string) {
	if e.metrics != nil {
		e.metrics.RecordEntryRefused(reason)
	}
}

func (st *state) point(date time.Time) models.EquityPoint {
	pv := st.qty * st.mark
	return models.EquityPoint{
		Date:          date,
		Close:         st.mark,
		Cash:          st.cash,
		PositionQty:   st.qty,
		PositionValue: pv,
		Equity:        st.cash + pv,
	}
}
