package models

// Direction направление структуры, зоны или сделки
type Direction string

const (
	Bullish Direction = "bullish"
	Bearish Direction = "bearish"
)

// Opposite возвращает противоположное направление
func (d Direction) Opposite() Direction {
	if d == Bullish {
		return Bearish
	}
	return Bullish
}

// StructureType тип точки рыночной структуры
type StructureType string

const (
	HigherHigh StructureType = "HH"
	HigherLow  StructureType = "HL"
	LowerHigh  StructureType = "LH"
	LowerLow   StructureType = "LL"
	BOS        StructureType = "BOS"
	CHoCH      StructureType = "CHoCH"
)

// IsSwing сообщает, является ли тип точкой свинга (а не сломом)
func (t StructureType) IsSwing() bool {
	switch t {
	case HigherHigh, HigherLow, LowerHigh, LowerLow:
		return true
	}
	return false
}

// IsHigh сообщает, является ли точка свинговым максимумом
func (t StructureType) IsHigh() bool { return t == HigherHigh || t == LowerHigh }

// StructurePoint точка рыночной структуры.
// ConfirmedAt хранит время свечи, на которой точка стала известна
type StructurePoint struct {
	Time        int64         `json:"time"`
	Price       float64       `json:"price"`
	Type        StructureType `json:"type"`
	Direction   Direction     `json:"direction"`
	ConfirmedAt int64         `json:"confirmedAt"`
}

// OrderBlockSubtype подтип ордер-блока
type OrderBlockSubtype string

const (
	Standard OrderBlockSubtype = "Standard"
	Breaker  OrderBlockSubtype = "Breaker"
)

// OrderBlock ценовая зона институционального интереса
type OrderBlock struct {
	Time        int64             `json:"time"`
	PriceHigh   float64           `json:"priceHigh"`
	PriceLow    float64           `json:"priceLow"`
	Direction   Direction         `json:"direction"`
	Subtype     OrderBlockSubtype `json:"subtype"`
	Timeframe   string            `json:"timeframe,omitempty"`
	Mitigated   bool              `json:"mitigated"`
	ConfirmedAt int64             `json:"confirmedAt"`
	MitigatedAt int64             `json:"mitigatedAt,omitempty"`
}

// MitigatedBy сообщает, была ли зона отработана к моменту t
func (ob OrderBlock) MitigatedBy(t int64) bool {
	return ob.Mitigated && ob.MitigatedAt <= t
}

// FVG разрыв справедливой стоимости (три свечи)
type FVG struct {
	Time        int64     `json:"time"`
	PriceHigh   float64   `json:"priceHigh"`
	PriceLow    float64   `json:"priceLow"`
	Direction   Direction `json:"direction"`
	Timeframe   string    `json:"timeframe,omitempty"`
	ConfirmedAt int64     `json:"confirmedAt"`
}

// SignalType сторона сделки
type SignalType string

const (
	Long  SignalType = "LONG"
	Short SignalType = "SHORT"
)

// Direction возвращает направление, соответствующее стороне сделки
func (t SignalType) Direction() Direction {
	if t == Long {
		return Bullish
	}
	return Bearish
}

// SignalTypeFor возвращает сторону сделки для направления зоны
func SignalTypeFor(d Direction) SignalType {
	if d == Bullish {
		return Long
	}
	return Short
}

// TradeOutcome результат бэктеста сделки
type TradeOutcome string

const (
	Pending TradeOutcome = "PENDING"
	Win     TradeOutcome = "WIN"
	Loss    TradeOutcome = "LOSS"
)

// EntrySignal торговый сигнал с оценкой конфлюенций и результатом бэктеста
type EntrySignal struct {
	Time           int64        `json:"time"`
	Type           SignalType   `json:"type"`
	Price          float64      `json:"price"`
	SL             float64      `json:"sl"`
	TP             float64      `json:"tp"`
	Score          int          `json:"score"`
	WinProbability float64      `json:"winProbability"`
	SetupGrade     string       `json:"setupGrade,omitempty"`
	SetupName      string       `json:"setupName"`
	Confluences    []string     `json:"confluences"`
	BacktestResult TradeOutcome `json:"backtestResult"`
	BacktestPnL    float64      `json:"backtestPnL"`
	ExitTime       int64        `json:"exitTime,omitempty"`
	ExitPrice      float64      `json:"exitPrice,omitempty"`
}

// Risk возвращает расстояние от входа до стопа
func (e EntrySignal) Risk() float64 {
	if e.Type == Long {
		return e.Price - e.SL
	}
	return e.SL - e.Price
}

// Reward возвращает расстояние от входа до тейка
func (e EntrySignal) Reward() float64 {
	if e.Type == Long {
		return e.TP - e.Price
	}
	return e.Price - e.TP
}

// RiskReward возвращает отношение прибыли к риску (0 при нулевом риске)
func (e EntrySignal) RiskReward() float64 {
	risk := e.Risk()
	if risk <= 0 {
		return 0
	}
	return e.Reward() / risk
}

// Clone возвращает копию сигнала с собственным срезом конфлюенций
func (e EntrySignal) Clone() EntrySignal {
	if e.Confluences != nil {
		e.Confluences = append([]string(nil), e.Confluences...)
	}
	return e
}

// BacktestStats агрегированная статистика бэктеста
type BacktestStats struct {
	NetPnL      float64 `json:"netPnL"`
	WinRate     float64 `json:"winRate"`
	MaxDrawdown float64 `json:"maxDrawdown"`
	TradeCount  int     `json:"trades"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	Pending     int     `json:"pending"`
}
