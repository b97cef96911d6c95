package aggregator

import (
	"math"
	"slices"

	"github.com/skalibog/ictscan/internal/analysis/entry"
	"github.com/skalibog/ictscan/internal/analysis/fvg"
	"github.com/skalibog/ictscan/internal/analysis/orderblock"
	"github.com/skalibog/ictscan/internal/analysis/structure"
	"github.com/skalibog/ictscan/internal/backtest"
	"github.com/skalibog/ictscan/internal/config"
	"github.com/skalibog/ictscan/pkg/models"
)

const secondsPerDay = 24 * 60 * 60

// Input данные одного прогона конвейера
type Input struct {
	Symbol       string
	Timeframe    string
	HTFTimeframe string
	Candles      []models.Candle
	HTFCandles   []models.Candle
	// Now момент отсчета окна свежих сигналов; при 0 берется время последней свечи
	Now int64
}

// PDRange диапазон premium/discount
type PDRange struct {
	High        float64 `json:"high"`
	Low         float64 `json:"low"`
	Equilibrium float64 `json:"equilibrium"`
}

// ProximityAlert цена подошла к неотработанному ордер-блоку
type ProximityAlert struct {
	Zone     models.OrderBlock `json:"zone"`
	Price    float64           `json:"price"`
	Distance float64           `json:"distance"`
}

// Result полный результат анализа символа
type Result struct {
	RunID        string                  `json:"runId,omitempty"`
	Symbol       string                  `json:"symbol"`
	Timeframe    string                  `json:"timeframe"`
	HTFTimeframe string                  `json:"htfTimeframe,omitempty"`
	LastTime     int64                   `json:"lastTime"`
	LastPrice    float64                 `json:"lastPrice"`
	Bias         models.Direction        `json:"bias,omitempty"`
	PD           PDRange                 `json:"pdRange"`
	Structure    []models.StructurePoint `json:"structure"`
	OrderBlocks  []models.OrderBlock     `json:"orderBlocks"`
	FVGs         []models.FVG            `json:"fvgs"`
	HTFZonesUsed bool                    `json:"htfZonesUsed"`
	RawEntries   []models.EntrySignal    `json:"rawEntries"`
	Entries      []models.EntrySignal    `json:"entries"`
	Stats        models.BacktestStats    `json:"stats"`
	Alert        *ProximityAlert         `json:"alert,omitempty"`

	// Зоны старшего таймфрейма для отображения. Заполняются при наличии
	// старшей серии на любом таймфрейме
	HTFOrderBlocks []models.OrderBlock `json:"htfOrderBlocks"`
	HTFFVGs        []models.FVG        `json:"htfFvgs"`
}

// Compute выполняет полный расчет по серии: структура, зоны, сигналы,
// фильтрация и бэктест. Функция чистая: одинаковый вход дает одинаковый результат
func Compute(cfg *config.Config, in Input) *Result {
	an := cfg.Analysis
	candles := models.NormalizeCandles(in.Candles)
	htf := models.NormalizeCandles(in.HTFCandles)

	res := &Result{
		Symbol:       in.Symbol,
		Timeframe:    in.Timeframe,
		HTFTimeframe: in.HTFTimeframe,
		Structure:    []models.StructurePoint{},
		OrderBlocks:  []models.OrderBlock{},
		FVGs:         []models.FVG{},
		RawEntries:   []models.EntrySignal{},
		Entries:      []models.EntrySignal{},

		HTFOrderBlocks: []models.OrderBlock{},
		HTFFVGs:        []models.FVG{},
	}
	if len(candles) == 0 {
		return res
	}
	last := candles[len(candles)-1]
	res.LastTime = last.Time
	res.LastPrice = last.Close

	points := structure.Detect(candles, an.Structure.SwingLength)
	res.Structure = points
	if bias, ok := structure.BiasAt(points, last.Time); ok {
		res.Bias = bias
	}
	res.PD = ComputePDRange(candles, an.Entry.PDLookback)

	obs := orderblock.NewDetector(an.OrderBlock)
	nativeOBs := orderblock.Mitigate(candles, obs.Detect(candles, an.OrderBlock.Threshold))
	nativeFVGs := fvg.Detect(candles)

	if len(htf) > 0 {
		res.HTFOrderBlocks = orderblock.Tag(orderblock.Mitigate(htf, obs.Detect(htf, an.OrderBlock.Threshold)), in.HTFTimeframe)
		res.HTFFVGs = fvg.Tag(fvg.Detect(htf), in.HTFTimeframe)
	}

	// в детекцию зоны старшего таймфрейма идут только на младших таймфреймах
	res.OrderBlocks = entry.SelectZones(in.Timeframe, nativeOBs, res.HTFOrderBlocks, an.Entry.LowTimeframes)
	res.FVGs = entry.SelectZones(in.Timeframe, nativeFVGs, res.HTFFVGs, an.Entry.LowTimeframes)
	res.HTFZonesUsed = entry.IsLowTimeframe(in.Timeframe, an.Entry.LowTimeframes) && len(res.HTFOrderBlocks) > 0

	gen := entry.NewGenerator(an.Entry, an.Structure.SwingLength)
	res.RawEntries = gen.DetectWithStructure(candles, points, res.OrderBlocks, res.FVGs, in.Timeframe)

	now := in.Now
	if now == 0 {
		now = last.Time
	}
	selected := Recent(FilterEntries(res.RawEntries, an.Filter.MinWinProbability, an.Filter.AllowedGrades), now, an.Filter.RecentDays)

	bt := backtest.NewSimulator(cfg.Backtest).Run(candles, selected)
	res.Entries = bt.Entries
	res.Stats = bt.Stats

	res.Alert = Proximity(res.OrderBlocks, last.Close, an.ProximityTolerance)
	return res
}

// FilterEntries оставляет сигналы с вероятностью не ниже порога и допустимой
// оценкой. Пустой список оценок пропускает любую оценку
func FilterEntries(entries []models.EntrySignal, minWinProbability float64, allowedGrades []string) []models.EntrySignal {
	out := []models.EntrySignal{}
	for _, e := range entries {
		if e.WinProbability < minWinProbability {
			continue
		}
		if len(allowedGrades) > 0 && !slices.Contains(allowedGrades, e.SetupGrade) {
			continue
		}
		out = append(out, e.Clone())
	}
	return out
}

// Recent оставляет сигналы последних days дней относительно now.
// days <= 0 отключает фильтр
func Recent(entries []models.EntrySignal, now int64, days int) []models.EntrySignal {
	out := []models.EntrySignal{}
	from := now - int64(days)*secondsPerDay
	for _, e := range entries {
		if days > 0 && e.Time < from {
			continue
		}
		out = append(out, e.Clone())
	}
	return out
}

// ComputePDRange считает диапазон последних lookback свечей
func ComputePDRange(candles []models.Candle, lookback int) PDRange {
	if len(candles) == 0 {
		return PDRange{}
	}
	if lookback < 1 || lookback > len(candles) {
		lookback = len(candles)
	}
	window := candles[len(candles)-lookback:]
	pd := PDRange{High: window[0].High, Low: window[0].Low}
	for _, c := range window[1:] {
		pd.High = math.Max(pd.High, c.High)
		pd.Low = math.Min(pd.Low, c.Low)
	}
	pd.Equilibrium = (pd.High + pd.Low) / 2
	return pd
}

// Proximity возвращает ближайший неотработанный ордер-блок, ближняя граница
// которого находится в пределах tolerance (доля цены) от price
func Proximity(zones []models.OrderBlock, price, tolerance float64) *ProximityAlert {
	if price <= 0 || tolerance <= 0 {
		return nil
	}
	var alert *ProximityAlert
	for _, z := range orderblock.Active(zones) {
		edge := z.PriceHigh
		if z.Direction == models.Bearish {
			edge = z.PriceLow
		}
		dist := math.Abs(price-edge) / price
		if dist >= tolerance {
			continue
		}
		if alert == nil || dist < alert.Distance {
			alert = &ProximityAlert{Zone: z, Price: price, Distance: dist}
		}
	}
	return alert
}
