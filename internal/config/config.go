package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/skalibog/ictscan/pkg/models"
	"gopkg.in/yaml.v2"
)

// ErrInvalidConfig возвращается, если конфигурация не прошла проверку
var ErrInvalidConfig = errors.New("некорректная конфигурация")

// Config представляет полную конфигурацию приложения
type Config struct {
	Binance  BinanceConfig  `yaml:"binance"`
	Trading  TradingConfig  `yaml:"trading"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Backtest BacktestConfig `yaml:"backtest"`
	Feed     FeedConfig     `yaml:"feed"`
	Storage  StorageConfig  `yaml:"storage"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	UI       UIConfig       `yaml:"ui"`
}

// BinanceConfig содержит настройки подключения к Binance
type BinanceConfig struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	Testnet   bool   `yaml:"testnet"`
}

// TradingConfig содержит набор инструментов и таймфрейм
type TradingConfig struct {
	Symbols []string `yaml:"symbols"`
	Interval string  `yaml:"interval"`
	// HTFInterval старший таймфрейм; если пусто, берется из таблицы models.HigherTimeframe
	HTFInterval string `yaml:"htf_interval"`
	CandleLimit int    `yaml:"candle_limit"`
	// Source источник свечей: binance или influxdb
	Source string `yaml:"source"`
}

// AnalysisConfig содержит настройки детекторов и генератора входов
type AnalysisConfig struct {
	IntervalSeconds int              `yaml:"interval_seconds"`
	Structure       StructureConfig  `yaml:"structure"`
	OrderBlock      OrderBlockConfig `yaml:"order_block"`
	FVG             FVGConfig        `yaml:"fvg"`
	Entry           EntryConfig      `yaml:"entry"`
	Filter          FilterConfig     `yaml:"filter"`
	// ProximityTolerance относительное расстояние до границы ордер-блока для алерта
	ProximityTolerance float64 `yaml:"proximity_tolerance"`
}

// StructureConfig настройки поиска свингов
type StructureConfig struct {
	SwingLength int `yaml:"swing_length"`
}

// OrderBlockConfig настройки поиска ордер-блоков
type OrderBlockConfig struct {
	Threshold      float64 `yaml:"threshold"`
	AvgRangePeriod int     `yaml:"avg_range_period"`
	OriginLookback int     `yaml:"origin_lookback"`
	// MinBodyRatio минимальная доля тела в диапазоне импульсной свечи; 0 отключает проверку
	MinBodyRatio   float64 `yaml:"min_body_ratio"`
}

// FVGConfig настройки FVG. Extend используется только при отрисовке
type FVGConfig struct {
	Extend int `yaml:"extend"`
}

// GradeRule строка таблицы оценок: минимальный балл и оценка
type GradeRule struct {
	MinScore int    `yaml:"min_score"`
	Grade    string `yaml:"grade"`
}

// EntryConfig настройки генерации и оценки входов
type EntryConfig struct {
	SLBufferRatio       float64     `yaml:"sl_buffer_ratio"`
	MinRiskReward       float64     `yaml:"min_risk_reward"`
	DefaultRiskReward   float64     `yaml:"default_risk_reward"`
	BaseProbability     float64     `yaml:"base_probability"`
	ProbabilityPerPoint float64     `yaml:"probability_per_point"`
	PDLookback          int         `yaml:"pd_lookback"`
	Grades              []GradeRule `yaml:"grades"`
	LowTimeframes       []string    `yaml:"low_timeframes"`
}

// FilterConfig фильтры сигналов на выходе конвейера
type FilterConfig struct {
	MinWinProbability float64  `yaml:"min_win_probability"`
	AllowedGrades     []string `yaml:"allowed_grades"`
	RecentDays        int      `yaml:"recent_days"`
}

// BacktestConfig параметры расчета PnL
type BacktestConfig struct {
	AccountBalance float64 `yaml:"account_balance"`
	RiskPercent    float64 `yaml:"risk_percent"`
}

// FeedConfig параметры загрузки свечей
type FeedConfig struct {
	Retries    int           `yaml:"retries"`
	BackoffMin time.Duration `yaml:"backoff_min"`
	BackoffMax time.Duration `yaml:"backoff_max"`
	Timeout    time.Duration `yaml:"timeout"`
}

// StorageConfig настройки InfluxDB
type StorageConfig struct {
	URL          string `yaml:"url"`
	Token        string `yaml:"token"`
	Organization string `yaml:"organization"`
	Bucket       string `yaml:"bucket"`
	// Range окно Flux-запроса, например -30d
	Range string `yaml:"range"`
}

// LoggingConfig настройки логирования
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// MetricsConfig настройки Prometheus
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// UIConfig настройки вывода отчета
type UIConfig struct {
	MaxRows     int  `yaml:"max_rows"`
	ShowRejects bool `yaml:"show_rejects"`
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		Trading: TradingConfig{
			Symbols:     []string{"BTCUSDT"},
			Interval:    models.Timeframe15m,
			CandleLimit: 1000,
			Source:      "binance",
		},
		Analysis: AnalysisConfig{
			IntervalSeconds: 60,
			Structure:       StructureConfig{SwingLength: 5},
			OrderBlock: OrderBlockConfig{
				Threshold:      1.2,
				AvgRangePeriod: 14,
				OriginLookback: 5,
				MinBodyRatio:   0.5,
			},
			FVG: FVGConfig{Extend: 10},
			Entry: EntryConfig{
				SLBufferRatio:       0.1,
				MinRiskReward:       1.0,
				DefaultRiskReward:   2.0,
				BaseProbability:     40,
				ProbabilityPerPoint: 5,
				PDLookback:          100,
				Grades: []GradeRule{
					{MinScore: 8, Grade: "A++"},
					{MinScore: 6, Grade: "A+"},
					{MinScore: 4, Grade: "B"},
					{MinScore: 2, Grade: "C"},
				},
				LowTimeframes: []string{models.Timeframe1m, models.Timeframe3m},
			},
			Filter: FilterConfig{
				MinWinProbability: 50,
				AllowedGrades:     []string{"A++", "A+", "B"},
				RecentDays:        30,
			},
			ProximityTolerance: 0.0005,
		},
		Backtest: BacktestConfig{
			AccountBalance: 50000,
			RiskPercent:    1,
		},
		Feed: FeedConfig{
			Retries:    3,
			BackoffMin: 200 * time.Millisecond,
			BackoffMax: 5 * time.Second,
			Timeout:    15 * time.Second,
		},
		Storage: StorageConfig{
			Range: "-30d",
		},
		Logging: LoggingConfig{Level: "info"},
		UI:      UIConfig{MaxRows: 20},
	}
}

// Load загружает конфигурацию из файла поверх значений по умолчанию.
// Переменные окружения (и .env рядом с процессом) перекрывают секреты
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла конфигурации: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("ошибка разбора файла конфигурации: %w", err)
	}

	// .env необязателен
	_ = godotenv.Load()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("BINANCE_API_KEY"); v != "" {
		c.Binance.APIKey = v
	}
	if v := os.Getenv("BINANCE_API_SECRET"); v != "" {
		c.Binance.APISecret = v
	}
	if v := os.Getenv("INFLUXDB_TOKEN"); v != "" {
		c.Storage.Token = v
	}
}

// HTFInterval возвращает старший таймфрейм для торгового
func (c *Config) HTFInterval() string {
	if c.Trading.HTFInterval != "" {
		return c.Trading.HTFInterval
	}
	return models.HigherTimeframe(c.Trading.Interval)
}

// Validate проверяет согласованность конфигурации
func (c *Config) Validate() error {
	if len(c.Trading.Symbols) == 0 {
		return fmt.Errorf("%w: не указаны символы", ErrInvalidConfig)
	}
	if !models.ValidTimeframe(c.Trading.Interval) {
		return fmt.Errorf("%w: неизвестный таймфрейм %q", ErrInvalidConfig, c.Trading.Interval)
	}
	if htf := c.Trading.HTFInterval; htf != "" && !models.ValidTimeframe(htf) {
		return fmt.Errorf("%w: неизвестный старший таймфрейм %q", ErrInvalidConfig, htf)
	}
	switch c.Trading.Source {
	case "binance", "influxdb":
	default:
		return fmt.Errorf("%w: неизвестный источник свечей %q", ErrInvalidConfig, c.Trading.Source)
	}
	if c.Trading.CandleLimit <= 0 {
		return fmt.Errorf("%w: candle_limit должен быть положительным", ErrInvalidConfig)
	}
	if c.Analysis.IntervalSeconds <= 0 {
		return fmt.Errorf("%w: interval_seconds должен быть положительным", ErrInvalidConfig)
	}
	if c.Analysis.Structure.SwingLength < 1 {
		return fmt.Errorf("%w: swing_length должен быть >= 1", ErrInvalidConfig)
	}
	if c.Analysis.OrderBlock.AvgRangePeriod < 1 || c.Analysis.OrderBlock.OriginLookback < 1 {
		return fmt.Errorf("%w: параметры ордер-блоков должны быть положительными", ErrInvalidConfig)
	}
	if c.Analysis.OrderBlock.Threshold <= 0 {
		return fmt.Errorf("%w: threshold ордер-блоков должен быть положительным", ErrInvalidConfig)
	}
	if r := c.Analysis.OrderBlock.MinBodyRatio; r < 0 || r > 1 {
		return fmt.Errorf("%w: min_body_ratio должен быть в пределах [0, 1]", ErrInvalidConfig)
	}
	if c.Analysis.Entry.ProbabilityPerPoint < 0 {
		return fmt.Errorf("%w: probability_per_point не может быть отрицательным", ErrInvalidConfig)
	}
	if p := c.Analysis.Filter.MinWinProbability; p < 0 || p > 100 {
		return fmt.Errorf("%w: min_win_probability должен быть в пределах [0, 100]", ErrInvalidConfig)
	}
	if c.Analysis.Entry.SLBufferRatio < 0 || c.Analysis.Entry.DefaultRiskReward <= 0 {
		return fmt.Errorf("%w: некорректные параметры стопа/тейка", ErrInvalidConfig)
	}
	if c.Analysis.Entry.PDLookback < 1 {
		return fmt.Errorf("%w: pd_lookback должен быть >= 1", ErrInvalidConfig)
	}
	for i := 1; i < len(c.Analysis.Entry.Grades); i++ {
		if c.Analysis.Entry.Grades[i].MinScore > c.Analysis.Entry.Grades[i-1].MinScore {
			return fmt.Errorf("%w: таблица оценок должна идти по убыванию балла", ErrInvalidConfig)
		}
	}
	if c.Backtest.AccountBalance <= 0 || c.Backtest.RiskPercent <= 0 {
		return fmt.Errorf("%w: баланс и риск должны быть положительными", ErrInvalidConfig)
	}
	if c.Feed.Retries < 0 {
		return fmt.Errorf("%w: retries не может быть отрицательным", ErrInvalidConfig)
	}
	if c.Trading.Source == "influxdb" && (c.Storage.URL == "" || c.Storage.Bucket == "") {
		return fmt.Errorf("%w: для influxdb нужны url и bucket", ErrInvalidConfig)
	}
	return nil
}
