package exchange

import (
	"context"
	"fmt"
	"strconv"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/skalibog/ictscan/internal/config"
	"github.com/skalibog/ictscan/pkg/models"
)

// BinanceClient загружает свечи фьючерсов Binance
type BinanceClient struct {
	futures *futures.Client
}

// NewBinanceClient создает новый клиент Binance
func NewBinanceClient(cfg config.BinanceConfig) *BinanceClient {
	futures.UseTestnet = cfg.Testnet
	return &BinanceClient{futures: futures.NewClient(cfg.APIKey, cfg.APISecret)}
}

// GetCandles получает последние limit свечей, упорядоченные по времени
func (c *BinanceClient) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error) {
	klines, err := c.futures.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения свечей: %w", err)
	}

	candles := make([]models.Candle, 0, len(klines))
	for _, k := range klines {
		candle, err := convertKline(symbol, interval, k)
		if err != nil {
			return nil, err
		}
		candles = append(candles, candle)
	}
	return models.NormalizeCandles(candles), nil
}

func convertKline(symbol, interval string, k *futures.Kline) (models.Candle, error) {
	var (
		fields = [5]string{k.Open, k.High, k.Low, k.Close, k.Volume}
		values [5]float64
	)
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return models.Candle{}, fmt.Errorf("ошибка разбора свечи %s %s: %w", symbol, interval, err)
		}
		values[i] = v
	}

	return models.Candle{
		Symbol:   symbol,
		Interval: interval,
		Time:     k.OpenTime / 1000,
		Open:     values[0],
		High:     values[1],
		Low:      values[2],
		Close:    values[3],
		Volume:   values[4],
	}, nil
}
