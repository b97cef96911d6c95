// Package storage читает исторические свечи из InfluxDB.
package storage

import (
	"context"
	"fmt"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/skalibog/ictscan/internal/config"
	"github.com/skalibog/ictscan/pkg/models"
)

// InfluxDBStorage источник свечей на базе InfluxDB (только чтение)
type InfluxDBStorage struct {
	client    influxdb2.Client
	queryAPI  api.QueryAPI
	bucket    string
	timeRange string
}

// NewInfluxDBStorage создает подключение и проверяет его состояние
func NewInfluxDBStorage(ctx context.Context, cfg config.StorageConfig) (*InfluxDBStorage, error) {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)

	health, err := client.Health(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("ошибка соединения с InfluxDB: %w", err)
	}
	if health == nil || health.Status != "pass" {
		client.Close()
		return nil, fmt.Errorf("InfluxDB не в состоянии 'pass': %+v", health)
	}

	timeRange := cfg.Range
	if timeRange == "" {
		timeRange = "-30d"
	}

	return &InfluxDBStorage{
		client:    client,
		queryAPI:  client.QueryAPI(cfg.Organization),
		bucket:    cfg.Bucket,
		timeRange: timeRange,
	}, nil
}

// Close закрывает соединение с базой данных
func (s *InfluxDBStorage) Close() {
	s.client.Close()
}

// GetCandles получает последние limit свечей, упорядоченные по времени
func (s *InfluxDBStorage) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error) {
	result, err := s.queryAPI.Query(ctx, candlesQuery(s.bucket, s.timeRange, symbol, interval, limit))
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса свечей: %w", err)
	}
	defer result.Close()

	var candles []models.Candle
	for result.Next() {
		record := result.Record()
		candles = append(candles, models.Candle{
			Symbol:   symbol,
			Interval: interval,
			Time:     record.Time().Unix(),
			Open:     floatField(record.ValueByKey("open")),
			High:     floatField(record.ValueByKey("high")),
			Low:      floatField(record.ValueByKey("low")),
			Close:    floatField(record.ValueByKey("close")),
			Volume:   floatField(record.ValueByKey("volume")),
		})
	}
	if result.Err() != nil {
		return nil, fmt.Errorf("ошибка при обработке результатов: %w", result.Err())
	}

	return models.NormalizeCandles(candles), nil
}

// candlesQuery формирует Flux-запрос последних свечей
func candlesQuery(bucket, timeRange, symbol, interval string, limit int) string {
	return fmt.Sprintf(`
		from(bucket: %q)
			|> range(start: %s)
			|> filter(fn: (r) => r._measurement == "candles")
			|> filter(fn: (r) => r.symbol == %q)
			|> filter(fn: (r) => r.interval == %q)
			|> pivot(rowKey:["_time"], columnKey: ["_field"], valueColumn: "_value")
			|> sort(columns: ["_time"], desc: true)
			|> limit(n: %d)
	`, bucket, timeRange, symbol, interval, limit)
}

func floatField(v interface{}) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int64:
		return float64(x)
	case uint64:
		return float64(x)
	}
	return 0
}
