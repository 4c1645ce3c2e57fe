package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "stock-alerts/internal/errors"
	"stock-alerts/internal/models"
)

// RedisLedger implements Ledger and LedgerReader on Redis. Each alert is a
// key holding its JSON record; SETNX gives insert-if-absent and the TTL
// expires keys once their day is over.
type RedisLedger struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	clock  Clock
}

// RedisOptions configures a RedisLedger.
type RedisOptions struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration
}

// NewRedisLedger connects to Redis and verifies the connection.
func NewRedisLedger(ctx context.Context, opts RedisOptions, clock Clock) (*RedisLedger, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, apperrors.Database(err, "connect redis")
	}

	return newRedisLedger(client, opts, clock), nil
}

func newRedisLedger(client *redis.Client, opts RedisOptions, clock Clock) *RedisLedger {
	if clock.Now == nil {
		clock = SystemClock(clock.Location)
	}
	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = "stockalerts"
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 48 * time.Hour
	}
	return &RedisLedger{client: client, prefix: prefix, ttl: ttl, clock: clock}
}

// Close closes the Redis client.
func (l *RedisLedger) Close() error {
	return l.client.Close()
}

func (l *RedisLedger) key(day string, k models.AlertKey) string {
	return fmt.Sprintf("%s:alert:%s:%s:%s:%s:%s", l.prefix, day, k.Source, k.Symbol, k.ThresholdText(), k.Direction)
}

// AlreadyAlertedToday reports whether key has been recorded today.
func (l *RedisLedger) AlreadyAlertedToday(ctx context.Context, key models.AlertKey) (bool, error) {
	n, err := l.client.Exists(ctx, l.key(l.clock.Today(), key)).Result()
	if err != nil {
		return false, apperrors.Database(err, "check alert")
	}
	return n > 0, nil
}

// LogAlert records key for today; an existing record is kept.
func (l *RedisLedger) LogAlert(ctx context.Context, key models.AlertKey, price float64) error {
	now := l.clock.current()
	rec := models.AlertRecord{
		Source:    key.Source,
		Symbol:    key.Symbol,
		Threshold: key.ThresholdText(),
		Direction: key.Direction,
		Day:       now.Format(models.DayLayout),
		Time:      now.Format(models.TimeLayout),
		Price:     price,
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return apperrors.Database(err, "encode alert")
	}

	if err := l.client.SetNX(ctx, l.key(rec.Day, key), payload, l.ttl).Err(); err != nil {
		return apperrors.Database(err, "log alert")
	}
	return nil
}

// Records lists the alert records still held in Redis, newest first.
func (l *RedisLedger) Records(ctx context.Context, filter RecordFilter) ([]models.AlertRecord, error) {
	day, source, symbol := "*", "*", "*"
	if filter.Day != "" {
		day = filter.Day
	}
	if filter.Source != "" {
		source = filter.Source
	}
	if filter.Symbol != "" {
		symbol = models.NormalizeSymbol(filter.Symbol)
	}
	pattern := fmt.Sprintf("%s:alert:%s:%s:%s:*", l.prefix, day, source, symbol)

	var records []models.AlertRecord
	iter := l.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		raw, err := l.client.Get(ctx, iter.Val()).Bytes()
		if err == redis.Nil {
			continue // expired between SCAN and GET
		}
		if err != nil {
			return nil, apperrors.Database(err, "read alert")
		}

		var rec models.AlertRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, apperrors.Database(err, "decode alert")
		}
		records = append(records, rec)
	}
	if err := iter.Err(); err != nil {
		return nil, apperrors.Database(err, "scan alerts")
	}

	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Day != b.Day {
			return a.Day > b.Day
		}
		if a.Time != b.Time {
			return a.Time > b.Time
		}
		return strings.Compare(a.Symbol, b.Symbol) < 0
	})

	if filter.Limit > 0 && len(records) > filter.Limit {
		records = records[:filter.Limit]
	}
	return records, nil
}
