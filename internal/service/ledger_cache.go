package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/escola-ledger-api/internal/dto"
)

// LedgerCache stores reconciliation results per (student, academic year).
// Implementations must never fail the caller: misses and backend errors look
// the same.
//
// Every invalidation bumps the student's generation. A result computed from
// reads taken under an older generation is never stored.
type LedgerCache interface {
	GetTuition(ctx context.Context, studentID, academicYearID uint) (dto.TuitionLedgerResult, bool)
	Generation(ctx context.Context, studentID uint) int64
	SetTuition(ctx context.Context, result dto.TuitionLedgerResult, generation int64)
	InvalidateStudent(ctx context.Context, studentID uint)
}

// unknownGeneration never matches a stored generation.
const unknownGeneration int64 = -1

var errStaleGeneration = errors.New("tuition cache generation moved")

type redisLedgerCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewLedgerCache returns a redis backed cache, or a no-op cache when client is nil.
func NewLedgerCache(client *redis.Client, ttl time.Duration, logger zerolog.Logger) LedgerCache {
	if client == nil {
		return noopLedgerCache{}
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &redisLedgerCache{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "ledger_cache").Logger(),
	}
}

func tuitionCacheKey(studentID, academicYearID uint) string {
	return fmt.Sprintf("ledger:tuition:%d:%d", studentID, academicYearID)
}

func generationCacheKey(studentID uint) string {
	return fmt.Sprintf("ledger:generation:%d", studentID)
}

func (c *redisLedgerCache) GetTuition(ctx context.Context, studentID, academicYearID uint) (dto.TuitionLedgerResult, bool) {
	cached, err := c.client.Get(ctx, tuitionCacheKey(studentID, academicYearID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Msg("failed to read tuition cache")
		}
		return dto.TuitionLedgerResult{}, false
	}

	var result dto.TuitionLedgerResult
	if err := json.Unmarshal([]byte(cached), &result); err != nil {
		c.logger.Warn().Err(err).Msg("discarding undecodable tuition cache entry")
		return dto.TuitionLedgerResult{}, false
	}
	c.logger.Debug().Uint("student_id", studentID).Uint("academic_year_id", academicYearID).Msg("tuition cache hit")
	return result, true
}

func (c *redisLedgerCache) Generation(ctx context.Context, studentID uint) int64 {
	generation, err := c.client.Get(ctx, generationCacheKey(studentID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		c.logger.Warn().Err(err).Uint("student_id", studentID).Msg("failed to read tuition cache generation")
		return unknownGeneration
	}
	return generation
}

// SetTuition stores the result only while the student's generation still
// equals generation. WATCH aborts the write when an invalidation lands between
// the check and EXEC.
func (c *redisLedgerCache) SetTuition(ctx context.Context, result dto.TuitionLedgerResult, generation int64) {
	if generation == unknownGeneration {
		return
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return
	}
	key := tuitionCacheKey(result.StudentID, result.AcademicYear.ID)
	genKey := generationCacheKey(result.StudentID)

	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != generation {
			return errStaleGeneration
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, c.ttl)
			return nil
		})
		return err
	}, genKey)

	switch {
	case err == nil:
	case errors.Is(err, errStaleGeneration), errors.Is(err, redis.TxFailedErr):
		c.logger.Debug().Uint("student_id", result.StudentID).Msg("skipping stale tuition cache entry")
	default:
		c.logger.Warn().Err(err).Msg("failed to store tuition cache")
	}
}

func (c *redisLedgerCache) InvalidateStudent(ctx context.Context, studentID uint) {
	if err := c.client.Incr(ctx, generationCacheKey(studentID)).Err(); err != nil {
		c.logger.Warn().Err(err).Uint("student_id", studentID).Msg("failed to bump tuition cache generation")
	}

	pattern := fmt.Sprintf("ledger:tuition:%d:*", studentID)
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn().Err(err).Uint("student_id", studentID).Msg("failed to scan tuition cache")
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn().Err(err).Uint("student_id", studentID).Msg("failed to invalidate tuition cache")
	}
}

type noopLedgerCache struct{}

func (noopLedgerCache) GetTuition(context.Context, uint, uint) (dto.TuitionLedgerResult, bool) {
	return dto.TuitionLedgerResult{}, false
}

func (noopLedgerCache) Generation(context.Context, uint) int64 { return unknownGeneration }

func (noopLedgerCache) SetTuition(context.Context, dto.TuitionLedgerResult, int64) {}

func (noopLedgerCache) InvalidateStudent(context.Context, uint) {}
