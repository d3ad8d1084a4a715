package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// CodeRecord is what the cash-on-delivery gateway remembers about a transaction.
// Only the bcrypt hash of the delivery code is ever stored.
type CodeRecord struct {
	Hash        string
	Amount      decimal.Decimal
	Currency    string
	ConfirmedAt *time.Time
}

// CodeStore persists delivery-code records between initialization and delivery.
type CodeStore interface {
	Save(ctx context.Context, transactionID string, rec CodeRecord, ttl time.Duration) error
	Get(ctx context.Context, transactionID string) (*CodeRecord, error)
	// MarkConfirmed records the confirmation time once; it reports false when
	// the transaction was already confirmed.
	MarkConfirmed(ctx context.Context, transactionID string, at time.Time) (bool, error)
}

type redisCodeStore struct {
	rdb    redis.Cmdable
	prefix string
}

// NewRedisCodeStore keeps one hash per transaction under "payment:cod:<id>".
func NewRedisCodeStore(rdb redis.Cmdable) CodeStore {
	return &redisCodeStore{rdb: rdb, prefix: "payment:cod:"}
}

func (s *redisCodeStore) key(txID string) string { return s.prefix + txID }

func (s *redisCodeStore) Save(ctx context.Context, txID string, rec CodeRecord, ttl time.Duration) error {
	key := s.key(txID)
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, map[string]any{
			"hash":     rec.Hash,
			"amount":   rec.Amount.String(),
			"currency": rec.Currency,
		})
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save delivery code: %w", err)
	}
	return nil
}

func (s *redisCodeStore) Get(ctx context.Context, txID string) (*CodeRecord, error) {
	fields, err := s.rdb.HGetAll(ctx, s.key(txID)).Result()
	if err != nil {
		return nil, fmt.Errorf("load delivery code: %w", err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTransaction, txID)
	}
	rec := &CodeRecord{Hash: fields["hash"], Currency: fields["currency"]}
	if rec.Amount, err = decimal.NewFromString(fields["amount"]); err != nil {
		return nil, fmt.Errorf("load delivery code: amount: %w", err)
	}
	if raw, ok := fields["confirmed_at"]; ok {
		at, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("load delivery code: confirmed_at: %w", err)
		}
		rec.ConfirmedAt = &at
	}
	return rec, nil
}

func (s *redisCodeStore) MarkConfirmed(ctx context.Context, txID string, at time.Time) (bool, error) {
	key := s.key(txID)
	var set *redis.BoolCmd
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		set = pipe.HSetNX(ctx, key, "confirmed_at", at.UTC().Format(time.RFC3339Nano))
		// Confirmed records outlive the code TTL.
		pipe.Persist(ctx, key)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, fmt.Errorf("confirm delivery code: %w", err)
	}
	return set.Val(), nil
}
