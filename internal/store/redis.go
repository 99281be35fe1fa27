package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iwvelando/vehicle-finance/internal/tracking"
	"github.com/iwvelando/vehicle-finance/pkg/constants"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// maxTxRetries bounds optimistic retries before an update gives up.
const maxTxRetries = 8

// RedisOptions configures a Redis-backed store.
type RedisOptions struct {
	Address   string
	Password  string
	DB        int
	KeyPrefix string
}

// Redis is a Store kept in Redis. Each obligation is one JSON string key,
// indexed by a per-user set; saved plans live in a per-user hash.
type Redis struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// ConnectRedis opens a client for opts and checks it with a PING.
func ConnectRedis(ctx context.Context, opts RedisOptions, logger *zap.Logger) (*Redis, error) {
	if opts.Address == "" {
		opts.Address = constants.DefaultRedisAddress
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Address,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Address, err)
	}
	return NewRedis(client, opts.KeyPrefix, logger), nil
}

// NewRedis wraps an existing client. An empty prefix uses the default.
func NewRedis(client *redis.Client, prefix string, logger *zap.Logger) *Redis {
	if prefix == "" {
		prefix = constants.DefaultRedisKeyPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redis{client: client, prefix: prefix, logger: logger}
}

func (r *Redis) loanKey(userID, loanID string) string {
	return fmt.Sprintf("%s:user:%s:loan:%s", r.prefix, userID, loanID)
}

func (r *Redis) indexKey(userID string) string {
	return fmt.Sprintf("%s:user:%s:loans", r.prefix, userID)
}

func (r *Redis) plansKey(userID string) string {
	return fmt.Sprintf("%s:user:%s:plans", r.prefix, userID)
}

// Portfolio implements Store.
func (r *Redis) Portfolio(ctx context.Context, userID string) (tracking.Portfolio, error) {
	ids, err := r.client.SMembers(ctx, r.indexKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list loans for %s: %w", userID, err)
	}
	portfolio := make(tracking.Portfolio, len(ids))
	if len(ids) == 0 {
		return portfolio, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.loanKey(userID, id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read loans for %s: %w", userID, err)
	}
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			r.logger.Warn("indexed loan is missing",
				zap.String("op", "store.Redis.Portfolio"),
				zap.String("user", userID),
				zap.String("loan", ids[i]),
			)
			continue
		}
		var loan tracking.ActiveLoan
		if err := json.Unmarshal([]byte(raw), &loan); err != nil {
			return nil, fmt.Errorf("failed to decode loan %s: %w", ids[i], err)
		}
		portfolio[loan.ID] = loan
	}
	return portfolio, nil
}

// InsertLoan implements Store.
func (r *Redis) InsertLoan(ctx context.Context, userID string, loan tracking.ActiveLoan) (bool, tracking.ActiveLoan, error) {
	key := r.loanKey(userID, loan.ID)
	payload, err := json.Marshal(loan)
	if err != nil {
		return false, tracking.ActiveLoan{}, fmt.Errorf("failed to encode loan %s: %w", loan.ID, err)
	}

	inserted := false
	var stored tracking.ActiveLoan
	txn := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			inserted = false
			return json.Unmarshal(raw, &stored)
		case !errors.Is(err, redis.Nil):
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			pipe.SAdd(ctx, r.indexKey(userID), loan.ID)
			return nil
		})
		if err == nil {
			inserted = true
			stored = loan
		}
		return err
	}

	if err := r.watch(ctx, "store.Redis.InsertLoan", txn, key); err != nil {
		return false, tracking.ActiveLoan{}, err
	}
	return inserted, stored, nil
}

// UpdateLoan implements Store.
func (r *Redis) UpdateLoan(ctx context.Context, userID, loanID string, update LoanUpdate) (tracking.ActiveLoan, error) {
	key := r.loanKey(userID, loanID)

	var updated tracking.ActiveLoan
	txn := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("loan %s: %w", loanID, ErrNotFound)
		}
		if err != nil {
			return err
		}

		var current tracking.ActiveLoan
		if err := json.Unmarshal(raw, &current); err != nil {
			return fmt.Errorf("failed to decode loan %s: %w", loanID, err)
		}
		next, err := update(current)
		if err != nil {
			return err
		}
		payload, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("failed to encode loan %s: %w", loanID, err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		if err == nil {
			updated = next
		}
		return err
	}

	if err := r.watch(ctx, "store.Redis.UpdateLoan", txn, key); err != nil {
		return tracking.ActiveLoan{}, err
	}
	return updated, nil
}

// watch runs txn under WATCH on keys, retrying when another client changed
// them between the read and the EXEC.
func (r *Redis) watch(ctx context.Context, op string, txn func(*redis.Tx) error, keys ...string) error {
	for attempt := 1; attempt <= maxTxRetries; attempt++ {
		err := r.client.Watch(ctx, txn, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
		r.logger.Debug("optimistic transaction lost a race, retrying",
			zap.String("op", op),
			zap.Strings("keys", keys),
			zap.Int("attempt", attempt),
		)
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	r.logger.Warn("optimistic transaction gave up",
		zap.String("op", op),
		zap.Strings("keys", keys),
		zap.Int("attempts", maxTxRetries),
	)
	return ErrConflict
}

// SavePlan implements Store.
func (r *Redis) SavePlan(ctx context.Context, userID string, saved SavedPlan) error {
	payload, err := json.Marshal(saved)
	if err != nil {
		return fmt.Errorf("failed to encode saved plan %s: %w", saved.ID, err)
	}
	if err := r.client.HSet(ctx, r.plansKey(userID), saved.ID, payload).Err(); err != nil {
		return fmt.Errorf("failed to save plan %s: %w", saved.ID, err)
	}
	return nil
}

// SavedPlans implements Store.
func (r *Redis) SavedPlans(ctx context.Context, userID string) ([]SavedPlan, error) {
	entries, err := r.client.HGetAll(ctx, r.plansKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list saved plans for %s: %w", userID, err)
	}
	plans := make([]SavedPlan, 0, len(entries))
	for id, raw := range entries {
		var saved SavedPlan
		if err := json.Unmarshal([]byte(raw), &saved); err != nil {
			return nil, fmt.Errorf("failed to decode saved plan %s: %w", id, err)
		}
		plans = append(plans, saved)
	}
	sortSavedPlans(plans)
	return plans, nil
}

// Close implements Store.
func (r *Redis) Close() error {
	return r.client.Close()
}
