package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	notificationKeyPrefix = "notification:"
)

// Store は通知の配信記録を Redis に保存します。
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStore は Store を作成します。
func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{
		rdb: rdb,
		ttl: ttl,
	}
}

// Get は配信記録を取得します。存在しない場合は nil を返します。
func (s *Store) Get(ctx context.Context, notificationID string) (*Record, error) {
	if notificationID == "" {
		return nil, fmt.Errorf("notificationID is required")
	}
	data, err := s.rdb.Get(ctx, notificationKey(notificationID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// Upsert は配信記録を保存します（存在しない場合は作成）。
func (s *Store) Upsert(ctx context.Context, record *Record) error {
	if record == nil {
		return fmt.Errorf("record is nil")
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	if record.ExpiresAt.IsZero() && s.ttl > 0 {
		record.ExpiresAt = record.CreatedAt.Add(s.ttl)
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, notificationKey(record.NotificationID), payload, s.ttl).Err()
}

// MarkSent は配信完了を記録します。
func (s *Store) MarkSent(ctx context.Context, notificationID string) error {
	return s.updatePartial(ctx, notificationID, func(record *Record) {
		record.Status = StatusSent
		record.Error = ""
	})
}

// MarkFailed は配信失敗を記録します。
func (s *Store) MarkFailed(ctx context.Context, notificationID string, message string) error {
	return s.updatePartial(ctx, notificationID, func(record *Record) {
		record.Status = StatusFailed
		record.Error = message
	})
}

// updatePartial は WATCH による CAS で記録を読み書きします。
// 競合する更新があった場合は読み直して再試行します。
func (s *Store) updatePartial(ctx context.Context, notificationID string, mutate func(*Record)) error {
	key := notificationKey(notificationID)

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if err == redis.Nil {
				return fmt.Errorf("notification not found: %s", notificationID)
			}
			return err
		}
		var record Record
		if err := json.Unmarshal(data, &record); err != nil {
			return err
		}
		mutate(&record)
		record.UpdatedAt = time.Now().UTC()
		payload, err := json.Marshal(&record)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, s.ttl)
			return nil
		})
		return err
	}

	for {
		err := s.rdb.Watch(ctx, txf, key)
		if err == redis.TxFailedErr {
			continue
		}
		return err
	}
}

func notificationKey(id string) string {
	return notificationKeyPrefix + id
}
