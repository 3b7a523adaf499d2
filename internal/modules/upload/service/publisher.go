package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"anoa.com/labeebacademy/internal/modules/upload/dto"
	"anoa.com/labeebacademy/pkg/apperror"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Publisher fans task snapshots out to other instances.
type Publisher interface {
	Publish(ctx context.Context, snap dto.Snapshot)
	Last(ctx context.Context, id uuid.UUID) (dto.Snapshot, error)
	Subscribe(ctx context.Context, id uuid.UUID) (<-chan dto.Snapshot, func(), error)
}

func NewPublisher(rdb *redis.Client, retention time.Duration) Publisher {
	if rdb == nil {
		return noopPublisher{}
	}
	return &redisPublisher{rdb: rdb, retention: retention}
}

func ProgressChannel(id uuid.UUID) string {
	return fmt.Sprintf("upload_progress:%s", id.String())
}

func snapshotKey(id uuid.UUID) string {
	return fmt.Sprintf("upload_task:%s", id.String())
}

type redisPublisher struct {
	rdb       *redis.Client
	retention time.Duration
}

func (p *redisPublisher) Publish(ctx context.Context, snap dto.Snapshot) {
	payload, err := json.Marshal(snap)
	if err != nil {
		log.Printf("[upload] failed to encode snapshot of task %s: %v", snap.ID, err)
		return
	}

	ttl := p.retention
	if !snap.Terminal() || ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if err := p.rdb.Set(ctx, snapshotKey(snap.ID), payload, ttl).Err(); err != nil {
		log.Printf("[upload] failed to store snapshot of task %s: %v", snap.ID, err)
	}
	if err := p.rdb.Publish(ctx, ProgressChannel(snap.ID), payload).Err(); err != nil {
		log.Printf("[upload] failed to publish progress of task %s: %v", snap.ID, err)
	}
}

func (p *redisPublisher) Last(ctx context.Context, id uuid.UUID) (dto.Snapshot, error) {
	raw, err := p.rdb.Get(ctx, snapshotKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return dto.Snapshot{}, fmt.Errorf("%w: upload task not found", apperror.ErrNotFound)
		}
		return dto.Snapshot{}, err
	}

	var snap dto.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return dto.Snapshot{}, err
	}
	return snap, nil
}

func (p *redisPublisher) Subscribe(ctx context.Context, id uuid.UUID) (<-chan dto.Snapshot, func(), error) {
	pubsub := p.rdb.Subscribe(ctx, ProgressChannel(id))

	// Wait for confirmation that subscription is created
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, nil, fmt.Errorf("failed to subscribe to redis channel: %w", err)
	}

	out := make(chan dto.Snapshot, 1)
	done := make(chan struct{})
	go func() {
		defer close(out)
		ch := pubsub.Channel()
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var snap dto.Snapshot
				if err := json.Unmarshal([]byte(msg.Payload), &snap); err != nil {
					continue
				}
				select {
				case out <- snap:
				case <-done:
					return
				}
				if snap.Terminal() {
					return
				}
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			pubsub.Close()
		})
	}
	return out, cancel, nil
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, dto.Snapshot) {}

func (noopPublisher) Last(context.Context, uuid.UUID) (dto.Snapshot, error) {
	return dto.Snapshot{}, fmt.Errorf("%w: upload task not found", apperror.ErrNotFound)
}

func (noopPublisher) Subscribe(context.Context, uuid.UUID) (<-chan dto.Snapshot, func(), error) {
	return nil, nil, fmt.Errorf("%w: upload task not found", apperror.ErrNotFound)
}
