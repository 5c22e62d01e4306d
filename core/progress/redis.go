package progress

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"cliptone/logger"
	"cliptone/model"

	"github.com/redis/go-redis/v9"
)

const redisOpTimeout = 5 * time.Second

// RedisStore keeps progress records in Redis, one hash per session. It lets
// several replicas behind a load balancer serve the status stream for a job
// running on any of them. Records expire on their own as a backstop; Clear
// still deletes them eagerly after terminal delivery.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(addr, password string, db int, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{client: client, ttl: ttl}, nil
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) key(sid string) string {
	return "cliptone:progress:" + sid
}

// terminal reports whether the stored record already reached a terminal
// status. Only the single job goroutine writes a given session, so the
// read-then-write here does not race with another writer.
func (s *RedisStore) terminal(ctx context.Context, sid string) bool {
	status, err := s.client.HGet(ctx, s.key(sid), "status").Result()
	if err != nil {
		return false
	}
	return model.Status(status).Terminal()
}

func (s *RedisStore) write(sid string, fields map[string]interface{}) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if s.terminal(ctx, sid) {
		return
	}

	pipe := s.client.Pipeline()
	pipe.HSet(ctx, s.key(sid), fields)
	pipe.Expire(ctx, s.key(sid), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Warn("failed to write progress record",
			logger.String("sid", sid),
			logger.ErrorField(err))
	}
}

func (s *RedisStore) Set(sid string, pct int, msg string) {
	s.write(sid, map[string]interface{}{
		"progress":  pct,
		"message":   msg,
		"status":    string(model.StatusProcessing),
		"timestamp": time.Now().Unix(),
	})
}

func (s *RedisStore) SetError(sid, msg string) {
	s.write(sid, map[string]interface{}{
		"status":    string(model.StatusError),
		"error":     msg,
		"timestamp": time.Now().Unix(),
	})
}

func (s *RedisStore) SetComplete(sid, msg string) {
	s.write(sid, map[string]interface{}{
		"progress":  100,
		"message":   msg,
		"status":    string(model.StatusComplete),
		"timestamp": time.Now().Unix(),
	})
}

func (s *RedisStore) Get(sid string) (model.Progress, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	fields, err := s.client.HGetAll(ctx, s.key(sid)).Result()
	if err != nil || len(fields) == 0 {
		return model.Progress{}, false
	}

	pct, _ := strconv.Atoi(fields["progress"])
	ts, _ := strconv.ParseInt(fields["timestamp"], 10, 64)
	return model.Progress{
		Progress:  pct,
		Message:   fields["message"],
		Status:    model.Status(fields["status"]),
		Error:     fields["error"],
		Timestamp: ts,
	}, true
}

func (s *RedisStore) Clear(sid string) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := s.client.Del(ctx, s.key(sid)).Err(); err != nil {
		logger.Warn("failed to clear progress record",
			logger.String("sid", sid),
			logger.ErrorField(err))
	}
}
