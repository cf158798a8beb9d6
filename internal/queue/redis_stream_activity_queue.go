package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go-gin-event-management/internal/model"
	"go-gin-event-management/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	StreamKey          = "registration-activities:stream"
	ConsumerGroupName  = "activity-workers"
	ConsumerNamePrefix = "worker"

	fieldActivityID = "activity_id"
	fieldEventID    = "event_id"
	fieldUserID     = "user_id"
	fieldAction     = "action"
	fieldOccurredAt = "occurred_at"

	batchSize        = 10
	pendingScanLimit = 100
)

var ErrMalformedActivity = errors.New("malformed activity message")

// RedisStreamActivityQueueConfig 零值欄位使用預設
type RedisStreamActivityQueueConfig struct {
	ClaimMinIdleTime   time.Duration // 留在 PEL 超過此時間才會被 XAUTOCLAIM 領回重試
	MaxRetryCount      int           // 投遞次數超過上限即 ack 丟棄
	ReadGroupBlockTime time.Duration
	StreamMaxLen       int64 // XADD MAXLEN ~，稽核紀錄已落地到資料庫，stream 只需保留近期資料
}

func (c *RedisStreamActivityQueueConfig) withDefaults() RedisStreamActivityQueueConfig {
	cfg := RedisStreamActivityQueueConfig{
		ClaimMinIdleTime:   5 * time.Second,
		MaxRetryCount:      5,
		ReadGroupBlockTime: 2 * time.Second,
		StreamMaxLen:       100_000,
	}
	if c == nil {
		return cfg
	}
	if c.ClaimMinIdleTime > 0 {
		cfg.ClaimMinIdleTime = c.ClaimMinIdleTime
	}
	if c.MaxRetryCount > 0 {
		cfg.MaxRetryCount = c.MaxRetryCount
	}
	if c.ReadGroupBlockTime > 0 {
		cfg.ReadGroupBlockTime = c.ReadGroupBlockTime
	}
	if c.StreamMaxLen > 0 {
		cfg.StreamMaxLen = c.StreamMaxLen
	}
	return cfg
}

// RedisStreamActivityQueueImpl 以 consumer group 消費報名紀錄；
// 每筆紀錄拆成獨立欄位寫入 stream，redis-cli 可直接查看
type RedisStreamActivityQueueImpl struct {
	client   *redis.Client
	stream   string
	group    string
	consumer string
	cfg      RedisStreamActivityQueueConfig
	log      *zap.Logger
}

func NewRedisStreamActivityQueue(ctx context.Context, client *redis.Client, consumerID string, config *RedisStreamActivityQueueConfig) (ActivityQueue, error) {
	if consumerID == "" {
		consumerID = uuid.NewString()
	}
	q := &RedisStreamActivityQueueImpl{
		client:   client,
		stream:   StreamKey,
		group:    ConsumerGroupName,
		consumer: ConsumerNamePrefix + ":" + consumerID,
		cfg:      config.withDefaults(),
		log:      logger.WithComponent("mq"),
	}

	err := client.XGroupCreateMkStream(ctx, q.stream, q.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return nil, fmt.Errorf("ensure consumer group: %w", err)
	}
	return q, nil
}

// encodeActivity / decodeActivity 對應 stream entry 的欄位
func encodeActivity(a *model.RegistrationActivity) map[string]interface{} {
	return map[string]interface{}{
		fieldActivityID: a.ActivityID.String(),
		fieldEventID:    a.EventID.String(),
		fieldUserID:     a.UserID.String(),
		fieldAction:     string(a.Action),
		fieldOccurredAt: a.OccurredAt.UTC().Format(time.RFC3339Nano),
	}
}

func decodeActivity(values map[string]interface{}) (*model.RegistrationActivity, error) {
	field := func(name string) (string, error) {
		v, ok := values[name].(string)
		if !ok || v == "" {
			return "", fmt.Errorf("%w: missing %s", ErrMalformedActivity, name)
		}
		return v, nil
	}
	id := func(name string) (uuid.UUID, error) {
		v, err := field(name)
		if err != nil {
			return uuid.Nil, err
		}
		parsed, err := uuid.Parse(v)
		if err != nil {
			return uuid.Nil, fmt.Errorf("%w: %s: %v", ErrMalformedActivity, name, err)
		}
		return parsed, nil
	}

	var (
		a   model.RegistrationActivity
		err error
	)
	if a.ActivityID, err = id(fieldActivityID); err != nil {
		return nil, err
	}
	if a.EventID, err = id(fieldEventID); err != nil {
		return nil, err
	}
	if a.UserID, err = id(fieldUserID); err != nil {
		return nil, err
	}

	action, err := field(fieldAction)
	if err != nil {
		return nil, err
	}
	a.Action = model.ActivityAction(action)
	if a.Action != model.ActivityRegistered && a.Action != model.ActivityCancelled {
		return nil, fmt.Errorf("%w: unknown action %q", ErrMalformedActivity, action)
	}

	occurred, err := field(fieldOccurredAt)
	if err != nil {
		return nil, err
	}
	if a.OccurredAt, err = time.Parse(time.RFC3339Nano, occurred); err != nil {
		return nil, fmt.Errorf("%w: occurred_at: %v", ErrMalformedActivity, err)
	}
	return &a, nil
}

func (q *RedisStreamActivityQueueImpl) Publish(ctx context.Context, activity *model.RegistrationActivity) error {
	err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		MaxLen: q.cfg.StreamMaxLen,
		Approx: true,
		Values: encodeActivity(activity),
	}).Err()
	if err != nil {
		return fmt.Errorf("publish activity %s: %w", activity.ActivityID, err)
	}
	return nil
}

// Subscribe 新訊息由 XREADGROUP 讀取；被 Nack(true) 或 consumer 掛掉而卡在 PEL 的訊息
// 由 XAUTOCLAIM 定期領回。兩個來源都結束後才關閉 channel
func (q *RedisStreamActivityQueueImpl) Subscribe(ctx context.Context) (<-chan Delivery, error) {
	out := make(chan Delivery)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for ctx.Err() == nil {
			msgs, err := q.readNew(ctx)
			if err != nil {
				q.log.Error("read activities failed", zap.Error(err))
				sleepCtx(ctx, time.Second)
				continue
			}
			if !q.deliver(ctx, out, msgs, nil) {
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(q.cfg.ClaimMinIdleTime)
		defer ticker.Stop()

		cursor := "0-0"
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			msgs, next, err := q.claimIdle(ctx, cursor)
			if err != nil {
				q.log.Error("claim idle activities failed", zap.Error(err))
				continue
			}
			cursor = next
			if !q.deliver(ctx, out, msgs, q.retryCounts(ctx, msgs)) {
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(out)
	}()

	return out, nil
}

func (q *RedisStreamActivityQueueImpl) readNew(ctx context.Context) ([]redis.XMessage, error) {
	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.group,
		Consumer: q.consumer,
		Streams:  []string{q.stream, ">"},
		Count:    batchSize,
		Block:    q.cfg.ReadGroupBlockTime,
	}).Result()
	if errors.Is(err, redis.Nil) || ctx.Err() != nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var msgs []redis.XMessage
	for _, s := range streams {
		if s.Stream == q.stream {
			msgs = append(msgs, s.Messages...)
		}
	}
	return msgs, nil
}

// claimIdle 回傳領回的訊息與下一輪的游標；掃完一輪後游標回到 0-0
func (q *RedisStreamActivityQueueImpl) claimIdle(ctx context.Context, cursor string) ([]redis.XMessage, string, error) {
	msgs, next, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   q.stream,
		Group:    q.group,
		Consumer: q.consumer,
		MinIdle:  q.cfg.ClaimMinIdleTime,
		Start:    cursor,
		Count:    batchSize,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, "0-0", nil
	}
	if err != nil {
		return nil, cursor, err
	}
	if next == "" {
		next = "0-0"
	}
	return msgs, next, nil
}

// retryCounts 以一次 XPENDING 查出這批訊息的投遞次數
func (q *RedisStreamActivityQueueImpl) retryCounts(ctx context.Context, msgs []redis.XMessage) map[string]int64 {
	if len(msgs) == 0 {
		return nil
	}
	pending, err := q.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream:   q.stream,
		Group:    q.group,
		Start:    msgs[0].ID,
		End:      msgs[len(msgs)-1].ID,
		Count:    pendingScanLimit,
		Consumer: q.consumer,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		// 查不到次數時照常投遞，worker 端仍有自己的重試上限
		q.log.Warn("xpending failed", zap.Error(err))
		return nil
	}

	counts := make(map[string]int64, len(pending))
	for _, p := range pending {
		counts[p.ID] = p.RetryCount
	}
	return counts
}

// deliver 把訊息轉成 Delivery 送出；ctx 結束時回傳 false
func (q *RedisStreamActivityQueueImpl) deliver(ctx context.Context, out chan<- Delivery, msgs []redis.XMessage, retries map[string]int64) bool {
	for _, msg := range msgs {
		if n := retries[msg.ID]; n > int64(q.cfg.MaxRetryCount) {
			q.log.Warn("discard activity after max retries",
				zap.String("message_id", msg.ID),
				zap.Int64("deliveries", n),
				zap.Int("max_retries", q.cfg.MaxRetryCount))
			q.ack(ctx, msg.ID)
			continue
		}

		activity, err := decodeActivity(msg.Values)
		if err != nil {
			q.log.Warn("discard malformed activity", zap.String("message_id", msg.ID), zap.Error(err))
			q.ack(ctx, msg.ID)
			continue
		}

		select {
		case out <- q.delivery(ctx, msg.ID, activity):
		case <-ctx.Done():
			return false
		}
	}
	return true
}

func (q *RedisStreamActivityQueueImpl) delivery(ctx context.Context, id string, activity *model.RegistrationActivity) Delivery {
	return Delivery{
		Data: activity,
		Ack:  func() { q.ack(ctx, id) },
		Nack: func(requeue bool) {
			if requeue {
				// 留在 PEL，ClaimMinIdleTime 後由 XAUTOCLAIM 再投遞
				q.log.Info("activity requeued",
					zap.String("message_id", id),
					zap.String("activity_id", activity.ActivityID.String()))
				return
			}
			q.ack(ctx, id)
		},
	}
}

func (q *RedisStreamActivityQueueImpl) ack(ctx context.Context, id string) {
	if err := q.client.XAck(context.WithoutCancel(ctx), q.stream, q.group, id).Err(); err != nil {
		q.log.Error("xack failed", zap.String("message_id", id), zap.Error(err))
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
