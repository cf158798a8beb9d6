package queue_test

import (
	"context"
	"testing"
	"time"

	"go-gin-event-management/internal/model"
	"go-gin-event-management/internal/queue"
	"go-gin-event-management/internal/testutil"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisStreamActivityQueue(t *testing.T) {
	rdb := testutil.SetupRedis(t)
	ctx := context.Background()

	q, err := queue.NewRedisStreamActivityQueue(ctx, rdb, "test-consumer", nil)
	require.NoError(t, err)
	require.NotNil(t, q)

	// 重複建立 consumer group 不應失敗
	q, err = queue.NewRedisStreamActivityQueue(ctx, rdb, "", nil)
	require.NoError(t, err)
	require.NotNil(t, q)
}

// 驗證「發出去的內容」與「收進來的內容」一致
func TestRedisStreamActivityQueue_Subscribe_deliversPublishedMessage(t *testing.T) {
	rdb := testutil.SetupRedis(t)
	ctx := context.Background()

	q, err := queue.NewRedisStreamActivityQueue(ctx, rdb, "deliver-test", nil)
	require.NoError(t, err)

	activity := newTestActivity(model.ActivityRegistered)
	require.NoError(t, q.Publish(ctx, activity))

	subCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	delCh, err := q.Subscribe(subCtx)
	require.NoError(t, err)

	select {
	case d, ok := <-delCh:
		require.True(t, ok, "應收到一筆")
		require.NotNil(t, d.Data)
		assert.Equal(t, activity.ActivityID, d.Data.ActivityID)
		assert.Equal(t, activity.EventID, d.Data.EventID)
		assert.Equal(t, activity.UserID, d.Data.UserID)
		assert.Equal(t, activity.Action, d.Data.Action)
		assert.True(t, activity.OccurredAt.Equal(d.Data.OccurredAt))
		d.Ack()
	case <-subCtx.Done():
		t.Fatal("timeout 未收到訊息")
	}
}

// Nack(true) 後應在 ClaimMinIdleTime 後由 XAUTOCLAIM 再次投遞
func TestRedisStreamActivityQueue_NackRequeue_redeliversAfterIdle(t *testing.T) {
	rdb := testutil.SetupRedis(t)
	ctx := context.Background()

	cfg := &queue.RedisStreamActivityQueueConfig{
		ClaimMinIdleTime:   200 * time.Millisecond,
		ReadGroupBlockTime: 500 * time.Millisecond,
	}
	q, err := queue.NewRedisStreamActivityQueue(ctx, rdb, "nack-requeue-test", cfg)
	require.NoError(t, err)

	activity := newTestActivity(model.ActivityCancelled)
	require.NoError(t, q.Publish(ctx, activity))

	subCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	delCh, err := q.Subscribe(subCtx)
	require.NoError(t, err)

	select {
	case d, ok := <-delCh:
		require.True(t, ok)
		d.Nack(true)
	case <-subCtx.Done():
		t.Fatal("timeout 未收到第一筆")
	}

	select {
	case d, ok := <-delCh:
		require.True(t, ok, "Nack(requeue) 後應再次投遞")
		assert.Equal(t, activity.ActivityID, d.Data.ActivityID, "重試應為同一筆")
		d.Ack()
	case <-subCtx.Done():
		t.Fatal("timeout 未收到重試投遞")
	}
}

// Nack(false) 丟棄後不應再投遞
func TestRedisStreamActivityQueue_NackDiscard_preventsRedelivery(t *testing.T) {
	rdb := testutil.SetupRedis(t)
	ctx := context.Background()

	cfg := &queue.RedisStreamActivityQueueConfig{
		ClaimMinIdleTime:   200 * time.Millisecond,
		ReadGroupBlockTime: 200 * time.Millisecond,
	}
	q, err := queue.NewRedisStreamActivityQueue(ctx, rdb, "nack-discard-test", cfg)
	require.NoError(t, err)

	activity := newTestActivity(model.ActivityRegistered)
	require.NoError(t, q.Publish(ctx, activity))

	subCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	delCh, err := q.Subscribe(subCtx)
	require.NoError(t, err)

	select {
	case d := <-delCh:
		d.Nack(false)
	case <-subCtx.Done():
		t.Fatal("timeout 未收到第一筆")
	}

	select {
	case d, ok := <-delCh:
		if ok && d.Data != nil && d.Data.ActivityID == activity.ActivityID {
			t.Fatalf("Nack(false) 後不應再投遞同一筆: %s", d.Data.ActivityID)
		}
	case <-time.After(time.Second):
	}
}

// 超過 MaxRetryCount 的毒藥消息應被丟棄
func TestRedisStreamActivityQueue_poisonMessage_discardedAfterMaxRetries(t *testing.T) {
	rdb := testutil.SetupRedis(t)
	ctx := context.Background()

	cfg := &queue.RedisStreamActivityQueueConfig{
		ClaimMinIdleTime:   200 * time.Millisecond,
		MaxRetryCount:      3,
		ReadGroupBlockTime: 200 * time.Millisecond,
	}
	q, err := queue.NewRedisStreamActivityQueue(ctx, rdb, "poison-test", cfg)
	require.NoError(t, err)

	activity := newTestActivity(model.ActivityRegistered)
	require.NoError(t, q.Publish(ctx, activity))

	subCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	delCh, err := q.Subscribe(subCtx)
	require.NoError(t, err)

	received := 0
loop:
	for {
		select {
		case d, ok := <-delCh:
			require.True(t, ok, "channel 提早關閉")
			received++
			d.Nack(true)
		case <-time.After(time.Second):
			break loop
		case <-subCtx.Done():
			t.Fatalf("test context timeout，只收到 %d 次", received)
		}
	}

	assert.GreaterOrEqual(t, received, 1)
	assert.LessOrEqual(t, received, cfg.MaxRetryCount)
}

// 欄位不完整的 entry 直接 ack 丟棄，不影響後面的正常訊息
func TestRedisStreamActivityQueue_malformedEntry_discarded(t *testing.T) {
	rdb := testutil.SetupRedis(t)
	ctx := context.Background()

	q, err := queue.NewRedisStreamActivityQueue(ctx, rdb, "malformed-test", nil)
	require.NoError(t, err)

	require.NoError(t, rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: queue.StreamKey,
		Values: map[string]interface{}{"activity_id": "broken"},
	}).Err())
	activity := newTestActivity(model.ActivityRegistered)
	require.NoError(t, q.Publish(ctx, activity))

	subCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	delCh, err := q.Subscribe(subCtx)
	require.NoError(t, err)

	select {
	case d, ok := <-delCh:
		require.True(t, ok)
		assert.Equal(t, activity.ActivityID, d.Data.ActivityID, "壞掉的 entry 不應被投遞")
		d.Ack()
	case <-subCtx.Done():
		t.Fatal("timeout 未收到正常訊息")
	}

	pending, err := rdb.XPending(ctx, queue.StreamKey, queue.ConsumerGroupName).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), pending.Count)
}

func TestRedisStreamActivityQueue_Subscribe_ctxCancel_closesChannel(t *testing.T) {
	rdb := testutil.SetupRedis(t)

	q, err := queue.NewRedisStreamActivityQueue(context.Background(), rdb, "cancel-test", nil)
	require.NoError(t, err)

	subCtx, cancel := context.WithCancel(context.Background())
	delCh, err := q.Subscribe(subCtx)
	require.NoError(t, err)

	cancel()
	select {
	case _, ok := <-delCh:
		assert.False(t, ok, "context 取消後 channel 應關閉")
	case <-time.After(5 * time.Second):
		t.Fatal("channel 未在時限內關閉")
	}
}
