package worker

import (
	"context"

	"go-gin-event-management/internal/metrics"
	"go-gin-event-management/internal/queue"
	"go-gin-event-management/internal/service"
	"go-gin-event-management/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultMaxAttempts = 5

type ActivityWorker interface {
	// 訂閱報名紀錄隊列並寫入資料庫，直到 ctx 結束或隊列關閉
	Run(ctx context.Context) error
}

type ActivityWorkerImpl struct {
	service     service.ActivityService
	queue       queue.ActivityQueue
	maxAttempts int
	attempts    map[uuid.UUID]int
}

// NewActivityWorker maxAttempts <= 0 時使用預設值
func NewActivityWorker(service service.ActivityService, queue queue.ActivityQueue, maxAttempts int) ActivityWorker {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	return &ActivityWorkerImpl{
		service:     service,
		queue:       queue,
		maxAttempts: maxAttempts,
		attempts:    make(map[uuid.UUID]int),
	}
}

func (w *ActivityWorkerImpl) Run(ctx context.Context) error {
	msgs, err := w.queue.Subscribe(ctx)
	if err != nil {
		return err
	}

	log := logger.WithComponent("worker")
	log.Info("activity worker started")
	defer log.Info("activity worker stopped")

	for msg := range msgs {
		w.handle(ctx, msg)
	}
	return nil
}

func (w *ActivityWorkerImpl) handle(ctx context.Context, msg queue.Delivery) {
	activity := msg.Data
	if activity == nil {
		msg.Nack(false)
		metrics.ActivitiesProcessedTotal.WithLabelValues("dropped").Inc()
		return
	}

	if err := w.service.Record(ctx, activity); err != nil {
		w.attempts[activity.ActivityID]++
		attempt := w.attempts[activity.ActivityID]
		log := logger.WithComponent("worker").With(
			zap.String("activity_id", activity.ActivityID.String()),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		// 寫入失敗（例如資料庫暫時連不上）先重新排入，超過次數才放棄
		if attempt >= w.maxAttempts {
			log.Error("giving up on activity")
			delete(w.attempts, activity.ActivityID)
			msg.Nack(false)
			metrics.ActivitiesProcessedTotal.WithLabelValues("dropped").Inc()
			return
		}
		log.Warn("record activity failed, requeueing")
		msg.Nack(true)
		metrics.ActivitiesProcessedTotal.WithLabelValues("retried").Inc()
		return
	}

	delete(w.attempts, activity.ActivityID)
	msg.Ack()
	metrics.ActivitiesProcessedTotal.WithLabelValues("recorded").Inc()
}
