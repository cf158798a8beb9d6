package queue

import (
	"context"
	"errors"

	"go-gin-event-management/internal/model"
	"go-gin-event-management/pkg/logger"

	"go.uber.org/zap"
)

var ErrQueueFull = errors.New("activity queue is full")

type Delivery struct {
	Data *model.RegistrationActivity
	Ack  func()
	Nack func(requeue bool)
}

type ActivityQueue interface {
	// 發送報名紀錄到隊列
	Publish(ctx context.Context, activity *model.RegistrationActivity) error
	// 訂閱報名紀錄隊列
	Subscribe(ctx context.Context) (<-chan Delivery, error)
}

type MemoryActivityQueueImpl struct {
	// 使用 Go channel 來模擬 MQ 隊列
	ch chan *model.RegistrationActivity
}

func NewMemoryActivityQueue(bufferSize int) ActivityQueue {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &MemoryActivityQueueImpl{
		ch: make(chan *model.RegistrationActivity, bufferSize),
	}
}

// Publish 不阻塞 request：buffer 滿時回傳 ErrQueueFull
func (q *MemoryActivityQueueImpl) Publish(ctx context.Context, activity *model.RegistrationActivity) error {
	select {
	case q.ch <- activity:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

func (q *MemoryActivityQueueImpl) Subscribe(ctx context.Context) (<-chan Delivery, error) {
	out := make(chan Delivery)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case activity := <-q.ch:
				d := Delivery{
					Data: activity,
					Ack:  func() {},
					Nack: func(requeue bool) {
						if !requeue {
							return
						}
						select {
						case q.ch <- activity:
						default:
							logger.WithComponent("mq").Warn("requeue dropped, buffer full",
								zap.String("activity_id", activity.ActivityID.String()))
						}
					},
				}

				select {
				case out <- d:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
