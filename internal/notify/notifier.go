// Package notify 状态变更后的通知出口：只告知、不咨询，失败不影响主流程。
package notify

import (
	"context"
	"time"

	"github.com/FreightLink/FreightLink/internal/common/logger"
	"github.com/FreightLink/FreightLink/internal/common/middleware"
)

// Event 一次状态变更事件。
type Event struct {
	Topic    string // 如 booking.confirmed / payment.released
	EntityID string
	Detail   map[string]interface{}
}

// Notifier 通知出口。实现必须是 fire-and-forget：调用方不等待、不重试。
type Notifier interface {
	Publish(ctx context.Context, e Event)
}

// LogNotifier 把事件写入结构化日志的通知实现，出口挂在熔断器后面，
// 下游（日志管道/消息网关）抖动时快速放弃而不是拖住业务调用。
type LogNotifier struct {
	log logger.Logger
	cb  *middleware.CircuitBreaker
}

func NewLogNotifier(log logger.Logger) *LogNotifier {
	return &LogNotifier{
		log: log,
		cb:  middleware.NewCircuitBreaker("notify", 5, 30*time.Second),
	}
}

func (n *LogNotifier) Publish(ctx context.Context, e Event) {
	if n == nil || n.log == nil {
		return
	}
	go func() {
		_ = n.cb.Call(ctx, func() error {
			fields := map[string]interface{}{
				"topic":     e.Topic,
				"entity_id": e.EntityID,
			}
			for k, v := range e.Detail {
				fields[k] = v
			}
			n.log.WithFields(fields).Info("event published")
			return nil
		})
	}()
}

// Nop 空实现，省去调用侧的 nil 判断。
type Nop struct{}

func (Nop) Publish(context.Context, Event) {}
