// Package notify 发出通知事件，渲染与投递由外部通知服务完成
package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"yqpoint-system/config"
	"yqpoint-system/internal/model"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type Title string

const (
	TitleTransferConfirm  Title = "TRANSFER_CONFIRM"
	TitleActivityInform   Title = "ACTIVITY_INFORM"
	TitleVerifyInform     Title = "VERIFY_INFORM"
	TitlePositionInform   Title = "POSITION_INFORM"
	TitleTransferFeedback Title = "TRANSFER_FEEDBACK"
)

type Type string

const (
	NeedRead Type = "NEED_READ"
	NeedDo   Type = "NEED_DO"
)

type Event struct {
	Receiver    model.Ref `json:"receiver"`
	Sender      model.Ref `json:"sender"`
	Title       Title     `json:"title"`
	Content     string    `json:"content"`
	Type        Type      `json:"type"`
	RelatedType string    `json:"related_type"` // 关联实体表名
	RelatedID   uint      `json:"related_id"`
	BulkID      string    `json:"bulk_id,omitempty"` // 同一次操作群发的事件共享
}

type Notifier interface {
	Notify(ctx context.Context, events ...Event) error
}

// NewBulkID 群发事件的批次号
func NewBulkID() string {
	return uuid.NewString()
}

// Emit 提交成功后调用，投递失败只记日志，不影响已提交的业务
func Emit(ctx context.Context, n Notifier, log *slog.Logger, events ...Event) {
	if n == nil || len(events) == 0 {
		return
	}
	if err := n.Notify(ctx, events...); err != nil {
		log.Error("failed to emit notification", "error", err, "title", events[0].Title, "count", len(events), "events", events)
	}
}

type nop struct{}

func (nop) Notify(context.Context, ...Event) error { return nil }

// Nop 丢弃所有事件
var Nop Notifier = nop{}

// Multi 依次投递给每个 Notifier，汇总全部错误
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, events ...Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, events...); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recorder 把事件保存在内存中
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Notify(_ context.Context, events ...Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
	return nil
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// ByTitle 指定标题的事件
func (r *Recorder) ByTitle(title Title) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Title == title {
			out = append(out, e)
		}
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

var Default Notifier = Nop

// Init 按配置组合 Redis 频道与 webhook 两种投递方式
func Init(client *redis.Client, http *resty.Client) {
	cfg := config.Get().Notify
	var targets Multi
	if client != nil && cfg.Channel != "" {
		targets = append(targets, NewRedisNotifier(client, cfg.Channel))
	}
	if http != nil && cfg.WebhookURL != "" {
		targets = append(targets, NewWebhookNotifier(http, cfg.WebhookURL))
	}
	switch len(targets) {
	case 0:
		Default = Nop
	case 1:
		Default = targets[0]
	default:
		Default = targets
	}
}
