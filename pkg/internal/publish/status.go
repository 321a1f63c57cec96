// Package publish 实现帖子发布状态机：封闭的状态集合、唯一的迁移函数、
// 提交前的校验以及幂等键计算. 包内不做任何 I/O.
package publish

import (
	"errors"
	"fmt"

	"github.com/yeisme/postvault/pkg/internal/model"
)

// ErrInvalidTransition 当前状态不允许该事件.
var ErrInvalidTransition = errors.New("invalid status transition")

// Event 驱动状态迁移的事件.
type Event string

const (
	EventSchedule Event = "schedule" // 设定或更改定时
	EventSubmit   Event = "submit"   // 开始对外提交
	EventSucceed  Event = "succeed"  // 平台确认成功
	EventFail     Event = "fail"     // 平台返回失败
)

// transitions 合法迁移表：事件 -> 允许的起始状态 -> 目标状态.
var transitions = map[Event]map[model.PublishStatus]model.PublishStatus{
	EventSchedule: {
		model.StatusDraft:     model.StatusScheduled,
		model.StatusScheduled: model.StatusScheduled,
		model.StatusFailed:    model.StatusScheduled,
	},
	EventSubmit: {
		model.StatusDraft:     model.StatusPosting,
		model.StatusScheduled: model.StatusPosting,
		model.StatusFailed:    model.StatusPosting,
	},
	EventSucceed: {
		model.StatusPosting: model.StatusPosted,
	},
	EventFail: {
		model.StatusPosting: model.StatusFailed,
	},
}

// Valid 判断状态是否属于封闭集合.
func Valid(s model.PublishStatus) bool {
	switch s {
	case model.StatusDraft, model.StatusScheduled, model.StatusPosting, model.StatusPosted, model.StatusFailed:
		return true
	default:
		return false
	}
}

// Transition 返回 current 在 event 作用下的目标状态.
func Transition(current model.PublishStatus, event Event) (model.PublishStatus, error) {
	next, ok := transitions[event][current]
	if !ok {
		return current, fmt.Errorf("%w: %s on %q", ErrInvalidTransition, event, current)
	}

	return next, nil
}

// From 返回允许 event 的全部起始状态，用于条件更新的 WHERE status IN (...).
func From(event Event) []model.PublishStatus {
	out := make([]model.PublishStatus, 0, len(transitions[event]))
	for _, s := range []model.PublishStatus{
		model.StatusDraft, model.StatusScheduled, model.StatusPosting, model.StatusPosted, model.StatusFailed,
	} {
		if _, ok := transitions[event][s]; ok {
			out = append(out, s)
		}
	}

	return out
}

// CanPost 当前状态能否立即提交.
func CanPost(s model.PublishStatus) bool {
	_, err := Transition(s, EventSubmit)
	return err == nil
}

// CanSchedule 当前状态能否设定定时.
func CanSchedule(s model.PublishStatus) bool {
	_, err := Transition(s, EventSchedule)
	return err == nil
}

// Terminal posted 为终态.
func Terminal(s model.PublishStatus) bool {
	return s == model.StatusPosted
}
