package publish

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/yeisme/postvault/pkg/internal/model"
	"github.com/yeisme/postvault/pkg/rule"
)

// ErrValidation 帖子未通过提交前校验.
var ErrValidation = errors.New("validation failed")

// ValidationError 携带逐字段的错误信息，errors.Is(err, ErrValidation) 为真.
type ValidationError struct {
	Fields rule.ValidationErrors
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrValidation, e.Fields.Error())
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// candidate 所有帖子类型共有的校验规则.
type candidate struct {
	Platform string `json:"platform" rule:"notblank"`
	Title    string `json:"title"    rule:"notblank,max=300"`
}

// Validate 校验帖子是否满足提交条件，不修改任何状态.
// 正文帖需要正文，链接帖需要合法的 http(s) URL；正文长度不超过 maxContentBytes.
func Validate(f *model.File, maxContentBytes int) error {
	fields := rule.ValidationErrors{}

	if err := rule.ValidateStruct(candidate{Platform: f.Platform, Title: f.Title}); err != nil {
		fe := rule.Errors(err)
		if fe == nil {
			return fmt.Errorf("validate post: %w", err)
		}

		for k, v := range fe {
			fields[k] = v
		}
	}

	switch kind := f.PlatformSettings.EffectiveKind(); kind {
	case model.KindSelf:
		if rule.ValidateVar(f.Content, "notblank") != nil {
			fields["content"] = "is required for self posts"
		}
	case model.KindLink:
		if rule.ValidateVar(f.PlatformSettings.URL, "required,http_url") != nil {
			fields["url"] = "must be a valid http(s) URL for link posts"
		}
	default:
		fields["kind"] = fmt.Sprintf("unknown post kind %q", kind)
	}

	if maxContentBytes > 0 && len(f.Content) > maxContentBytes {
		fields["content"] = "must be at most " + strconv.Itoa(maxContentBytes) + " bytes"
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}

	return nil
}

// ValidateScheduleTime 定时时间必须给出且晚于 now.
func ValidateScheduleTime(at, now time.Time) error {
	switch {
	case at.IsZero():
		return &ValidationError{Fields: rule.ValidationErrors{"scheduled_at": "is required"}}
	case !at.After(now):
		return &ValidationError{Fields: rule.ValidationErrors{"scheduled_at": "must be in the future"}}
	}

	return nil
}

// ParseScheduleTime 解析 RFC3339 时间，格式错误视为校验失败.
func ParseScheduleTime(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, &ValidationError{Fields: rule.ValidationErrors{"scheduled_at": "must be an RFC3339 timestamp"}}
	}

	return t.UTC(), nil
}
