package rule_test

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"

	"github.com/yeisme/postvault/pkg/rule"
)

// schedulePayload 用于测试 ValidateStruct.
type schedulePayload struct {
	Title    string `json:"title"    rule:"notblank,max=20"`
	Platform string `json:"platform" rule:"required,oneof=archive webhook"`
	URL      string `json:"url"      rule:"omitempty,url"`
}

// TestEngine 测试 Engine 函数返回非 nil 实例.
func TestEngine(t *testing.T) {
	if rule.Engine() == nil {
		t.Error("Engine() returned nil")
	}
}

// TestValidateStruct 测试 ValidateStruct 对有效和无效结构体的验证.
func TestValidateStruct(t *testing.T) {
	valid := schedulePayload{Title: "Launch", Platform: "archive", URL: "https://example.com/a"}
	if err := rule.ValidateStruct(valid); err != nil {
		t.Errorf("Expected no error for valid struct, got %v", err)
	}

	// 仅包含空白的标题
	if err := rule.ValidateStruct(schedulePayload{Title: "   ", Platform: "archive"}); err == nil {
		t.Error("Expected error for blank title, got nil")
	}

	// 不支持的平台
	if err := rule.ValidateStruct(schedulePayload{Title: "x", Platform: "fax"}); err == nil {
		t.Error("Expected error for unknown platform, got nil")
	}
}

// TestErrors 测试错误按 json 字段名格式化.
func TestErrors(t *testing.T) {
	err := rule.ValidateStruct(schedulePayload{Title: "", Platform: "fax", URL: "not a url"})
	if err == nil {
		t.Fatal("expected validation error")
	}

	fields := rule.Errors(err)
	for _, name := range []string{"title", "platform", "url"} {
		if _, ok := fields[name]; !ok {
			t.Errorf("expected error for field %q, got %v", name, fields)
		}
	}

	if fields["title"] != "is required" {
		t.Errorf("title message = %q", fields["title"])
	}

	if rule.Errors(errors.New("boom")) != nil {
		t.Error("non-validation error should yield nil")
	}
}

// TestValidateVar 测试 ValidateVar 对变量的验证.
func TestValidateVar(t *testing.T) {
	if err := rule.ValidateVar("test@example.com", "required,email"); err != nil {
		t.Errorf("Expected no error for valid email, got %v", err)
	}

	if err := rule.ValidateVar("invalid-email", "required,email"); err == nil {
		t.Error("Expected error for invalid email, got nil")
	}

	if err := rule.ValidateVar(" \t", "notblank"); err == nil {
		t.Error("Expected error for blank string, got nil")
	}
}

// TestRegisterValidation 测试注册自定义验证.
func TestRegisterValidation(t *testing.T) {
	err := rule.RegisterValidation("even_length", func(fl validator.FieldLevel) bool {
		str, ok := fl.Field().Interface().(string)
		if !ok {
			return false
		}

		return len(str)%2 == 0
	})
	if err != nil {
		t.Fatalf("Failed to register validation: %v", err)
	}

	if err := rule.ValidateVar("test", "even_length"); err != nil {
		t.Errorf("Expected no error for even length string, got %v", err)
	}

	if err := rule.ValidateVar("test1", "even_length"); err == nil {
		t.Error("Expected error for odd length string, got nil")
	}
}

// TestRegisterAlias 测试注册别名.
func TestRegisterAlias(t *testing.T) {
	rule.RegisterAlias("min_required", "required,min=3")

	if err := rule.ValidateVar("abc", "min_required"); err != nil {
		t.Errorf("Expected no error for valid string with alias, got %v", err)
	}

	if err := rule.ValidateVar("ab", "min_required"); err == nil {
		t.Error("Expected error for invalid string with alias, got nil")
	}
}
