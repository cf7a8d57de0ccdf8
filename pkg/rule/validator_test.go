package rule_test

import (
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"

	"github.com/yeisme/clipvault/pkg/rule"
)

// tagRequest 用于测试 ValidateStruct 与 Errors.
type tagRequest struct {
	Name  string `json:"name"  rule:"required,max=64"`
	Color string `json:"color" rule:"omitempty,hexcolor"`
}

// TestEngine 测试 Engine 函数返回非 nil 实例.
func TestEngine(t *testing.T) {
	if rule.Engine() == nil {
		t.Error("Engine() returned nil")
	}
}

// TestValidateStruct 测试 ValidateStruct 对有效和无效结构体的验证.
func TestValidateStruct(t *testing.T) {
	cases := []struct {
		name    string
		req     tagRequest
		wantErr bool
	}{
		{"valid with color", tagRequest{Name: "work", Color: "#ff8800"}, false},
		{"valid without color", tagRequest{Name: "work"}, false},
		{"missing name", tagRequest{Color: "#ff8800"}, true},
		{"bad color", tagRequest{Name: "work", Color: "orange"}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := rule.ValidateStruct(tc.req)
			if (err != nil) != tc.wantErr {
				t.Errorf("ValidateStruct(%+v) error = %v, wantErr %v", tc.req, err, tc.wantErr)
			}
		})
	}
}

// TestErrorsUsesJSONNames 测试错误字典使用 json 字段名.
func TestErrorsUsesJSONNames(t *testing.T) {
	err := rule.ValidateStruct(tagRequest{Color: "nope"})
	if err == nil {
		t.Fatal("expected validation error")
	}

	errs := rule.Errors(err)
	if len(errs) != 2 {
		t.Fatalf("expected 2 field errors, got %d: %v", len(errs), errs)
	}

	if _, ok := errs["tagRequest.name"]; !ok {
		t.Errorf("expected key tagRequest.name, got %v", errs)
	}

	if !strings.Contains(errs.Error(), "hexcolor") {
		t.Errorf("expected hexcolor in message, got %q", errs.Error())
	}

	if rule.Errors(nil) != nil {
		t.Error("Errors(nil) should be nil")
	}
}

// TestValidateVar 测试 ValidateVar 对变量的验证.
func TestValidateVar(t *testing.T) {
	if err := rule.ValidateVar("#00aa11", "hexcolor"); err != nil {
		t.Errorf("Expected no error for valid color, got %v", err)
	}

	if err := rule.ValidateVar("text/plain", "oneof=text file"); err == nil {
		t.Error("Expected error for value outside oneof, got nil")
	}
}

// TestRegisterValidation 测试注册自定义验证.
func TestRegisterValidation(t *testing.T) {
	err := rule.RegisterValidation("no_space", func(fl validator.FieldLevel) bool {
		return !strings.ContainsAny(fl.Field().String(), " \t")
	})
	if err != nil {
		t.Fatalf("Failed to register validation: %v", err)
	}

	if err := rule.ValidateVar("token", "no_space"); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	if err := rule.ValidateVar("two words", "no_space"); err == nil {
		t.Error("Expected error for string with space, got nil")
	}
}

// TestRegisterAlias 测试注册别名.
func TestRegisterAlias(t *testing.T) {
	rule.RegisterAlias("tag_name", "required,min=1,max=64")

	if err := rule.ValidateVar("abc", "tag_name"); err != nil {
		t.Errorf("Expected no error for valid string with alias, got %v", err)
	}

	if err := rule.ValidateVar("", "tag_name"); err == nil {
		t.Error("Expected error for empty string with alias, got nil")
	}
}
