package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassifiedError(t *testing.T) {
	t.Run("Basic error creation", func(t *testing.T) {
		err := NewError(CategoryConfig, "invalid configuration").
			WithSeverity(SeverityFatal).
			WithContext("file", "fest.yaml").
			Build()

		if err.Category() != CategoryConfig {
			t.Errorf("expected category %s, got %s", CategoryConfig, err.Category())
		}
		if err.Severity() != SeverityFatal {
			t.Errorf("expected severity %s, got %s", SeverityFatal, err.Severity())
		}
		if err.Message() != "invalid configuration" {
			t.Errorf("expected message 'invalid configuration', got %s", err.Message())
		}
		file, exists := err.Context().GetString("file")
		if !exists || file != "fest.yaml" {
			t.Errorf("expected context file=fest.yaml, got %v", file)
		}
	})

	t.Run("Detection through wrapping", func(t *testing.T) {
		base := DirectoryNotFound("/tmp/pages").Build()
		wrapped := fmt.Errorf("build routes: %w", base)

		if !IsClassified(wrapped) {
			t.Fatal("expected wrapped error to be classified")
		}
		if !HasCategory(wrapped, CategoryNotFound) {
			t.Error("expected not_found category")
		}
		if !errors.Is(wrapped, DirectoryNotFound("/elsewhere").Build()) {
			t.Error("expected errors.Is to match on category and message")
		}
	})

	t.Run("Cause unwraps", func(t *testing.T) {
		cause := errors.New("template: boom")
		err := RenderError("render page failed").WithCause(cause).Build()
		if !errors.Is(err, cause) {
			t.Error("expected cause in chain")
		}
		if err.StatusCode() != 500 {
			t.Errorf("expected status 500, got %d", err.StatusCode())
		}
	})
}

func TestGetCategory_Unclassified(t *testing.T) {
	if got := GetCategory(errors.New("plain")); got != CategoryInternal {
		t.Errorf("GetCategory() = %s, want internal", got)
	}
	if got := GetCategory(fmt.Errorf("wrap: %w", RenderError("x").Build())); got != CategoryRender {
		t.Errorf("GetCategory() = %s, want render", got)
	}
}

func TestErrorContext_NilSafe(t *testing.T) {
	var c ErrorContext
	if _, ok := c.GetString("missing"); ok {
		t.Error("expected no value in nil context")
	}
	c = c.Set("dir", "/pages").Set("count", 3)
	if dir, ok := c.GetString("dir"); !ok || dir != "/pages" {
		t.Errorf("GetString(dir) = %q, %v", dir, ok)
	}
	if _, ok := c.GetString("count"); ok {
		t.Error("non-string value must not be returned by GetString")
	}
}
