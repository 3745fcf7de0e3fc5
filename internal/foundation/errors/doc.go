// Package errors provides the classified error primitives used across fest.
//
// A ClassifiedError carries a category, a severity, structured context and an
// optional HTTP status. Errors are created with the fluent ErrorBuilder and
// presented by the HTTP and CLI adapters.
//
// Example usage:
//
//	err := errors.NewError(errors.CategoryRender, "render page failed").
//		WithCause(execErr).
//		WithContext("page", "about").
//		Build()
package errors
