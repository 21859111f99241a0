// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tasklane Contributors

// Package errutil holds helpers for oops-coded errors.
package errutil

import (
	"log/slog"

	"github.com/samber/oops"
)

// Code returns the code of an oops error, or "" for any other error.
func Code(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code, _ := any(oopsErr.Code()).(string) //nolint:errcheck // non-string codes count as none
	return code
}

// HasCode reports whether err carries the given oops code.
func HasCode(err error, code string) bool {
	return err != nil && Code(err) == code
}

// Attrs returns slog key/value pairs describing err: the message, plus the
// code and context when err is an oops error.
func Attrs(err error) []any {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return []any{"error", err}
	}
	attrs := []any{"error", oopsErr.Error()}
	if code := Code(err); code != "" {
		attrs = append(attrs, "code", code)
	}
	if ctx := oopsErr.Context(); len(ctx) > 0 {
		attrs = append(attrs, "context", ctx)
	}
	return attrs
}

// LogError logs err at error level with the attributes from Attrs.
func LogError(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, Attrs(err)...)
}
