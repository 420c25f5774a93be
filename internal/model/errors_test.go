package model

import (
	"errors"
	"strings"
	"testing"
)

func TestBotError_ErrorFormat(t *testing.T) {
	e := NewStoreWriteError(errors.New("connection reset"))
	msg := e.Error()

	if !strings.HasPrefix(msg, "["+ErrCodeStoreWrite+"]") {
		t.Errorf("Error() = %q, want prefix [%s]", msg, ErrCodeStoreWrite)
	}
	if !strings.Contains(msg, "connection reset") {
		t.Errorf("Error() = %q, should contain the cause", msg)
	}
}

func TestBotError_ConstructorsProvideNotice(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name     string
		err      *BotError
		code     string
		category string
	}{
		{"estimate unusable", NewEstimateUnusableError("空の応答"), ErrCodeEstimateUnusable, "estimate"},
		{"content fetch", NewContentFetchError(cause), ErrCodeContentFetch, "transport"},
		{"image upload", NewImageUploadError(cause), ErrCodeImageUpload, "transport"},
		{"estimate call", NewEstimateCallError(cause), ErrCodeEstimateCall, "transport"},
		{"store write", NewStoreWriteError(cause), ErrCodeStoreWrite, "system"},
		{"store read", NewStoreReadError(cause), ErrCodeStoreRead, "system"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Code = %q, want %q", tt.err.Code, tt.code)
			}
			if tt.err.Category != tt.category {
				t.Errorf("Category = %q, want %q", tt.err.Category, tt.category)
			}
			if tt.err.Notice == "" {
				t.Error("Notice should not be empty")
			}
			if tt.err.Message == "" {
				t.Error("Message should not be empty")
			}
		})
	}
}
