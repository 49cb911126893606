package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorPredicates(t *testing.T) {
	validation := fmt.Errorf("add student: %w", &ValidationError{Message: "bad input"})
	duplicate := fmt.Errorf("add theme: %w", &DuplicateError{Grade: "6 класс", Name: "Причастие", Message: "exists"})
	notFound := fmt.Errorf("get theme: %w", ErrNotFound{Entity: EntityTheme, ID: 7})
	storage := errors.New("disk full")

	cases := []struct {
		name                     string
		err                      error
		isVal, isDup, isNotFound bool
		msg                      string
		hasMsg                   bool
	}{
		{"validation", validation, true, false, false, "bad input", true},
		{"duplicate", duplicate, false, true, false, "exists", true},
		{"not found", notFound, false, false, true, "", false},
		{"storage", storage, false, false, false, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if IsValidation(tc.err) != tc.isVal || IsDuplicate(tc.err) != tc.isDup || IsNotFound(tc.err) != tc.isNotFound {
				t.Fatalf("unexpected classification for %v", tc.err)
			}
			msg, ok := UserMessage(tc.err)
			if msg != tc.msg || ok != tc.hasMsg {
				t.Fatalf("UserMessage = %q, %v", msg, ok)
			}
		})
	}
	if notFound.Error() != "get theme: theme 7 not found" {
		t.Fatalf("unexpected not found text %q", notFound.Error())
	}
}
