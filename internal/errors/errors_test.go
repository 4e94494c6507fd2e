package errors

import (
	"errors"
	"testing"
)

func TestDeckError_Error(t *testing.T) {
	err := NewNotAZip(nil)
	want := "NOT_A_ZIP: input is not a ZIP archive"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code ErrorCode
		want bool
	}{
		{"matching code", NewDuplicatePart("/ppt/slides/slide1.xml"), ErrDuplicatePart, true},
		{"different code", NewDuplicatePart("/a"), ErrNotAZip, false},
		{"plain error", errors.New("boom"), ErrInternal, false},
		{"nil details ok", NewInvalidOperation("session already saved"), ErrInvalidOperation, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.want {
				t.Errorf("Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDetails(t *testing.T) {
	err := NewDuplicateRelationshipID("/ppt/presentation.xml", "rId3")
	if err.Details["source"] != "/ppt/presentation.xml" {
		t.Errorf("Details[source] = %v", err.Details["source"])
	}
	if err.Details["id"] != "rId3" {
		t.Errorf("Details[id] = %v", err.Details["id"])
	}
	if err.Status != 409 {
		t.Errorf("Status = %d, want 409", err.Status)
	}
}

func TestNewInternal_NilError(t *testing.T) {
	err := NewInternal(nil)
	if err.Message != "internal error" {
		t.Errorf("Message = %q", err.Message)
	}
}
