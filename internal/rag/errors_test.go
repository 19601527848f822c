package rag

import (
	"errors"
	"fmt"
	"testing"
)

func TestStorageError_Unwrap(t *testing.T) {
	t.Parallel()

	inner := errors.New("disk full")
	err := NewStorageError("insert document", inner)

	if !errors.Is(err, inner) {
		t.Error("errors.Is does not reach the wrapped error")
	}
	var se *StorageError
	if !errors.As(err, &se) || se.Op != "insert document" {
		t.Errorf("errors.As failed or Op = %q", se.Op)
	}
}

func TestIsTransient(t *testing.T) {
	t.Parallel()

	transient := &TransientError{Err: errors.New("429 too many requests")}
	if !IsTransient(transient) {
		t.Error("TransientError not classified as transient")
	}
	if !IsTransient(fmt.Errorf("embed batch: %w", transient)) {
		t.Error("wrapped TransientError not classified as transient")
	}
	if IsTransient(errors.New("bad request")) {
		t.Error("plain error classified as transient")
	}
	if IsTransient(ErrTenantNotFound) {
		t.Error("sentinel classified as transient")
	}
}
