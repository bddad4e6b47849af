package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"datalake/internal/domain"
)

func TestOpError(t *testing.T) {
	base := errors.New("boom")

	err := domain.Opf("select rows", "ds-1", base)
	if err.Error() != "select rows: dataset ds-1: boom" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, base) {
		t.Error("OpError should unwrap to the cause")
	}

	bare := domain.Opf("analyze", "", base)
	if bare.Error() != "analyze: boom" {
		t.Errorf("Error() = %q", bare.Error())
	}

	if domain.Opf("x", "y", nil) != nil {
		t.Error("Opf(nil) should be nil")
	}
}

func TestIsNotFound(t *testing.T) {
	if !domain.IsNotFound(domain.ErrNotFound) {
		t.Error("direct sentinel")
	}
	wrapped := domain.Opf("get", "ds-1", fmt.Errorf("entry: %w", domain.ErrNotFound))
	if !domain.IsNotFound(wrapped) {
		t.Error("sentinel should survive double wrapping")
	}
	if domain.IsNotFound(errors.New("other")) {
		t.Error("unrelated errors are not not-found")
	}
}

func TestCollectionName(t *testing.T) {
	if got := domain.CollectionName("abc-123"); got != "dataset_abc-123" {
		t.Errorf("CollectionName = %q", got)
	}
}
