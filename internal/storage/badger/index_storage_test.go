package badger

import (
	"context"
	"errors"
	"testing"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/interfaces"
)

func TestIndexStorage(t *testing.T) {
	storage := NewIndexStorage(openTestDB(t), arbor.NewLogger())
	ctx := context.Background()

	if _, err := storage.LoadIndex(ctx, "docs"); !errors.Is(err, interfaces.ErrIndexNotFound) {
		t.Fatalf("expected ErrIndexNotFound before first save, got %v", err)
	}

	if err := storage.SaveIndex(ctx, "docs", []byte(`{"version":1}`)); err != nil {
		t.Fatalf("SaveIndex failed: %v", err)
	}
	if err := storage.SaveIndex(ctx, "other", []byte(`{"version":1,"corpus":"other"}`)); err != nil {
		t.Fatalf("SaveIndex failed: %v", err)
	}

	data, err := storage.LoadIndex(ctx, "docs")
	if err != nil {
		t.Fatalf("LoadIndex failed: %v", err)
	}
	if string(data) != `{"version":1}` {
		t.Errorf("unexpected blob: %s", data)
	}

	// Overwrite replaces the whole unit
	if err := storage.SaveIndex(ctx, "docs", []byte(`{"version":2}`)); err != nil {
		t.Fatalf("SaveIndex overwrite failed: %v", err)
	}
	data, _ = storage.LoadIndex(ctx, "docs")
	if string(data) != `{"version":2}` {
		t.Errorf("expected overwritten blob, got %s", data)
	}

	if err := storage.DeleteIndex(ctx, "docs"); err != nil {
		t.Fatalf("DeleteIndex failed: %v", err)
	}
	if _, err := storage.LoadIndex(ctx, "docs"); !errors.Is(err, interfaces.ErrIndexNotFound) {
		t.Errorf("expected ErrIndexNotFound after delete, got %v", err)
	}
	if err := storage.DeleteIndex(ctx, "docs"); err != nil {
		t.Errorf("deleting a missing index should not fail: %v", err)
	}

	if _, err := storage.LoadIndex(ctx, "other"); err != nil {
		t.Errorf("other corpus should be untouched: %v", err)
	}
}
