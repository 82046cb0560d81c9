package memory

import (
	"context"
	"testing"

	"interanxy-service/internal/domain"
)

func TestRoomStoreLifecycle(t *testing.T) {
	store := NewRoomStore()
	ctx := context.Background()

	room := domain.Room{ID: "room-1", Name: "Rombel A", Code: "PROB1", Subject: "Probabilitas"}
	if err := store.Create(ctx, room); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := store.GetByCode(ctx, "PROB1")
	if err != nil || got.ID != "room-1" {
		t.Fatalf("get by code: %v %+v", err, got)
	}

	if _, err := store.GetByCode(ctx, "NOPE1"); err != domain.ErrInvalidCode {
		t.Fatalf("expected ErrInvalidCode, got %v", err)
	}

	if err := store.Delete(ctx, "room-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, "room-1"); err != domain.ErrRoomNotFound {
		t.Fatalf("expected ErrRoomNotFound after delete, got %v", err)
	}
	if _, err := store.GetByCode(ctx, "PROB1"); err != domain.ErrInvalidCode {
		t.Fatalf("expected code released after delete, got %v", err)
	}
}

func TestRoomStoreUpdateKeepsCode(t *testing.T) {
	store := NewRoomStore()
	ctx := context.Background()

	if err := store.Create(ctx, domain.Room{ID: "room-1", Code: "AAAAA", Name: "old"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Update(ctx, domain.Room{ID: "room-1", Code: "HACKD", Name: "new"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := store.Get(ctx, "room-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "new" || got.Code != "AAAAA" {
		t.Fatalf("expected updated name with original code, got %+v", got)
	}
}

func TestRoomStoreCopiesOnRead(t *testing.T) {
	store := NewRoomStore()
	ctx := context.Background()

	if err := store.Create(ctx, domain.Room{
		ID:        "room-1",
		Code:      "AAAAA",
		Questions: []domain.Question{{ID: "q1", Correct: "b"}},
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, _ := store.Get(ctx, "room-1")
	got.Questions[0].Correct = "tampered"

	again, _ := store.Get(ctx, "room-1")
	if again.Questions[0].Correct != "b" {
		t.Fatalf("stored room mutated through a read copy")
	}
}
