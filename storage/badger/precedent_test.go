package badger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/tariff/core"
	"github.com/poiesic/tariff/storage"
)

func testPrecedent(description, code string, createdAt time.Time) *core.Precedent {
	return &core.Precedent{
		ProductDescription: description,
		Code:               code,
		CodeDescription:    "Test heading",
		Score:              0.82,
		Iterations:         2,
		QAHistory: []core.QA{
			{Question: "Is it carbonated?", Answer: "yes"},
		},
		CreatedAt: createdAt,
	}
}

func TestPrecedentBasics(t *testing.T) {
	repo, backend, err := NewMemoryPrecedentRepository()
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	defer func() { repo.Close(); backend.Close() }()

	ctx := context.Background()

	precedent := testPrecedent("sparkling apple juice", "2202 99 19", time.Time{})

	added, err := repo.AddPrecedents(ctx, precedent)
	if err != nil {
		t.Fatalf("Failed to add precedent: %v", err)
	}
	if len(added) != 1 {
		t.Fatalf("Expected 1 precedent, got %d", len(added))
	}
	if added[0].Id == 0 {
		t.Fatal("Expected non-zero ID")
	}
	if added[0].CreatedAt.IsZero() {
		t.Fatal("Expected CreatedAt to be populated")
	}

	retrieved, err := repo.GetPrecedent(ctx, added[0].Id)
	if err != nil {
		t.Fatalf("Failed to get precedent: %v", err)
	}
	if retrieved.ProductDescription != "sparkling apple juice" {
		t.Fatalf("Expected 'sparkling apple juice', got '%s'", retrieved.ProductDescription)
	}
	if len(retrieved.QAHistory) != 1 || retrieved.QAHistory[0].Answer != "yes" {
		t.Fatalf("QA history not preserved: %+v", retrieved.QAHistory)
	}

	_, err = repo.GetPrecedent(ctx, core.ID(12345))
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestAddPrecedentRejectsInvalid(t *testing.T) {
	repo, backend, err := NewMemoryPrecedentRepository()
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	defer func() { repo.Close(); backend.Close() }()

	_, err = repo.AddPrecedents(context.Background(), &core.Precedent{Code: "2202 99 19"})
	if !errors.Is(err, core.ErrInvalidPrecedent) {
		t.Fatalf("Expected ErrInvalidPrecedent, got %v", err)
	}
}

func TestFindByCode(t *testing.T) {
	repo, backend, err := NewMemoryPrecedentRepository()
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	defer func() { repo.Close(); backend.Close() }()

	ctx := context.Background()
	now := time.Now().UTC()

	_, err = repo.AddPrecedents(ctx,
		testPrecedent("sparkling apple juice", "2202 99 19", now),
		testPrecedent("carbonated pear drink", "2202 99 19", now),
		testPrecedent("cotton t-shirt", "6109 10 00", now),
	)
	if err != nil {
		t.Fatalf("Failed to add precedents: %v", err)
	}

	matches, err := repo.FindByCode(ctx, "2202 99 19")
	if err != nil {
		t.Fatalf("Failed to find by code: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("Expected 2 matches, got %d", len(matches))
	}
	for _, precedent := range matches {
		if precedent.Code != "2202 99 19" {
			t.Fatalf("Unexpected code %s", precedent.Code)
		}
	}

	none, err := repo.FindByCode(ctx, "9999 99 99")
	if err != nil {
		t.Fatalf("Failed to find by code: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("Expected no matches, got %d", len(none))
	}
}

func TestGetRecentPrecedents(t *testing.T) {
	repo, backend, err := NewMemoryPrecedentRepository()
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	defer func() { repo.Close(); backend.Close() }()

	ctx := context.Background()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	for i, description := range []string{"oldest", "middle", "newest"} {
		_, err = repo.AddPrecedents(ctx, testPrecedent(description, "2202 99 19", base.Add(time.Duration(i)*time.Hour)))
		if err != nil {
			t.Fatalf("Failed to add precedent: %v", err)
		}
	}

	recent, err := repo.GetRecentPrecedents(ctx, 2)
	if err != nil {
		t.Fatalf("Failed to get recent precedents: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("Expected 2 precedents, got %d", len(recent))
	}
	if recent[0].ProductDescription != "newest" || recent[1].ProductDescription != "middle" {
		t.Fatalf("Wrong order: %s, %s", recent[0].ProductDescription, recent[1].ProductDescription)
	}

	if _, err = repo.GetRecentPrecedents(ctx, 0); !errors.Is(err, storage.ErrInvalidQuery) {
		t.Fatalf("Expected ErrInvalidQuery, got %v", err)
	}
}

func TestGetPrecedentsByDateRange(t *testing.T) {
	repo, backend, err := NewMemoryPrecedentRepository()
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	defer func() { repo.Close(); backend.Close() }()

	ctx := context.Background()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		_, err = repo.AddPrecedents(ctx, testPrecedent("product", "2202 99 19", base.AddDate(0, 0, i)))
		if err != nil {
			t.Fatalf("Failed to add precedent: %v", err)
		}
	}

	results, err := repo.GetPrecedentsByDateRange(ctx, base.AddDate(0, 0, 1), base.AddDate(0, 0, 4))
	if err != nil {
		t.Fatalf("Failed to query date range: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("Expected 3 precedents, got %d", len(results))
	}
	for i := 1; i < len(results); i++ {
		if results[i].CreatedAt.Before(results[i-1].CreatedAt) {
			t.Fatal("Expected ascending creation order")
		}
	}
}

func TestDeletePrecedents(t *testing.T) {
	repo, backend, err := NewMemoryPrecedentRepository()
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	defer func() { repo.Close(); backend.Close() }()

	ctx := context.Background()

	added, err := repo.AddPrecedents(ctx, testPrecedent("sparkling apple juice", "2202 99 19", time.Now().UTC()))
	if err != nil {
		t.Fatalf("Failed to add precedent: %v", err)
	}

	if err := repo.DeletePrecedents(ctx, added[0].Id); err != nil {
		t.Fatalf("Failed to delete precedent: %v", err)
	}

	if _, err := repo.GetPrecedent(ctx, added[0].Id); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound after delete, got %v", err)
	}

	matches, err := repo.FindByCode(ctx, "2202 99 19")
	if err != nil {
		t.Fatalf("Failed to find by code: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("Expected code index to be cleaned up, got %d matches", len(matches))
	}

	recent, err := repo.GetRecentPrecedents(ctx, 10)
	if err != nil {
		t.Fatalf("Failed to get recent precedents: %v", err)
	}
	if len(recent) != 0 {
		t.Fatalf("Expected date index to be cleaned up, got %d entries", len(recent))
	}

	if err := repo.DeletePrecedents(ctx, core.ID(999)); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for missing precedent, got %v", err)
	}
}

func TestContentBasedIDOverwrites(t *testing.T) {
	repo, backend, err := NewMemoryPrecedentRepository()
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	defer func() { repo.Close(); backend.Close() }()

	ctx := context.Background()
	createdAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	first, err := repo.AddPrecedents(ctx, testPrecedent("sparkling apple juice", "2202 99 19", createdAt))
	if err != nil {
		t.Fatalf("Failed to add precedent: %v", err)
	}

	update := testPrecedent("sparkling apple juice", "2202 99 19", createdAt)
	update.Score = 0.95
	second, err := repo.AddPrecedents(ctx, update)
	if err != nil {
		t.Fatalf("Failed to re-add precedent: %v", err)
	}

	if first[0].Id != second[0].Id {
		t.Fatalf("Expected identical content IDs, got %d and %d", first[0].Id, second[0].Id)
	}

	stored, err := repo.GetPrecedent(ctx, first[0].Id)
	if err != nil {
		t.Fatalf("Failed to get precedent: %v", err)
	}
	if stored.Score != 0.95 {
		t.Fatalf("Expected overwrite to win, got score %v", stored.Score)
	}
}
