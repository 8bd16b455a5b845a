package core

import (
	"errors"
	"testing"
	"time"
)

func TestValidatePrecedent(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name      string
		precedent *Precedent
		wantErr   error
	}{
		{
			name: "valid precedent",
			precedent: &Precedent{
				ProductDescription: "organic pineapple juice",
				Code:               "2009 41 92",
				CodeDescription:    "Pineapple juice, of a Brix value not exceeding 20",
				Score:              0.87,
				Iterations:         3,
				CreatedAt:          now,
			},
			wantErr: nil,
		},
		{
			name: "valid with empty Q&A history",
			precedent: &Precedent{
				ProductDescription: "steel bolts",
				Code:               "7318 15 95",
				CreatedAt:          now,
			},
			wantErr: nil,
		},
		{
			name:      "nil precedent",
			precedent: nil,
			wantErr:   ErrInvalidPrecedent,
		},
		{
			name: "empty description",
			precedent: &Precedent{
				Code:      "2009 41 92",
				CreatedAt: now,
			},
			wantErr: ErrEmptyDescription,
		},
		{
			name: "empty code",
			precedent: &Precedent{
				ProductDescription: "organic pineapple juice",
				CreatedAt:          now,
			},
			wantErr: ErrEmptyCode,
		},
		{
			name: "future timestamp",
			precedent: &Precedent{
				ProductDescription: "organic pineapple juice",
				Code:               "2009 41 92",
				CreatedAt:          now.Add(time.Hour),
			},
			wantErr: ErrInvalidPrecedent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePrecedent(tt.precedent)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidatePrecedent() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidatePrecedent() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestIsValidTimestamp(t *testing.T) {
	if !IsValidTimestamp(time.Now().Add(-time.Minute)) {
		t.Error("past timestamp should be valid")
	}
	if IsValidTimestamp(time.Now().Add(time.Minute)) {
		t.Error("future timestamp should be invalid")
	}
}
