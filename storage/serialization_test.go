package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/tariff/core"
)

func TestIDRoundTrip(t *testing.T) {
	for _, id := range []core.ID{0, 1, 42, 1 << 40, core.IDFromContent("sparkling apple juice")} {
		data := MarshalID(id)
		got, err := UnmarshalID(data)
		require.NoError(t, err)
		assert.Equal(t, id, got)
	}
}

func TestPrecedentRoundTrip(t *testing.T) {
	precedent := &core.Precedent{
		Id:                 core.IDFromContent("sparkling apple juice"),
		ProductDescription: "sparkling apple juice",
		Code:               "2202 99 19",
		CodeDescription:    "Beverages → Non-alcoholic → Other",
		Score:              0.87,
		Iterations:         3,
		QAHistory: []core.QA{
			{Question: "Is the juice carbonated?", Answer: "yes"},
			{Question: "Does it contain added sugar?", Answer: "no"},
		},
		CreatedAt: time.Date(2025, 6, 15, 12, 30, 0, 0, time.UTC),
	}

	data := MarshalPrecedent(precedent)
	got, err := UnmarshalPrecedent(data)
	require.NoError(t, err)

	assert.Equal(t, precedent.Id, got.Id)
	assert.Equal(t, precedent.ProductDescription, got.ProductDescription)
	assert.Equal(t, precedent.Code, got.Code)
	assert.Equal(t, precedent.CodeDescription, got.CodeDescription)
	assert.InDelta(t, precedent.Score, got.Score, 1e-6)
	assert.Equal(t, precedent.Iterations, got.Iterations)
	assert.Equal(t, precedent.QAHistory, got.QAHistory)
	assert.True(t, precedent.CreatedAt.Equal(got.CreatedAt))
}

func TestPrecedentRoundTripEmptyHistory(t *testing.T) {
	precedent := &core.Precedent{
		Id:                 1,
		ProductDescription: "table salt",
		Code:               "2501 00 91",
		CreatedAt:          time.Now().UTC().Truncate(time.Microsecond),
	}

	got, err := UnmarshalPrecedent(MarshalPrecedent(precedent))
	require.NoError(t, err)
	assert.Empty(t, got.QAHistory)
	assert.Equal(t, precedent.Code, got.Code)
}

func TestUnmarshalPrecedentTruncated(t *testing.T) {
	precedent := &core.Precedent{
		Id:                 7,
		ProductDescription: "ceramic flower pot",
		Code:               "6913 90",
		CreatedAt:          time.Now().UTC(),
	}
	data := MarshalPrecedent(precedent)

	_, err := UnmarshalPrecedent(data[:len(data)/2])
	assert.Error(t, err)
}
