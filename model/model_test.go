package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		label   Label
		quality Quality
		want    string
	}{
		{LabelHuman, QualityStandard, U2NetHuman},
		{LabelGeneral, QualityStandard, U2Net},
		{LabelHuman, QualityHigh, U2NetHuman},
		{LabelGeneral, QualityHigh, BiRefNet},
	}

	for _, tt := range tests {
		t.Run(string(tt.label)+"/"+string(tt.quality), func(t *testing.T) {
			t.Parallel()

			got, err := Select(tt.label, tt.quality, "")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, Valid(got))
		})
	}
}

func TestSelect_Forced(t *testing.T) {
	t.Parallel()

	got, err := Select(LabelHuman, QualityStandard, ISNetGeneral)
	require.NoError(t, err)
	assert.Equal(t, ISNetGeneral, got)

	_, err = Select(LabelGeneral, QualityHigh, "sam")
	assert.ErrorIs(t, err, ErrUnknownModel)
}

func TestParseQuality(t *testing.T) {
	t.Parallel()

	q, err := ParseQuality("")
	require.NoError(t, err)
	assert.Equal(t, QualityStandard, q)

	q, err = ParseQuality("high")
	require.NoError(t, err)
	assert.Equal(t, QualityHigh, q)

	_, err = ParseQuality("ultra")
	assert.Error(t, err)
}

func TestCatalog(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{BiRefNet, ISNetGeneral, U2Net, U2NetHuman}, IDs())
	for _, d := range All() {
		got, ok := Lookup(d.ID)
		require.True(t, ok)
		assert.Equal(t, d, got)
	}

	_, ok := Lookup("nope")
	assert.False(t, ok)
}

func TestDescriptor_JSON(t *testing.T) {
	t.Parallel()

	d, _ := Lookup(U2NetHuman)
	b, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"identifier": "u2net_human_seg",
		"display_name": "U²-Net Human",
		"description": "Optimized specifically for human portraits",
		"speed_tier": "fast",
		"quality_tier": "excellent_for_humans"
	}`, string(b))
}
