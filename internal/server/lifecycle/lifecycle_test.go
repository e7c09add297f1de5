package lifecycle

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/contractsign/internal/common"
	"github.com/dmitrijs2005/contractsign/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var all = []models.Status{
	models.StatusPending, models.StatusSigned, models.StatusCompleted,
	models.StatusOverdue, models.StatusArchived,
}

func TestCanTransition_Table(t *testing.T) {
	allowed := map[[2]models.Status]bool{
		{models.StatusPending, models.StatusSigned}:     true,
		{models.StatusOverdue, models.StatusSigned}:     true,
		{models.StatusPending, models.StatusOverdue}:    true,
		{models.StatusSigned, models.StatusOverdue}:     true,
		{models.StatusSigned, models.StatusCompleted}:   true,
		{models.StatusOverdue, models.StatusCompleted}:  true,
		{models.StatusCompleted, models.StatusArchived}: true,
		{models.StatusOverdue, models.StatusOverdue}:    true,
		{models.StatusArchived, models.StatusArchived}:  true,
	}
	for _, from := range all {
		for _, to := range all {
			want := allowed[[2]models.Status{from, to}]
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestApply_RejectsBackward(t *testing.T) {
	got, err := Apply(models.StatusSigned, models.StatusPending)
	require.ErrorIs(t, err, common.ErrInvalidTransition)
	assert.Equal(t, models.StatusSigned, got)

	var te *common.TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "signed", te.From)
	assert.Equal(t, "pending", te.To)
}

func TestApply_Forward(t *testing.T) {
	got, err := Apply(models.StatusPending, models.StatusSigned)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSigned, got)

	got, err = Apply(models.StatusOverdue, models.StatusOverdue)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOverdue, got)
}

func TestApply_UnknownStatus(t *testing.T) {
	_, err := Apply(models.Status("draft"), models.StatusSigned)
	assert.ErrorIs(t, err, common.ErrInvalidTransition)
}

func TestIsOverdue(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.AddDate(0, 0, -1)
	future := now.AddDate(0, 0, 1)

	tests := []struct {
		name   string
		status models.Status
		date   *time.Time
		want   bool
	}{
		{"pending past", models.StatusPending, &past, true},
		{"signed past", models.StatusSigned, &past, true},
		{"pending future", models.StatusPending, &future, false},
		{"no date", models.StatusPending, nil, false},
		{"completed past", models.StatusCompleted, &past, false},
		{"already overdue", models.StatusOverdue, &past, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &models.Contract{Status: tt.status, InstallationDate: tt.date}
			assert.Equal(t, tt.want, IsOverdue(c, now))
		})
	}
}

func TestIsArchivable(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	old := &models.Contract{Status: models.StatusCompleted, UpdatedAt: now.Add(-DefaultArchiveRetention - time.Hour)}
	recent := &models.Contract{Status: models.StatusCompleted, UpdatedAt: now.Add(-time.Hour)}
	signed := &models.Contract{Status: models.StatusSigned, UpdatedAt: old.UpdatedAt}

	assert.True(t, IsArchivable(old, now, DefaultArchiveRetention))
	assert.False(t, IsArchivable(recent, now, DefaultArchiveRetention))
	assert.False(t, IsArchivable(signed, now, DefaultArchiveRetention))
}
