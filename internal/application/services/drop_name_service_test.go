package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltfield/backend/pkg/errors"
)

type namedDrop struct {
	id   string
	name string
}

type fakeNameIndex struct {
	drops       []namedDrop
	existsErr   error
	alwaysTaken bool
}

func (f *fakeNameIndex) NameExists(ctx context.Context, projectID, name, excludeID string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	if f.alwaysTaken {
		return true, nil
	}
	for _, d := range f.drops {
		if d.id != excludeID && d.name == name {
			return true, nil
		}
	}
	return false, nil
}

func TestGenerateFirstName(t *testing.T) {
	svc := NewDropNameService(&fakeNameIndex{})

	name, err := svc.Generate(context.Background(), "p-1", "Living Room", "Speaker", "")

	require.NoError(t, err)
	assert.Equal(t, "Living Room - Speaker 1", name)
}

func TestGenerateSequentialNamesAreDistinct(t *testing.T) {
	fake := &fakeNameIndex{}
	svc := NewDropNameService(fake)

	seen := make(map[string]bool)
	for i := 0; i < 4; i++ {
		name, err := svc.Generate(context.Background(), "p-1", "Living Room", "Speaker", "")
		require.NoError(t, err)
		assert.False(t, seen[name], "name %q generated twice", name)
		seen[name] = true

		fake.drops = append(fake.drops, namedDrop{id: fmt.Sprintf("d-%d", i), name: name})
	}

	assert.True(t, seen["Living Room - Speaker 4"])
}

func TestGenerateFillsSequenceGaps(t *testing.T) {
	// A rename or delete can leave a hole in the sequence. The lowest
	// free number is reused rather than growing the tail forever.
	fake := &fakeNameIndex{drops: []namedDrop{
		{id: "d-1", name: "Living Room - Speaker 1"},
		{id: "d-3", name: "Living Room - Speaker 3"},
	}}
	svc := NewDropNameService(fake)

	name, err := svc.Generate(context.Background(), "p-1", "Living Room", "Speaker", "")

	require.NoError(t, err)
	assert.Equal(t, "Living Room - Speaker 2", name)
}

func TestGenerateExcludeSelfKeepsName(t *testing.T) {
	// Regenerating the name of an unchanged record must return the name
	// it already holds, even with siblings occupying the next numbers.
	fake := &fakeNameIndex{drops: []namedDrop{
		{id: "d-1", name: "Living Room - Speaker 1"},
		{id: "d-2", name: "Living Room - Speaker 2"},
		{id: "d-3", name: "Living Room - Keypad 1"},
	}}
	svc := NewDropNameService(fake)

	name, err := svc.Generate(context.Background(), "p-1", "Living Room", "Speaker", "d-1")
	require.NoError(t, err)
	assert.Equal(t, "Living Room - Speaker 1", name)

	name, err = svc.Generate(context.Background(), "p-1", "Living Room", "Speaker", "d-2")
	require.NoError(t, err)
	assert.Equal(t, "Living Room - Speaker 2", name)
}

func TestGenerateRenamesOnCategoryDrift(t *testing.T) {
	fake := &fakeNameIndex{drops: []namedDrop{
		{id: "d-1", name: "Living Room - Speaker 1"},
		{id: "d-2", name: "Living Room - Keypad 1"},
	}}
	svc := NewDropNameService(fake)

	// d-1 changed category from Speaker to Keypad; its old name no longer
	// fits and the Keypad sequence already has a holder.
	name, err := svc.Generate(context.Background(), "p-1", "Living Room", "Keypad", "d-1")

	require.NoError(t, err)
	assert.Equal(t, "Living Room - Keypad 2", name)
}

func TestGenerateFallbackLabels(t *testing.T) {
	svc := NewDropNameService(&fakeNameIndex{})

	tests := []struct {
		name     string
		roomName string
		category string
		want     string
	}{
		{"no room", "", "Speaker", "Unassigned - Speaker 1"},
		{"no category", "Living Room", "", "Living Room - Drop 1"},
		{"neither", "", "", "Unassigned - Drop 1"},
		{"whitespace only", "   ", "  ", "Unassigned - Drop 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, err := svc.Generate(context.Background(), "p-1", tt.roomName, tt.category, "")

			require.NoError(t, err)
			assert.Equal(t, tt.want, name)
		})
	}
}

func TestGeneratePropagatesStoreErrors(t *testing.T) {
	svc := NewDropNameService(&fakeNameIndex{existsErr: fmt.Errorf("connection lost")})

	_, err := svc.Generate(context.Background(), "p-1", "Living Room", "Speaker", "")
	assert.Error(t, err)
}

func TestGenerateGivesUpAfterProbeCap(t *testing.T) {
	svc := NewDropNameService(&fakeNameIndex{alwaysTaken: true})

	_, err := svc.Generate(context.Background(), "p-1", "Living Room", "Speaker", "")

	require.Error(t, err)
	assert.True(t, errors.IsConflict(err))
}
