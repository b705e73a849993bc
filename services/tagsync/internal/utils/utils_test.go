package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/02loveslollipop/perftest-dashboard/services/tagsync/internal/models"
)

func TestBuildCatalogTags(t *testing.T) {
	perf := int64(42)
	entries := []models.CatalogEntry{
		{TagNo: " T1 ", Description: " Steam flow ", UnitName: "t/h", JmInput: 4, MInput: 1},
		{TagNo: "", Description: "orphan", JmInput: 3},
		{TagNo: "T2", Description: "Drum level", JmInput: 0, MInput: 0, PerfID: &perf},
		{TagNo: "T1", Description: "Steam flow (corrected)", UnitName: "t/h", JmInput: 8, MInput: 2},
		{TagNo: "T3", JmInput: -1, MInput: 1},
	}

	rows := BuildCatalogTags(entries)

	require.Len(t, rows, 3)
	assert.Equal(t, "T1", rows[0].TagNo)
	assert.Equal(t, "Steam flow (corrected)", rows[0].Description)
	assert.Equal(t, 8, rows[0].JmInput)
	assert.Equal(t, 2, rows[0].MInput)

	assert.Equal(t, "T2", rows[1].TagNo)
	assert.Equal(t, 6, rows[1].JmInput)
	assert.Equal(t, 1, rows[1].MInput)
	require.NotNil(t, rows[1].PerfID)
	assert.Equal(t, int64(42), *rows[1].PerfID)

	assert.Equal(t, "T3", rows[2].TagNo)
	assert.Equal(t, -1, rows[2].JmInput)
}

func TestBuildCatalogTags_Empty(t *testing.T) {
	assert.Empty(t, BuildCatalogTags(nil))
}

func TestCountByTab(t *testing.T) {
	rows := BuildCatalogTags([]models.CatalogEntry{
		{TagNo: "A", MInput: 1},
		{TagNo: "B", MInput: 2},
		{TagNo: "C", MInput: 2},
	})

	assert.Equal(t, map[int]int{1: 1, 2: 2}, CountByTab(rows))
}
