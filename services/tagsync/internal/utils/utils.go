package utils

import (
	"strings"

	"github.com/02loveslollipop/perftest-dashboard/services/api/db"
	"github.com/02loveslollipop/perftest-dashboard/services/api/timeslot"
	"github.com/02loveslollipop/perftest-dashboard/services/tagsync/internal/models"
)

// BuildCatalogTags converts catalogue entries into database-ready rows.
// Entries without a tag number are dropped, jm_input 0 becomes the default
// slot count, m_input 0 becomes tab 1, and the last duplicate of a tag wins
// while keeping the position of its first occurrence.
func BuildCatalogTags(entries []models.CatalogEntry) []db.CatalogTag {
	rows := make([]db.CatalogTag, 0, len(entries))
	seen := make(map[string]int, len(entries))
	for _, e := range entries {
		tagNo := strings.TrimSpace(e.TagNo)
		if tagNo == "" {
			continue
		}
		jm := e.JmInput
		if jm == 0 {
			jm = timeslot.DefaultJmInput
		}
		mInput := e.MInput
		if mInput <= 0 {
			mInput = 1
		}
		row := db.CatalogTag{
			TagNo:       tagNo,
			Description: strings.TrimSpace(e.Description),
			UnitName:    strings.TrimSpace(e.UnitName),
			JmInput:     jm,
			MInput:      mInput,
			PerfID:      e.PerfID,
		}
		if i, ok := seen[tagNo]; ok {
			rows[i] = row
			continue
		}
		seen[tagNo] = len(rows)
		rows = append(rows, row)
	}
	return rows
}

// CountByTab tallies rows per m_input for logging.
func CountByTab(rows []db.CatalogTag) map[int]int {
	counts := make(map[int]int)
	for _, row := range rows {
		counts[row.MInput]++
	}
	return counts
}
