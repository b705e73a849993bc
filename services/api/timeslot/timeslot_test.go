package timeslot

import (
	"encoding/json"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var plant = time.FixedZone("plant", 7*60*60)

func newTestGrouper() *Grouper {
	return NewGrouper(plant)
}

func floatPtr(v float64) *float64 { return &v }

func TestComputeTimeSlots_SingleSlot(t *testing.T) {
	g := newTestGrouper()

	set := g.ComputeTimeSlots("2024-01-01T08:00", 1)

	require.Len(t, set.Slots, 1)
	assert.True(t, set.Slots[0].Equal(time.Date(2024, 1, 1, 8, 0, 0, 0, plant)))
	assert.Equal(t, []string{"08:00"}, set.Headers)
}

func TestComputeTimeSlots_InclusiveWindow(t *testing.T) {
	g := newTestGrouper()
	base := time.Date(2024, 1, 1, 8, 0, 0, 0, plant)

	set := g.ComputeTimeSlots("2024-01-01T08:00", 4)

	require.Len(t, set.Slots, 4)
	require.Len(t, set.Headers, 4)
	assert.True(t, set.Slots[0].Equal(base))
	for i := 1; i < len(set.Slots); i++ {
		assert.Equal(t, 40*time.Minute, set.Slots[i].Sub(set.Slots[i-1]))
	}
	assert.True(t, set.Slots[3].Equal(base.Add(120*time.Minute)))
	assert.Equal(t, []string{"08:00", "08:40", "09:20", "10:00"}, set.Headers)
}

func TestComputeTimeSlots_FractionalInterval(t *testing.T) {
	g := newTestGrouper()

	set := g.ComputeTimeSlots("2024-01-01 08:00:00", 8)

	require.Len(t, set.Slots, 8)
	assert.Equal(t, "08:17", set.Headers[1])
	assert.Equal(t, "2024-01-01 08:17:08", g.FormatDateRec(set.Slots[1]))
	assert.Equal(t, 0, set.Slots[1].Nanosecond()%int(time.Millisecond))
	assert.Equal(t, "10:00", set.Headers[7])
	for i := 1; i < len(set.Slots); i++ {
		assert.False(t, set.Slots[i].Before(set.Slots[i-1]))
	}
}

func TestComputeTimeSlots_Guards(t *testing.T) {
	g := newTestGrouper()

	cases := []struct {
		name string
		base string
		jm   int
	}{
		{"zero jm", "2024-01-01T08:00", 0},
		{"negative jm", "2024-01-01T08:00", -2},
		{"empty base", "", 4},
		{"garbage base", "not-a-date", 4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			set := g.ComputeTimeSlots(tc.base, tc.jm)
			assert.Empty(t, set.Headers)
			assert.Empty(t, set.Slots)
			assert.NotNil(t, set.Headers)
			assert.NotNil(t, set.Slots)
		})
	}
}

func TestParseBase_RFC3339ConvertsToZone(t *testing.T) {
	g := newTestGrouper()

	got, ok := g.ParseBase("2024-01-01T01:00:00Z")

	require.True(t, ok)
	assert.Equal(t, "2024-01-01 08:00:00", g.FormatDateRec(got))
}

func TestGroupTagsByJmInput_StablePartition(t *testing.T) {
	g := newTestGrouper()
	tags := []InputTag{
		{TagNo: "A", JmInput: 4},
		{TagNo: "B"},
		{TagNo: "C", JmInput: 1},
		{TagNo: "D", JmInput: 4},
		{TagNo: "E", JmInput: 6},
	}

	grouping := g.GroupTagsByJmInput(tags, "2024-01-01T08:00")

	assert.Equal(t, []int{4, 6, 1}, grouping.Order)
	assert.Equal(t, []InputTag{tags[0], tags[3]}, grouping.Groups[4])
	assert.Equal(t, []InputTag{tags[1], tags[4]}, grouping.Groups[6])
	assert.Equal(t, []InputTag{tags[2]}, grouping.Groups[1])
	assert.Equal(t, len(tags), grouping.Len())
	assert.Len(t, grouping.Slots[6], 6)
	assert.Len(t, grouping.Headers[1], 1)
}

func TestGroupTagsByJmInput_EveryTagOnce(t *testing.T) {
	g := newTestGrouper()
	tags := make([]InputTag, 0, 50)
	for i := 0; i < 50; i++ {
		tags = append(tags, InputTag{TagNo: string(rune('a' + i%26)), JmInput: i % 5})
	}

	grouping := g.GroupTagsByJmInput(tags, "2024-01-01T08:00")

	assert.Equal(t, len(tags), grouping.Len())
	assert.ElementsMatch(t, []int{6, 1, 2, 3, 4}, grouping.Order)
	assert.Len(t, grouping.Groups, len(grouping.Order))
}

func TestGroupTagsByJmInput_InvalidBaseStillGroups(t *testing.T) {
	g := newTestGrouper()

	grouping := g.GroupTagsByJmInput([]InputTag{{TagNo: "T1", JmInput: 3}}, "")

	assert.Len(t, grouping.Groups[3], 1)
	assert.Empty(t, grouping.Slots[3])
}

func TestReconcileExistingInputs(t *testing.T) {
	g := newTestGrouper()
	tags := []InputTag{{TagNo: "T1", JmInput: 4}, {TagNo: "T2", JmInput: 4}}
	existing := map[string]ExistingInput{
		"T1_2024-01-01 08:40:00": {Value: floatPtr(7), DateRec: "2024-01-01 08:40:00"},
		"T1_2024-01-01 10:00:00": {Value: floatPtr(12.5), DateRec: "2024-01-01 10:00:00"},
		"T2_2024-01-01 08:00:00": {Value: nil, DateRec: "2024-01-01 08:00:00"},
		"T2_2024-01-01 08:41:00": {Value: floatPtr(1), DateRec: "2024-01-01 08:41:00"},
	}

	values := g.ReconcileExistingInputs(tags, existing, "2024-01-01T08:00")

	assert.Equal(t, map[string]string{
		"T1_1": "7",
		"T1_3": "12.5",
		"T2_0": "NaN",
	}, values[4])
	_, present := values[4]["T2_1"]
	assert.False(t, present)
}

func TestReconcileExistingInputs_EmptyTagNoNeverMatches(t *testing.T) {
	g := newTestGrouper()
	tags := []InputTag{{TagNo: "", JmInput: 1}}
	existing := map[string]ExistingInput{
		"_2024-01-01 08:00:00": {Value: floatPtr(3)},
	}

	values := g.ReconcileExistingInputs(tags, existing, "2024-01-01T08:00")

	assert.Empty(t, values[1])
	assert.Equal(t, "empty-tag-0", RowID(tags[0], 0))
	assert.Equal(t, "T9", RowID(InputTag{TagNo: "T9"}, 4))
}

func TestEndToEnd_LoadEditSave(t *testing.T) {
	g := newTestGrouper()
	tags := []InputTag{{TagNo: "T1", JmInput: 4}}
	base := "2024-01-01T08:00"
	existing := map[string]ExistingInput{
		"T1_2024-01-01 08:40:00": {Value: floatPtr(7), DateRec: "2024-01-01 08:40:00"},
	}

	grouping := g.GroupTagsByJmInput(tags, base)
	values := g.ReconcileExistingInputs(tags, existing, base)

	assert.Equal(t, map[int][]InputTag{4: tags}, grouping.Groups)
	assert.Equal(t, []string{"08:00", "08:40", "09:20", "10:00"}, grouping.Headers[4])
	assert.Equal(t, map[string]string{"T1_1": "7"}, values[4])

	records := g.CollectSaveRecords(grouping.Groups, grouping.Slots, values, 42)

	require.Len(t, records, 1)
	assert.Equal(t, SaveRecord{TagNo: "T1", Value: Number(7), DateRec: "2024-01-01 08:40:00", PerfID: 42}, records[0])

	// the saved date_rec must reconcile back onto the same cell
	roundTrip := map[string]ExistingInput{
		records[0].TagNo + "_" + records[0].DateRec: {Value: records[0].Value.Ptr()},
	}
	assert.Equal(t, values, g.ReconcileExistingInputs(tags, roundTrip, base))
}

func TestCollectSaveRecords_SkipsBlankAndGarbage(t *testing.T) {
	g := newTestGrouper()
	grouping := g.GroupTagsByJmInput([]InputTag{{TagNo: "T1", JmInput: 4}, {TagNo: "", JmInput: 4}}, "2024-01-01T08:00")
	values := ValueMaps{4: {
		"T1_0": "   ",
		"T1_1": "0.00",
		"T1_2": "abc",
		"T1_3": "nan",
		"_0":   "5",
	}}

	records := g.CollectSaveRecords(grouping.Groups, grouping.Slots, values, 1)

	require.Len(t, records, 2)
	assert.Equal(t, Number(0), records[0].Value)
	assert.Equal(t, "2024-01-01 08:40:00", records[0].DateRec)
	assert.True(t, records[1].Value.IsNull())
	assert.Equal(t, "2024-01-01 10:00:00", records[1].DateRec)
}

func TestCollectSaveRecords_OnlyGivenTags(t *testing.T) {
	g := newTestGrouper()
	grouping := g.GroupTagsByJmInput([]InputTag{{TagNo: "T1", JmInput: 1}, {TagNo: "T2", JmInput: 1}}, "2024-01-01T08:00")
	values := ValueMaps{1: {"T1_0": "1", "T2_0": "2"}}
	visible := map[int][]InputTag{1: {grouping.Groups[1][1]}}

	records := g.CollectSaveRecords(visible, grouping.Slots, values, 3)

	require.Len(t, records, 1)
	assert.Equal(t, "T2", records[0].TagNo)
}

func TestSaveRecord_JSON(t *testing.T) {
	b, err := json.Marshal([]SaveRecord{
		{TagNo: "T1", Value: Number(7.25), DateRec: "2024-01-01 08:00:00", PerfID: 42},
		{TagNo: "T2", Value: ExplicitNull(), DateRec: "2024-01-01 08:00:00", PerfID: 42},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"tag_no":"T1","value":7.25,"date_rec":"2024-01-01 08:00:00","perf_id":42},
		{"tag_no":"T2","value":null,"date_rec":"2024-01-01 08:00:00","perf_id":42}
	]`, string(b))

	var decoded []SaveRecord
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.True(t, decoded[1].Value.IsNull())
	n, ok := decoded[0].Value.Float()
	assert.True(t, ok)
	assert.Equal(t, 7.25, n)
}

func TestCollectSaveCells_KeepsSlotInstant(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	g := NewGrouper(ny)
	tags := []InputTag{{TagNo: "T1", JmInput: 4}}
	grouping := g.GroupTagsByJmInput(tags, "2024-11-03T00:30")

	cells := g.CollectSaveCells(grouping.Groups, grouping.Slots, ValueMaps{4: {"T1_0": "1", "T1_3": "5"}}, 9)

	require.Len(t, cells, 2)
	assert.True(t, cells[1].At.Equal(time.Date(2024, 11, 3, 6, 30, 0, 0, time.UTC)))
	assert.Equal(t, "2024-11-03 01:30:00", cells[1].Record.DateRec)
	assert.Equal(t, Number(5), cells[1].Record.Value)
	assert.True(t, cells[0].At.Equal(time.Date(2024, 11, 3, 4, 30, 0, 0, time.UTC)))
}
