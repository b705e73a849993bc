package timeslot

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	// WindowMinutes is the span covered by every slot set.
	WindowMinutes = 120
	// DefaultJmInput applies to tags whose jm_input is zero.
	DefaultJmInput = 6

	headerLayout  = "15:04"
	dateRecLayout = "2006-01-02 15:04:05"
)

var baseLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
}

// InputTag is a measurement point eligible for manual entry.
type InputTag struct {
	TagNo       string `json:"tag_no"`
	Description string `json:"description"`
	UnitName    string `json:"unit_name"`
	JmInput     int    `json:"jm_input"`
}

// GroupKey returns the jm_input partition the tag belongs to.
func (t InputTag) GroupKey() int {
	if t.JmInput == 0 {
		return DefaultJmInput
	}
	return t.JmInput
}

// SlotSet is the time axis of one jm_input group.
type SlotSet struct {
	Headers []string    `json:"headers"`
	Slots   []time.Time `json:"slots"`
}

// ExistingInput is a stored value for a (tag_no, date_rec) pair. A nil Value
// is an explicit null reading.
type ExistingInput struct {
	Value   *float64 `json:"value"`
	DateRec string   `json:"date_rec"`
}

// ValueMaps holds the editable cell strings per jm group, keyed by
// "{tag_no}_{timeIndex}".
type ValueMaps map[int]map[string]string

// Grouping is the result of partitioning tags by jm_input.
type Grouping struct {
	Order   []int
	Groups  map[int][]InputTag
	Headers map[int][]string
	Slots   map[int][]time.Time
}

// Len returns the number of tags across all groups.
func (g Grouping) Len() int {
	n := 0
	for _, tags := range g.Groups {
		n += len(tags)
	}
	return n
}

// Grouper computes slot sets and reconciles values in a fixed time zone.
type Grouper struct {
	loc *time.Location
}

// NewGrouper returns a Grouper that parses and formats in loc (time.Local when nil).
func NewGrouper(loc *time.Location) *Grouper {
	if loc == nil {
		loc = time.Local
	}
	return &Grouper{loc: loc}
}

// Location returns the zone used for parsing and formatting.
func (g *Grouper) Location() *time.Location {
	return g.loc
}

// ParseBase parses a base date-time. Wall-clock layouts are read in the
// grouper's zone; RFC 3339 values are converted to it.
func (g *Grouper) ParseBase(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(g.loc), true
	}
	for _, layout := range baseLayouts {
		if t, err := time.ParseInLocation(layout, s, g.loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatDateRec renders t as "YYYY-MM-DD HH:MM:SS" in the grouper's zone. It is
// the only formatter used for both reconciliation keys and saved records.
func (g *Grouper) FormatDateRec(t time.Time) string {
	return t.In(g.loc).Format(dateRecLayout)
}

// Window returns the [start, end] range covered by slot sets for base.
func (g *Grouper) Window(base string) (time.Time, time.Time, bool) {
	start, ok := g.ParseBase(base)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	return start, start.Add(WindowMinutes * time.Minute), true
}

// ComputeTimeSlots spreads jm slots over the two-hour window starting at base,
// including both endpoints when jm > 1.
func (g *Grouper) ComputeTimeSlots(base string, jm int) SlotSet {
	start, ok := g.ParseBase(base)
	if !ok || jm <= 0 {
		return SlotSet{Headers: []string{}, Slots: []time.Time{}}
	}

	set := SlotSet{
		Headers: make([]string, 0, jm),
		Slots:   make([]time.Time, 0, jm),
	}
	window := int64(WindowMinutes * time.Minute)
	for i := 0; i < jm; i++ {
		var offset int64
		if jm > 1 {
			offset = int64(i) * window / int64(jm-1)
		}
		slot := start.Add(time.Duration(offset)).Truncate(time.Millisecond)
		set.Slots = append(set.Slots, slot)
		set.Headers = append(set.Headers, slot.In(g.loc).Format(headerLayout))
	}
	return set
}

// GroupTagsByJmInput partitions tags by jm_input, keeping input order inside
// each group, and computes one slot set per distinct key.
func (g *Grouper) GroupTagsByJmInput(tags []InputTag, base string) Grouping {
	out := Grouping{
		Order:   make([]int, 0),
		Groups:  make(map[int][]InputTag),
		Headers: make(map[int][]string),
		Slots:   make(map[int][]time.Time),
	}
	for _, tag := range tags {
		key := tag.GroupKey()
		if _, seen := out.Groups[key]; !seen {
			set := g.ComputeTimeSlots(base, key)
			out.Order = append(out.Order, key)
			out.Headers[key] = set.Headers
			out.Slots[key] = set.Slots
		}
		out.Groups[key] = append(out.Groups[key], tag)
	}
	return out
}

// ExistingKey builds the lookup key of a stored value.
func (g *Grouper) ExistingKey(tagNo string, slot time.Time) string {
	return tagNo + "_" + g.FormatDateRec(slot)
}

// CellKey builds the key of an editable cell.
func CellKey(tagNo string, timeIndex int) string {
	return tagNo + "_" + strconv.Itoa(timeIndex)
}

// RowID returns the identifier a tag row renders under. Tags without a tag_no
// get a placeholder that never matches stored data.
func RowID(tag InputTag, index int) string {
	if tag.TagNo == "" {
		return "empty-tag-" + strconv.Itoa(index)
	}
	return tag.TagNo
}

// ReconcileExistingInputs projects stored values onto the cells of each
// group. Slots without a stored record stay absent from the map.
func (g *Grouper) ReconcileExistingInputs(tags []InputTag, existing map[string]ExistingInput, base string) ValueMaps {
	values := make(ValueMaps)
	slotsByJm := make(map[int][]time.Time)

	for _, tag := range tags {
		key := tag.GroupKey()
		if _, ok := values[key]; !ok {
			values[key] = make(map[string]string)
			slotsByJm[key] = g.ComputeTimeSlots(base, key).Slots
		}
		if tag.TagNo == "" {
			continue
		}
		for timeIndex, slot := range slotsByJm[key] {
			rec, ok := existing[g.ExistingKey(tag.TagNo, slot)]
			if !ok {
				continue
			}
			values[key][CellKey(tag.TagNo, timeIndex)] = FormatStored(rec.Value)
		}
	}
	return values
}

// FormatStored renders a stored value the way the editable cell shows it.
func FormatStored(v *float64) string {
	if v == nil {
		return NullToken
	}
	return FormatNumber(*v)
}

// SaveCell pairs a save record with the slot instant it was collected for.
// Persist At, not DateRec: the wall-clock string repeats on a DST fall-back.
type SaveCell struct {
	Record SaveRecord
	At     time.Time
}

// CollectSaveRecords turns non-blank cells of the given tags into save
// records. Cells that hold neither a number nor the null token are skipped.
func (g *Grouper) CollectSaveRecords(groups map[int][]InputTag, slots map[int][]time.Time, values ValueMaps, perfID int64) []SaveRecord {
	cells := g.CollectSaveCells(groups, slots, values, perfID)
	records := make([]SaveRecord, 0, len(cells))
	for _, cell := range cells {
		records = append(records, cell.Record)
	}
	return records
}

// CollectSaveCells is CollectSaveRecords keeping each record's slot instant.
func (g *Grouper) CollectSaveCells(groups map[int][]InputTag, slots map[int][]time.Time, values ValueMaps, perfID int64) []SaveCell {
	keys := make([]int, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Ints(keys)

	out := make([]SaveCell, 0)
	for _, key := range keys {
		cells := values[key]
		if cells == nil {
			continue
		}
		for _, tag := range groups[key] {
			if tag.TagNo == "" {
				continue
			}
			for timeIndex, slot := range slots[key] {
				raw, ok := cells[CellKey(tag.TagNo, timeIndex)]
				if !ok {
					continue
				}
				value, ok := ParseValue(raw)
				if !ok {
					continue
				}
				out = append(out, SaveCell{
					Record: SaveRecord{
						TagNo:   tag.TagNo,
						Value:   value,
						DateRec: g.FormatDateRec(slot),
						PerfID:  perfID,
					},
					At: slot,
				})
			}
		}
	}
	return out
}
