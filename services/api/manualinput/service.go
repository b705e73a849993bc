// Package manualinput loads and saves the manual-input sheets of a
// performance test. One Service serves every input tab; the tab is selected
// by m_input.
package manualinput

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/02loveslollipop/perftest-dashboard/services/api/db"
	"github.com/02loveslollipop/perftest-dashboard/services/api/grid"
	"github.com/02loveslollipop/perftest-dashboard/services/api/notify"
	"github.com/02loveslollipop/perftest-dashboard/services/api/timeslot"
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrSaveInProgress = errors.New("a save for this sheet is already in progress")
)

// Repository is the persistence the service needs.
type Repository interface {
	ListInputTags(ctx context.Context, perfID int64, mInput int) ([]timeslot.InputTag, error)
	ListManualInputs(ctx context.Context, perfID int64, tagNos []string, from, to time.Time) ([]db.ManualInput, error)
	SaveManualInputs(ctx context.Context, inputs []db.ManualInput) (int, error)
}

// Notifier is told about every successful save.
type Notifier interface {
	Notify(ctx context.Context, ev notify.SaveEvent) error
}

// SheetRequest selects one sheet.
type SheetRequest struct {
	PerfID       int64      `json:"perf_id"`
	MInput       int        `json:"m_input"`
	BaseDateTime string     `json:"date_time"`
	Query        grid.Query `json:"query"`
}

// Group is one jm_input table of a sheet.
type Group struct {
	JmInput int               `json:"jm_input"`
	Headers []string          `json:"headers"`
	Slots   []time.Time       `json:"slots"`
	RowIDs  []string          `json:"row_ids"`
	Page    grid.Page         `json:"page"`
	Values  map[string]string `json:"values"`
	Invalid []string          `json:"invalid,omitempty"`
}

// Sheet is the editable grid model of one tab.
type Sheet struct {
	PerfID       int64   `json:"perf_id"`
	MInput       int     `json:"m_input"`
	BaseDateTime string  `json:"date_time"`
	TagCount     int     `json:"tag_count"`
	Groups       []Group `json:"groups"`
}

// SaveRequest carries the edited cells of a sheet.
type SaveRequest struct {
	SheetRequest
	Values timeslot.ValueMaps `json:"values"`
}

// SaveResult reports a save and the reloaded sheet. Refreshed is false when
// the rows were written but the sheet could not be reloaded.
type SaveResult struct {
	BatchID   string                `json:"batch_id"`
	Saved     int                   `json:"saved"`
	Records   []timeslot.SaveRecord `json:"records"`
	Sheet     Sheet                 `json:"sheet"`
	Refreshed bool                  `json:"refreshed"`
}

// Service orchestrates sheet loading and saving.
type Service struct {
	repo     Repository
	notifier Notifier
	grouper  *timeslot.Grouper
	logger   *zap.Logger
	now      func() time.Time

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// New builds a Service. A nil notifier disables save notifications.
func New(repo Repository, notifier Notifier, grouper *timeslot.Grouper, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:     repo,
		notifier: notifier,
		grouper:  grouper,
		logger:   logger,
		now:      time.Now,
		inFlight: make(map[string]struct{}),
	}
}

// Grouper exposes the grouper used for all time computations.
func (s *Service) Grouper() *timeslot.Grouper {
	return s.grouper
}

func (s *Service) validate(req SheetRequest) error {
	if req.PerfID <= 0 {
		return fmt.Errorf("%w: perf_id is required", ErrInvalidRequest)
	}
	if req.MInput <= 0 {
		return fmt.Errorf("%w: m_input must be positive", ErrInvalidRequest)
	}
	if _, ok := s.grouper.ParseBase(req.BaseDateTime); !ok {
		return fmt.Errorf("%w: date_time %q is not a valid date-time", ErrInvalidRequest, req.BaseDateTime)
	}
	return nil
}

// Load builds the sheet for a tab with stored values filled in.
func (s *Service) Load(ctx context.Context, req SheetRequest) (Sheet, error) {
	if err := s.validate(req); err != nil {
		return Sheet{}, err
	}

	tags, err := s.repo.ListInputTags(ctx, req.PerfID, req.MInput)
	if err != nil {
		return Sheet{}, fmt.Errorf("list input tags: %w", err)
	}

	existing, err := s.existingInputs(ctx, req, tags)
	if err != nil {
		return Sheet{}, err
	}

	grouping := s.grouper.GroupTagsByJmInput(tags, req.BaseDateTime)
	values := s.grouper.ReconcileExistingInputs(tags, existing, req.BaseDateTime)
	_, pages := grid.Visible(grouping, req.Query)

	return s.buildSheet(req, tags, grouping, pages, values), nil
}

func (s *Service) existingInputs(ctx context.Context, req SheetRequest, tags []timeslot.InputTag) (map[string]timeslot.ExistingInput, error) {
	tagNos := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag.TagNo != "" {
			tagNos = append(tagNos, tag.TagNo)
		}
	}

	from, to, _ := s.grouper.Window(req.BaseDateTime)
	rows, err := s.repo.ListManualInputs(ctx, req.PerfID, tagNos, from, to)
	if err != nil {
		return nil, fmt.Errorf("list manual inputs: %w", err)
	}

	existing := make(map[string]timeslot.ExistingInput, len(rows))
	for _, row := range rows {
		existing[s.grouper.ExistingKey(row.TagNo, row.DateRec)] = timeslot.ExistingInput{
			Value:   row.Value,
			DateRec: s.grouper.FormatDateRec(row.DateRec),
		}
	}
	return existing, nil
}

func (s *Service) buildSheet(req SheetRequest, tags []timeslot.InputTag, grouping timeslot.Grouping, pages map[int]grid.Page, values timeslot.ValueMaps) Sheet {
	invalid := timeslot.InvalidCells(values)

	// source position of each group member; the partition is stable
	positions := make(map[int][]int, len(grouping.Order))
	for i, tag := range tags {
		jm := tag.GroupKey()
		positions[jm] = append(positions[jm], i)
	}

	sheet := Sheet{
		PerfID:       req.PerfID,
		MInput:       req.MInput,
		BaseDateTime: req.BaseDateTime,
		TagCount:     len(tags),
		Groups:       make([]Group, 0, len(grouping.Order)),
	}
	for _, jm := range grouping.Order {
		page := pages[jm]
		rowIDs := make([]string, 0, len(page.Tags))
		for r, tag := range page.Tags {
			rowIDs = append(rowIDs, timeslot.RowID(tag, positions[jm][page.Index[r]]))
		}
		cells := values[jm]
		if cells == nil {
			cells = map[string]string{}
		}
		sheet.Groups = append(sheet.Groups, Group{
			JmInput: jm,
			Headers: grouping.Headers[jm],
			Slots:   grouping.Slots[jm],
			RowIDs:  rowIDs,
			Page:    page,
			Values:  cells,
			Invalid: invalid[jm],
		})
	}
	return sheet
}

// sheetKey identifies a sheet by its base instant, so every spelling of the
// same date_time maps to one key.
func (s *Service) sheetKey(req SheetRequest) string {
	base, _ := s.grouper.ParseBase(req.BaseDateTime)
	return fmt.Sprintf("%d/%d/%d", req.PerfID, req.MInput, base.UnixNano())
}

func (s *Service) acquire(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[key]; busy {
		return false
	}
	s.inFlight[key] = struct{}{}
	return true
}

func (s *Service) release(key string) {
	s.mu.Lock()
	delete(s.inFlight, key)
	s.mu.Unlock()
}

// Save persists the non-blank cells of the rows visible under req.Query and
// returns the reloaded sheet.
func (s *Service) Save(ctx context.Context, req SaveRequest) (SaveResult, error) {
	if err := s.validate(req.SheetRequest); err != nil {
		return SaveResult{}, err
	}

	key := s.sheetKey(req.SheetRequest)
	if !s.acquire(key) {
		return SaveResult{}, ErrSaveInProgress
	}
	defer s.release(key)

	tags, err := s.repo.ListInputTags(ctx, req.PerfID, req.MInput)
	if err != nil {
		return SaveResult{}, fmt.Errorf("list input tags: %w", err)
	}

	grouping := s.grouper.GroupTagsByJmInput(tags, req.BaseDateTime)
	visible, _ := grid.Visible(grouping, req.Query)
	cells := s.grouper.CollectSaveCells(visible, grouping.Slots, req.Values, req.PerfID)

	records := make([]timeslot.SaveRecord, 0, len(cells))
	rows := make([]db.ManualInput, 0, len(cells))
	for _, cell := range cells {
		records = append(records, cell.Record)
		rows = append(rows, db.ManualInput{
			PerfID:  cell.Record.PerfID,
			TagNo:   cell.Record.TagNo,
			DateRec: cell.At,
			Value:   cell.Record.Value.Ptr(),
		})
	}

	saved, err := s.repo.SaveManualInputs(ctx, rows)
	if err != nil {
		return SaveResult{}, fmt.Errorf("save manual inputs: %w", err)
	}

	result := SaveResult{
		BatchID: uuid.NewString(),
		Saved:   saved,
		Records: records,
	}

	s.logger.Info("manual inputs saved",
		zap.String("batch_id", result.BatchID),
		zap.Int64("perf_id", req.PerfID),
		zap.Int("m_input", req.MInput),
		zap.Int("count", saved),
	)

	if s.notifier != nil && saved > 0 {
		ev := notify.SaveEvent{
			BatchID:      result.BatchID,
			PerfID:       req.PerfID,
			MInput:       req.MInput,
			BaseDateTime: req.BaseDateTime,
			Count:        saved,
			SavedAt:      s.now().UTC(),
		}
		if err := s.notifier.Notify(ctx, ev); err != nil {
			s.logger.Warn("save notification failed", zap.String("batch_id", result.BatchID), zap.Error(err))
		}
	}

	// the rows are committed; a failed reload does not undo the save
	sheet, err := s.Load(ctx, req.SheetRequest)
	if err != nil {
		s.logger.Warn("sheet reload after save failed",
			zap.String("batch_id", result.BatchID),
			zap.Int64("perf_id", req.PerfID),
			zap.Error(err),
		)
		return result, nil
	}
	result.Sheet = sheet
	result.Refreshed = true
	return result, nil
}

// ValidateCells flags cells the form should highlight.
func (s *Service) ValidateCells(values timeslot.ValueMaps) map[int][]string {
	return timeslot.InvalidCells(values)
}
