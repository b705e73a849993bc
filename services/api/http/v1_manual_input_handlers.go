package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/02loveslollipop/perftest-dashboard/services/api/grid"
	"github.com/02loveslollipop/perftest-dashboard/services/api/manualinput"
	"github.com/02loveslollipop/perftest-dashboard/services/api/timeslot"
)

// handleV1Sheet returns the editable sheet of one tab
// GET /api/v1/manual-input/sheet?perf_id=42&m_input=1&date_time=2024-01-01T08:00&search=&sort=tag_no&order=asc&page=1&limit=50
func (s *Server) handleV1Sheet(c *gin.Context) {
	perfID, mInput, ok := parseSheetIDs(c)
	if !ok {
		return
	}

	query := grid.Query{
		Search: c.Query("search"),
		SortBy: c.Query("sort"),
		Desc:   strings.EqualFold(c.Query("order"), "desc"),
	}
	if p := c.Query("page"); p != "" {
		if val, err := strconv.Atoi(p); err == nil {
			query.Page = val
		}
	}
	if l := c.Query("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil {
			query.Limit = val
		}
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	sheet, err := s.inputs.Load(ctx, manualinput.SheetRequest{
		PerfID:       perfID,
		MInput:       mInput,
		BaseDateTime: c.Query("date_time"),
		Query:        query,
	})
	if err != nil {
		s.serviceError(c, "load sheet", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": sheet,
		"meta": gin.H{
			"groups":    len(sheet.Groups),
			"tag_count": sheet.TagCount,
			"timezone":  s.inputs.Grouper().Location().String(),
		},
	})
}

// handleV1Save stores the edited cells of a sheet and returns it reloaded
// POST /api/v1/manual-input/save
func (s *Server) handleV1Save(c *gin.Context) {
	var req manualinput.SaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	result, err := s.inputs.Save(ctx, req)
	if err != nil {
		s.serviceError(c, "save manual inputs", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": result,
		"meta": gin.H{
			"saved":     result.Saved,
			"batch_id":  result.BatchID,
			"refreshed": result.Refreshed,
		},
	})
}

type validateRequest struct {
	Values timeslot.ValueMaps `json:"values"`
}

// handleV1Validate flags cells that are not acceptable readings
// POST /api/v1/manual-input/validate
func (s *Server) handleV1Validate(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	invalid := s.inputs.ValidateCells(req.Values)
	count := 0
	for _, keys := range invalid {
		count += len(keys)
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{"invalid": invalid},
		"meta": gin.H{"invalid_count": count},
	})
}

func (s *Server) serviceError(c *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, manualinput.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, manualinput.ErrSaveInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		s.internalError(c, msg, err)
	}
}
