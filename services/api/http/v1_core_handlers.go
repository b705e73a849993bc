package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// handleV1ListPerformanceRecords returns a page of performance tests
// GET /api/v1/core/performance-records?page=1&limit=20&search=unit
func (s *Server) handleV1ListPerformanceRecords(c *gin.Context) {
	page := 1
	if p := c.Query("page"); p != "" {
		if val, err := strconv.Atoi(p); err == nil && val > 0 {
			page = val
		}
	}

	limit := s.cfg.DefaultLimit
	if l := c.Query("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil && val > 0 && val <= 200 {
			limit = val
		}
	}

	offset := (page - 1) * limit

	ctx, cancel := s.requestContext(c)
	defer cancel()

	result, err := s.catalog.ListPerformanceRecords(ctx, limit, offset, c.Query("search"))
	if err != nil {
		s.internalError(c, "list performance records", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": result.Records,
		"pagination": gin.H{
			"page":        page,
			"limit":       limit,
			"total_count": result.TotalCount,
			"total_pages": (result.TotalCount + limit - 1) / limit,
		},
	})
}

// handleV1GetPerformanceRecord returns one performance test
// GET /api/v1/core/performance-records/:id
func (s *Server) handleV1GetPerformanceRecord(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid performance record id"})
		return
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	record, err := s.catalog.GetPerformanceRecord(ctx, id)
	if err != nil {
		s.internalError(c, "get performance record", err)
		return
	}

	if record == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "performance record not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": record,
	})
}

// handleV1ListInputTags returns the manual-entry tags of one tab
// GET /api/v1/core/input-tags?perf_id=42&m_input=1
func (s *Server) handleV1ListInputTags(c *gin.Context) {
	perfID, mInput, ok := parseSheetIDs(c)
	if !ok {
		return
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	tags, err := s.catalog.ListInputTags(ctx, perfID, mInput)
	if err != nil {
		s.internalError(c, "list input tags", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": tags,
		"meta": gin.H{
			"perf_id": perfID,
			"m_input": mInput,
			"count":   len(tags),
		},
	})
}

// parseSheetIDs reads perf_id and m_input (default 1) from the query string,
// writing a 400 response when either is invalid.
func parseSheetIDs(c *gin.Context) (int64, int, bool) {
	perfID, err := strconv.ParseInt(c.Query("perf_id"), 10, 64)
	if err != nil || perfID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid perf_id"})
		return 0, 0, false
	}

	mInput := 1
	if m := c.Query("m_input"); m != "" {
		val, err := strconv.Atoi(m)
		if err != nil || val <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid m_input"})
			return 0, 0, false
		}
		mInput = val
	}
	return perfID, mInput, true
}
