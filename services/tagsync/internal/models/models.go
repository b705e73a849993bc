package models

// CatalogResponse models the JSON payload returned by the tag catalogue feed.
type CatalogResponse struct {
	Tags   []CatalogEntry `json:"tags"`
	Source string         `json:"source"`
}

// CatalogEntry represents a single manual-entry tag from the catalogue.
type CatalogEntry struct {
	TagNo       string `json:"tag_no"`
	Description string `json:"description"`
	UnitName    string `json:"unit_name"`
	JmInput     int    `json:"jm_input"`
	MInput      int    `json:"m_input"`
	PerfID      *int64 `json:"perf_id"`
}
