package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// CacheItem describes a cache item in a transport-friendly format.
type CacheItem struct {
	ID               string `json:"id"`
	VolumeID         string `json:"volumeId"`
	FileID           string `json:"fileId"`
	FileVersion      int    `json:"fileVersion"`
	TemplateKey      string `json:"templateKey"`
	TemplateRevision int    `json:"templateRevision"`
	CacheStatus      string `json:"cacheStatus"`
	QueueStatus      string `json:"queueStatus"`
	MimeType         string `json:"mimeType,omitempty"`
	MediaType        string `json:"mediaType,omitempty"`
	Extension        string `json:"extension,omitempty"`
	FileSize         int64  `json:"fileSize"`
	Width            *int   `json:"width,omitempty"`
	Height           *int   `json:"height,omitempty"`
	Error            string `json:"error,omitempty"`
	CreatedAt        string `json:"createdAt,omitempty"`
	UpdatedAt        string `json:"updatedAt,omitempty"`
	FinishedAt       string `json:"finishedAt,omitempty"`
}

// ItemListResponse wraps a collection of cache items.
type ItemListResponse struct {
	Items []CacheItem `json:"items"`
}

// ItemResponse wraps a single cache item.
type ItemResponse struct {
	Item CacheItem `json:"item"`
}

// StatsResponse provides item counts keyed by status.
type StatsResponse struct {
	Total         int            `json:"total"`
	ByCacheStatus map[string]int `json:"byCacheStatus"`
	ByQueueStatus map[string]int `json:"byQueueStatus"`
}

// HealthResponse reports queue freshness.
type HealthResponse struct {
	Status   string   `json:"status"`
	LastRun  string   `json:"lastRun,omitempty"`
	Problems []string `json:"problems,omitempty"`
}

// ErrorResponse is returned for failed requests.
type ErrorResponse struct {
	Error string `json:"error"`
}

// LogsResponse carries log lines and the offset to resume from.
type LogsResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}
