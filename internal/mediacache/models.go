package mediacache

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// CacheStatus describes the state of the derivative itself.
type CacheStatus string

const (
	StatusOK       CacheStatus = "ok"
	StatusError    CacheStatus = "error"
	StatusMissing  CacheStatus = "missing"
	StatusDelegate CacheStatus = "delegate"
	StatusPending  CacheStatus = "pending"
)

var allCacheStatuses = []CacheStatus{StatusOK, StatusError, StatusMissing, StatusDelegate, StatusPending}

// IsTerminal reports whether a processing pass may end in this status.
func (s CacheStatus) IsTerminal() bool {
	switch s {
	case StatusOK, StatusError, StatusMissing, StatusDelegate:
		return true
	default:
		return false
	}
}

// ParseCacheStatus normalizes a user-supplied status.
func ParseCacheStatus(value string) (CacheStatus, error) {
	normalized := CacheStatus(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allCacheStatuses {
		if status == normalized {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown cache status %q", value)
}

// QueueStatus reflects whether the job queue still holds the item.
type QueueStatus string

const (
	QueueQueued QueueStatus = "queued"
	QueueDone   QueueStatus = "done"
	QueueError  QueueStatus = "error"
)

var allQueueStatuses = []QueueStatus{QueueQueued, QueueDone, QueueError}

// ParseQueueStatus normalizes a user-supplied queue status.
func ParseQueueStatus(value string) (QueueStatus, error) {
	normalized := QueueStatus(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allQueueStatuses {
		if status == normalized {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown queue status %q", value)
}

// Identity uniquely identifies a cache item.
type Identity struct {
	VolumeID         string
	FileID           string
	FileVersion      int
	TemplateKey      string
	TemplateRevision int
}

func (i Identity) String() string {
	return fmt.Sprintf("%s/%s@%d:%s#%d", i.VolumeID, i.FileID, i.FileVersion, i.TemplateKey, i.TemplateRevision)
}

// Validate checks that every identity component is present.
func (i Identity) Validate() error {
	switch {
	case strings.TrimSpace(i.VolumeID) == "":
		return errors.New("identity: volume id is required")
	case strings.TrimSpace(i.FileID) == "":
		return errors.New("identity: file id is required")
	case strings.TrimSpace(i.TemplateKey) == "":
		return errors.New("identity: template key is required")
	case i.FileVersion < 1:
		return errors.New("identity: file version must be positive")
	}
	return nil
}

// CacheItem is one cached derivative of a source file under a template.
type CacheItem struct {
	ID               string
	VolumeID         string
	FileID           string
	FileVersion      int
	TemplateKey      string
	TemplateRevision int
	CacheStatus      CacheStatus
	QueueStatus      QueueStatus
	MimeType         string
	MediaType        string
	Extension        string
	FileSize         int64
	Width            *int
	Height           *int
	Error            string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	FinishedAt       *time.Time
}

// Identity returns the unique key of the item.
func (c *CacheItem) Identity() Identity {
	return Identity{
		VolumeID:         c.VolumeID,
		FileID:           c.FileID,
		FileVersion:      c.FileVersion,
		TemplateKey:      c.TemplateKey,
		TemplateRevision: c.TemplateRevision,
	}
}

// Clone returns a deep copy.
func (c *CacheItem) Clone() *CacheItem {
	if c == nil {
		return nil
	}
	clone := *c
	if c.Width != nil {
		w := *c.Width
		clone.Width = &w
	}
	if c.Height != nil {
		h := *c.Height
		clone.Height = &h
	}
	if c.FinishedAt != nil {
		f := *c.FinishedAt
		clone.FinishedAt = &f
	}
	return &clone
}

// SetDimensions records the output size.
func (c *CacheItem) SetDimensions(width, height int) {
	c.Width = &width
	c.Height = &height
}

// Complete marks the derivative as produced.
func (c *CacheItem) Complete(now time.Time) {
	c.CacheStatus = StatusOK
	c.QueueStatus = QueueDone
	c.Error = ""
	c.finish(now)
}

// Fail records a processing failure.
func (c *CacheItem) Fail(err error, now time.Time) {
	c.CacheStatus = StatusError
	c.QueueStatus = QueueError
	if err != nil {
		c.Error = err.Error()
	} else {
		c.Error = "unknown error"
	}
	c.finish(now)
}

// MarkMissing records an unmet precondition. The queue is done with the item:
// retrying would hit the same precondition.
func (c *CacheItem) MarkMissing(reason string, now time.Time) {
	c.CacheStatus = StatusMissing
	c.QueueStatus = QueueDone
	c.Error = reason
	c.finish(now)
}

func (c *CacheItem) finish(now time.Time) {
	finished := now.UTC()
	c.FinishedAt = &finished
}

// Queue is an ordered collection of pending cache items.
type Queue struct {
	items []*CacheItem
}

// NewQueue builds a queue preserving the given order.
func NewQueue(items ...*CacheItem) *Queue {
	q := &Queue{}
	for _, item := range items {
		if item != nil {
			q.items = append(q.items, item)
		}
	}
	return q
}

// All returns the items in processing order.
func (q *Queue) All() []*CacheItem {
	if q == nil {
		return nil
	}
	return q.items
}

// Len returns the number of queued items.
func (q *Queue) Len() int {
	if q == nil {
		return 0
	}
	return len(q.items)
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	CacheStatuses []CacheStatus
	QueueStatuses []QueueStatus
	TemplateKey   string
	FileID        string
	Limit         int
}

// Stats aggregates item counts.
type Stats struct {
	Total         int
	ByCacheStatus map[CacheStatus]int
	ByQueueStatus map[QueueStatus]int
}
