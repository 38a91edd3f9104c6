package api

import (
	"time"

	"mediacache/internal/mediacache"
)

// FromCacheItem converts a cache item to its API representation.
func FromCacheItem(item *mediacache.CacheItem) CacheItem {
	if item == nil {
		return CacheItem{}
	}
	dto := CacheItem{
		ID:               item.ID,
		VolumeID:         item.VolumeID,
		FileID:           item.FileID,
		FileVersion:      item.FileVersion,
		TemplateKey:      item.TemplateKey,
		TemplateRevision: item.TemplateRevision,
		CacheStatus:      string(item.CacheStatus),
		QueueStatus:      string(item.QueueStatus),
		MimeType:         item.MimeType,
		MediaType:        item.MediaType,
		Extension:        item.Extension,
		FileSize:         item.FileSize,
		Width:            item.Width,
		Height:           item.Height,
		Error:            item.Error,
		CreatedAt:        FormatTime(item.CreatedAt),
		UpdatedAt:        FormatTime(item.UpdatedAt),
	}
	if item.FinishedAt != nil {
		dto.FinishedAt = FormatTime(*item.FinishedAt)
	}
	return dto
}

// FromCacheItems converts a slice of cache items into API DTOs.
func FromCacheItems(items []*mediacache.CacheItem) []CacheItem {
	out := make([]CacheItem, 0, len(items))
	for _, item := range items {
		out = append(out, FromCacheItem(item))
	}
	return out
}

// FromStats converts aggregate counts.
func FromStats(stats mediacache.Stats) StatsResponse {
	resp := StatsResponse{
		Total:         stats.Total,
		ByCacheStatus: make(map[string]int, len(stats.ByCacheStatus)),
		ByQueueStatus: make(map[string]int, len(stats.ByQueueStatus)),
	}
	for status, count := range stats.ByCacheStatus {
		resp.ByCacheStatus[string(status)] = count
	}
	for status, count := range stats.ByQueueStatus {
		resp.ByQueueStatus[string(status)] = count
	}
	return resp
}

// FormatTime renders t in the API timestamp format; zero yields "".
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
