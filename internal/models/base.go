package models

import "time"

// BatchProgress tracks the progress of a write-back batch
type BatchProgress struct {
	TotalItems     int       `json:"total_items"`
	ProcessedItems int       `json:"processed_items"`
	FailedItems    int       `json:"failed_items"`
	LastItem       string    `json:"last_item"`
	StartTime      time.Time `json:"start_time"`
	LastUpdateTime time.Time `json:"last_update_time"`
}
