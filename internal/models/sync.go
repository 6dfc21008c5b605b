package models

import "time"

// SyncStatus is a derived snapshot of the offline layer, never persisted.
type SyncStatus struct {
	IsOnline     bool       `json:"isOnline"`
	LastSyncTime *time.Time `json:"lastSyncTime"`
	PendingCount int        `json:"pendingCount"`
	IsSyncing    bool       `json:"isSyncing"`
}

// SyncResult summarizes one drain pass.
// Dropped items exhausted their attempt budget and are counted in neither
// Success nor Failed.
type SyncResult struct {
	Success int `json:"success"`
	Failed  int `json:"failed"`
	Dropped int `json:"dropped"`
}
