package download

// QueueEntryData is one row of the queue snapshot pushed to the UI.
type QueueEntryData struct {
	Meta     DownloadableKey `json:"meta"`
	Status   DownloadStatus  `json:"status"`
	Progress float64         `json:"progress"`
	Current  int64           `json:"current"`
	Max      int64           `json:"max"`
}

// QueueUpdateEvent is the update_queue payload.
type QueueUpdateEvent struct {
	Queue []QueueEntryData `json:"queue"`
}

// StatsUpdateEvent is the update_stats payload.
type StatsUpdateEvent struct {
	Speed uint64 `json:"speed"` // KB/s, rolling average
	Time  uint64 `json:"time"`  // seconds remaining
}
