package models

// TryOnEvent is published once per try-on when it reaches a terminal status.
type TryOnEvent struct {
	RecordID   string      `json:"record_id"`
	UserID     string      `json:"user_id"`
	Category   Category    `json:"category"`
	Status     TryOnStatus `json:"status"`
	Code       string      `json:"code,omitempty"`
	Error      string      `json:"error,omitempty"`
	ResultURL  string      `json:"result_url,omitempty"`
	HappenedAt int64       `json:"happened_at"`
}
