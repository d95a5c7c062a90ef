package ipc

import "time"

// StartRequest triggers the daemon detection loop.
type StartRequest struct{}

// StartResponse indicates whether the daemon was started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest stops the detection loop.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// DependencyStatus describes availability of an external binary.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail"`
}

// StatusResponse represents combined daemon and detection status.
type StatusResponse struct {
	Running      bool               `json:"running"`
	State        string             `json:"state"`
	SessionID    string             `json:"session_id"`
	FrameIndex   uint64             `json:"frame_index"`
	StartedAt    time.Time          `json:"started_at"`
	LastVideo    string             `json:"last_video"`
	LockPath     string             `json:"lock_path"`
	DBPath       string             `json:"db_path"`
	PID          int                `json:"pid"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// SessionRecord is the session history DTO for IPC callers.
type SessionRecord struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	FirstFrame  uint64    `json:"first_frame"`
	LastFrame   uint64    `json:"last_frame"`
	FrameCount  uint64    `json:"frame_count"`
	VideoPath   string    `json:"video_path"`
	Transferred bool      `json:"transferred"`
	Failure     string    `json:"failure"`
}

// SessionsRequest lists recorded session history. Limit 0 returns all.
type SessionsRequest struct {
	Limit int `json:"limit"`
}

// SessionsResponse contains session history entries, newest first.
type SessionsResponse struct {
	Sessions []SessionRecord `json:"sessions"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
