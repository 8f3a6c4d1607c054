package api

// StatusResponse is the payload for GET /api/v1/status.
type StatusResponse struct {
	// State is "ok", "degraded" (some servers failed), "failed" (listing
	// failure) or "unknown" (no cycle yet).
	State      string   `json:"state"`
	CycleID    string   `json:"cycle_id,omitempty"`
	Started    string   `json:"started,omitempty"` // RFC3339
	DurationMs int64    `json:"duration_ms"`
	Pages      int      `json:"pages"`
	Servers    int      `json:"servers"`
	Succeeded  int      `json:"succeeded"`
	Failed     int      `json:"failed"`
	FailedIDs  []string `json:"failed_ids"`
	Error      string   `json:"error,omitempty"`
}

// errorResponse is the JSON body for 4xx/5xx responses on JSON routes.
type errorResponse struct {
	Error string `json:"error"`
}
