package core

// Status is a snapshot of a running capture session, as served by dwcapd.
type Status struct {
	Session   string `json:"session,omitempty"`
	Device    string `json:"device"`
	Baud      int    `json:"baud"`
	Marker    string `json:"marker"`
	Output    string `json:"output"`
	Lines     uint64 `json:"lines"`
	Marked    uint64 `json:"marked"`
	UptimeSec uint64 `json:"uptime_sec"`
}
