package queue

import "fmt"

// Summary is a count of queued tracks by lifecycle stage.
type Summary struct {
	Total      int `json:"total"`
	Downloaded int `json:"downloaded"`
	Failed     int `json:"failed"`
	InFlight   int `json:"inFlight"`
	Pending    int `json:"pending"`
}

// Remaining is the number of tracks the next export run would process.
func (s Summary) Remaining() int {
	return s.Total - s.Downloaded
}

func (s Summary) String() string {
	if s.Failed > 0 {
		return fmt.Sprintf("%d of %d ready, %d failed", s.Downloaded, s.Total, s.Failed)
	}
	return fmt.Sprintf("%d of %d ready", s.Downloaded, s.Total)
}
