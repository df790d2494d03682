package health

import "time"

// Status is the health payload.
type Status struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// Service encapsulates health-related checks.
type Service struct {
	now func() time.Time
}

// NewService constructs a new health service.
func NewService() *Service {
	return &Service{now: time.Now}
}

// Status reports liveness. It does not touch the backing stores.
func (s *Service) Status() Status {
	now := time.Now
	if s != nil && s.now != nil {
		now = s.now
	}
	return Status{Status: "okay", Time: now().UTC().Format(time.RFC3339)}
}
