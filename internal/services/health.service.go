package services

import "context"

// Pinger is anything that can report liveness (DB handle, redis).
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthService struct {
	checks []Pinger
}

func NewHealthService(checks ...Pinger) *HealthService {
	return &HealthService{checks: checks}
}

func (s *HealthService) Get() error {
	for _, c := range s.checks {
		if err := c.Ping(context.Background()); err != nil {
			return err
		}
	}
	return nil
}
