package campaign

import "time"

// SetSleepForTest replaces the throttle sleep so tests run instantly.
func SetSleepForTest(s *Service, fn func(time.Duration)) { s.sleep = fn }
