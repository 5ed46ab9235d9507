package broadcast

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// target is the daily fire time: hour and minute evaluated in a fixed
// IANA timezone.
type target struct {
	sched cron.Schedule
	loc   *time.Location
}

// parseTarget builds the daily schedule from "HH:MM" and a timezone.
// An invalid time or timezone is a hard error: the scheduler fails
// closed rather than guessing a fire time.
func parseTarget(at, timezone string) (target, error) {
	hour, minute, err := parseHHMM(at)
	if err != nil {
		return target{}, err
	}
	tz := strings.TrimSpace(timezone)
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return target{}, fmt.Errorf("broadcast timezone %q: %w", tz, err)
	}
	sched, err := cron.ParseStandard(fmt.Sprintf("CRON_TZ=%s %d %d * * *", tz, minute, hour))
	if err != nil {
		return target{}, fmt.Errorf("broadcast schedule %02d:%02d: %w", hour, minute, err)
	}
	return target{sched: sched, loc: loc}, nil
}

// next returns the coming fire instant: today's target if it has not
// passed yet, otherwise tomorrow's.
func (t target) next(now time.Time) time.Time {
	return t.sched.Next(now.In(t.loc))
}

func parseHHMM(s string) (hour, minute int, err error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h, m, nil
}
