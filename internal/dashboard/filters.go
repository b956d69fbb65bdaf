package dashboard

import (
	"time"

	"github.com/persys-dev/workflow-watch/internal/store"
)

// Time filter values accepted from the dashboard client.
const (
	TimeAll          = "all"
	TimeLastHour     = "last_hour"
	TimeCurrentDay   = "current_day"
	TimePreviousDay  = "previous_day"
	TimeCurrentWeek  = "current_week"
	TimePreviousWeek = "previous_week"
)

// FilterRequest is the client's get_workflows payload. TimezoneOffset is the
// JS getTimezoneOffset() value: minutes to add to local time to reach UTC.
type FilterRequest struct {
	TimeFilter       string  `json:"time_filter"`
	ConclusionFilter string  `json:"conclusion_filter"`
	IncludeIDs       []int64 `json:"include_ids"`
	TimezoneOffset   int     `json:"timezone_offset"`
}

func defaultRequest() FilterRequest {
	return FilterRequest{TimeFilter: TimeAll, ConclusionFilter: "all"}
}

// window computes the [since, until) bounds for a time filter, evaluated at
// now in the client's local zone. Weeks run Sunday through Saturday. An
// unrecognized or "all" filter yields no bounds.
func window(timeFilter string, now time.Time, tzOffsetMinutes int) (since, until *time.Time) {
	loc := time.FixedZone("client", -tzOffsetMinutes*60)
	local := now.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	switch timeFilter {
	case TimeLastHour:
		t := now.Add(-time.Hour)
		since = &t
	case TimeCurrentDay:
		t := midnight.AddDate(0, 0, 1)
		since, until = &midnight, &t
	case TimePreviousDay:
		t := midnight.AddDate(0, 0, -1)
		since, until = &t, &midnight
	case TimeCurrentWeek:
		start := midnight.AddDate(0, 0, -int(local.Weekday()))
		end := start.AddDate(0, 0, 7)
		since, until = &start, &end
	case TimePreviousWeek:
		weekStart := midnight.AddDate(0, 0, -int(local.Weekday()))
		start := weekStart.AddDate(0, 0, -7)
		since, until = &start, &weekStart
	}
	return since, until
}

// buildFilter translates a client request into a store filter. Bounds are
// normalized to UTC to match the stored timestamps.
func buildFilter(req FilterRequest, now time.Time) store.Filter {
	f := store.Filter{}
	f.Since, f.Until = window(req.TimeFilter, now, req.TimezoneOffset)
	if f.Since != nil {
		u := f.Since.UTC()
		f.Since = &u
	}
	if f.Until != nil {
		u := f.Until.UTC()
		f.Until = &u
	}
	if req.ConclusionFilter != "" && req.ConclusionFilter != "all" {
		f.Conclusion = req.ConclusionFilter
		f.IncludeIDs = req.IncludeIDs
	}
	return f
}
