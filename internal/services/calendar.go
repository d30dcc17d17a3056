package services

import "time"

const CalendarDateLayout = "2006-01-02"

func DateAtLocation(value time.Time, location *time.Location) time.Time {
	if location == nil {
		location = time.UTC
	}
	localized := value.In(location)
	year, month, day := localized.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, location)
}

// CalendarDate is the storage key for a local calendar day: midnight UTC of the date observed
// in location. Two instants on the same local day always produce the same key.
func CalendarDate(value time.Time, location *time.Location) time.Time {
	local := DateAtLocation(value, location)
	year, month, day := local.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func FormatCalendarDate(value time.Time) string {
	return value.UTC().Format(CalendarDateLayout)
}
