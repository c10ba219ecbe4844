package date

import (
	"errors"
	"time"
)

const DayFormat = "20060102"

// ParseTime accepts the date formats users type on the command line.
func ParseTime(input string) (time.Time, error) {
	allowedFormats := []string{
		DayFormat,
		"2006-01-02 15:04:05Z07:00",
		"2006-01-02T15:04:05Z07:00",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02",
		"02 Jan 2006",
	}

	for _, format := range allowedFormats {
		t, err := time.Parse(format, input)
		if err == nil {
			return t, nil
		}
	}

	return time.Time{}, errors.New("invalid datetime format")
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ParseDay resolves "today", "yesterday" or any ParseTime format to a day, relative to now.
func ParseDay(input string, now time.Time) (time.Time, error) {
	today := StartOfDay(now)
	switch input {
	case "today":
		return today, nil
	case "yesterday":
		return today.AddDate(0, 0, -1), nil
	}

	t, err := ParseTime(input)
	if err != nil {
		return time.Time{}, err
	}

	return StartOfDay(t), nil
}

// Days lists every day from start to end, both inclusive.
func Days(start, end time.Time) []time.Time {
	var days []time.Time
	for d := StartOfDay(start); !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}
