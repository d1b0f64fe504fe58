package calculator

import (
	"time"

	"github.com/bantoinese83/Portfolio-Watchdog/internal/model"
)

// weekEnd returns the Friday closing the calendar week that contains t,
// at midnight in t's location. Saturday and Sunday roll forward.
func weekEnd(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	ahead := (int(time.Friday) - int(day.Weekday()) + 7) % 7
	return day.AddDate(0, 0, ahead)
}

// ResampleWeekly converts daily bars into weekly bars bucketed by the week ending Friday.
// Each weekly bar is stamped with its Friday; weeks without data are skipped.
func ResampleWeekly(daily []model.OHLCV) []model.OHLCV {
	if len(daily) == 0 {
		return nil
	}
	var weekly []model.OHLCV
	var week model.OHLCV
	var weekStarted bool

	for _, d := range daily {
		label := weekEnd(d.Time)

		if !weekStarted || !label.Equal(week.Time) {
			if weekStarted {
				weekly = append(weekly, week)
			}
			week = model.OHLCV{Time: label, Open: d.Open, High: d.High, Low: d.Low, Close: d.Close, Volume: d.Volume}
			weekStarted = true
			continue
		}

		if d.High > week.High {
			week.High = d.High
		}
		if d.Low < week.Low {
			week.Low = d.Low
		}
		week.Close = d.Close
		week.Volume += d.Volume
	}
	if weekStarted {
		weekly = append(weekly, week)
	}
	return weekly
}
