package tracker

import "time"

// FormatTimestamp renders a unix-seconds timestamp without the time zone.
func FormatTimestamp(timestamp int64) string {
	return time.Unix(timestamp, 0).Format("2006-01-02 15:04:05")
}

// RelativeTimestamp renders a timestamp by age: today shows the clock time,
// yesterday says so, anything within the year shows month and day, and
// anything older shows dd/MM/yy.
func RelativeTimestamp(timestamp int64, use24Hour bool, now time.Time) string {
	then := time.Unix(timestamp, 0)
	ny, nm, nd := now.Date()
	ty, tm, td := then.Date()
	switch {
	case ny == ty && nm == tm && nd == td:
		if use24Hour {
			return then.Format("15:04")
		}
		return then.Format("3:04 pm")
	case sameDay(then.AddDate(0, 0, 1), now):
		return "Yesterday"
	case ny == ty:
		return then.Format("Jan 2")
	default:
		return then.Format("02/01/06")
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
