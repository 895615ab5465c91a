package aitime

// MeridiemPolicy maps a bare hour (no 上午/下午, am/pm and no 24-hour cue) to a 24-hour clock hour.
//
// This is a heuristic: "3点" usually means 15:00 in a meeting context, but nothing in the
// text says so.
type MeridiemPolicy interface {
	Hour(hour int) int
}

// BusinessHours treats bare hours 1..PMThrough as afternoon/evening hours.
// With PMThrough 7: "3点" -> 15:00, "7点" -> 19:00, "8点" -> 08:00, "12点" -> 12:00.
type BusinessHours struct {
	PMThrough int
}

func (p BusinessHours) Hour(hour int) int {
	if hour >= 1 && hour <= p.PMThrough {
		return hour + 12
	}
	return hour
}

// LiteralHours keeps bare hours as written.
type LiteralHours struct{}

func (LiteralHours) Hour(hour int) int {
	return hour
}

// DefaultMeridiemPolicy is used unless overridden with WithMeridiemPolicy.
var DefaultMeridiemPolicy MeridiemPolicy = BusinessHours{PMThrough: 7}
