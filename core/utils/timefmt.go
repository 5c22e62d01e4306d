package utils

import (
	"math"
	"strconv"
	"strings"
)

// ParseClock parses "[[h:]mm:]ss[.mmm]" clock text into seconds. The fields
// have no fixed width. Absent or invalid text parses to NaN, never to 0;
// callers must reject NaN rather than coerce it.
func ParseClock(txt string) float64 {
	txt = strings.TrimSpace(txt)
	if txt == "" {
		return math.NaN()
	}

	parts := strings.Split(txt, ":")
	switch len(parts) {
	case 1:
		if v, err := strconv.ParseFloat(parts[0], 64); err == nil {
			return v
		}
	case 2:
		m, err1 := strconv.Atoi(parts[0])
		s, err2 := strconv.ParseFloat(parts[1], 64)
		if err1 == nil && err2 == nil {
			return float64(m)*60 + s
		}
	case 3:
		h, err1 := strconv.Atoi(parts[0])
		m, err2 := strconv.Atoi(parts[1])
		s, err3 := strconv.ParseFloat(parts[2], 64)
		if err1 == nil && err2 == nil && err3 == nil {
			return float64(h)*3600 + float64(m)*60 + s
		}
	}
	return math.NaN()
}

// FormatClock renders seconds as "m:ss.mmm", or "h:mm:ss.mmm" once the
// value reaches an hour. Negative or non-finite input renders as zero.
func FormatClock(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		seconds = 0
	}
	h := int(seconds) / 3600
	m := (int(seconds) % 3600) / 60
	s := seconds - float64(h*3600+m*60)

	sec := strconv.FormatFloat(s, 'f', 3, 64)
	if s < 10 {
		sec = "0" + sec
	}
	if h > 0 {
		return strconv.Itoa(h) + ":" + pad2(m) + ":" + sec
	}
	return strconv.Itoa(m) + ":" + sec
}

func pad2(v int) string {
	if v < 10 {
		return "0" + strconv.Itoa(v)
	}
	return strconv.Itoa(v)
}
