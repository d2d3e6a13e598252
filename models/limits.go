package models

// DefaultContentLimit applies to a platform missing from the limit table.
const DefaultContentLimit = 280

var contentLimits = map[Platform]int{
	LinkedIn:  3000,
	Twitter:   280,
	Instagram: 2200,
	Facebook:  63206,
	TikTok:    2200,
	YouTube:   5000,
}

// ContentLimit returns the maximum content length, in characters, accepted by
// the given platform.
func ContentLimit(p Platform) int {
	if limit, ok := contentLimits[p]; ok {
		return limit
	}
	return DefaultContentLimit
}

// MinContentLimit returns the tightest limit across platforms, or 0 when the
// set is empty (no limit).
func MinContentLimit(platforms []Platform) int {
	min := 0
	for _, p := range platforms {
		limit := ContentLimit(p)
		if min == 0 || limit < min {
			min = limit
		}
	}
	return min
}

// ExceedsLimit lists the platforms whose limit the content would exceed.
func ExceedsLimit(content string, platforms []Platform) []Platform {
	length := len([]rune(content))
	var over []Platform
	for _, p := range platforms {
		if length > ContentLimit(p) {
			over = append(over, p)
		}
	}
	return over
}
