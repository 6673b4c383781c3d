package target

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// dayPattern captures the day number following "on <word>", as in
// "... on August 30th 2023?".
var dayPattern = regexp.MustCompile(`on\s+\w+\s+(\d{1,2})`)

const monthNames = `january|february|march|april|may|june|july|august|september|october|november|december`

// datedMonthPattern matches the month in the same "on <month> <day>" phrase
// that dayPattern reads the day from.
var datedMonthPattern = regexp.MustCompile(`(?i)\bon\s+(` + monthNames + `)\s+\d{1,2}`)

// monthPattern matches an English month name as a whole word.
var monthPattern = regexp.MustCompile(`(?i)\b(` + monthNames + `)\b`)

var monthsByName = map[string]time.Month{
	"january":   time.January,
	"february":  time.February,
	"march":     time.March,
	"april":     time.April,
	"may":       time.May,
	"june":      time.June,
	"july":      time.July,
	"august":    time.August,
	"september": time.September,
	"october":   time.October,
	"november":  time.November,
	"december":  time.December,
}

// MonthFromQuestion returns the month of the question's "on <month> <day>"
// date. Without one it falls back to the first month named anywhere, where a
// lowercase "may" is read as the verb and skipped.
func MonthFromQuestion(question string) (time.Month, bool) {
	if m := datedMonthPattern.FindStringSubmatch(question); m != nil {
		return monthsByName[strings.ToLower(m[1])], true
	}

	for _, m := range monthPattern.FindAllStringSubmatch(question, -1) {
		if m[1] == "may" {
			continue
		}
		month, ok := monthsByName[strings.ToLower(m[1])]
		return month, ok
	}
	return 0, false
}

// DayFromQuestion returns the day of month that follows "on <month>" in
// question. Ordinal suffixes and leading zeros are accepted.
func DayFromQuestion(question string) (int, bool) {
	m := dayPattern.FindStringSubmatch(question)
	if m == nil {
		return 0, false
	}
	day, err := strconv.Atoi(m[1])
	if err != nil || day < 1 || day > 31 {
		return 0, false
	}
	return day, true
}
