package ingestion

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dennisdiepolder/monti/outreach/internal/types"
	"golang.org/x/text/width"
)

// NormalizeResultCode maps free-text result labels onto the closed code set.
// Matching is by substring in a fixed priority order; unmatched text passes
// through lowercased.
func NormalizeResultCode(raw string) types.ResultCode {
	t := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case t == "":
		return ""
	case strings.Contains(t, "show") || strings.Contains(t, "着座"):
		return types.ResultShow
	case strings.Contains(t, "set") || strings.Contains(t, "設定") || strings.Contains(t, "アポ") || strings.Contains(t, "面談"):
		return types.ResultSet
	case strings.Contains(t, "reply") || strings.Contains(t, "返信"):
		return types.ResultReply
	case strings.Contains(t, "callback") || strings.Contains(t, "コールバック") || strings.Contains(t, "折返") || strings.Contains(t, "折り返"):
		return types.ResultCallback
	case strings.Contains(t, "no_answer") || strings.Contains(t, "no answer") || strings.Contains(t, "不在"):
		return types.ResultNoAnswer
	case strings.Contains(t, "connect") || strings.Contains(t, "通電"):
		return types.ResultConnect
	case strings.Contains(t, "sms"):
		return types.ResultSMSSent
	}
	return types.ResultCode(t)
}

// NormalizeRoute maps a free-text channel onto phone or other; phone is the default
func NormalizeRoute(raw string) types.Route {
	t := strings.ToLower(raw)
	for _, kw := range []string{"other", "その他", "sms", "mail", "メール", "line"} {
		if strings.Contains(t, kw) {
			return types.RouteOther
		}
	}
	return types.RoutePhone
}

var timestampLayouts = []string{
	"2006/01/02 15:04",
	"2006/01/02 15:04:05",
	"2006/1/2 15:04",
	"2006/1/2 15:04:05",
	"2006/01/02",
	"2006/1/2",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTimestamp parses "YYYY/MM/DD HH:mm" style strings and ISO variants.
// Values without an offset are read in loc. The zero time and false are
// returned for unparseable input.
func ParseTimestamp(raw string, loc *time.Location) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.In(loc), true
		}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatDatetime renders the canonical "YYYY/MM/DD HH:mm" form
func FormatDatetime(t time.Time) string {
	return t.Format("2006/01/02 15:04")
}

var contactTimePlaceholders = map[string]bool{
	"-":   true,
	"ー":   true,
	"未設定": true,
	"未入力": true,
	"未登録": true,
	"未指定": true,
}

// IsPlaceholder reports whether text is one of the "not filled in" markers
func IsPlaceholder(text string) bool {
	return contactTimePlaceholders[strings.TrimSpace(text)]
}

// NormalizeContactPreferredTime trims the value and blanks placeholders
func NormalizeContactPreferredTime(raw string) string {
	text := strings.TrimSpace(raw)
	if IsPlaceholder(text) {
		return ""
	}
	return text
}

// NormalizeAttendance returns nil when attendance is unknown
func NormalizeAttendance(v any) *bool {
	res := func(b bool) *bool { return &b }
	switch t := v.(type) {
	case nil:
		return nil
	case bool:
		return res(t)
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		switch s {
		case "":
			return nil
		case "true", "1", "yes", "済", "確認済":
			return res(true)
		case "false", "0", "no", "未", "未確認":
			return res(false)
		}
		return res(true)
	}
	if n, ok := toInt(v); ok {
		return res(n != 0)
	}
	return res(true)
}

// ParseFlag reads an explicit boolean-ish upstream flag; recognised
// strings are the yes/no variants plus the extra words given
func ParseFlag(v any, yes, no []string) *bool {
	res := func(b bool) *bool { return &b }
	switch t := v.(type) {
	case nil:
		return nil
	case bool:
		return res(t)
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		if s == "" {
			return nil
		}
		for _, w := range append([]string{"true", "1", "yes"}, yes...) {
			if s == w {
				return res(true)
			}
		}
		for _, w := range append([]string{"false", "0", "no"}, no...) {
			if s == w {
				return res(false)
			}
		}
		return res(true)
	}
	if n, ok := toInt(v); ok {
		return res(n != 0)
	}
	return res(true)
}

var birthdayPattern = regexp.MustCompile(`(\d{4})[/-](\d{1,2})[/-](\d{1,2})`)

// AgeFromBirthday computes the age on now's date; nil when unparseable
// or outside 0..130
func AgeFromBirthday(raw string, now time.Time) *int {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	birth, ok := ParseTimestamp(s, now.Location())
	if !ok {
		m := birthdayPattern.FindStringSubmatch(s)
		if m == nil {
			return nil
		}
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		birth = time.Date(y, time.Month(mo), d, 0, 0, 0, 0, now.Location())
	}
	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}
	if age < 0 || age > 130 {
		return nil
	}
	return &age
}

var agePattern = regexp.MustCompile(`(\d{1,3})\s*(?:歳|才)?`)

// ParseAgeText reads ages such as "28", "２８歳" or "28才"
func ParseAgeText(raw string) *int {
	s := strings.TrimSpace(width.Narrow.String(raw))
	if s == "" {
		return nil
	}
	valid := func(n int) *int {
		if n < 0 || n > 130 {
			return nil
		}
		return &n
	}
	if n, err := strconv.Atoi(s); err == nil {
		return valid(n)
	}
	m := agePattern.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return valid(n)
}
