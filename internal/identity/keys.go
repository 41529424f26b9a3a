package identity

import (
	"strings"
	"sync"
	"unicode"

	"github.com/nyaruka/phonenumbers"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/width"
)

// DefaultRegion is used when a phone number carries no country prefix
const DefaultRegion = "JP"

var nameChainPool = sync.Pool{
	New: func() any {
		return transform.Chain(
			runes.Remove(runes.In(unicode.White_Space)), // includes U+3000
			width.Fold,
			cases.Fold(),
		)
	},
}

// NameKey normalizes a display name for identity comparison: all
// whitespace removed, width folded, case folded
func NameKey(name string) string {
	if name == "" {
		return ""
	}
	tr := nameChainPool.Get().(transform.Transformer)
	key, _, err := transform.String(tr, name)
	tr.Reset()
	nameChainPool.Put(tr)
	if err != nil {
		return strings.ToLower(strings.Join(strings.Fields(name), ""))
	}
	return key
}

// PhoneKey returns the E.164 form when the number is valid for region,
// otherwise its digits only
func PhoneKey(raw, region string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if region == "" {
		region = DefaultRegion
	}
	if num, err := phonenumbers.Parse(raw, region); err == nil && phonenumbers.IsValidNumber(num) {
		return phonenumbers.Format(num, phonenumbers.E164)
	}
	return digitsOnly(raw)
}

// EmailKey trims and lowercases an address
func EmailKey(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
