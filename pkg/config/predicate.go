package config

import (
	"regexp"
	"strings"
)

// Predicate tests the text of a configuration line with surrounding whitespace
// removed.
type Predicate func(text string) bool

// Match applies the predicate to a line.
func (p Predicate) Match(l Line) bool {
	return p(l.Trimmed())
}

// HasPrefix matches lines beginning with prefix.
func HasPrefix(prefix string) Predicate {
	return func(text string) bool {
		return strings.HasPrefix(text, prefix)
	}
}

// Equals matches lines equal to s.
func Equals(s string) Predicate {
	return func(text string) bool {
		return text == s
	}
}

// Words matches lines whose whitespace-separated words are exactly words.
// "switchport access vlan 10" matches Words("switchport", "access", "vlan", "10")
// but never Words("switchport", "access", "vlan", "100").
func Words(words ...string) Predicate {
	return func(text string) bool {
		fields := strings.Fields(text)
		if len(fields) != len(words) {
			return false
		}
		for i, w := range words {
			if fields[i] != w {
				return false
			}
		}
		return true
	}
}

// WordsPrefix matches lines whose leading words are words. Comparison is per
// word, so WordsPrefix("channel-group") does not match "channel-groups".
func WordsPrefix(words ...string) Predicate {
	return func(text string) bool {
		fields := strings.Fields(text)
		if len(fields) < len(words) {
			return false
		}
		for i, w := range words {
			if fields[i] != w {
				return false
			}
		}
		return true
	}
}

// Regexp matches lines against re.
func Regexp(re *regexp.Regexp) Predicate {
	return func(text string) bool {
		return re.MatchString(text)
	}
}
