package util

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// MaxVLANID is the highest configurable 802.1Q VLAN ID.
const MaxVLANID = 4094

// ValidateVLANID checks that id is a configurable VLAN.
func ValidateVLANID(id int) error {
	if id < 1 || id > MaxVLANID {
		return fmt.Errorf("VLAN %d out of range 1-%d", id, MaxVLANID)
	}
	return nil
}

// ExpandVLANRange expands VLAN list notation, sorted and without duplicates.
//
//	"10"           -> [10]
//	"100-103,200"  -> [100 101 102 103 200]
func ExpandVLANRange(spec string) ([]int, error) {
	var result []int
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		lo, hi, isRange := strings.Cut(part, "-")
		start, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, fmt.Errorf("invalid VLAN %q", part)
		}
		end := start
		if isRange {
			if end, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil {
				return nil, fmt.Errorf("invalid VLAN range %q", part)
			}
		}
		if start > end {
			return nil, fmt.Errorf("VLAN range %q is reversed", part)
		}
		if err := ValidateVLANID(start); err != nil {
			return nil, err
		}
		if err := ValidateVLANID(end); err != nil {
			return nil, err
		}
		for v := start; v <= end; v++ {
			result = append(result, v)
		}
	}

	sort.Ints(result)
	return dedupInts(result), nil
}

// CompactVLANRange renders VLANs in list notation: [1 2 3 5] -> "1-3,5".
func CompactVLANRange(values []int) string {
	if len(values) == 0 {
		return ""
	}

	sorted := append([]int(nil), values...)
	sort.Ints(sorted)
	sorted = dedupInts(sorted)

	var parts []string
	start, end := sorted[0], sorted[0]
	for _, v := range sorted[1:] {
		if v == end+1 {
			end = v
			continue
		}
		parts = append(parts, formatRange(start, end))
		start, end = v, v
	}
	parts = append(parts, formatRange(start, end))
	return strings.Join(parts, ",")
}

func formatRange(start, end int) string {
	if start == end {
		return strconv.Itoa(start)
	}
	return fmt.Sprintf("%d-%d", start, end)
}

func dedupInts(sorted []int) []int {
	if len(sorted) == 0 {
		return sorted
	}
	result := sorted[:1]
	for _, v := range sorted[1:] {
		if v != result[len(result)-1] {
			result = append(result, v)
		}
	}
	return result
}
