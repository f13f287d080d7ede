package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"laundry-booking-backend/internal/model"
)

var labelRe = regexp.MustCompile(`^([A-Za-z]+)\s*[-_#]?\s*(\d+)$`)

// ParsedLabel is a machine type and its ordinal within that type.
type ParsedLabel struct {
	Type  model.MachineType
	Index int
}

// ID is the stable machine id derived from the label, e.g. "washer-3".
func (p ParsedLabel) ID() string {
	return fmt.Sprintf("%s-%d", p.Type, p.Index)
}

// ParseLabel reads labels such as "Washer-3", "dryer 2", "W3" or "D#4".
func ParseLabel(raw string) (ParsedLabel, error) {
	s := strings.TrimSpace(raw)
	// collapse inner whitespace
	s = regexp.MustCompile(`\s+`).ReplaceAllString(s, " ")

	m := labelRe.FindStringSubmatch(s)
	if m == nil {
		return ParsedLabel{}, fmt.Errorf("unable to parse machine label: %q", raw)
	}

	var typ model.MachineType
	switch strings.ToLower(m[1]) {
	case "w", "washer", "washing", "wash":
		typ = model.MachineTypeWasher
	case "d", "dryer", "drier", "dry":
		typ = model.MachineTypeDryer
	default:
		return ParsedLabel{}, fmt.Errorf("unknown machine type in label: %q", raw)
	}

	index, err := strconv.Atoi(m[2])
	if err != nil || index <= 0 {
		return ParsedLabel{}, fmt.Errorf("invalid machine index in label: %q", raw)
	}
	return ParsedLabel{Type: typ, Index: index}, nil
}
