package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"laundry-booking-backend/internal/model"
)

func TestParseLabel(t *testing.T) {
	testCases := []struct {
		name      string
		raw       string
		expected  ParsedLabel
		expectErr bool
	}{
		{
			name:     "Hyphenated",
			raw:      "Washer-3",
			expected: ParsedLabel{Type: model.MachineTypeWasher, Index: 3},
		},
		{
			name:     "Lower case with space",
			raw:      "dryer 2",
			expected: ParsedLabel{Type: model.MachineTypeDryer, Index: 2},
		},
		{
			name:     "Short form",
			raw:      "W3",
			expected: ParsedLabel{Type: model.MachineTypeWasher, Index: 3},
		},
		{
			name:     "Hash separator and padding",
			raw:      "  D # 12 ",
			expected: ParsedLabel{Type: model.MachineTypeDryer, Index: 12},
		},
		{
			name:      "Unknown type",
			raw:       "Iron-1",
			expectErr: true,
		},
		{
			name:      "Zero index",
			raw:       "Washer-0",
			expectErr: true,
		},
		{
			name:      "No index",
			raw:       "Washer",
			expectErr: true,
		},
		{
			name:      "Empty",
			raw:       "",
			expectErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			parsed, err := ParseLabel(tc.raw)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, parsed)
		})
	}
}

func TestParsedLabel_ID(t *testing.T) {
	assert.Equal(t, "washer-3", ParsedLabel{Type: model.MachineTypeWasher, Index: 3}.ID())
}
