package discogs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPhysicalAttributes(t *testing.T) {
	tests := []struct {
		name      string
		formats   []Format
		wantSize  string
		wantColor string
		wantShape string
	}{
		{
			name:      "no format data falls back to defaults",
			formats:   nil,
			wantSize:  `12"`,
			wantColor: "Black",
			wantShape: "Round",
		},
		{
			name: "LP implies 12 inch",
			formats: []Format{
				{Name: "Vinyl", Qty: "1", Descriptions: []string{"LP", "Album"}},
			},
			wantSize:  `12"`,
			wantColor: "Black",
			wantShape: "Round",
		},
		{
			name: "seven inch single",
			formats: []Format{
				{Name: "Vinyl", Qty: "1", Descriptions: []string{`7"`, "Single", "45 RPM"}},
			},
			wantSize:  `7"`,
			wantColor: "Black",
			wantShape: "Round",
		},
		{
			name: "ten inch",
			formats: []Format{
				{Name: "Vinyl", Qty: "1", Descriptions: []string{`10"`, "EP"}},
			},
			wantSize:  `10"`,
			wantColor: "Black",
			wantShape: "Round",
		},
		{
			name: "colored pressing from format text",
			formats: []Format{
				{Name: "Vinyl", Qty: "1", Text: "Translucent Red", Descriptions: []string{"LP"}},
			},
			wantSize:  `12"`,
			wantColor: "Translucent Red",
			wantShape: "Round",
		},
		{
			name: "shaped picture disc",
			formats: []Format{
				{Name: "Vinyl", Qty: "1", Text: "Picture Disc", Descriptions: []string{`7"`, "Shape"}},
			},
			wantSize:  `7"`,
			wantColor: "Picture Disc",
			wantShape: "Shaped",
		},
		{
			name: "non-vinyl formats are ignored",
			formats: []Format{
				{Name: "CD", Qty: "1", Descriptions: []string{"Album"}},
				{Name: "Vinyl", Qty: "1", Descriptions: []string{`10"`}},
			},
			wantSize:  `10"`,
			wantColor: "Black",
			wantShape: "Round",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			size, color, shape := PhysicalAttributes(tt.formats)
			assert.Equal(t, tt.wantSize, size)
			assert.Equal(t, tt.wantColor, color)
			assert.Equal(t, tt.wantShape, shape)
		})
	}
}
