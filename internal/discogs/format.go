package discogs

import "strings"

// Defaults applied when a release's format data does not state a physical
// attribute explicitly. Most vinyl is a black 12" round pressing.
const (
	DefaultSize  = `12"`
	DefaultColor = "Black"
	DefaultShape = "Round"
)

// PhysicalAttributes derives the size, color and shape of a pressing from
// the release's format descriptors. Descriptions carry the size markers
// (`12"`, `10"`, `7"`, or `LP` which implies 12") and the Shape marker,
// while Text carries the pressing colour when it differs from black.
func PhysicalAttributes(formats []Format) (size, color, shape string) {
	size = DefaultSize
	color = DefaultColor
	shape = DefaultShape

	for _, f := range formats {
		if f.Name != "" && !strings.EqualFold(f.Name, "Vinyl") {
			continue
		}

		for _, desc := range f.Descriptions {
			switch {
			case strings.Contains(desc, `12"`) || strings.EqualFold(desc, "LP"):
				size = `12"`
			case strings.Contains(desc, `10"`):
				size = `10"`
			case strings.Contains(desc, `7"`):
				size = `7"`
			case strings.Contains(strings.ToLower(desc), "shape"):
				shape = "Shaped"
			}
		}

		if f.Text != "" {
			color = f.Text
		}
	}

	return size, color, shape
}
