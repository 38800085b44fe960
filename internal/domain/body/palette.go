package body

// Color is an opaque RGB colour.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Palette holds the two shades used to draw one body.
type Palette struct {
	Joint Color `json:"joint"`
	Bone  Color `json:"bone"`
}

// Channel mixes: 1 picks the dim shade, 0 the bright one.
var (
	mixR = [...]int{1, 1, 1, 0, 1, 0, 0}
	mixG = [...]int{1, 1, 0, 1, 0, 1, 0}
	mixB = [...]int{1, 0, 1, 1, 0, 0, 1}

	jointShades = [2]uint8{245, 200}
	boneShades  = [2]uint8{235, 160}
)

// PaletteSize is the number of distinct body palettes.
const PaletteSize = len(mixR)

// PaletteAt returns palette i, wrapping around PaletteSize.
func PaletteAt(i int) Palette {
	i %= PaletteSize
	if i < 0 {
		i += PaletteSize
	}
	return Palette{
		Joint: Color{R: jointShades[mixR[i]], G: jointShades[mixG[i]], B: jointShades[mixB[i]]},
		Bone:  Color{R: boneShades[mixR[i]], G: boneShades[mixG[i]], B: boneShades[mixB[i]]},
	}
}
