// Package imagetext converts image payloads into character grids for
// terminal display. Convert is a pure function; callers cache results.
package imagetext

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/nfnt/resize"
)

// ramp maps brightness to glyphs, darkest first.
const ramp = "@%#*+=-:. "

// DefaultWidth is used when the configured width is missing or absurd.
const DefaultWidth = 40

// Convert renders image bytes as rows of ASCII characters, width columns
// wide, height scaled to preserve aspect ratio corrected for the roughly
// 2:1 cell shape of terminal fonts.
func Convert(data []byte, width int) ([]string, error) {
	if width <= 0 {
		width = DefaultWidth
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("empty image %dx%d", b.Dx(), b.Dy())
	}

	height := int(float64(width) * float64(b.Dy()) / float64(b.Dx()) * 0.5)
	if height < 1 {
		height = 1
	}
	scaled := resize.Resize(uint(width), uint(height), img, resize.Bilinear)

	rows := make([]string, 0, height)
	var row bytes.Buffer
	sb := scaled.Bounds()
	for y := sb.Min.Y; y < sb.Max.Y; y++ {
		row.Reset()
		for x := sb.Min.X; x < sb.Max.X; x++ {
			g := color.GrayModel.Convert(scaled.At(x, y)).(color.Gray)
			row.WriteByte(ramp[int(g.Y)*(len(ramp)-1)/255])
		}
		rows = append(rows, row.String())
	}
	return rows, nil
}
