package imagetext

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
)

// encodePNG builds a width x height PNG filled by the given shade.
func encodePNG(t *testing.T, w, h int, shade uint8) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: shade})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestConvertDimensions(t *testing.T) {
	data := encodePNG(t, 80, 80, 128)

	rows, err := Convert(data, 40)
	if err != nil {
		t.Fatal(err)
	}
	// Square image at width 40 with 0.5 aspect correction -> 20 rows.
	if len(rows) != 20 {
		t.Errorf("got %d rows, want 20", len(rows))
	}
	for i, r := range rows {
		if len(r) != 40 {
			t.Errorf("row %d is %d chars wide, want 40", i, len(r))
		}
	}
}

func TestConvertBrightnessMapping(t *testing.T) {
	dark, err := Convert(encodePNG(t, 8, 8, 0), 8)
	if err != nil {
		t.Fatal(err)
	}
	light, err := Convert(encodePNG(t, 8, 8, 255), 8)
	if err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(dark[0], "@") {
		t.Errorf("dark image row = %q, want darkest glyph", dark[0])
	}
	if strings.TrimSpace(strings.Join(light, "")) != "" {
		t.Errorf("white image should render as blanks, got %q", light[0])
	}
}

func TestConvertRejectsGarbage(t *testing.T) {
	if _, err := Convert([]byte("not an image"), 40); err == nil {
		t.Error("expected error for undecodable payload")
	}
}

func TestConvertDefaultsWidth(t *testing.T) {
	rows, err := Convert(encodePNG(t, 10, 10, 100), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows[0]) != DefaultWidth {
		t.Errorf("row width = %d, want DefaultWidth", len(rows[0]))
	}
}
