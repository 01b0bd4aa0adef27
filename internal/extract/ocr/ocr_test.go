//go:build ocr

package ocr

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func blankPNG(width, height int) []byte {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

func TestRecognizeImage(t *testing.T) {
	client, err := New("")
	if err != nil {
		t.Skipf("tesseract not available: %v", err)
	}
	defer client.Close()

	if _, err := client.RecognizeImage(blankPNG(100, 50)); err != nil {
		t.Fatalf("recognize: %v", err)
	}
}
