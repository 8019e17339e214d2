package media

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func pngOf(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x += 7 {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestNormalize_DownscalesLargeImage(t *testing.T) {
	out, mime, err := Normalize(pngOf(t, 3000, 100), "image/png", 2048)
	if err != nil {
		t.Fatal(err)
	}
	if mime != "image/jpeg" {
		t.Errorf("mime = %s, want image/jpeg", mime)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatal(err)
	}
	if format != "jpeg" || cfg.Width != 2048 {
		t.Errorf("format=%s width=%d", format, cfg.Width)
	}
}

func TestNormalize_KeepsSmallAndUnknown(t *testing.T) {
	small := pngOf(t, 50, 50)
	out, mime, err := Normalize(small, "image/png", 2048)
	if err != nil || mime != "image/png" || !bytes.Equal(out, small) {
		t.Errorf("small image changed: mime=%s err=%v", mime, err)
	}

	junk := []byte("not an image")
	out, mime, err = Normalize(junk, "image/webp", 2048)
	if err != nil || mime != "image/webp" || !bytes.Equal(out, junk) {
		t.Errorf("undecodable input changed: mime=%s err=%v", mime, err)
	}
}

func TestNormalizeMime(t *testing.T) {
	cases := map[string]string{
		"image/png":  "image/png",
		"IMAGE/WEBP": "image/webp",
		"image/heic": "image/jpeg",
		"":           "image/jpeg",
	}
	for in, want := range cases {
		if got := NormalizeMime(in); got != want {
			t.Errorf("NormalizeMime(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsImage(t *testing.T) {
	if !IsImage("image/png") || !IsImage("") {
		t.Error("image types should be accepted")
	}
	if IsImage("application/pdf") {
		t.Error("pdf should be rejected")
	}
}
