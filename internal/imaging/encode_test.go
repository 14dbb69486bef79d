package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/png"
	"path/filepath"
	"testing"
)

func TestEncodePNG(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 12, 9))
	img.Pix[0] = 77

	enc, err := EncodePNG(img)
	if err != nil {
		t.Fatalf("EncodePNG failed: %v", err)
	}
	if enc.Width != 12 || enc.Height != 9 || enc.MimeType != "image/png" {
		t.Errorf("unexpected metadata: %+v", enc)
	}

	raw, err := base64.StdEncoding.DecodeString(enc.ImageBase64)
	if err != nil {
		t.Fatalf("invalid base64: %v", err)
	}
	decoded, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("invalid PNG: %v", err)
	}
	if g, ok := decoded.(*image.Gray); !ok || g.Pix[0] != 77 {
		t.Errorf("decoded image mismatch: %T", decoded)
	}
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.png")
	if err := Save(path, image.NewGray(image.Rect(0, 0, 5, 5))); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	info, err := LoadImageInfo(NewImageCache(), path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if info.Width != 5 || info.Height != 5 {
		t.Errorf("size: got %dx%d", info.Width, info.Height)
	}
}

func TestSave_UnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.unknown")
	if err := Save(path, image.NewGray(image.Rect(0, 0, 5, 5))); err == nil {
		t.Error("expected error for unsupported extension")
	}
}
