package ocr

import (
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"
)

// CapBitmap downsizes the image at path in place so that it fits within
// maxW x maxH, preserving aspect ratio. The result is always written as PNG.
// It reports whether the file was rewritten.
func CapBitmap(path string, maxW, maxH int) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		_ = f.Close()
		return false, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Width <= maxW && cfg.Height <= maxH {
		_ = f.Close()
		return false, nil
	}
	if _, err := f.Seek(0, 0); err != nil {
		_ = f.Close()
		return false, err
	}
	src, _, err := image.Decode(f)
	_ = f.Close()
	if err != nil {
		return false, fmt.Errorf("decode image: %w", err)
	}

	w, h := fitWithin(cfg.Width, cfg.Height, maxW, maxH)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	tmp, err := os.CreateTemp(filepath.Dir(path), ".cap-*.png")
	if err != nil {
		return false, err
	}
	if err := png.Encode(tmp, dst); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return false, fmt.Errorf("encode png: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return false, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return false, err
	}
	return true, nil
}

// fitWithin scales (w,h) down to fit (maxW,maxH) keeping aspect ratio.
func fitWithin(w, h, maxW, maxH int) (int, int) {
	if w <= maxW && h <= maxH {
		return w, h
	}
	scale := float64(maxW) / float64(w)
	if s := float64(maxH) / float64(h); s < scale {
		scale = s
	}
	nw := int(float64(w) * scale)
	nh := int(float64(h) * scale)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	return nw, nh
}
