package media

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// ToRGBA converts a Frame into a draw.Image suitable for GPU texture upload
// (ebiten.Image.WritePixels expects tightly packed RGBA). Frames already in
// PixelFormatRGBA are wrapped without copying plane data; I420 frames are
// color-converted into a freshly allocated image.
func (f *Frame) ToRGBA() *image.RGBA {
	if f == nil {
		return image.NewRGBA(image.Rect(0, 0, 0, 0))
	}

	if f.Format == PixelFormatRGBA {
		if len(f.Planes) < 1 {
			return image.NewRGBA(image.Rect(0, 0, 0, 0))
		}
		rp := f.Planes[0]
		return &image.RGBA{
			Pix:    f.Bytes[rp.Offset:],
			Stride: rp.Stride,
			Rect:   image.Rect(0, 0, f.DisplayW, f.DisplayH),
		}
	}

	if len(f.Planes) < 3 {
		return image.NewRGBA(image.Rect(0, 0, 0, 0))
	}

	yp, up, vp := f.Planes[0], f.Planes[1], f.Planes[2]
	ycbcr := &image.YCbCr{
		Y:              f.Bytes[yp.Offset:],
		Cb:             f.Bytes[up.Offset:],
		Cr:             f.Bytes[vp.Offset:],
		YStride:        yp.Stride,
		CStride:        up.Stride,
		SubsampleRatio: image.YCbCrSubsampleRatio420,
		Rect:           image.Rect(0, 0, f.DisplayW, f.DisplayH),
	}

	out := image.NewRGBA(image.Rect(0, 0, f.DisplayW, f.DisplayH))
	for y := 0; y < f.DisplayH; y++ {
		for x := 0; x < f.DisplayW; x++ {
			out.Set(x, y, ycbcr.At(x, y))
		}
	}
	return out
}

// ScaleTo resamples src into a new image sized w×h with bilinear
// filtering. No other package in this repository calls it.
func ScaleTo(src image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}

// SolidRGBA fills an RGBA image with a single color. The Compositor
// paints its background with ebiten's Fill and does not call it.
func SolidRGBA(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}
