// Package render draws the annotated preview image: the terminal frame with
// a filled marker at each located object's pixel coordinate.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"os"

	"github.com/jetteezhou/PhysVLM-Intent/internal/types"
)

const (
	markerRadius = 8

	jpegQuality = 95
)

var markerColor = color.RGBA{R: 255, A: 255}

// Dimensions reads the pixel dimensions of an image file without decoding
// the full raster.
func Dimensions(imagePath string) (types.ImageDimensions, error) {
	f, err := os.Open(imagePath)
	if err != nil {
		return types.ImageDimensions{}, fmt.Errorf("open image %s: %w", imagePath, err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return types.ImageDimensions{}, fmt.Errorf("decode image config %s: %w", imagePath, err)
	}
	return types.ImageDimensions{Width: cfg.Width, Height: cfg.Height}, nil
}

// Preview writes a copy of the terminal frame with one filled disc per
// object at its pixel coordinate. The output keeps the source dimensions.
func Preview(terminalFramePath, outPath string, objects []types.LocatedObject) error {
	src, err := loadImage(terminalFramePath)
	if err != nil {
		return err
	}

	canvas := image.NewRGBA(src.Bounds())
	draw.Draw(canvas, canvas.Bounds(), src, src.Bounds().Min, draw.Src)

	for _, obj := range objects {
		fillDisc(canvas, obj.PixelCoords[0], obj.PixelCoords[1], markerRadius, markerColor)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create preview %s: %w", outPath, err)
	}
	defer out.Close()

	if err := jpeg.Encode(out, canvas, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return fmt.Errorf("encode preview: %w", err)
	}
	return nil
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", path, err)
	}
	return img, nil
}

func fillDisc(img *image.RGBA, cx, cy, r int, c color.Color) {
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy <= r*r {
				img.Set(cx+dx, cy+dy, c)
			}
		}
	}
}
