// Package points converts model-returned normalized points into validated
// pixel coordinates.
package points

import (
	"fmt"

	"github.com/jetteezhou/PhysVLM-Intent/internal/types"
)

// Denormalize converts a [y,x] point normalized to 0-1000 into pixel [x,y]
// and 0-1 normalized [x,y] coordinates for an image of the given dimensions.
// Note the axis swap: the model answers [y,x], the outputs are [x,y].
func Denormalize(point [2]int, width, height int) (pixel [2]int, normalized [2]float64, err error) {
	if width <= 0 || height <= 0 {
		return pixel, normalized, fmt.Errorf("invalid image dimensions %dx%d", width, height)
	}
	for _, c := range point {
		if c < 0 || c > 1000 {
			return pixel, normalized, fmt.Errorf("%w: point component %d outside [0,1000]", types.ErrParse, c)
		}
	}

	xNorm := float64(point[1]) / 1000
	yNorm := float64(point[0]) / 1000
	pixel = [2]int{int(xNorm * float64(width)), int(yNorm * float64(height))}
	normalized = [2]float64{xNorm, yNorm}
	return pixel, normalized, nil
}
