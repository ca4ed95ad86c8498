package vision

import (
	"image"
	"math"
)

// candidate is one above-threshold location for a single variant, in
// frame coordinates.
type candidate struct {
	X, Y       int
	W, H       int
	Confidence float64
}

// toGray converts any image into a grayscale buffer anchored at (0,0)
// using integer luminance weights.
func toGray(img image.Image) *image.Gray {
	bounds := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))

	if rgba, ok := img.(*image.RGBA); ok {
		for y := 0; y < bounds.Dy(); y++ {
			srcRow := rgba.Pix[y*rgba.Stride:]
			dstRow := gray.Pix[y*gray.Stride:]
			for x := 0; x < bounds.Dx(); x++ {
				r := uint32(srcRow[x*4])
				g := uint32(srcRow[x*4+1])
				b := uint32(srcRow[x*4+2])
				dstRow[x] = uint8((299*r + 587*g + 114*b) / 1000)
			}
		}
		return gray
	}

	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			r >>= 8
			g >>= 8
			b >>= 8
			gray.Pix[y*gray.Stride+x] = uint8((299*r + 587*g + 114*b) / 1000)
		}
	}
	return gray
}

// matchVariantAll slides the variant across the frame and collects every
// position whose normalized cross-correlation clears the threshold.
// After an accepted position the scan skips half a template width, since
// immediate neighbors describe the same occurrence.
func matchVariantAll(frame *image.Gray, v Variant, threshold float64) []candidate {
	fw := frame.Rect.Dx()
	fh := frame.Rect.Dy()
	if v.W > fw || v.H > fh || v.W == 0 || v.H == 0 {
		return nil
	}

	var found []candidate
	for y := 0; y <= fh-v.H; y++ {
		for x := 0; x <= fw-v.W; x++ {
			score := nccAt(frame, v, x, y)
			if score >= threshold {
				found = append(found, candidate{X: x, Y: y, W: v.W, H: v.H, Confidence: score})
				x += v.W / 2
			}
		}
	}
	return found
}

// nccAt computes the normalized cross-correlation between the variant
// and the frame window at (ox,oy), mapped from [-1,1] into [0,1].
func nccAt(frame *image.Gray, v Variant, ox, oy int) float64 {
	var sumH, sumHH, sumHN float64

	for y := 0; y < v.H; y++ {
		frameRow := frame.Pix[(oy+y)*frame.Stride+ox:]
		tplRow := v.Gray.Pix[y*v.Gray.Stride:]
		for x := 0; x < v.W; x++ {
			h := float64(frameRow[x])
			n := float64(tplRow[x])
			sumH += h
			sumHH += h * h
			sumHN += h * n
		}
	}

	n := float64(v.W * v.H)
	numerator := n*sumHN - sumH*v.sum
	denomH := n*sumHH - sumH*sumH
	denomN := n*v.sumSq - v.sum*v.sum
	if denomH <= 0 || denomN <= 0 {
		return 0
	}

	corr := numerator / math.Sqrt(denomH*denomN)
	score := (corr + 1) / 2
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
