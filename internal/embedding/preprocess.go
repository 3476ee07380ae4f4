package embedding

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// CLIP ViT preprocessing constants: 224×224 center crop, per-channel
// normalization with the values the model was trained with.
const clipImageSize = 224

var (
	clipMean = [3]float32{0.48145466, 0.4578275, 0.40821073}
	clipStd  = [3]float32{0.26862954, 0.26130258, 0.27577711}
)

// LoadImageTensor decodes the image at path and returns it as a CHW float32
// tensor (3×224×224), resized, center-cropped, and normalized for CLIP.
func LoadImageTensor(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return imageToTensor(img), nil
}

// imageToTensor scales the shorter side to clipImageSize, center-crops to a
// square, and writes normalized channel-first float32 values.
func imageToTensor(img image.Image) []float32 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	// Scale so the shorter side is exactly clipImageSize.
	var sw, sh int
	if w < h {
		sw = clipImageSize
		sh = h * clipImageSize / w
	} else {
		sh = clipImageSize
		sw = w * clipImageSize / h
	}
	scaled := image.NewRGBA(image.Rect(0, 0, sw, sh))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), img, b, draw.Over, nil)

	offX := (sw - clipImageSize) / 2
	offY := (sh - clipImageSize) / 2

	tensor := make([]float32, 3*clipImageSize*clipImageSize)
	plane := clipImageSize * clipImageSize
	for y := 0; y < clipImageSize; y++ {
		for x := 0; x < clipImageSize; x++ {
			r, g, bb, _ := scaled.At(x+offX, y+offY).RGBA()
			i := y*clipImageSize + x
			tensor[i] = (float32(r)/65535 - clipMean[0]) / clipStd[0]
			tensor[plane+i] = (float32(g)/65535 - clipMean[1]) / clipStd[1]
			tensor[2*plane+i] = (float32(bb)/65535 - clipMean[2]) / clipStd[2]
		}
	}
	return tensor
}
