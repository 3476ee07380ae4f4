//go:build cgo
// +build cgo

package embedding

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/hyperjump/omoide/pkg/utils"
)

// Expected model files inside the configured model directory: a CLIP vision
// tower and text tower exported to ONNX.
const (
	visualModelFile  = "visual.onnx"
	textualModelFile = "textual.onnx"
)

// CLIPEmbedder embeds images and text into the shared CLIP space using ONNX
// Runtime. It requires CGO and the onnxruntime shared library. Per-file decode
// failures degrade to the zero-vector sentinel; runtime failures are errors.
type CLIPEmbedder struct {
	dimensions  int
	videoFrames int
	cache       *EmbeddingCache
	tokenizer   Tokenizer

	// Pre-allocated tensors reused across Run() calls; each tower is guarded
	// by its own mutex so image and text inference do not serialize each other.
	visualSession *ort.AdvancedSession
	pixelTensor   *ort.Tensor[float32]
	imageOutput   *ort.Tensor[float32]
	visualMu      sync.Mutex

	textualSession *ort.AdvancedSession
	tokenTensor    *ort.Tensor[int64]
	textOutput     *ort.Tensor[float32]
	textualMu      sync.Mutex
}

// NewCLIPEmbedder creates a CLIP embedder from the ONNX models in modelDir.
// InitializeEnvironment is called if not already done.
func NewCLIPEmbedder(modelDir string, dimensions, videoFrames, cacheSize int) (*CLIPEmbedder, error) {
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
	}
	if videoFrames <= 0 {
		videoFrames = 16
	}

	e := &CLIPEmbedder{
		dimensions:  dimensions,
		videoFrames: videoFrames,
		cache:       NewEmbeddingCache(cacheSize),
		tokenizer:   &SimpleTokenizer{},
	}

	var err error
	e.pixelTensor, err = ort.NewTensor(ort.NewShape(1, 3, clipImageSize, clipImageSize), make([]float32, 3*clipImageSize*clipImageSize))
	if err != nil {
		return nil, fmt.Errorf("failed to create pixel tensor: %w", err)
	}
	e.imageOutput, err = ort.NewTensor(ort.NewShape(1, int64(dimensions)), make([]float32, dimensions))
	if err != nil {
		e.destroyTensors()
		return nil, fmt.Errorf("failed to create image output tensor: %w", err)
	}
	e.visualSession, err = ort.NewAdvancedSession(
		filepath.Join(modelDir, visualModelFile),
		[]string{"pixel_values"},
		[]string{"image_embeds"},
		[]ort.ArbitraryTensor{e.pixelTensor},
		[]ort.ArbitraryTensor{e.imageOutput},
		nil,
	)
	if err != nil {
		e.destroyTensors()
		return nil, fmt.Errorf("failed to create visual session: %w", err)
	}

	e.tokenTensor, err = ort.NewTensor(ort.NewShape(1, clipMaxTokens), make([]int64, clipMaxTokens))
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("failed to create token tensor: %w", err)
	}
	e.textOutput, err = ort.NewTensor(ort.NewShape(1, int64(dimensions)), make([]float32, dimensions))
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("failed to create text output tensor: %w", err)
	}
	e.textualSession, err = ort.NewAdvancedSession(
		filepath.Join(modelDir, textualModelFile),
		[]string{"input_ids"},
		[]string{"text_embeds"},
		[]ort.ArbitraryTensor{e.tokenTensor},
		[]ort.ArbitraryTensor{e.textOutput},
		nil,
	)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("failed to create textual session: %w", err)
	}
	return e, nil
}

// EmbedImage returns the unit-normalized CLIP embedding for the image at path.
// Undecodable images yield the zero-vector sentinel of full dimension.
func (e *CLIPEmbedder) EmbedImage(ctx context.Context, path string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tensor, err := LoadImageTensor(path)
	if err != nil {
		return make([]float32, e.dimensions), nil
	}
	return e.runVisual(tensor)
}

func (e *CLIPEmbedder) runVisual(pixels []float32) ([]float32, error) {
	e.visualMu.Lock()
	defer e.visualMu.Unlock()

	copy(e.pixelTensor.GetData(), pixels)
	if err := e.visualSession.Run(); err != nil {
		return nil, fmt.Errorf("visual inference failed: %w", err)
	}
	embedding := make([]float32, e.dimensions)
	copy(embedding, e.imageOutput.GetData()[:e.dimensions])
	utils.NormalizeL2(embedding)
	return embedding, nil
}

// EmbedVideo samples frames from the video at path, embeds each, and returns
// the normalized average. Videos that cannot be probed or decoded yield the
// zero-vector sentinel.
func (e *CLIPEmbedder) EmbedVideo(ctx context.Context, path string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	duration, err := videoDuration(ctx, path)
	if err != nil {
		return make([]float32, e.dimensions), nil
	}
	dir, frames, err := extractFrames(ctx, path, frameTimestamps(duration, e.videoFrames))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return make([]float32, e.dimensions), nil
	}
	defer os.RemoveAll(dir)

	sum := make([]float32, e.dimensions)
	embedded := 0
	for _, frame := range frames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tensor, err := LoadImageTensor(frame)
		if err != nil {
			continue
		}
		emb, err := e.runVisual(tensor)
		if err != nil {
			return nil, err
		}
		for i, v := range emb {
			sum[i] += v
		}
		embedded++
	}
	if embedded == 0 {
		return make([]float32, e.dimensions), nil
	}
	for i := range sum {
		sum[i] /= float32(embedded)
	}
	utils.NormalizeL2(sum)
	return sum, nil
}

// EmbedText returns the unit-normalized CLIP embedding for text, using the
// query cache when available.
func (e *CLIPEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cached, ok := e.cache.Get(text); ok {
		return cached, nil
	}

	e.textualMu.Lock()
	copy(e.tokenTensor.GetData(), e.tokenizer.Tokenize(text))
	if err := e.textualSession.Run(); err != nil {
		e.textualMu.Unlock()
		return nil, fmt.Errorf("textual inference failed: %w", err)
	}
	embedding := make([]float32, e.dimensions)
	copy(embedding, e.textOutput.GetData()[:e.dimensions])
	e.textualMu.Unlock()

	utils.NormalizeL2(embedding)
	e.cache.Set(text, embedding)
	return embedding, nil
}

// Dimensions returns the embedding dimension.
func (e *CLIPEmbedder) Dimensions() int {
	return e.dimensions
}

// Close destroys the sessions and tensors.
func (e *CLIPEmbedder) Close() error {
	var err error
	if e.visualSession != nil {
		err = e.visualSession.Destroy()
		e.visualSession = nil
	}
	if e.textualSession != nil {
		if derr := e.textualSession.Destroy(); err == nil {
			err = derr
		}
		e.textualSession = nil
	}
	e.destroyTensors()
	return err
}

func (e *CLIPEmbedder) destroyTensors() {
	if e.pixelTensor != nil {
		_ = e.pixelTensor.Destroy()
		e.pixelTensor = nil
	}
	if e.imageOutput != nil {
		_ = e.imageOutput.Destroy()
		e.imageOutput = nil
	}
	if e.tokenTensor != nil {
		_ = e.tokenTensor.Destroy()
		e.tokenTensor = nil
	}
	if e.textOutput != nil {
		_ = e.textOutput.Destroy()
		e.textOutput = nil
	}
}
