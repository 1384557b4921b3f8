package assist

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/wanderkit/wanderkit/internal/domain"
	"github.com/wanderkit/wanderkit/internal/metrics"
	"github.com/wanderkit/wanderkit/internal/provider/openai"
)

const maxImagesPerRequest = 10

// ImageGenerator is the slice of the OpenAI provider image generation uses.
type ImageGenerator interface {
	GenerateImages(ctx context.Context, req openai.ImageRequest) ([]string, error)
}

type ImageService struct {
	generator ImageGenerator
}

func NewImageService(g ImageGenerator) *ImageService {
	return &ImageService{generator: g}
}

type ImageRequest struct {
	Prompt string
	Count  int
	Size   string
	Style  string
	Model  string
}

// Generate produces Count images. DALL-E 3 only accepts one image per
// request, so extra images fan out as concurrent single-image requests; a
// failed extra degrades to fewer images rather than failing the whole
// operation. The first image is mandatory and its failure is the caller's.
func (s *ImageService) Generate(ctx context.Context, req ImageRequest) ([]string, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, fmt.Errorf("%w: prompt is required", domain.ErrInvalidInput)
	}

	count := req.Count
	if count < 1 {
		count = 1
	}
	if count > maxImagesPerRequest {
		count = maxImagesPerRequest
	}

	model := req.Model
	if model == "" {
		model = "dall-e-3"
	}
	size := req.Size
	if size == "" {
		size = "1024x1024"
	}

	prompt := req.Prompt
	if req.Style != "" && req.Style != "realistic" {
		prompt = fmt.Sprintf("%s, in %s style", req.Prompt, req.Style)
	}

	isDalle3 := model == "dall-e-3"

	n := count
	if isDalle3 {
		n = 1
	}

	urls, err := s.generator.GenerateImages(ctx, openai.ImageRequest{
		Prompt: prompt,
		N:      n,
		Size:   size,
		Model:  model,
	})
	if err != nil {
		return nil, err
	}

	if isDalle3 && count > 1 {
		extra := s.generateExtra(ctx, prompt, size, model, count-1)
		urls = append(urls, extra...)
	}

	metrics.ImagesGenerated.Add(float64(len(urls)))
	return urls, nil
}

// generateExtra runs the remaining single-image requests concurrently and
// collects whatever succeeded.
func (s *ImageService) generateExtra(ctx context.Context, prompt, size, model string, n int) []string {
	var (
		mu    sync.Mutex
		extra []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for i := 0; i < n; i++ {
		g.Go(func() error {
			urls, err := s.generator.GenerateImages(gctx, openai.ImageRequest{
				Prompt: prompt,
				N:      1,
				Size:   size,
				Model:  model,
			})
			if err != nil {
				return nil
			}
			mu.Lock()
			extra = append(extra, urls...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return extra
}
