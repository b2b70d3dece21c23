package inference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/uxlens/uxlens/internal/audit"
	"github.com/uxlens/uxlens/internal/metrics"
)

// Dispatcher fans per-image inference calls out with bounded parallelism.
// The contract is strict: N images yield exactly N independent calls, none
// retried, and any single failure fails the whole batch. A partial report
// would misrepresent the aggregate score.
type Dispatcher struct {
	model       audit.VisionModel
	maxParallel int
	logger      *zap.Logger
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(model audit.VisionModel, maxParallel int, logger *zap.Logger) *Dispatcher {
	if maxParallel <= 0 {
		maxParallel = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{model: model, maxParallel: maxParallel, logger: logger}
}

// Analyze runs one inference call per image and parses each response against
// the output contract. Results are returned in image order.
func (d *Dispatcher) Analyze(ctx context.Context, images []audit.CapturedImage, fw audit.Framework, mode audit.Mode) ([]audit.RawImageAnalysis, error) {
	prompt := BuildPrompt(fw, mode)

	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]audit.RawImageAnalysis, len(images))
	sem := make(chan struct{}, d.maxParallel)
	var (
		wg       sync.WaitGroup
		failOnce sync.Once
		firstErr error
	)

	for i, img := range images {
		wg.Add(1)
		go func(i int, img audit.CapturedImage) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-callCtx.Done():
				return
			}
			raw, err := d.analyzeOne(callCtx, prompt, img)
			if err != nil {
				// Only the triggering failure decides the batch's error
				// class; siblings aborted by cancel surface as
				// context.Canceled and must not shadow it.
				failOnce.Do(func() {
					firstErr = err
					cancel()
				})
				return
			}
			results[i] = raw
		}(i, img)
	}
	wg.Wait()

	// Caller cancellation can drain every goroutine at the semaphore
	// without any of them recording an error.
	if firstErr == nil {
		firstErr = ctx.Err()
	}
	if firstErr != nil {
		metrics.ObserveInference("failed")
		return nil, d.classify(firstErr)
	}
	metrics.ObserveInference("ok")
	return results, nil
}

func (d *Dispatcher) analyzeOne(ctx context.Context, prompt string, img audit.CapturedImage) (audit.RawImageAnalysis, error) {
	text, err := d.model.Infer(ctx, prompt, img)
	if err != nil {
		return audit.RawImageAnalysis{}, err
	}
	raw, err := parseAnalysis(text)
	if err != nil {
		d.logger.Warn("model output violated contract",
			zap.String("source_url", img.SourceURL),
			zap.Error(err),
		)
		return audit.RawImageAnalysis{}, err
	}
	return raw, nil
}

// contractError marks output-contract violations so classification can keep
// them apart from upstream transport failures.
type contractError struct {
	cause error
}

func (e *contractError) Error() string { return e.cause.Error() }
func (e *contractError) Unwrap() error { return e.cause }

// parseAnalysis strips markdown fences and decodes the strict JSON contract.
func parseAnalysis(text string) (audit.RawImageAnalysis, error) {
	cleaned := strings.TrimSpace(
		strings.NewReplacer("```json", "", "```", "").Replace(text))
	if cleaned == "" {
		return audit.RawImageAnalysis{}, &contractError{cause: errors.New("empty model output")}
	}
	var raw audit.RawImageAnalysis
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return audit.RawImageAnalysis{}, &contractError{cause: fmt.Errorf("decode model JSON: %w", err)}
	}
	return raw, nil
}

// classify maps inference failures onto the user-facing error taxonomy.
func (d *Dispatcher) classify(err error) *audit.Error {
	var ce *contractError
	if errors.As(err, &ce) {
		return audit.NewError(audit.CodeInvalidResponse,
			"Model returned invalid JSON", http.StatusBadGateway, err)
	}
	if errors.Is(err, ErrMissingAPIKey) {
		return audit.NewError(audit.CodeMissingAPIKey,
			"Inference API key missing or client unavailable", http.StatusInternalServerError, err)
	}
	var ue *UpstreamError
	if errors.As(err, &ue) {
		switch {
		case ue.StatusCode == http.StatusTooManyRequests:
			return audit.NewError(audit.CodeModelError,
				"AI quota exceeded. Please wait and try again.", http.StatusTooManyRequests, err)
		case ue.StatusCode == http.StatusRequestEntityTooLarge,
			strings.Contains(ue.Body, "too large"),
			strings.Contains(ue.Body, "payload"):
			return audit.NewError(audit.CodeModelError,
				"The analysis payload is too large. Try scanning fewer pages.",
				http.StatusRequestEntityTooLarge, err)
		default:
			return audit.NewError(audit.CodeModelError,
				"Model inference failed", http.StatusBadGateway, err)
		}
	}
	return audit.NewError(audit.CodeModelError,
		"Model inference failed", http.StatusBadGateway, err)
}
