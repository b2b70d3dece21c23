// Package pipeline orchestrates a single audit from admission to persistence.
package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"path"

	"go.uber.org/zap"

	"github.com/uxlens/uxlens/internal/audit"
	"github.com/uxlens/uxlens/internal/capture"
	"github.com/uxlens/uxlens/internal/crawl"
	"github.com/uxlens/uxlens/internal/inference"
	"github.com/uxlens/uxlens/internal/metrics"
	"github.com/uxlens/uxlens/internal/quota"
	"github.com/uxlens/uxlens/internal/recorder"
	"github.com/uxlens/uxlens/internal/report"
	"github.com/uxlens/uxlens/internal/resolver"
)

// Request is one audit request after session resolution.
type Request struct {
	Identity  audit.Identity
	Mode      audit.Mode
	Framework audit.Framework
	URL       string
	Uploads   []resolver.Upload
}

// Result carries the finished report plus the quota decision that admitted
// it. The decision is populated even when the request is rejected, so the
// surface can render usage details alongside the error.
type Result struct {
	Report   audit.AuditReport
	Decision audit.Decision
}

// Pipeline wires the audit stages together.
type Pipeline struct {
	ledger     *quota.Ledger
	acquirer   *capture.Acquirer
	crawler    *crawl.Discoverer
	dispatcher *inference.Dispatcher
	model      audit.VisionModel
	blobs      audit.BlobStore
	recorder   *recorder.Recorder
	ids        audit.IDGenerator
	logger     *zap.Logger
}

// New builds a Pipeline. blobs may be nil when no object storage is
// configured; captured images then carry only renderer-provided URLs.
func New(
	ledger *quota.Ledger,
	acquirer *capture.Acquirer,
	crawler *crawl.Discoverer,
	dispatcher *inference.Dispatcher,
	model audit.VisionModel,
	blobs audit.BlobStore,
	rec *recorder.Recorder,
	ids audit.IDGenerator,
	logger *zap.Logger,
) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		ledger:     ledger,
		acquirer:   acquirer,
		crawler:    crawler,
		dispatcher: dispatcher,
		model:      model,
		blobs:      blobs,
		recorder:   rec,
		ids:        ids,
		logger:     logger,
	}
}

// Run executes the full audit pipeline for one request.
func (p *Pipeline) Run(ctx context.Context, req Request) (Result, error) {
	res, err := p.run(ctx, req)
	outcome := "ok"
	if err != nil {
		outcome = "failed"
	}
	metrics.ObserveAudit(string(req.Mode), outcome)
	return res, err
}

func (p *Pipeline) run(ctx context.Context, req Request) (Result, error) {
	decision, err := p.ledger.Admit(ctx, req.Identity)
	if err != nil {
		return Result{}, audit.AsError(err)
	}
	if !decision.Allowed {
		return Result{Decision: decision}, audit.NewError(audit.CodePlanLimit,
			"Plan limit reached. Upgrade to continue.",
			http.StatusPaymentRequired, nil)
	}

	if ready, ok := p.model.(interface{ Ready() error }); ok {
		if err := ready.Ready(); err != nil {
			return Result{Decision: decision}, audit.NewError(audit.CodeMissingAPIKey,
				"Analysis service is not configured",
				http.StatusInternalServerError, err)
		}
	}

	plan, err := resolver.Resolve(resolver.Input{
		Mode:    req.Mode,
		URL:     req.URL,
		Uploads: req.Uploads,
	})
	if err != nil {
		return Result{Decision: decision}, audit.AsError(err)
	}

	framework := req.Framework
	if framework == "" {
		framework = audit.FrameworkNielsen
	}
	if plan.Mode == audit.ModeAccessibility {
		framework = audit.FrameworkWCAG
	}

	images, err := p.acquire(ctx, plan)
	if err != nil {
		return Result{Decision: decision}, audit.AsError(err)
	}
	p.publishImages(ctx, images)

	raws, err := p.dispatcher.Analyze(ctx, images, framework, plan.Mode)
	if err != nil {
		return Result{Decision: decision}, audit.AsError(err)
	}

	rep := report.Aggregate(raws)
	rep.Framework = framework
	rep.TargetURL = plan.TargetURL
	for _, img := range images {
		if img.PublicURL != "" {
			rep.ImageURL = img.PublicURL
			break
		}
	}

	rep = p.recorder.Record(ctx, req.Identity, rep)
	return Result{Report: rep, Decision: decision}, nil
}

// acquire turns the resolved plan into one or more captured images.
func (p *Pipeline) acquire(ctx context.Context, plan resolver.Plan) ([]audit.CapturedImage, error) {
	switch plan.Mode {
	case audit.ModeUpload:
		images := make([]audit.CapturedImage, 0, len(plan.Uploads))
		for _, u := range plan.Uploads {
			mime := u.MimeType
			if mime == "" {
				mime = "image/png"
			}
			images = append(images, audit.CapturedImage{Data: u.Data, MimeType: mime})
		}
		return images, nil
	case audit.ModeCrawler:
		return p.crawler.Crawl(ctx, plan.TargetURL)
	default:
		img, err := p.acquirer.Capture(ctx, plan.TargetURL)
		if err != nil {
			return nil, audit.NewError(audit.CodeScreenshotFailed,
				"Could not capture the website screenshot.",
				http.StatusInternalServerError, err)
		}
		return []audit.CapturedImage{img}, nil
	}
}

// publishImages uploads captures without an external URL to blob storage so
// reports can reference them. Upload failures degrade the image_url field
// only; the audit proceeds on in-memory bytes.
func (p *Pipeline) publishImages(ctx context.Context, images []audit.CapturedImage) {
	if p.blobs == nil {
		return
	}
	batchID, err := p.ids.NewID()
	if err != nil {
		p.logger.Warn("generate capture batch id", zap.Error(err))
		return
	}
	for i := range images {
		if images[i].PublicURL != "" {
			continue
		}
		object := path.Join("captures", batchID, fmt.Sprintf("%d%s", i, extFor(images[i].MimeType)))
		url, err := p.blobs.PutObject(ctx, object, images[i].MimeType, images[i].Data)
		if err != nil {
			p.logger.Warn("upload capture", zap.String("object", object), zap.Error(err))
			continue
		}
		images[i].PublicURL = url
	}
}

func extFor(mime string) string {
	switch mime {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
