// Package resolver classifies raw request input into an acquisition plan.
package resolver

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/uxlens/uxlens/internal/audit"
)

// Upload is one raw uploaded file.
type Upload struct {
	Name     string
	Data     []byte
	MimeType string
}

// Input is the untrusted request payload.
type Input struct {
	Mode    audit.Mode
	URL     string
	Uploads []Upload
}

// Plan is the uniform acquisition plan consumed by the pipeline.
type Plan struct {
	Mode      audit.Mode
	TargetURL string   // normalized absolute URL for the URL-based modes
	Uploads   []Upload // pass-through bytes for upload mode
}

// Resolve validates the input and selects an acquisition mode. URL-based
// modes require a target; anything else with at least one file falls through
// to upload, matching the permissive form handling of the request surface.
func Resolve(in Input) (Plan, error) {
	switch {
	case (in.Mode == audit.ModeURL || in.Mode == audit.ModeAccessibility) && in.URL != "":
		target, err := NormalizeTarget(in.URL)
		if err != nil {
			return Plan{}, err
		}
		return Plan{Mode: in.Mode, TargetURL: target}, nil
	case in.Mode == audit.ModeCrawler && in.URL != "":
		target, err := NormalizeTarget(in.URL)
		if err != nil {
			return Plan{}, err
		}
		return Plan{Mode: audit.ModeCrawler, TargetURL: target}, nil
	case len(in.Uploads) > 0:
		for _, u := range in.Uploads {
			if len(u.Data) == 0 {
				return Plan{}, audit.NewError(audit.CodeInvalidInput,
					"Invalid input image or URL", http.StatusBadRequest,
					fmt.Errorf("empty upload %q", u.Name))
			}
		}
		return Plan{Mode: audit.ModeUpload, Uploads: in.Uploads}, nil
	default:
		return Plan{}, audit.NewError(audit.CodeNoInput,
			"No content to analyze", http.StatusBadRequest, nil)
	}
}

// NormalizeTarget prefixes a scheme when missing and verifies the URL parses
// to something with a hostname.
func NormalizeTarget(raw string) (string, error) {
	target := strings.TrimSpace(raw)
	if !strings.HasPrefix(target, "http") {
		target = "https://" + target
	}
	u, err := url.Parse(target)
	if err != nil || u.Hostname() == "" {
		return "", audit.NewError(audit.CodeInvalidInput,
			"Invalid input image or URL", http.StatusBadRequest,
			fmt.Errorf("unparseable target url %q", raw))
	}
	return target, nil
}
