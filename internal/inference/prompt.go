package inference

import (
	"fmt"

	"github.com/uxlens/uxlens/internal/audit"
)

func frameworkLens(fw audit.Framework) string {
	switch fw {
	case audit.FrameworkWCAG:
		return "the WCAG 2.1 AA/AAA accessibility guidelines"
	case audit.FrameworkVisual:
		return "core visual design principles (hierarchy, contrast, alignment, proximity, whitespace)"
	default:
		return "Nielsen's 10 Usability Heuristics"
	}
}

func modeContext(mode audit.Mode) string {
	switch mode {
	case audit.ModeCrawler:
		return "one page of a multi-page website scan"
	case audit.ModeURL, audit.ModeAccessibility:
		return "a live website page"
	default:
		return "a UI screenshot"
	}
}

const accessibilityEmphasis = `
SPECIAL MODE: ACCESSIBILITY PERSONA TESTING (WCAG 2.1 AA/AAA)
Simulate:
1. Maria (Low Vision, 200% Zoom)
2. Ali (Screen Reader)
3. Sam (Motor Impairment, Keyboard Only)
Focus narrowly on contrast, touch-target size, and visual hierarchy.
`

// BuildPrompt assembles the per-image instruction. Each captured image gets
// its own independent call so findings stay attributable to a single page.
func BuildPrompt(fw audit.Framework, mode audit.Mode) string {
	extra := ""
	if mode == audit.ModeAccessibility {
		extra = accessibilityEmphasis
	}
	return fmt.Sprintf(`You are a World-Class UX Consultant & Information Designer.
Your job is NOT just to find errors, but to provide a data-driven, visually-oriented strategic audit.

CONTEXT:
You are auditing %s using the %s framework.
%s
YOU MUST RETURN JSON ONLY. NO MARKDOWN.

JSON SCHEMA:
{
  "score": 85,
  "ui_title": "Section Name",
  "ux_metrics": {
    "clarity": 8,
    "efficiency": 7,
    "consistency": 9,
    "aesthetics": 6,
    "accessibility": 5
  },
  "key_strengths": ["Strength 1", "Strength 2", "Strength 3"],
  "key_weaknesses": ["Weakness 1", "Weakness 2", "Weakness 3"],
  "audit": [
    {
      "title": "Issue Title",
      "issue": "Description of the problem.",
      "solution": "Specific, actionable fix.",
      "severity": "critical" | "high" | "medium" | "low",
      "category": "Layout" | "Color" | "Typography" | "Navigation" | "Accessibility",
      "x": 50,
      "y": 30
    }
  ]
}

"score" is an integer 0-100; metric values are integers 0-10; "x" and "y" are
optional percentage coordinates locating the issue on the screenshot.

SCORING CRITERIA:
- 90-100: World Class
- 80-89: Great, minor details missing
- 70-79: Good, but usability friction exists
- 60-69: Average, needs polish
- <60: Significant issues

INSTRUCTIONS:
1. Be brutal but constructive.
2. Analyze the visual hierarchy deeply.
3. Report only what is visible in this single screenshot.`,
		modeContext(mode), frameworkLens(fw), extra)
}
