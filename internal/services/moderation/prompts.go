package moderation

import (
	"fmt"

	"github.com/ternarybob/praeco/internal/models"
)

// Prompt templates keyed by content type. Comments get a stricter
// template because they are reader-submitted and unedited.

const basePromptTemplate = `You are the content safety reviewer for a regional news platform. Review the %s below against the platform's community standards: no hate speech, no harassment, no incitement, no sexual content involving minors, no doxxing, no fraud or scams.

Content:
---
%s
---

Return ONLY valid JSON (no markdown, no explanation):
{
  "decision": "pass|fail",
  "violation_section": "standards section violated, empty when passing",
  "violation_explanation": "one-sentence explanation, empty when passing"
}

Editorial content gets the benefit of the doubt: reporting ON a sensitive topic is not itself a violation. Fail only on a clear violation.`

const commentPromptTemplate = `You are the content safety reviewer for a regional news platform. Review the reader %s below against the platform's community standards: no hate speech, no harassment, no incitement, no sexual content involving minors, no doxxing, no fraud or scams, no personal attacks on other community members.

Content:
---
%s
---

Return ONLY valid JSON (no markdown, no explanation):
{
  "decision": "pass|fail",
  "violation_section": "standards section violated, empty when passing",
  "violation_explanation": "one-sentence explanation, empty when passing"
}

Reader submissions are held to a stricter standard than editorial content: fail on personal attacks, slurs, and pile-on behavior even when worded indirectly. When genuinely uncertain, pass.`

// buildPrompt selects the template for a content type and interpolates
// the content type and snapshot into it.
func buildPrompt(contentType, snapshot string) string {
	switch contentType {
	case models.ContentTypeComment:
		return fmt.Sprintf(commentPromptTemplate, contentType, snapshot)
	default:
		return fmt.Sprintf(basePromptTemplate, contentType, snapshot)
	}
}
