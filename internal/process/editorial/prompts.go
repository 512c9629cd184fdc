package editorial

import "strings"

const (
	placeholderTitle    = "{{TITLE}}"
	placeholderSource   = "{{SOURCE}}"
	placeholderCategory = "{{CATEGORY}}"
	placeholderInsight  = "{{INSIGHT}}"

	insightCharLimit = 3000
	defaultCategory  = "Technology"
)

const systemPrompt = `You are a premier technology analyst for a publication like Medium or Wired. You never use lists or bullet points. You write in deep, fluid paragraphs that connect facts with strategic analysis. You are forbidden from using words like "Key Points" or "Highlights" - everything must be part of the main story flow. Return raw JSON only.`

const reportPrompt = `Write a deep, authoritative technology report (500-700 words) based on the following AI news metadata.
Style: Think Medium, Wired, or The Verge.
Tone: Analytical, fluid, and narrative-driven.

STRICT RULES:
- NO BULLET POINTS. Use full paragraphs only.
- DO NOT use phrases like "Key Points", "Highlights", "Key Takeaways", or "In summary".
- Integrate all facts and data points naturally into the narrative body.
- Use (##) for descriptive section headers (not "Highlights").

Title: {{TITLE}}
Source: {{SOURCE}}
Category: {{CATEGORY}}
Raw Insight: {{INSIGHT}}

Return ONLY a strict JSON object:
{
  "short_summary": "A punchy 1-2 sentence lead for social sharing.",
  "headline": "A brilliant, clickable, yet professional headline.",
  "article_body": "A comprehensive long-form piece. Include a strong narrative opening, deep context, analytical body with (##) subheaders, and a final conclusive thought. MANDATORY: The final section MUST be titled '### Why it matters' and provides 2-3 paragraphs of deep strategic analysis.",
  "tags": ["AI", "Innovation", "Strategic Insights", "Future Tech"]
}`

func buildPrompt(in Input, insight string) string {
	category := in.Category
	if category == "" {
		category = defaultCategory
	}

	if r := []rune(insight); len(r) > insightCharLimit {
		insight = string(r[:insightCharLimit])
	}

	return strings.NewReplacer(
		placeholderTitle, in.Title,
		placeholderSource, in.Source,
		placeholderCategory, category,
		placeholderInsight, insight,
	).Replace(reportPrompt)
}
