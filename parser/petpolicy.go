package parser

import (
	"regexp"
	"sort"
	"strings"

	"hotel-scraper/models"

	"github.com/PuerkitoBio/goquery"
)

// Pet-policy inference. Pages present the policy in one of three shapes: a
// dedicated policy widget under a "Pet Policy" heading, a free-text paragraph
// or FAQ entry mentioning pets, or nothing at all. A structured widget always
// beats free text, and a page with no pet-related content at all yields
// "unknown" rather than "no".

const maxEvidenceLen = 500

// Deny phrases are checked before allow phrases: "no pets allowed" contains
// the substring "pets allowed".
var denyPhrases = []string{
	"no pets",
	"pets are not allowed",
	"pets not allowed",
	"pets not permitted",
	"does not allow pets",
	"does not accept pets",
	"not pet friendly",
	"not pet-friendly",
}

var allowPhrases = []string{
	"pets allowed",
	"pets are allowed",
	"pets are welcome",
	"pets welcome",
	"pet friendly",
	"pet-friendly",
	"dogs welcome",
	"dogs and cats welcome",
	"we welcome pets",
	"pet policy: yes",
}

var (
	petFeeRe     = regexp.MustCompile(`(?i)(?:fee|charge|deposit)\D{0,30}?(\$\s*\d+(?:\.\d{2})?|\d+(?:\.\d{2})?\s*(?:USD|dollars))`)
	petFeeAltRe  = regexp.MustCompile(`(?i)(\$\s*\d+(?:\.\d{2})?)\D{0,30}(?:pet\s+)?(?:fee|charge|deposit|per (?:night|stay))`)
	petWeightRe  = regexp.MustCompile(`(?i)(?:up to|under|maximum(?: of)?|max\.?|limit(?: of)?)\s*(\d+)\s*(lbs?|pounds|kg)`)
	petSpeciesRe = regexp.MustCompile(`(?i)(dogs and cats only|dogs only|cats only|dogs? (?:and|&) cats?)`)
)

// InferPetPolicy classifies the page's pet policy.
func InferPetPolicy(doc *goquery.Document) (models.PetPolicy, error) {
	// 1. Structured widget: a section under a pet-related heading carrying an
	// explicit allowed/denied statement. The candidate closest to a dedicated
	// "Pet Policy" heading wins; ties resolve in DOM order.
	if policy, ok := inferFromWidget(doc); ok {
		return policy, nil
	}

	// 2. Free-text inference over paragraphs, list items and FAQ entries.
	if policy, ok := inferFromText(doc); ok {
		return policy, nil
	}

	// 3. Nothing pet-related on the page.
	return models.PetPolicy{Allowed: models.PetUnknown}, nil
}

type widgetCandidate struct {
	text     string
	distance int // 0 = under a dedicated "Pet Policy" heading
	order    int // DOM order
}

func inferFromWidget(doc *goquery.Document) (models.PetPolicy, bool) {
	var candidates []widgetCandidate

	doc.Find("h1, h2, h3, h4, h5").Each(func(i int, heading *goquery.Selection) {
		ht := strings.ToLower(strings.TrimSpace(heading.Text()))
		if !strings.Contains(ht, "pet") {
			return
		}

		distance := 1
		if strings.Contains(ht, "pet policy") {
			distance = 0
		}

		container := heading.Closest("section, article, .cmp-teaser, .accordion-item")
		if container.Length() == 0 {
			container = heading.Parent()
		}
		text := strings.TrimSpace(container.Text())
		if text == "" {
			return
		}

		candidates = append(candidates, widgetCandidate{
			text:     text,
			distance: distance,
			order:    i,
		})
	})

	if len(candidates) == 0 {
		return models.PetPolicy{}, false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].distance != candidates[j].distance {
			return candidates[i].distance < candidates[j].distance
		}
		return candidates[i].order < candidates[j].order
	})

	for _, c := range candidates {
		verdict, ok := classifyPolicyText(c.text)
		if !ok {
			continue
		}
		policy := models.PetPolicy{
			Allowed:  verdict,
			Evidence: clampEvidence(c.text),
		}
		fillPolicyDetails(&policy, c.text)
		return policy, true
	}

	return models.PetPolicy{}, false
}

func inferFromText(doc *goquery.Document) (models.PetPolicy, bool) {
	var policy models.PetPolicy
	found := false

	doc.Find("p, li, .cmp-text, dd").EachWithBreak(func(i int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		lower := strings.ToLower(text)
		if !strings.Contains(lower, "pet") && !strings.Contains(lower, "dog") && !strings.Contains(lower, "cat") {
			return true
		}

		verdict, ok := classifyPolicyText(text)
		if !ok {
			return true
		}

		policy = models.PetPolicy{
			Allowed:  verdict,
			Evidence: clampEvidence(text),
		}
		fillPolicyDetails(&policy, text)
		found = true
		return false // first match in DOM order wins
	})

	return policy, found
}

// classifyPolicyText maps a text fragment to a verdict. Deny phrases are
// checked first; a fragment mentioning pets without a decisive phrase stays
// unclassified.
func classifyPolicyText(text string) (models.PetVerdict, bool) {
	lower := strings.ToLower(text)

	for _, p := range denyPhrases {
		if strings.Contains(lower, p) {
			return models.PetDenied, true
		}
	}
	for _, p := range allowPhrases {
		if strings.Contains(lower, p) {
			return models.PetAllowed, true
		}
	}
	return models.PetUnknown, false
}

// fillPolicyDetails pulls fee, weight limit and species restrictions out of
// the evidence text when present.
func fillPolicyDetails(policy *models.PetPolicy, text string) {
	if m := petFeeRe.FindStringSubmatch(text); len(m) > 1 {
		policy.Fee = strings.Join(strings.Fields(m[1]), "")
	} else if m := petFeeAltRe.FindStringSubmatch(text); len(m) > 1 {
		policy.Fee = strings.Join(strings.Fields(m[1]), "")
	}

	if m := petWeightRe.FindStringSubmatch(text); len(m) > 2 {
		policy.WeightLimit = m[1] + " " + strings.ToLower(m[2])
	}

	if m := petSpeciesRe.FindString(text); m != "" {
		policy.Species = strings.ToLower(m)
	}
}

func clampEvidence(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) > maxEvidenceLen {
		return text[:maxEvidenceLen]
	}
	return text
}
