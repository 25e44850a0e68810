package feed

import (
	"regexp"
	"sort"
	"strings"

	"github.com/gitmatch-ai/gitmatch/internal/model"
	"github.com/gitmatch-ai/gitmatch/internal/service/quality"
)

// WhyThisTopK caps how many explanation entries a feed item carries.
const WhyThisTopK = 3

// Match weights, strongest signal first. A label match is near-certain
// relevance; a loose text mention is weak corroboration.
const (
	labelMatchScore    = 3.0
	languageMatchScore = 2.5
	topicMatchScore    = 2.0
	textMatchScore     = 1.0
)

var tokenRe = regexp.MustCompile(`[a-z0-9\+\#\.]+`)

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)

// normEntity folds case and punctuation so "Next.js", "nextjs" and
// "NEXT JS" all compare equal.
func normEntity(s string) string {
	return nonAlnumRe.ReplaceAllString(strings.ToLower(s), "")
}

// profileEntities collects the whitelisted explanation vocabulary from a
// profile: known languages, known stack areas, and taxonomy-normalized
// topics and skills. Free-text profile fields never become entities, so an
// explanation can only name terms the product vocabulary recognizes.
func profileEntities(p model.Profile) map[string]bool {
	entities := make(map[string]bool)

	for _, lang := range p.PreferredLanguages {
		if profileLanguages[lang] {
			entities[lang] = true
		}
	}
	for _, lang := range p.GitHubLanguages {
		if profileLanguages[lang] {
			entities[lang] = true
		}
	}
	for _, area := range p.StackAreas {
		if stackAreas[area] {
			entities[area] = true
		}
	}
	for _, raw := range p.PreferredTopics {
		if canon := NormalizeSkill(raw); canon != "" {
			entities[canon] = true
		}
	}
	for _, raw := range p.GitHubTopics {
		if canon := NormalizeSkill(raw); canon != "" {
			entities[canon] = true
		}
	}
	for _, raw := range p.ResumeSkills {
		if canon := NormalizeSkill(raw); canon != "" {
			entities[canon] = true
		}
	}
	return entities
}

// ComputeWhyThis scores each whitelisted profile entity against the
// already-fetched fields of one feed item and returns the top-K matches,
// ordered by score descending then entity ascending. Deterministic, no I/O.
func ComputeWhyThis(p model.Profile, item model.FeedItem) []model.WhyThisItem {
	entities := profileEntities(p)
	if len(entities) == 0 {
		return nil
	}

	labelNorms := make(map[string]bool, len(item.Labels))
	for _, l := range item.Labels {
		if l != "" {
			labelNorms[normEntity(l)] = true
		}
	}

	topicNorms := make(map[string]bool, len(item.RepoTopics))
	for _, t := range item.RepoTopics {
		if t == "" {
			continue
		}
		canon := NormalizeSkill(t)
		if canon == "" {
			canon = t
		}
		topicNorms[normEntity(canon)] = true
	}

	var langNorm string
	var language string
	if item.PrimaryLanguage != nil {
		language = *item.PrimaryLanguage
		langNorm = normEntity(language)
	}

	text := strings.ToLower(item.Title + "\n" + item.BodyPreview)
	tokenNorms := make(map[string]bool)
	for _, tok := range tokenRe.FindAllString(text, -1) {
		tokenNorms[normEntity(tok)] = true
	}

	techNorms := make(map[string]bool)
	for _, kw := range quality.TechKeywords(language) {
		techNorms[normEntity(kw)] = true
	}

	var ranked []model.WhyThisItem
	for ent := range entities {
		norm := normEntity(ent)
		if norm == "" {
			continue
		}

		score := 0.0
		if labelNorms[norm] {
			score += labelMatchScore
		}
		if langNorm != "" && norm == langNorm {
			score += languageMatchScore
		}
		if topicNorms[norm] {
			score += topicMatchScore
		}
		if tokenNorms[norm] || techNorms[norm] || strings.Contains(text, strings.ToLower(ent)) {
			score += textMatchScore
		}
		if score > 0 {
			ranked = append(ranked, model.WhyThisItem{Entity: ent, Score: score})
		}
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return strings.ToLower(ranked[i].Entity) < strings.ToLower(ranked[j].Entity)
	})
	if len(ranked) > WhyThisTopK {
		ranked = ranked[:WhyThisTopK]
	}
	return ranked
}
