package session

import (
	"regexp"
	"sort"
	"strings"

	"github.com/kadirpekel/graphreason/pkg/schema"
)

// ExtractQuoted collects every double- or single-quoted substring from
// text, in order of appearance, deduplicated. It is the tolerant
// parser the reasoner uses against the entity-extraction LLM response
// — the core never requires the response to be strict JSON.
func ExtractQuoted(text string) []string {
	re := regexp.MustCompile(`"([^"]+)"|'([^']+)'`)
	matches := re.FindAllStringSubmatch(text, -1)
	seen := map[string]bool{}
	var out []string
	for _, m := range matches {
		val := m[1]
		if val == "" {
			val = m[2]
		}
		val = strings.TrimSpace(val)
		if val == "" || seen[val] {
			continue
		}
		seen[val] = true
		out = append(out, val)
	}
	return out
}

// ExtractField returns the value of the first line beginning with
// "<field>:" (case-insensitive), trimmed, or "" if no such line
// exists. Used to pull the RELATION:/INTENT: hints out of the
// entity-extraction response.
func ExtractField(text, field string) string {
	prefix := strings.ToUpper(field) + ":"
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(strings.ToUpper(trimmed), prefix) {
			return strings.TrimSpace(trimmed[len(prefix):])
		}
	}
	return ""
}

// ExtractedEntity is one candidate entity name pulled from the
// question, with its inferred type and a confidence in [0,1].
type ExtractedEntity struct {
	Text                string
	Type                string
	Confidence          float64
	RecommendedProperties []string
}

// extractQuestionEntities augments the LLM-extracted entity names with
// a question-side regex pass, using the schema's extraction patterns
// and stop-word list — a schema-driven generalization of a hard-coded
// language-specific regex pass.
func extractQuestionEntities(question string, s *schema.GraphSchema) []string {
	stop := map[string]bool{}
	for _, w := range s.StopWords {
		stop[strings.ToLower(w)] = true
	}

	seen := map[string]bool{}
	var out []string
	for _, pattern := range s.ExtractionPatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			continue
		}
		for _, m := range re.FindAllString(question, -1) {
			candidate := strings.Trim(m, `"'`)
			if candidate == "" {
				continue
			}
			if stop[strings.ToLower(candidate)] {
				continue
			}
			if seen[candidate] {
				continue
			}
			seen[candidate] = true
			out = append(out, candidate)
		}
	}
	return out
}

// inferEntities turns raw entity-name strings into ExtractedEntity
// records: type inference by exact schema label match then label
// substring match then "ANY", a length/position confidence heuristic,
// and the schema's ranked property list for the inferred type.
func inferEntities(names []string, question string, s *schema.GraphSchema, boost map[string]float64) []ExtractedEntity {
	qLower := strings.ToLower(question)
	out := make([]ExtractedEntity, 0, len(names))
	for _, name := range names {
		typ := inferType(name, s)
		conf := confidenceFor(name, qLower, boost[typ])
		out = append(out, ExtractedEntity{
			Text:                name,
			Type:                typ,
			Confidence:          conf,
			RecommendedProperties: recommendedProperties(typ, s),
		})
	}
	return out
}

// inferType infers a node type for name: a direct case-insensitive
// match against a schema label wins first, then a substring match
// either way, else the generic "ANY".
func inferType(name string, s *schema.GraphSchema) string {
	lower := strings.ToLower(name)
	for label := range s.NodeTypes {
		if strings.EqualFold(label, name) {
			return label
		}
	}
	for label := range s.NodeTypes {
		ll := strings.ToLower(label)
		if strings.Contains(lower, ll) || strings.Contains(ll, lower) {
			return label
		}
	}
	return "ANY"
}

// confidenceFor scores a candidate by length (longer names are less
// likely to be stop-word noise) and by how early it appears in the
// question (entities named early tend to be the question's subject),
// plus any config-driven per-type boost.
func confidenceFor(name, qLower string, boost float64) float64 {
	conf := 0.3
	if len(name) >= 4 {
		conf += 0.2
	}
	if len(name) >= 8 {
		conf += 0.1
	}
	idx := strings.Index(qLower, strings.ToLower(name))
	if idx >= 0 && len(qLower) > 0 {
		positionScore := 1.0 - float64(idx)/float64(len(qLower))
		conf += 0.3 * positionScore
	}
	conf += boost
	return clamp01(conf)
}

func recommendedProperties(typ string, s *schema.GraphSchema) []string {
	info, ok := s.NodeTypes[typ]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(info.Properties))
	for name := range info.Properties {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		fi, fj := info.Properties[names[i]].Frequency, info.Properties[names[j]].Frequency
		if fi != fj {
			return fi > fj
		}
		return names[i] < names[j]
	})
	return names
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// hasRelationKeyword reports whether question contains a token that
// signals the user is asking about a relationship between entities,
// driving the indirect-connection BFS pass.
func hasRelationKeyword(question string) bool {
	lower := strings.ToLower(question)
	for _, kw := range []string{"relation", "connect", "relationship", "link", "related", "关系"} {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
