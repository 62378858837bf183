package agent

import (
	"regexp"

	"github.com/Rrens/energy-agent/internal/domain"
)

// Classification methods
const (
	MethodExplicit = "explicit"
	MethodKeyword  = "keyword"
	MethodLLM      = "llm"
	MethodDefault  = "default"
)

// Classification is the outcome of agent selection
type Classification struct {
	Agent  domain.AgentType `json:"agent"`
	Method string           `json:"method"`
	Score  int              `json:"score,omitempty"`
	Reason string           `json:"reason,omitempty"`
}

type keywordRule struct {
	pattern *regexp.Regexp
	weight  int
}

// KeywordClassifier scores a message against per-agent keyword rules
type KeywordClassifier struct {
	rules map[domain.AgentType][]keywordRule
}

func rule(pattern string, weight int) keywordRule {
	return keywordRule{pattern: regexp.MustCompile(`(?i)` + pattern), weight: weight}
}

// NewKeywordClassifier returns the classifier with the built-in rules
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{rules: map[domain.AgentType][]keywordRule{
		domain.AgentPetrophysics: {
			rule(`\bporosity\b`, 3),
			rule(`\bshale\s+volume\b|\bvshale?\b|\blarionov\b`, 3),
			rule(`\bwater\s+saturation\b|\barchie\b|\bsw\b`, 3),
			rule(`\bpetrophysic`, 3),
			rule(`\bwell\s+logs?\b|\blog\s+analysis\b|\bformation\s+evaluation\b`, 2),
			rule(`\brhob\b|\bgamma\s+ray\b|\bresistivity\b|\bdensity\s+log\b|\bneutron\b`, 2),
			rule(`\bpermeability\b|\blithology\b|\bnet\s+pay\b|\breservoir\s+quality\b`, 2),
		},
		domain.AgentMaintenance: {
			rule(`\bmaintenance\b`, 3),
			rule(`\b(pump|comp|turb|valve|sep|hx)[-_]\d+\b`, 3),
			rule(`\bequipment\b|\bcompressor\b|\bpump\b`, 2),
			rule(`\bfailure\b|\bbreakdown\b|\bdowntime\b|\bvibration\b`, 2),
			rule(`\binspection\b|\bwork\s+order\b|\brepair\b|\bhealth\s+score\b`, 2),
		},
		domain.AgentRenewable: {
			rule(`\bwind\s+farm\b|\bwind\s+turbines?\b|\bturbine\s+layout\b`, 3),
			rule(`\brenewable\b|\bsolar\b`, 3),
			rule(`\bwind\b|\bwake\b`, 2),
			rule(`\baep\b|\bannual\s+energy\b|\bcapacity\s+factor\b|\benergy\s+yield\b`, 2),
			rule(`\bcarbon\s+offset\b|\bco2\b|\bemissions?\b`, 1),
			rule(`-?\d{1,2}\.\d+\s*,\s*-?\d{1,3}\.\d+`, 1),
		},
		domain.AgentEDIcraft: {
			rule(`\bcatalog(ue)?\b|\bedicraft\b|\bosdu\b`, 3),
			rule(`\b(list|show|find|search)\s+(all\s+)?(the\s+)?wells\b`, 3),
			rule(`\bwells\s+(in|from|by|operated)\b`, 2),
			rule(`\boperator\b|\bfield\b|\bbasin\b`, 1),
			rule(`\bwell\s+files?\b|\blas\s+files?\b`, 2),
		},
	}}
}

// Classify picks the highest scoring agent. It reports false when no rule
// matched or the top score is tied.
func (k *KeywordClassifier) Classify(message string) (Classification, bool) {
	best, second := 0, 0
	var agent domain.AgentType
	for _, a := range domain.AgentTypes() {
		score := 0
		for _, r := range k.rules[a] {
			if r.pattern.MatchString(message) {
				score += r.weight
			}
		}
		switch {
		case score > best:
			second = best
			best = score
			agent = a
		case score > second:
			second = score
		}
	}
	if best == 0 || best == second {
		return Classification{}, false
	}
	return Classification{Agent: agent, Method: MethodKeyword, Score: best}, true
}
