package services

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"

	"github.com/coregx/ahocorasick"

	"github.com/yungbote/observer-backend/internal/narrative"
)

type NpcMatchResult struct {
	Responded  bool   `json:"responded"`
	Npc        string `json:"npc,omitempty"`
	DelayMs    int    `json:"delay_ms,omitempty"`
	Keyword    string `json:"keyword,omitempty"`
	ColorTheme string `json:"color_theme,omitempty"`
	Response   string `json:"-"`
}

// NpcMatcher compiles every persona keyword into one automaton. Persona
// choice depends only on text and configuration; delay and response text
// come from the injected random source.
type NpcMatcher struct {
	personas  []narrative.Persona
	order     []int // persona indexes sorted by (priority, config order)
	rank      []int // persona index -> position in order
	ac        *ahocorasick.Automaton
	patterns  []string
	owners    [][]int
	usernames map[string]bool

	mu  sync.Mutex
	rng *rand.Rand
}

func normalizeTrigger(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func NewNpcMatcher(personas []narrative.Persona, src rand.Source) (*NpcMatcher, error) {
	if src == nil {
		src = rand.NewSource(1)
	}
	m := &NpcMatcher{
		personas:  append([]narrative.Persona(nil), personas...),
		usernames: make(map[string]bool, len(personas)),
		rng:       rand.New(src),
	}

	m.order = make([]int, len(m.personas))
	for i := range m.order {
		m.order[i] = i
	}
	sort.SliceStable(m.order, func(a, b int) bool {
		return m.personas[m.order[a]].Priority < m.personas[m.order[b]].Priority
	})
	m.rank = make([]int, len(m.personas))
	for pos, idx := range m.order {
		m.rank[idx] = pos
	}

	index := map[string]int{}
	for pi, p := range m.personas {
		m.usernames[normalizeTrigger(p.Username)] = true
		for _, kw := range p.TriggerKeywords {
			key := normalizeTrigger(kw)
			if key == "" {
				continue
			}
			if idx, ok := index[key]; ok {
				m.owners[idx] = appendUniqueInt(m.owners[idx], pi)
				continue
			}
			index[key] = len(m.patterns)
			m.patterns = append(m.patterns, key)
			m.owners = append(m.owners, []int{pi})
		}
	}
	if len(m.patterns) == 0 {
		return m, nil
	}
	ac, err := ahocorasick.NewBuilder().
		AddStrings(m.patterns).
		SetMatchKind(ahocorasick.LeftmostLongest).
		SetPrefilter(true).
		Build()
	if err != nil {
		return nil, fmt.Errorf("compile npc triggers: %w", err)
	}
	m.ac = ac
	return m, nil
}

func appendUniqueInt(xs []int, v int) []int {
	for _, x := range xs {
		if x == v {
			return xs
		}
	}
	return append(xs, v)
}

func (m *NpcMatcher) IsPersona(username string) bool {
	return m.usernames[normalizeTrigger(username)]
}

func (m *NpcMatcher) Persona(username string) (narrative.Persona, bool) {
	name := normalizeTrigger(username)
	for _, p := range m.personas {
		if normalizeTrigger(p.Username) == name {
			return p, true
		}
	}
	return narrative.Persona{}, false
}

// Select returns the winning persona index and the keyword that triggered
// it, or -1. It is pure.
func (m *NpcMatcher) Select(text string) (int, string) {
	if m.ac == nil {
		return -1, ""
	}
	haystack := []byte(strings.ToLower(text))
	best, bestStart := -1, 0
	keyword := ""
	for _, hit := range m.ac.FindAllOverlapping(haystack) {
		if hit.PatternID < 0 || hit.PatternID >= len(m.owners) {
			continue
		}
		for _, pi := range m.owners[hit.PatternID] {
			better := best == -1 ||
				m.rank[pi] < m.rank[best] ||
				(pi == best && hit.Start < bestStart)
			if better {
				best, bestStart = pi, hit.Start
				keyword = m.patterns[hit.PatternID]
			}
		}
	}
	return best, keyword
}

// Match decides whether a persona replies to text. Messages from NPCs, or
// from a sender using a persona's username, never trigger.
func (m *NpcMatcher) Match(sender, text string, senderIsNpc bool) NpcMatchResult {
	if senderIsNpc || m.IsPersona(sender) {
		return NpcMatchResult{}
	}
	pi, keyword := m.Select(text)
	if pi < 0 {
		return NpcMatchResult{}
	}
	p := m.personas[pi]

	m.mu.Lock()
	delay := p.ResponseDelayMs.Min
	if span := p.ResponseDelayMs.Max - p.ResponseDelayMs.Min; span > 0 {
		delay += m.rng.Intn(span + 1)
	}
	response := ""
	if len(p.Responses) > 0 {
		response = p.Responses[m.rng.Intn(len(p.Responses))]
	}
	m.mu.Unlock()

	return NpcMatchResult{
		Responded:  true,
		Npc:        p.Username,
		DelayMs:    delay,
		Keyword:    keyword,
		ColorTheme: p.ColorTheme,
		Response:   response,
	}
}
