package services

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/observer-backend/internal/narrative"
)

func testPersonas() []narrative.Persona {
	return []narrative.Persona{
		{
			Username:        "handler",
			Priority:        3,
			ColorTheme:      "teal",
			TriggerKeywords: []string{"help", "mission"},
			ResponseDelayMs: narrative.DelayRange{Min: 100, Max: 200},
			Responses:       []string{"On it."},
		},
		{
			Username:        "archivist",
			Priority:        1,
			ColorTheme:      "amber",
			TriggerKeywords: []string{" Archive ", "records"},
			ResponseDelayMs: narrative.DelayRange{Min: 50, Max: 50},
			Responses:       []string{"Indexed."},
		},
		{
			Username:        "watcher",
			Priority:        1,
			ColorTheme:      "crimson",
			TriggerKeywords: []string{"records", "anomaly"},
			ResponseDelayMs: narrative.DelayRange{Min: 10, Max: 20},
			Responses:       []string{"Noted."},
		},
	}
}

func TestNpcMatcherPicksLowestPriority(t *testing.T) {
	m, err := NewNpcMatcher(testPersonas(), rand.NewSource(7))
	require.NoError(t, err)

	cases := []struct {
		text    string
		npc     string
		keyword string
	}{
		{"I need HELP with this mission", "handler", "help"},
		{"mission brief: check the archive", "archivist", "archive"},
		{"the anomaly is spreading, help", "watcher", "anomaly"},
		// archivist and watcher share "records" at priority 1; config order wins
		{"pull the records", "archivist", "records"},
		{"nothing interesting here", "", ""},
	}
	for _, tc := range cases {
		for i := 0; i < 5; i++ {
			res := m.Match("player1", tc.text, false)
			require.Equal(t, tc.npc != "", res.Responded, tc.text)
			require.Equal(t, tc.npc, res.Npc, tc.text)
			require.Equal(t, tc.keyword, res.Keyword, tc.text)
		}
	}
}

func TestNpcMatcherIgnoresNpcSenders(t *testing.T) {
	m, err := NewNpcMatcher(testPersonas(), rand.NewSource(1))
	require.NoError(t, err)

	require.False(t, m.Match("player1", "archive", true).Responded)
	require.False(t, m.Match("Archivist", "archive", false).Responded)
	require.False(t, m.Match(" watcher ", "anomaly", false).Responded)
	require.True(t, m.Match("archivist2", "archive", false).Responded)
}

func TestNpcMatcherDelayWithinRange(t *testing.T) {
	m, err := NewNpcMatcher(testPersonas(), rand.NewSource(42))
	require.NoError(t, err)

	for i := 0; i < 200; i++ {
		res := m.Match("p", "help", false)
		require.GreaterOrEqual(t, res.DelayMs, 100)
		require.LessOrEqual(t, res.DelayMs, 200)
		require.Equal(t, "On it.", res.Response)
	}
	res := m.Match("p", "archive", false)
	require.Equal(t, 50, res.DelayMs)
}

func TestNpcMatcherSeededDelaysRepeat(t *testing.T) {
	a, err := NewNpcMatcher(testPersonas(), rand.NewSource(99))
	require.NoError(t, err)
	b, err := NewNpcMatcher(testPersonas(), rand.NewSource(99))
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		require.Equal(t, a.Match("p", "help", false), b.Match("p", "help", false))
	}
}

func TestNpcMatcherWithoutKeywords(t *testing.T) {
	m, err := NewNpcMatcher([]narrative.Persona{{Username: "mute", Priority: 1}}, nil)
	require.NoError(t, err)
	require.False(t, m.Match("p", "anything", false).Responded)
	require.True(t, m.IsPersona("MUTE"))
}
