package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuggestTeams_SingleMatch(t *testing.T) {
	got := SuggestTeams(DefaultRules(), "Enforcement Department - 1")

	require.Len(t, got, 1)
	assert.Equal(t, "legal_compliance", got[0].Team)
	assert.Equal(t, "ai_suggested", got[0].Status)
	assert.Equal(t, "medium", got[0].Priority)
	assert.Equal(t, "AI System", got[0].AssignedBy)
	assert.Equal(t, "Default assignment for regulatory document", got[0].Reason)
}

func TestSuggestTeams_AllMatchingRulesFire(t *testing.T) {
	got := SuggestTeams(DefaultRules(),
		"Market Intermediaries Regulation and Supervision Department")

	require.Len(t, got, 2)
	assert.Equal(t, "legal_compliance", got[0].Team, "regulation keyword")
	assert.Equal(t, "operations", got[1].Team, "market keyword")
}

func TestSuggestTeams_RuleFiresOncePerDocument(t *testing.T) {
	// "Investment Management Department" hits both "investment" and the
	// management keyword of the risk rule, but each matched rule yields
	// exactly one suggestion.
	got := SuggestTeams(DefaultRules(), "Investment Management Department")

	require.Len(t, got, 2)
	assert.Equal(t, "risk_management", got[0].Team)
	assert.Equal(t, "finance", got[1].Team)
}

func TestSuggestTeams_DefaultWhenNothingMatches(t *testing.T) {
	got := SuggestTeams(DefaultRules(), "Not Specified")

	require.Len(t, got, 1)
	assert.Equal(t, "legal_compliance", got[0].Team)
	assert.Equal(t, "Default assignment for regulatory document", got[0].Reason)
}

func TestSuggestTeams_CaseInsensitive(t *testing.T) {
	got := SuggestTeams(DefaultRules(), "INFORMATION TECHNOLOGY DEPARTMENT")

	// No keyword matches; falls through to the default.
	require.Len(t, got, 1)
	assert.Equal(t, "legal_compliance", got[0].Team)

	got = SuggestTeams(DefaultRules(), "market REGULATION department")
	require.Len(t, got, 2)
}

func TestLoadRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	data := `- keywords: [audit, inspection]
  team: audit
  reason: Audit content
- keywords: [technology]
  team: it
  reason: Technology content
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	rules, err := LoadRules(path)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "audit", rules[0].Team)
	assert.Equal(t, []string{"audit", "inspection"}, rules[0].Keywords)

	got := SuggestTeams(rules, "Information Technology Department")
	require.Len(t, got, 1)
	assert.Equal(t, "it", got[0].Team)
}

func TestLoadRules_Errors(t *testing.T) {
	_, err := LoadRules(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("[]\n"), 0o644))
	_, err = LoadRules(empty)
	assert.Error(t, err, "empty rule table is rejected")
}
