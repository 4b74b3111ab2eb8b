package pipeline

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/regdesk/circular-cli/internal/model"
)

// Assignment row constants. Suggestions are advisory until a human
// confirms them.
const (
	assignmentStatus   = "ai_suggested"
	assignmentPriority = "medium"
	assignedBy         = "AI System"
	defaultTeam        = "legal_compliance"
	defaultReason      = "Default assignment for regulatory document"
)

// Rule routes a document to a team when any keyword matches the document's
// department (case-insensitive substring).
type Rule struct {
	Keywords []string `yaml:"keywords"`
	Team     string   `yaml:"team"`
	Reason   string   `yaml:"reason"`
}

// DefaultRules is the compiled-in team routing table.
func DefaultRules() []Rule {
	return []Rule{
		{
			Keywords: []string{"legal", "compliance", "regulation"},
			Team:     "legal_compliance",
			Reason:   "Legal and regulatory content requires compliance expertise",
		},
		{
			Keywords: []string{"risk", "management"},
			Team:     "risk_management",
			Reason:   "Risk management implications identified",
		},
		{
			Keywords: []string{"investment", "mutual fund", "portfolio"},
			Team:     "finance",
			Reason:   "Financial services and investment content",
		},
		{
			Keywords: []string{"market", "intermediary", "supervision"},
			Team:     "operations",
			Reason:   "Market operations and intermediary supervision",
		},
		{
			Keywords: []string{"executive", "policy", "strategic"},
			Team:     "executive",
			Reason:   "Strategic policy decisions required",
		},
	}
}

// LoadRules reads a rule table from a YAML file.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "assign: read rules %s", path)
	}
	var rules []Rule
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, eris.Wrapf(err, "assign: parse rules %s", path)
	}
	if len(rules) == 0 {
		return nil, eris.Errorf("assign: no rules in %s", path)
	}
	return rules, nil
}

// SuggestTeams returns one suggestion per matching rule. Every rule whose
// keywords match fires; a document matching nothing gets the default team.
func SuggestTeams(rules []Rule, department string) []model.TeamAssignment {
	dept := strings.ToLower(department)
	var out []model.TeamAssignment

	for _, rule := range rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(dept, strings.ToLower(kw)) {
				out = append(out, model.TeamAssignment{
					Team:       rule.Team,
					Status:     assignmentStatus,
					Priority:   assignmentPriority,
					AssignedBy: assignedBy,
					Reason:     rule.Reason,
				})
				break
			}
		}
	}

	if len(out) == 0 {
		out = append(out, model.TeamAssignment{
			Team:       defaultTeam,
			Status:     assignmentStatus,
			Priority:   assignmentPriority,
			AssignedBy: assignedBy,
			Reason:     defaultReason,
		})
	}
	return out
}

// assignStage suggests team routings for every persisted document.
func (p *Pipeline) assignStage(ctx context.Context, state *model.PipelineState) {
	origin := string(model.StageAssigning)

	persist := state.Results.Persist
	var pending int
	if persist != nil {
		pending = len(persist.Documents)
	}
	state.AddMessage(origin, model.MessageInfo,
		fmt.Sprintf("assigning teams for %d documents", pending))

	if persist == nil || pending == 0 {
		state.AddError("assign: no persisted documents to assign")
		state.AddMessage(origin, model.MessageError, "no persisted documents to assign")
		return
	}

	result := &model.AssignmentResult{}

	for _, doc := range persist.Documents {
		for _, suggestion := range SuggestTeams(p.rules, doc.Department) {
			suggestion.DocumentID = doc.DocumentID

			record := &model.AssignmentRecord{
				ID:         uuid.New().String(),
				DocumentID: suggestion.DocumentID,
				Team:       suggestion.Team,
				Status:     suggestion.Status,
				Priority:   suggestion.Priority,
				AssignedBy: suggestion.AssignedBy,
				Reason:     suggestion.Reason,
				CreatedAt:  time.Now().UTC(),
			}
			if err := p.store.SaveAssignment(ctx, record); err != nil {
				state.AddError(fmt.Sprintf("assign: document %s: %v", doc.Filename, err))
				continue
			}

			result.AssignmentsCreated++
			result.Assignments = append(result.Assignments, suggestion)
		}
	}

	state.SetAssignmentResult(result)

	state.AddMessage(origin, model.MessageSuccess,
		fmt.Sprintf("team assignment finished: %d suggestions created",
			result.AssignmentsCreated))
}
