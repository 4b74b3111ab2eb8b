package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/regdesk/circular-cli/internal/model"
)

const maxTitleLength = 500

// persistStage writes analyzed documents and their actionable items to the
// store. Per-document save failures are recorded in the error sequence;
// the stage fails only when its preconditions are missing.
func (p *Pipeline) persistStage(ctx context.Context, state *model.PipelineState) {
	origin := string(model.StagePersisting)

	analysis := state.Results.Analysis
	var pending int
	if analysis != nil {
		pending = len(analysis.Documents)
	}
	state.AddMessage(origin, model.MessageInfo,
		fmt.Sprintf("saving %d documents", pending))

	if analysis == nil || pending == 0 {
		state.AddError("persist: no analyzed documents to save")
		state.AddMessage(origin, model.MessageError, "no analyzed documents to save")
		return
	}
	if p.store == nil {
		state.AddError("persist: no store configured")
		state.AddMessage(origin, model.MessageError, "no store configured")
		return
	}

	result := &model.PersistResult{LoadedAt: time.Now().UTC()}

	for _, doc := range analysis.Documents {
		record := &model.DocumentRecord{
			ID:             uuid.New().String(),
			RunID:          state.RunID,
			Filename:       doc.Filename,
			Title:          documentTitle(doc),
			Summary:        doc.Summary,
			Department:     doc.Department,
			Intermediaries: doc.Intermediaries,
			KeyClauses:     doc.KeyClauses,
			KeyMetrics:     doc.KeyMetrics,
			ContentLength:  doc.ContentLength,
			AnalysisError:  doc.Err,
			CreatedAt:      time.Now().UTC(),
		}

		if err := p.store.SaveDocument(ctx, record); err != nil {
			state.AddError(fmt.Sprintf("persist: document %s: %v", doc.Filename, err))
			continue
		}
		result.DocumentsSaved++
		result.Documents = append(result.Documents, model.PersistedDocument{
			DocumentID: record.ID,
			Filename:   record.Filename,
			Department: record.Department,
		})

		for _, item := range doc.ActionableItems {
			itemRecord := &model.ActionableItemRecord{
				ID:                 uuid.New().String(),
				DocumentID:         record.ID,
				Title:              item.Title,
				Description:        item.Description,
				ResponsibleParties: item.ResponsibleParties,
				Timeline:           item.ImplementationTimeline,
				Priority:           priorityFromTimeline(item.ImplementationTimeline),
				CreatedAt:          time.Now().UTC(),
			}
			if err := p.store.SaveActionableItem(ctx, itemRecord); err != nil {
				state.AddError(fmt.Sprintf("persist: item %q: %v", item.Title, err))
				continue
			}
			result.ItemsSaved++
		}
	}

	state.SetPersistResult(result)

	state.AddMessage(origin, model.MessageSuccess,
		fmt.Sprintf("persistence finished: %d documents, %d actionable items saved",
			result.DocumentsSaved, result.ItemsSaved))
}

// documentTitle derives the stored title: the summary prefix capped at 500
// characters, falling back to the filename for failed analyses.
func documentTitle(doc model.DocumentAnalysis) string {
	title := strings.TrimSpace(doc.Summary)
	if title == "" {
		return doc.Filename
	}
	if len(title) > maxTitleLength {
		title = title[:maxTitleLength]
	}
	return title
}

// priorityFromTimeline maps an implementation timeline onto a priority
// bucket. An absent timeline defaults to medium; an unrecognized one is
// treated as distant and gets low.
func priorityFromTimeline(timeline string) string {
	t := strings.ToLower(strings.TrimSpace(timeline))
	switch {
	case t == "":
		return "medium"
	case strings.Contains(t, "immediate"), strings.Contains(t, "urgent"):
		return "critical"
	case strings.Contains(t, "30 days"), strings.Contains(t, "1 month"):
		return "high"
	case strings.Contains(t, "60 days"), strings.Contains(t, "2 month"):
		return "medium"
	default:
		return "low"
	}
}
