package extract

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/docmapper/internal/entity"
	"github.com/joseph-ayodele/docmapper/internal/template"
)

// ExtractBatch replays one template against many documents concurrently.
// The template is shared read-only; each document extracts independently
// and a failed document never stops the others. Cancellation is honored
// between documents: results finished before the context was cancelled are
// returned alongside the context error.
func (e *Engine) ExtractBatch(ctx context.Context, tpl *template.Template, docs []*entity.Document) (map[uuid.UUID]*entity.ExtractionResult, error) {
	out := make(map[uuid.UUID]*entity.ExtractionResult, len(docs))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for _, doc := range docs {
		doc := doc
		if err := gctx.Err(); err != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res := e.Extract(gctx, tpl, doc)
			mu.Lock()
			out[doc.ID] = res
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return out, err
	}
	return out, ctx.Err()
}
