package knowledge

import (
	"context"
	"fmt"
	"strings"

	"github.com/conduitchat/conduit/internal/chat"
	"github.com/conduitchat/conduit/internal/embedding"
	"github.com/conduitchat/conduit/internal/monitoring"
	"github.com/rs/zerolog"
)

// Fixed preamble for the augmented query. It tells the agent to trust the
// retrieved context over prior knowledge when the two disagree.
const augmentationPreamble = "Answer the question using the additional information provided below. " +
	"If the additional information conflicts with your prior knowledge, prefer the additional information."

// Augmenter runs the per-request knowledge flow: join decoded attachment
// text, embed and store it, retrieve the single nearest neighbor to the
// active query, and compose the augmented query string.
type Augmenter struct {
	store    VectorStore
	embedder embedding.Embedder
	log      zerolog.Logger
}

func NewAugmenter(store VectorStore, embedder embedding.Embedder, log zerolog.Logger) *Augmenter {
	return &Augmenter{
		store:    store,
		embedder: embedder,
		log:      log,
	}
}

// Augment performs exactly one store write and one top-1 similarity query.
// Callers must only invoke it when at least one attachment is present; every
// call re-embeds and re-writes, so the external store grows with each
// attachment-bearing request. The returned string is the query the agent
// should answer.
func (a *Augmenter) Augment(ctx context.Context, query string, attachments []chat.Attachment) (string, error) {
	m := monitoring.Get()
	driver := a.store.Driver()

	contents := make([]string, 0, len(attachments))
	for _, att := range attachments {
		contents = append(contents, att.Content)
	}
	blob := strings.Join(contents, "\n")

	blobVec, err := a.embedder.Embed(ctx, blob)
	if err != nil {
		return "", fmt.Errorf("embedding attachment text: %w", err)
	}

	if err := a.store.Store(ctx, blob, blobVec); err != nil {
		m.KnowledgeWrites.WithLabelValues(driver, "error").Inc()
		return "", fmt.Errorf("writing knowledge record: %w", err)
	}
	m.KnowledgeWrites.WithLabelValues(driver, "success").Inc()

	queryVec, err := a.embedder.Embed(ctx, query)
	if err != nil {
		return "", fmt.Errorf("embedding query: %w", err)
	}

	records, err := a.store.Search(ctx, queryVec, 1)
	if err != nil {
		m.KnowledgeQueries.WithLabelValues(driver, "error").Inc()
		return "", fmt.Errorf("searching knowledge store: %w", err)
	}
	m.KnowledgeQueries.WithLabelValues(driver, "success").Inc()

	neighbor := ""
	if len(records) > 0 {
		neighbor = records[0].Content
	}

	a.log.Debug().
		Str("driver", driver).
		Int("attachments", len(attachments)).
		Int("blob_bytes", len(blob)).
		Bool("neighbor_found", neighbor != "").
		Msg("Knowledge augmentation complete")

	return fmt.Sprintf("%s\n\nQuestion: %s\n\nAdditional information: %s",
		augmentationPreamble, query, neighbor), nil
}
