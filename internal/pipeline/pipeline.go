package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"planproof/internal/classify"
	"planproof/internal/config"
	"planproof/internal/domain"
	"planproof/internal/evidence"
	"planproof/internal/extract"
	"planproof/internal/gate"
	"planproof/internal/port"
	"planproof/internal/resolve"
	"planproof/internal/rules"
)

// Input is one document to process.
type Input struct {
	DocumentID  uuid.UUID
	ScopeKind   domain.ScopeKind
	ScopeID     uuid.UUID
	DocBytes    []byte
	ContentType string
}

// Result is everything the pipeline produced for one document. Every
// document in a batch yields a Result, possibly partial.
type Result struct {
	DocumentID     uuid.UUID
	DocumentType   domain.DocumentType
	MatchedPattern string
	PageCount      int
	Fields         []domain.ResolvedField
	Findings       []domain.Finding
	Artifacts      []domain.Artifact
	GateTriggered  bool
	LLMCalled      bool
	// Err is set only for failures fatal to this document (extraction
	// unavailable). Other documents in the batch are unaffected.
	Err error
}

// Pipeline runs one document through classification, extraction, resolution,
// validation, and the conditional LLM gate.
type Pipeline struct {
	cfg        *config.ExtractionConfig
	analyzer   port.DocumentAnalyzer
	classifier *classify.Classifier
	extractor  *extract.Engine
	resolver   *resolve.Resolver
	engine     *rules.Engine
	gate       *gate.Gate
	cache      *gate.Cache
	catalog    []domain.Rule
}

// New creates a pipeline over the given analyzer, gate, and rule catalog.
func New(cfg *config.ExtractionConfig, analyzer port.DocumentAnalyzer, g *gate.Gate, cache *gate.Cache, catalog []domain.Rule) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		analyzer:   analyzer,
		classifier: classify.New(),
		extractor:  extract.NewEngine(cfg),
		resolver:   resolve.New(cfg),
		engine:     rules.NewEngine(cfg),
		gate:       g,
		cache:      cache,
		catalog:    catalog,
	}
}

// ProcessDocument runs the full per-document flow. A gate failure never
// aborts the document; an analyzer failure ends it with an error artifact
// but still returns a usable Result.
func (p *Pipeline) ProcessDocument(ctx context.Context, in Input) *Result {
	res := &Result{DocumentID: in.DocumentID, DocumentType: domain.DocTypeUnknown}

	ex, err := p.analyzer.Analyze(ctx, in.DocBytes, in.ContentType)
	if err != nil {
		log.Printf("pipeline.ProcessDocument: analysis failed for %s: %v", in.DocumentID, err)
		res.Err = fmt.Errorf("analyze document %s: %w", in.DocumentID, err)
		res.Artifacts = append(res.Artifacts, artifact(in.DocumentID, domain.ArtifactExtractionError, map[string]string{
			"error": err.Error(),
		}))
		return res
	}
	res.PageCount = ex.PageCount

	idx := evidence.BuildIndex(in.DocumentID, ex)
	res.Artifacts = append(res.Artifacts, artifact(in.DocumentID, domain.ArtifactExtractedLayout, ex))

	cls := p.classifier.Classify(idx.Blocks())
	if cls.Ambiguous {
		log.Printf("pipeline.ProcessDocument: ambiguous classification for %s, keeping %s", in.DocumentID, cls.Type)
	}
	res.DocumentType = cls.Type
	res.MatchedPattern = cls.MatchedPattern

	candidates := p.extractor.Extract(idx, cls.Type)
	res.Fields = p.resolver.Resolve(in.DocumentID, candidates)

	// Fresh deterministic values displace stale LLM cache entries.
	p.cache.Supersede(ctx, in.ScopeKind, in.ScopeID, res.Fields)

	firstPass := p.engine.Evaluate(in.DocumentID, cls.Type, p.catalog, res.Fields, rules.FirstPass)

	outcome := p.gate.Run(ctx, cls.Type, in.ScopeKind, in.ScopeID, idx, firstPass)
	res.GateTriggered = outcome.Triggered
	res.LLMCalled = outcome.LLMCalled
	if outcome.Triggered {
		res.Artifacts = append(res.Artifacts, artifact(in.DocumentID, domain.ArtifactLLMGate, map[string]interface{}{
			"request":    outcome.Request,
			"model_used": outcome.ModelUsed,
			"applied":    len(outcome.Candidates),
		}))
	}
	if outcome.Failure != nil {
		res.Artifacts = append(res.Artifacts, artifact(in.DocumentID, domain.ArtifactLLMGateError, map[string]string{
			"stage": outcome.Failure.Stage,
			"error": outcome.Failure.Error(),
		}))
	}

	if len(outcome.Candidates) > 0 {
		merged := append(candidates, outcome.Candidates...)
		res.Fields = p.resolver.Resolve(in.DocumentID, merged)
	}

	res.Findings = p.engine.Evaluate(in.DocumentID, cls.Type, p.catalog, res.Fields, rules.FinalPass)
	return res
}

// ProcessBatch runs documents concurrently with a bounded worker count.
// Each document's result is independent; one failure never stops the rest.
// Cancelling the context stops admission of new documents, not in-flight ones.
func (p *Pipeline) ProcessBatch(ctx context.Context, inputs []Input, concurrency int) []*Result {
	if concurrency < 1 {
		concurrency = 1
	}

	results := make([]*Result, len(inputs))
	g := new(errgroup.Group)
	g.SetLimit(concurrency)

	for i, in := range inputs {
		if ctx.Err() != nil {
			results[i] = &Result{DocumentID: in.DocumentID, DocumentType: domain.DocTypeUnknown, Err: ctx.Err()}
			continue
		}
		i, in := i, in
		g.Go(func() error {
			results[i] = p.ProcessDocument(ctx, in)
			return nil
		})
	}

	_ = g.Wait()
	return results
}

func artifact(docID uuid.UUID, t domain.ArtifactType, payload interface{}) domain.Artifact {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("pipeline: marshaling %s artifact for %s: %v", t, docID, err)
		data = []byte(`{}`)
	}
	return domain.Artifact{
		ID:         uuid.New(),
		DocumentID: docID,
		Type:       t,
		Payload:    data,
		CreatedAt:  time.Now().UTC(),
	}
}
