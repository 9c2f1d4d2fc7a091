package service

import (
	"context"
	"log"
	"sync"
	"time"

	"planproof/internal/domain"
	"planproof/internal/pipeline"
	"planproof/internal/port"
)

// ProcessQueueConfig holds settings for the document processing worker.
type ProcessQueueConfig struct {
	PollInterval time.Duration
	MaxRetries   int
	Concurrency  int
}

// ProcessQueueWorker polls for queued documents, runs each through the
// validation pipeline, and persists the results.
type ProcessQueueWorker struct {
	runRepo      port.RunRepository
	docRepo      port.DocumentRepository
	fieldRepo    port.ResolvedFieldRepository
	findingRepo  port.FindingRepository
	artifactRepo port.ArtifactRepository
	storage      port.ObjectStorage
	pipe         *pipeline.Pipeline
	cfg          ProcessQueueConfig
	wg           sync.WaitGroup
}

// NewProcessQueueWorker creates a new ProcessQueueWorker.
func NewProcessQueueWorker(
	runRepo port.RunRepository,
	docRepo port.DocumentRepository,
	fieldRepo port.ResolvedFieldRepository,
	findingRepo port.FindingRepository,
	artifactRepo port.ArtifactRepository,
	storage port.ObjectStorage,
	pipe *pipeline.Pipeline,
	cfg ProcessQueueConfig,
) *ProcessQueueWorker {
	return &ProcessQueueWorker{
		runRepo:      runRepo,
		docRepo:      docRepo,
		fieldRepo:    fieldRepo,
		findingRepo:  findingRepo,
		artifactRepo: artifactRepo,
		storage:      storage,
		pipe:         pipe,
		cfg:          cfg,
	}
}

// Start runs the polling loop until ctx is canceled. It blocks until all
// in-flight documents have finished.
func (w *ProcessQueueWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	sem := make(chan struct{}, w.cfg.Concurrency)

	log.Printf("processQueueWorker: started (poll=%s, concurrency=%d, maxRetries=%d)",
		w.cfg.PollInterval, w.cfg.Concurrency, w.cfg.MaxRetries)

	for {
		select {
		case <-ctx.Done():
			log.Printf("processQueueWorker: shutting down, waiting for in-flight documents...")
			w.wg.Wait()
			log.Printf("processQueueWorker: shutdown complete")
			return
		case <-ticker.C:
			available := w.cfg.Concurrency - len(sem)
			if available <= 0 {
				continue
			}

			docs, err := w.docRepo.ClaimQueued(ctx, available)
			if err != nil {
				if ctx.Err() != nil {
					continue
				}
				log.Printf("processQueueWorker: ClaimQueued error: %v", err)
				continue
			}

			for i := range docs {
				doc := docs[i] // copy for goroutine
				doc.Attempts++

				sem <- struct{}{} // acquire
				w.wg.Add(1)
				go func() {
					defer w.wg.Done()
					defer func() { <-sem }() // release

					// Use a fresh context independent of the poll context
					// so in-flight documents complete even during shutdown.
					procCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
					defer cancel()

					log.Printf("processQueueWorker: dispatching document %s (attempt %d)", doc.ID, doc.Attempts)
					w.processOne(procCtx, &doc)
				}()
			}
		}
	}
}

// processOne downloads a claimed document, runs the pipeline, and stores the
// outcome. Transient failures go back to the queue until attempts run out.
func (w *ProcessQueueWorker) processOne(ctx context.Context, doc *domain.Document) {
	docBytes, err := w.storage.Download(ctx, doc.S3Bucket, doc.S3Key)
	if err != nil {
		log.Printf("processQueueWorker: download failed for %s: %v", doc.ID, err)
		w.finishDocument(ctx, doc, err.Error())
		return
	}

	res := w.pipe.ProcessDocument(ctx, pipeline.Input{
		DocumentID:  doc.ID,
		ScopeKind:   domain.ScopeSubmission,
		ScopeID:     doc.RunID,
		DocBytes:    docBytes,
		ContentType: doc.ContentType,
	})

	doc.DocumentType = res.DocumentType
	doc.MatchedPattern = res.MatchedPattern
	doc.PageCount = res.PageCount
	if err := w.docRepo.UpdateClassification(ctx, doc); err != nil {
		log.Printf("processQueueWorker: classification update failed for %s: %v", doc.ID, err)
	}

	for i := range res.Artifacts {
		if err := w.artifactRepo.Create(ctx, &res.Artifacts[i]); err != nil {
			log.Printf("processQueueWorker: artifact store failed for %s: %v", doc.ID, err)
		}
	}

	if res.Err != nil {
		w.finishDocument(ctx, doc, res.Err.Error())
		return
	}

	for i := range res.Fields {
		if err := w.fieldRepo.Upsert(ctx, &res.Fields[i]); err != nil {
			log.Printf("processQueueWorker: field upsert failed for %s: %v", doc.ID, err)
		}
	}
	if err := w.findingRepo.CreateBatch(ctx, res.Findings); err != nil {
		log.Printf("processQueueWorker: finding store failed for %s: %v", doc.ID, err)
	}
	if res.LLMCalled {
		if err := w.runRepo.IncrementLLMCalls(ctx, doc.RunID); err != nil {
			log.Printf("processQueueWorker: llm counter update failed for run %s: %v", doc.RunID, err)
		}
	}

	w.finishDocument(ctx, doc, "")
}

// finishDocument records the document outcome. A failed document retries by
// going back to queued while attempts remain; run progress only advances on a
// terminal status.
func (w *ProcessQueueWorker) finishDocument(ctx context.Context, doc *domain.Document, procErr string) {
	now := time.Now().UTC()
	doc.ProcessingError = procErr

	switch {
	case procErr == "":
		doc.Status = domain.ProcessingStatusCompleted
		doc.ProcessedAt = &now
	case doc.Attempts < w.cfg.MaxRetries:
		log.Printf("processQueueWorker: requeueing %s after failure (attempt %d/%d)",
			doc.ID, doc.Attempts, w.cfg.MaxRetries)
		doc.Status = domain.ProcessingStatusQueued
	default:
		doc.Status = domain.ProcessingStatusFailed
		doc.ProcessedAt = &now
	}

	if err := w.docRepo.UpdateStatus(ctx, doc); err != nil {
		log.Printf("processQueueWorker: status update failed for %s: %v", doc.ID, err)
		return
	}
	if doc.Status == domain.ProcessingStatusQueued {
		return
	}
	w.advanceRun(ctx, doc)
}

// advanceRun recounts the run's terminal documents and closes the run when
// every document has finished.
func (w *ProcessQueueWorker) advanceRun(ctx context.Context, doc *domain.Document) {
	run, err := w.runRepo.GetByID(ctx, doc.RunID)
	if err != nil {
		log.Printf("processQueueWorker: run lookup failed for %s: %v", doc.RunID, err)
		return
	}

	docs, err := w.docRepo.ListByRun(ctx, doc.RunID)
	if err != nil {
		log.Printf("processQueueWorker: run document listing failed for %s: %v", doc.RunID, err)
		return
	}

	processed, failed := 0, 0
	for _, d := range docs {
		switch d.Status {
		case domain.ProcessingStatusCompleted:
			processed++
		case domain.ProcessingStatusFailed:
			failed++
		}
	}

	run.Processed = processed
	run.Errors = failed
	if processed+failed >= run.TotalDocuments {
		now := time.Now().UTC()
		run.CompletedAt = &now
		switch {
		case processed == 0:
			run.State = domain.RunStateFailed
		case failed > 0:
			run.State = domain.RunStateCompletedWithErrors
		default:
			run.State = domain.RunStateCompleted
		}
		log.Printf("processQueueWorker: run %s finished (%d processed, %d failed)",
			run.ID, processed, failed)
	}

	if err := w.runRepo.UpdateProgress(ctx, run); err != nil {
		log.Printf("processQueueWorker: run progress update failed for %s: %v", run.ID, err)
	}
}
