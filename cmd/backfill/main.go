// Command backfill re-runs rule validation for completed documents against
// the current rule catalog, replacing their stored findings. Useful after a
// catalog change; resolved fields are reused, no re-extraction happens.
// Usage: go run ./cmd/backfill
package main

import (
	"context"
	"fmt"
	"log"

	"planproof/internal/config"
	"planproof/internal/domain"
	"planproof/internal/repository/postgres"
	"planproof/internal/rules"
)

const batchSize = 100

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer func() { _ = db.Close() }()

	catalog, err := rules.LoadCatalog(cfg.Rules.CatalogPath)
	if err != nil {
		return fmt.Errorf("loading rule catalog: %w", err)
	}
	log.Printf("catalog loaded: %d rules from %s", len(catalog), cfg.Rules.CatalogPath)

	fieldRepo := postgres.NewResolvedFieldRepo(db)
	findingRepo := postgres.NewFindingRepo(db)
	ruleRepo := postgres.NewRuleRepo(db)
	engine := rules.NewEngine(&cfg.Extraction)

	ctx := context.Background()
	if err := ruleRepo.UpsertBatch(ctx, catalog); err != nil {
		return fmt.Errorf("storing rule catalog: %w", err)
	}

	offset := 0
	total := 0
	for {
		var docs []domain.Document
		err := db.SelectContext(ctx, &docs,
			`SELECT * FROM documents
			 WHERE status = 'completed'
			 ORDER BY created_at
			 LIMIT $1 OFFSET $2`, batchSize, offset)
		if err != nil {
			return fmt.Errorf("querying documents at offset %d: %w", offset, err)
		}
		if len(docs) == 0 {
			break
		}

		for i := range docs {
			doc := &docs[i]

			fields, err := fieldRepo.ListByDocument(ctx, doc.ID)
			if err != nil {
				log.Printf("WARN: skipping document %s: listing fields: %v", doc.ID, err)
				continue
			}

			findings := engine.Evaluate(doc.ID, doc.DocumentType, catalog, fields, rules.FinalPass)

			if err := findingRepo.DeleteByDocument(ctx, doc.ID); err != nil {
				log.Printf("WARN: skipping document %s: clearing findings: %v", doc.ID, err)
				continue
			}
			if err := findingRepo.CreateBatch(ctx, findings); err != nil {
				log.Printf("WARN: document %s: storing findings: %v", doc.ID, err)
				continue
			}
			total++
		}

		if total > 0 && total%batchSize == 0 {
			log.Printf("Progress: %d documents revalidated", total)
		}

		offset += len(docs)
	}

	log.Printf("Backfill complete: %d documents revalidated", total)
	return nil
}
