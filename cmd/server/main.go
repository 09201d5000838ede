package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dossier/recouvrement/internal/api"
	"github.com/dossier/recouvrement/internal/cases"
	"github.com/dossier/recouvrement/internal/config"
	"github.com/dossier/recouvrement/internal/domain"
	"github.com/dossier/recouvrement/internal/idempotency"
	"github.com/dossier/recouvrement/internal/ingestion"
	"github.com/dossier/recouvrement/internal/reconciliation"
	"github.com/dossier/recouvrement/internal/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Printf("Initializing database at %s", cfg.Database.Path)
	db, err := repository.InitDB(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to init DB: %v", err)
	}
	defer db.Close()

	idem, err := idempotency.New(cfg.Idempotency.Path)
	if err != nil {
		log.Fatalf("Failed to open idempotency store: %v", err)
	}
	defer idem.Close()

	if n, err := idem.Prune(time.Now().Add(-cfg.Idempotency.TTL)); err != nil {
		log.Printf("WARNING: Failed to prune idempotency keys: %v", err)
	} else if n > 0 {
		log.Printf("Pruned %d idempotency keys older than %s", n, cfg.Idempotency.TTL)
	}

	// Create repositories.
	caseRepo := repository.NewCaseRepo(db)
	paymentRepo := repository.NewPaymentRepo(db)
	importRepo := repository.NewImportRepo(db)
	store := repository.NewStore(db)

	// Create services.
	reconSvc := reconciliation.NewService(store)
	caseSvc := cases.NewService(caseRepo)
	ingestionSvc := ingestion.NewService(importRepo, reconSvc)

	if cfg.Seed.Enabled {
		count, err := caseRepo.Count(context.Background())
		if err != nil {
			log.Fatalf("Failed to count cases: %v", err)
		}
		if count == 0 {
			log.Println("Database is empty, seeding cases from testdata...")
			if err := seedCases(caseRepo, cfg.Seed.Path); err != nil {
				log.Printf("WARNING: Failed to seed cases: %v", err)
			}
		} else {
			log.Printf("Database already has %d cases, skipping seed", count)
		}
	}

	router := api.NewRouter(api.Deps{
		Cases:       caseRepo,
		Payments:    paymentRepo,
		CaseSvc:     caseSvc,
		Recon:       reconSvc,
		Ingestion:   ingestionSvc,
		Idempotency: idem,
	})

	port := cfg.Server.Port
	log.Printf("Recouvrement payment ledger")
	log.Printf("Listening on http://localhost:%s", port)
	log.Printf("API base: http://localhost:%s/api/v1", port)
	log.Printf("")
	log.Printf("Endpoints:")
	log.Printf("  POST   /api/v1/cases")
	log.Printf("  GET    /api/v1/cases")
	log.Printf("  GET    /api/v1/cases/{id}")
	log.Printf("  GET    /api/v1/cases/{id}/payments")
	log.Printf("  POST   /api/v1/cases/{id}/payments")
	log.Printf("  GET    /api/v1/payments/{id}")
	log.Printf("  PUT    /api/v1/payments/{id}")
	log.Printf("  DELETE /api/v1/payments/{id}")
	log.Printf("  POST   /api/v1/imports")
	log.Printf("  GET    /api/v1/dashboard")

	if err := http.ListenAndServe(":"+port, router); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func seedCases(repo *repository.CaseRepo, path string) error {
	candidates := []string{path}

	// Also try relative to the executable.
	if exe, err := os.Executable(); err == nil {
		dir := filepath.Dir(exe)
		candidates = append(candidates,
			filepath.Join(dir, path),
			filepath.Join(dir, "..", "..", path),
		)
	}

	var data []byte
	var loadErr error
	for _, p := range candidates {
		data, loadErr = os.ReadFile(p)
		if loadErr == nil {
			log.Printf("Loaded cases from %s", p)
			break
		}
	}
	if loadErr != nil {
		return fmt.Errorf("could not find %s in any candidate path: %w", path, loadErr)
	}

	var seed []domain.Case
	if err := json.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("unmarshal cases: %w", err)
	}

	inserted, err := repo.BulkInsert(context.Background(), seed)
	if err != nil {
		return fmt.Errorf("bulk insert: %w", err)
	}

	log.Printf("Seeded %d cases (out of %d in file)", inserted, len(seed))
	return nil
}
