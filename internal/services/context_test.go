package services_test

import (
	"context"
	"testing"

	"exohunt/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-1")
	ctx = services.WithStage(ctx, "analyze")
	ctx = services.WithTarget(ctx, "TIC 1")
	ctx = services.WithFile(ctx, "/tmp/a.csv")
	ctx = services.WithIndex(ctx, 3)

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-1" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "analyze" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if target, ok := services.TargetFromContext(ctx); !ok || target != "TIC 1" {
		t.Fatalf("unexpected target: %v %v", target, ok)
	}
	if file, ok := services.FileFromContext(ctx); !ok || file != "/tmp/a.csv" {
		t.Fatalf("unexpected file: %v %v", file, ok)
	}
	if idx, ok := services.IndexFromContext(ctx); !ok || idx != 3 {
		t.Fatalf("unexpected index: %v %v", idx, ok)
	}
}

func TestStageBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
}
