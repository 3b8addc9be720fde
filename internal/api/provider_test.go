package api

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/samcharles93/spmcheck/internal/sentencepiece"
	"github.com/samcharles93/spmcheck/internal/sentencepiece/spmtest"
)

func TestCachedProcessorProviderListModelsFromDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	spmtest.WriteModel(t, dir, "beta.model")
	spmtest.WriteModel(t, dir, "alpha.model")
	mustWriteFile(t, filepath.Join(dir, "notes.txt"), "x")

	provider := NewCachedProcessorProvider(ProviderConfig{ModelsPath: dir})
	models, err := provider.ListModels()
	if err != nil {
		t.Fatalf("ListModels() error = %v", err)
	}

	want := []string{"alpha", "beta"}
	if !reflect.DeepEqual(models, want) {
		t.Fatalf("ListModels() = %v, want %v", models, want)
	}
}

func TestCachedProcessorProviderListModelsIncludesDefaultModel(t *testing.T) {
	t.Parallel()

	provider := NewCachedProcessorProvider(ProviderConfig{DefaultModelPath: "/models/custom.model"})
	models, err := provider.ListModels()
	if err != nil {
		t.Fatalf("ListModels() error = %v", err)
	}
	if !reflect.DeepEqual(models, []string{"custom"}) {
		t.Fatalf("ListModels() = %v", models)
	}
}

func TestCachedProcessorProviderListModelsDefaultAndDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	spmtest.WriteModel(t, dir, "alpha.model")
	spmtest.WriteModel(t, dir, "custom.model")
	custom := spmtest.WriteModel(t, t.TempDir(), "custom.model")

	provider := NewCachedProcessorProvider(ProviderConfig{DefaultModelPath: custom, ModelsPath: dir})
	models, err := provider.ListModels()
	if err != nil {
		t.Fatalf("ListModels() error = %v", err)
	}
	if want := []string{"custom", "alpha"}; !reflect.DeepEqual(models, want) {
		t.Fatalf("ListModels() = %v, want %v", models, want)
	}

	// Every listed name must resolve.
	for _, name := range models {
		if _, err := provider.Processor(context.Background(), name); err != nil {
			t.Fatalf("Processor(%q) error = %v", name, err)
		}
	}
}

func TestCachedProcessorProviderResolve(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	spmtest.WriteModel(t, dir, "alpha.model")
	provider := NewCachedProcessorProvider(ProviderConfig{ModelsPath: dir})
	ctx := context.Background()

	for _, id := range []string{"", "alpha", "alpha.model"} {
		m, err := provider.Processor(ctx, id)
		if err != nil {
			t.Fatalf("Processor(%q) error = %v", id, err)
		}
		if m.Name != "alpha" {
			t.Fatalf("Processor(%q) name = %q", id, m.Name)
		}
	}

	if _, err := provider.Processor(ctx, "missing"); !errors.Is(err, ErrModelNotFound) {
		t.Fatalf("expected ErrModelNotFound, got %v", err)
	}
	if _, err := provider.Processor(ctx, "../alpha.model"); !errors.Is(err, ErrModelNotFound) {
		t.Fatalf("paths outside the models dir must not resolve, got %v", err)
	}

	spmtest.WriteModel(t, dir, "beta.model")
	if _, err := provider.Processor(ctx, ""); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ambiguity error, got %v", err)
	}
}

func TestCachedProcessorProviderLoadsOnce(t *testing.T) {
	t.Parallel()

	path := spmtest.WriteModel(t, t.TempDir(), "tiny.model")
	var loads atomic.Int32
	provider := NewCachedProcessorProvider(ProviderConfig{
		DefaultModelPath: path,
		Open: func(path string) (*sentencepiece.Processor, error) {
			loads.Add(1)
			return sentencepiece.Open(path)
		},
	})

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := provider.Processor(context.Background(), ""); err != nil {
				t.Errorf("Processor() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if n := loads.Load(); n != 1 {
		t.Fatalf("model loaded %d times, want 1", n)
	}
}

func TestCachedProcessorProviderLoadError(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "broken.model")
	mustWriteFile(t, path, "\xff\xff\xff")
	provider := NewCachedProcessorProvider(ProviderConfig{DefaultModelPath: path})
	if _, err := provider.Processor(context.Background(), ""); !errors.Is(err, sentencepiece.ErrMalformedModel) {
		t.Fatalf("expected ErrMalformedModel, got %v", err)
	}
}

func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
