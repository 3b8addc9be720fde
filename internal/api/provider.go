package api

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/samcharles93/spmcheck/internal/logger"
	"github.com/samcharles93/spmcheck/internal/sentencepiece"
)

// ModelExt is the file extension of SentencePiece model files.
const ModelExt = ".model"

const envModelsDir = "SPMCHECK_MODELS_DIR"

// LoadedModel is a processor together with the name clients use for it.
type LoadedModel struct {
	Name      string
	Path      string
	Processor *sentencepiece.Processor
}

type ProcessorProvider interface {
	Processor(ctx context.Context, modelID string) (*LoadedModel, error)
	ListModels() ([]string, error)
}

type ProviderConfig struct {
	DefaultModelPath string
	ModelsPath       string
	// Open loads a processor; sentencepiece.Open when nil.
	Open func(path string) (*sentencepiece.Processor, error)
}

// CachedProcessorProvider loads each model path once and shares the
// processor between requests.
type CachedProcessorProvider struct {
	cfg   ProviderConfig
	group singleflight.Group
	mu    sync.RWMutex
	cache map[string]*LoadedModel
}

func NewCachedProcessorProvider(cfg ProviderConfig) *CachedProcessorProvider {
	if cfg.Open == nil {
		cfg.Open = sentencepiece.Open
	}
	return &CachedProcessorProvider{
		cfg:   cfg,
		cache: make(map[string]*LoadedModel),
	}
}

func (p *CachedProcessorProvider) Processor(ctx context.Context, modelID string) (*LoadedModel, error) {
	path, err := p.resolveModelPath(modelID)
	if err != nil {
		return nil, err
	}

	p.mu.RLock()
	m, ok := p.cache[path]
	p.mu.RUnlock()
	if ok {
		return m, nil
	}

	v, err, _ := p.group.Do(path, func() (any, error) {
		p.mu.RLock()
		m, ok := p.cache[path]
		p.mu.RUnlock()
		if ok {
			return m, nil
		}

		proc, err := p.cfg.Open(path)
		if err != nil {
			return nil, fmt.Errorf("load model %s: %w", path, err)
		}
		m = &LoadedModel{Name: modelName(path), Path: path, Processor: proc}
		logger.FromContext(ctx).Info("loaded model", "model", m.Name, "path", path, "vocab_size", proc.VocabSize())

		p.mu.Lock()
		p.cache[path] = m
		p.mu.Unlock()
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*LoadedModel), nil
}

// ListModels returns the default model's name first, followed by the models
// in the models directory. A directory model sharing the default's name is
// listed once.
func (p *CachedProcessorProvider) ListModels() ([]string, error) {
	var names []string
	seen := make(map[string]bool)
	if p.cfg.DefaultModelPath != "" {
		name := modelName(p.cfg.DefaultModelPath)
		names = append(names, name)
		seen[name] = true
	}
	if dir := p.modelsDir(); dir != "" {
		paths, err := DiscoverModels(dir)
		if err != nil {
			return nil, err
		}
		for _, path := range paths {
			if name := modelName(path); !seen[name] {
				names = append(names, name)
				seen[name] = true
			}
		}
	}
	return names, nil
}

func (p *CachedProcessorProvider) resolveModelPath(modelID string) (string, error) {
	modelID = strings.TrimSpace(modelID)
	if modelID != "" {
		if p.cfg.DefaultModelPath != "" && modelID == modelName(p.cfg.DefaultModelPath) {
			return filepath.Clean(p.cfg.DefaultModelPath), nil
		}
		modelsDir := p.modelsDir()
		if modelsDir == "" {
			return "", fmt.Errorf("%w: %q (no models directory configured)", ErrModelNotFound, modelID)
		}
		if resolved := resolveInDir(modelsDir, modelID); resolved != "" {
			return resolved, nil
		}
		return "", fmt.Errorf("%w: %q not found in %s", ErrModelNotFound, modelID, modelsDir)
	}

	if p.cfg.DefaultModelPath != "" {
		return filepath.Clean(p.cfg.DefaultModelPath), nil
	}
	modelsDir := p.modelsDir()
	if modelsDir == "" {
		return "", newInvalidRequest("model is required")
	}
	models, err := DiscoverModels(modelsDir)
	if err != nil {
		return "", err
	}
	switch len(models) {
	case 1:
		return models[0], nil
	case 0:
		return "", fmt.Errorf("%w: no %s files in %s", ErrModelNotFound, ModelExt, modelsDir)
	default:
		return "", newInvalidRequest(fmt.Sprintf("multiple models found in %s; specify model", modelsDir))
	}
}

func (p *CachedProcessorProvider) modelsDir() string {
	if dir := strings.TrimSpace(p.cfg.ModelsPath); dir != "" {
		return dir
	}
	return strings.TrimSpace(os.Getenv(envModelsDir))
}

// resolveInDir finds name or name.model inside dir. Names never escape dir.
func resolveInDir(dir, name string) string {
	if name != filepath.Base(name) || name == "." || name == ".." {
		return ""
	}
	cand := filepath.Join(dir, name)
	if fileExists(cand) {
		return cand
	}
	if !strings.HasSuffix(strings.ToLower(name), ModelExt) {
		cand += ModelExt
		if fileExists(cand) {
			return cand
		}
	}
	return ""
}

// DiscoverModels lists the .model files directly inside dir, sorted by name.
func DiscoverModels(dir string) ([]string, error) {
	st, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("models path is not a directory: %s", dir)
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	models := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ModelExt) {
			continue
		}
		models = append(models, filepath.Join(dir, e.Name()))
	}
	sort.Strings(models)
	return models, nil
}

func modelName(path string) string {
	base := filepath.Base(path)
	if strings.HasSuffix(strings.ToLower(base), ModelExt) {
		base = base[:len(base)-len(ModelExt)]
	}
	return base
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}
