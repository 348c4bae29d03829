package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/apperr"
	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/config"
	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/models"
)

// ErrUnknownModel indicates the requested model id belongs to no supported family.
var ErrUnknownModel = fmt.Errorf("%w: unknown model", apperr.ErrConfiguration)

// ErrDuplicateModel indicates an attempt to register the same model twice.
var ErrDuplicateModel = errors.New("model already registered")

// Invoker sends a single-turn prompt to a model.
type Invoker interface {
	Invoke(ctx context.Context, req models.InvocationRequest) (*models.Completion, error)
}

// Codec translates between the gateway types and one family's wire payload.
type Codec interface {
	Family() models.ModelFamily
	EncodeRequest(req models.InvocationRequest) ([]byte, error)
	DecodeResponse(body []byte) (*models.Completion, error)
}

type familyPrefix struct {
	prefix string
	family models.ModelFamily
}

// Ordered longest first so regional inference profiles match before bare ids.
var familyPrefixes = []familyPrefix{
	{"us.anthropic.", models.FamilyAnthropic},
	{"eu.anthropic.", models.FamilyAnthropic},
	{"apac.anthropic.", models.FamilyAnthropic},
	{"anthropic.", models.FamilyAnthropic},
	{"us.amazon.nova", models.FamilyNova},
	{"eu.amazon.nova", models.FamilyNova},
	{"apac.amazon.nova", models.FamilyNova},
	{"amazon.nova", models.FamilyNova},
}

// Registry maintains the model catalog and resolves ids to families.
type Registry struct {
	mu      sync.RWMutex
	models  map[string]models.Model
	generic models.Price
}

// NewRegistry constructs an empty registry that prices uncatalogued models at generic.
func NewRegistry(generic models.Price) *Registry {
	return &Registry{
		models:  make(map[string]models.Model),
		generic: generic,
	}
}

// NewRegistryFromConfig builds a registry from the bedrock configuration section.
func NewRegistryFromConfig(cfg config.BedrockConfig) (*Registry, error) {
	r := NewRegistry(models.Price{
		InputPer1K:  cfg.GenericPrice.InputPer1K,
		OutputPer1K: cfg.GenericPrice.OutputPer1K,
	})
	for _, m := range cfg.Models {
		err := r.Register(models.Model{
			ID:             m.ID,
			Name:           m.Name,
			Provider:       m.Provider,
			Family:         models.ModelFamily(m.Family),
			MaxTokens:      m.MaxTokens,
			Price:          models.Price{InputPer1K: m.Price.InputPer1K, OutputPer1K: m.Price.OutputPer1K},
			SupportsSystem: m.SupportsSystem,
		})
		if err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a model to the catalog.
func (r *Registry) Register(model models.Model) error {
	if strings.TrimSpace(model.ID) == "" {
		return errors.New("model id must not be empty")
	}
	if !model.Family.Valid() {
		return fmt.Errorf("model %q: unsupported family %q", model.ID, model.Family)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.models[model.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateModel, model.ID)
	}
	model.Catalogued = true
	r.models[model.ID] = model
	return nil
}

// Resolve maps a model id to its family and pricing. Catalogued ids win;
// otherwise the id prefix decides the family and the generic price applies.
func (r *Registry) Resolve(modelID string) (models.Model, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if m, ok := r.models[modelID]; ok {
		return m, nil
	}

	family := FamilyOf(modelID)
	if !family.Valid() {
		return models.Model{}, fmt.Errorf("%w: %s", ErrUnknownModel, modelID)
	}
	return models.Model{
		ID:             modelID,
		Name:           modelID,
		Family:         family,
		Price:          r.generic,
		SupportsSystem: true,
	}, nil
}

// List returns the catalogued models sorted by id.
func (r *Registry) List() []models.Model {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Model, 0, len(r.models))
	for _, m := range r.models {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// FamilyOf infers the payload family from a Bedrock model id prefix.
func FamilyOf(modelID string) models.ModelFamily {
	id := strings.ToLower(strings.TrimSpace(modelID))
	for _, p := range familyPrefixes {
		if strings.HasPrefix(id, p.prefix) {
			return p.family
		}
	}
	return models.FamilyUnknown
}
