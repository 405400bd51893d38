package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Type tags a generation request with the generator that produces it.
type Type string

// Registered generation types. Each corresponds to one chart family the
// tutorial pages request.
const (
	TypeClustering         Type = "clustering"
	TypeMatrixVector       Type = "matrix_vector"
	TypeDecisionTree       Type = "decision_tree"
	TypeDendrogram         Type = "dendrogram"
	TypeMissingData        Type = "missing_data"
	TypeCorrelationHeatmap Type = "correlation_heatmap"
	TypeDistribution       Type = "distribution"
	TypeOutlierBoxplot     Type = "outlier_boxplot"
	TypeElbowMethod        Type = "elbow_method"
	TypeSilhouette         Type = "silhouette"
	TypeLinkageComparison  Type = "linkage_comparison"
	TypeConvergence        Type = "convergence"
)

// Sentinel errors for dispatch operations.
var (
	// ErrUnknownType reports a generation type with no registered
	// generator. This is a client error, not a generator fault.
	ErrUnknownType = errors.New("dispatch: unknown generation type")

	// ErrNilGenerator reports an attempt to register a nil generator.
	ErrNilGenerator = errors.New("dispatch: generator is nil")
)

// Generator produces a serialized artifact from request parameters. It
// is a pure function of its parameters, provided by the chart-rendering
// collaborator; generators must be safe for concurrent use.
type Generator func(ctx context.Context, params map[string]any) ([]byte, error)

// Registry maps generation types to their generators.
type Registry struct {
	mu         sync.RWMutex
	generators map[Type]Generator
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		generators: make(map[Type]Generator),
	}
}

// Register binds a generator to a type, replacing any previous binding.
func (r *Registry) Register(typ Type, gen Generator) error {
	if typ == "" {
		return fmt.Errorf("dispatch: type is required")
	}
	if gen == nil {
		return ErrNilGenerator
	}
	r.mu.Lock()
	r.generators[typ] = gen
	r.mu.Unlock()
	return nil
}

// Lookup returns the generator for a type.
func (r *Registry) Lookup(typ Type) (Generator, bool) {
	r.mu.RLock()
	gen, ok := r.generators[typ]
	r.mu.RUnlock()
	return gen, ok
}

// Types returns the registered types in sorted order.
func (r *Registry) Types() []Type {
	r.mu.RLock()
	types := make([]Type, 0, len(r.generators))
	for typ := range r.generators {
		types = append(types, typ)
	}
	r.mu.RUnlock()

	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
