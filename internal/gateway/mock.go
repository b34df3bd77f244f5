package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/Conceptual-Machines/workplan-api/internal/workplan"
)

const (
	mockProvider = "mock"
	mockModel    = "mock"
)

// SampleObjectives are returned by the mock gateway
var SampleObjectives = []string{
	"Dziecko potrafi przeliczać w zakresie 5",
	"Dziecko rozpoznaje poznane wcześniej cyfry",
	"Dziecko rozwija koordynację wzrokowo-ruchową",
	"Dziecko potrafi posługiwać się farbami i pędzlem",
	"Dziecko słucha uważnie wiersza i odpowiada na pytania",
	"Dziecko potrafi współpracować z innymi podczas tworzenia wspólnej pracy",
	"Dziecko potrafi sortować obiekty według jednej cechy",
	"Dziecko rozróżnia pojęcia wielkości: duży, mały, średni",
	"Dziecko rozwija umiejętność manipulacji małymi przedmiotami",
	"Dziecko potrafi wyrazić swoje emocje słowami",
}

// SnapshotSource returns the vocabulary the mock draws from
type SnapshotSource func(ctx context.Context) (*workplan.ReferenceSnapshot, error)

// MockGateway answers with random metadata drawn from the reference
// vocabulary after a delay between delay and twice delay.
type MockGateway struct {
	source SnapshotSource
	delay  time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

func NewMockGateway(source SnapshotSource, delay time.Duration) *MockGateway {
	return &MockGateway{
		source: source,
		delay:  delay,
		rng:    rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
	}
}

// Seed makes the mock output reproducible
func (g *MockGateway) Seed(seed uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rng = rand.New(rand.NewPCG(seed, seed))
}

// Generate implements workplan.Gateway
func (g *MockGateway) Generate(ctx context.Context, _ workplan.Prompt) (*workplan.GatewayResponse, error) {
	if err := g.sleep(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w", workplan.ErrGatewayTimeout, err)
		}
		return nil, fmt.Errorf("%w: %w", workplan.ErrGatewayUnavailable, err)
	}

	refs, err := g.source(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", workplan.ErrGatewayUnavailable, err)
	}
	modules, codes := refs.Modules(), refs.CurriculumCodes()
	if len(modules) == 0 || len(codes) == 0 {
		return nil, fmt.Errorf("%w: empty reference vocabulary", workplan.ErrGatewayUnavailable)
	}

	g.mu.Lock()
	payload := map[string]any{
		"module":          modules[g.rng.IntN(len(modules))],
		"curriculum_refs": g.sample(codes, 2+g.rng.IntN(2)),
		"objectives":      g.sample(SampleObjectives, 2+g.rng.IntN(2)),
	}
	g.mu.Unlock()

	text, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", workplan.ErrGatewayMalformed, err)
	}

	return &workplan.GatewayResponse{
		Text:     string(text),
		Model:    mockModel,
		Provider: mockProvider,
	}, nil
}

// sample picks n distinct items; callers hold g.mu
func (g *MockGateway) sample(items []string, n int) []string {
	if n > len(items) {
		n = len(items)
	}
	picked := make([]string, 0, n)
	for _, i := range g.rng.Perm(len(items))[:n] {
		picked = append(picked, items[i])
	}
	return picked
}

func (g *MockGateway) sleep(ctx context.Context) error {
	if g.delay <= 0 {
		return ctx.Err()
	}

	g.mu.Lock()
	d := g.delay + time.Duration(g.rng.Int64N(int64(g.delay)))
	g.mu.Unlock()

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
