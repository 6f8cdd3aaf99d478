package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/vendalab/impact-backend/internal/realtime"
)

// recordingEmitter captures emitted SSE messages for assertions.
type recordingEmitter struct {
	mu   sync.Mutex
	msgs []realtime.SSEMessage
}

func (e *recordingEmitter) Emit(ctx context.Context, msg realtime.SSEMessage) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.msgs = append(e.msgs, msg)
}

func (e *recordingEmitter) messages() []realtime.SSEMessage {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]realtime.SSEMessage, len(e.msgs))
	copy(out, e.msgs)
	return out
}

// fakeAIClient returns a canned payload or error and counts invocations.
type fakeAIClient struct {
	mu      sync.Mutex
	payload map[string]any
	err     error
	calls   int
}

func (f *fakeAIClient) GenerateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.payload, nil
}

func (f *fakeAIClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func validPlanPayload() map[string]any {
	payload := map[string]any{}
	for i := 1; i <= 7; i++ {
		payload[fmt.Sprintf("day%d", i)] = map[string]any{
			"title":       fmt.Sprintf("Dia %d", i),
			"description": fmt.Sprintf("Tarefa do dia %d", i),
		}
	}
	return payload
}

func validProjectionPayload() map[string]any {
	projection := func(days float64, severity string) map[string]any {
		return map[string]any{
			"days":            days,
			"label":           fmt.Sprintf("Cenário %s", severity),
			"description":     "Projeção de impacto",
			"severity":        severity,
			"financialImpact": "R$ 10.000",
		}
	}
	return map[string]any{
		"projections": []any{
			projection(30, "low"),
			projection(60, "medium"),
			projection(90, "high"),
		},
	}
}
