package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/vendalab/impact-backend/internal/config"
	"github.com/vendalab/impact-backend/internal/logger"
	"github.com/vendalab/impact-backend/internal/realtime"
	"github.com/vendalab/impact-backend/internal/repos"
	"github.com/vendalab/impact-backend/internal/types"
)

type ContentResult struct {
	Payload      map[string]any `json:"payload"`
	Cached       bool           `json:"cached"`
	Personalized bool           `json:"personalized"`
	Version      int            `json:"version,omitempty"`
	GeneratedAt  time.Time      `json:"generated_at"`
}

type ContentService interface {
	// GetOrGenerate serves a fresh cached record when one exists, otherwise
	// generates once. Plans degrade to a fixed fallback on failure; projection
	// failures surface as ErrGenerationFailed.
	GetOrGenerate(ctx context.Context, userID uuid.UUID, kind string, forceRegenerate bool) (*ContentResult, error)
}

type contentService struct {
	db              *gorm.DB
	log             *logger.Logger
	cfg             config.EventConfig
	contentRepo     repos.GeneratedContentRepo
	diagnosticRepo  repos.DiagnosticRepo
	surveyRepo      repos.SurveyResponseRepo
	interactionRepo repos.InteractionRepo
	ai              AIClient
	emitter         SSEEmitter
	flight          singleflight.Group
}

func NewContentService(
	db *gorm.DB,
	log *logger.Logger,
	cfg config.EventConfig,
	contentRepo repos.GeneratedContentRepo,
	diagnosticRepo repos.DiagnosticRepo,
	surveyRepo repos.SurveyResponseRepo,
	interactionRepo repos.InteractionRepo,
	ai AIClient,
	emitter SSEEmitter,
) ContentService {
	return &contentService{
		db:              db,
		log:             log.With("service", "ContentService"),
		cfg:             cfg,
		contentRepo:     contentRepo,
		diagnosticRepo:  diagnosticRepo,
		surveyRepo:      surveyRepo,
		interactionRepo: interactionRepo,
		ai:              ai,
		emitter:         emitter,
	}
}

func (cs *contentService) freshness(kind string) time.Duration {
	if kind == types.ContentKindPlan {
		return cs.cfg.PlanFreshness()
	}
	return cs.cfg.ProjectionFreshness()
}

func (cs *contentService) GetOrGenerate(ctx context.Context, userID uuid.UUID, kind string, forceRegenerate bool) (*ContentResult, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("user id required")
	}
	if !types.IsContentKind(kind) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownContentKind, kind)
	}

	// Concurrent requests for the same (user, kind) collapse into one
	// generation; duplicate client dispatches must not double-generate.
	// Forced requests fly under their own key so they never ride along with
	// a cache-serving call.
	key := userID.String() + ":" + kind
	if forceRegenerate {
		key += ":force"
	}
	v, err, _ := cs.flight.Do(key, func() (any, error) {
		return cs.getOrGenerate(ctx, userID, kind, forceRegenerate)
	})
	if err != nil {
		return nil, err
	}
	return v.(*ContentResult), nil
}

func (cs *contentService) getOrGenerate(ctx context.Context, userID uuid.UUID, kind string, forceRegenerate bool) (*ContentResult, error) {
	if !forceRegenerate {
		latest, err := cs.contentRepo.GetLatest(ctx, nil, userID, kind)
		if err != nil {
			return nil, fmt.Errorf("load cached content: %w", err)
		}
		if latest != nil && time.Since(latest.GeneratedAt) < cs.freshness(kind) {
			var payload map[string]any
			if uErr := json.Unmarshal(latest.Payload, &payload); uErr != nil {
				return nil, fmt.Errorf("decode cached payload: %w", uErr)
			}
			return &ContentResult{
				Payload:      payload,
				Cached:       true,
				Personalized: latest.Personalized,
				Version:      latest.Version,
				GeneratedAt:  latest.GeneratedAt,
			}, nil
		}
	}

	payload, genErr := cs.generate(ctx, userID, kind)
	if genErr != nil {
		cs.log.Warn("Content generation failed", "userID", userID, "kind", kind, "error", genErr)
		if kind == types.ContentKindPlan {
			// The plan path never shows an error; the fallback is served
			// without persisting so the next request tries generation again.
			return &ContentResult{
				Payload:      FallbackPlanPayload(),
				Cached:       false,
				Personalized: false,
				GeneratedAt:  time.Now().UTC(),
			}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, genErr)
	}

	raw, mErr := json.Marshal(payload)
	if mErr != nil {
		return nil, fmt.Errorf("encode generated payload: %w", mErr)
	}
	record := &types.GeneratedContent{
		ID:           uuid.New(),
		UserID:       userID,
		Kind:         kind,
		Payload:      datatypes.JSON(raw),
		Personalized: true,
		GeneratedAt:  time.Now().UTC(),
	}

	err := cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if kind == types.ContentKindPlan {
			return cs.contentRepo.ReplaceSingle(ctx, tx, record)
		}
		return cs.contentRepo.AppendVersion(ctx, tx, record)
	})
	if err != nil {
		return nil, fmt.Errorf("persist generated content: %w", err)
	}

	cs.log.Info("Content generated", "userID", userID, "kind", kind, "version", record.Version)
	cs.emitter.Emit(ctx, realtime.SSEMessage{
		Channel: userID.String(),
		Event:   realtime.SSEEventContentReady,
		Data:    map[string]any{"kind": kind, "version": record.Version},
	})
	return &ContentResult{
		Payload:      payload,
		Cached:       false,
		Personalized: true,
		Version:      record.Version,
		GeneratedAt:  record.GeneratedAt,
	}, nil
}

func (cs *contentService) generate(ctx context.Context, userID uuid.UUID, kind string) (map[string]any, error) {
	system, user, schemaName, schema, pErr := cs.buildPrompt(ctx, userID, kind)
	if pErr != nil {
		return nil, pErr
	}

	payload, gErr := cs.ai.GenerateJSON(ctx, system, user, schemaName, schema)
	if gErr != nil {
		return nil, gErr
	}

	if kind == types.ContentKindPlan {
		if vErr := validatePlanPayload(payload); vErr != nil {
			return nil, vErr
		}
	} else {
		if vErr := validateProjectionPayload(payload); vErr != nil {
			return nil, vErr
		}
	}
	return payload, nil
}

func (cs *contentService) buildPrompt(ctx context.Context, userID uuid.UUID, kind string) (system, user, schemaName string, schema map[string]any, err error) {
	entries, dErr := cs.diagnosticRepo.GetByUserID(ctx, nil, userID)
	if dErr != nil {
		return "", "", "", nil, fmt.Errorf("load diagnostics: %w", dErr)
	}
	surveys, sErr := cs.surveyRepo.GetByUserID(ctx, nil, userID)
	if sErr != nil {
		return "", "", "", nil, fmt.Errorf("load survey responses: %w", sErr)
	}

	var sb strings.Builder
	if bottleneck, ok := ComputeBottleneck(entries, cs.cfg.DimensionPriority); ok {
		fmt.Fprintf(&sb, "Weakest IMPACT dimension: %s (mean score %.1f of 10).\n", bottleneck.Dimension, bottleneck.Value)
		fmt.Fprintf(&sb, "Overall diagnostic score: %d of 100.\n", OverallScore(entries))
	} else {
		sb.WriteString("No diagnostic submitted yet; keep recommendations broadly applicable.\n")
	}
	if len(surveys) > 0 {
		sb.WriteString("Survey answers:\n")
		for _, s := range surveys {
			fmt.Fprintf(&sb, "- %s: %s\n", s.QuestionKey, s.Answer)
		}
	}

	switch kind {
	case types.ContentKindPlan:
		system = "You are a sales-training coach. Produce a concrete 7-day action plan " +
			"focused on the participant's weakest IMPACT dimension. Answer in Brazilian Portuguese."
		user = sb.String()
		return system, user, "action_plan", planSchema(), nil
	case types.ContentKindProjection:
		interactions, iErr := cs.interactionRepo.GetRecentByUserID(ctx, nil, userID, cs.cfg.InteractionHistoryEntries)
		if iErr != nil {
			return "", "", "", nil, fmt.Errorf("load interactions: %w", iErr)
		}
		if len(interactions) > 0 {
			sb.WriteString("Recent conversation history (newest first):\n")
			for _, it := range interactions {
				fmt.Fprintf(&sb, "- [%s] %s\n", it.Role, it.Content)
			}
		}
		system = "You are a sales-training coach. Produce exactly three scenario projections " +
			"(low, medium, high severity) describing what happens if the participant does not fix " +
			"their weakest IMPACT dimension. Answer in Brazilian Portuguese."
		user = sb.String()
		return system, user, "scenario_projections", projectionSchema(), nil
	}
	return "", "", "", nil, fmt.Errorf("%w: %q", ErrUnknownContentKind, kind)
}

func planSchema() map[string]any {
	dayProps := map[string]any{
		"title":       map[string]any{"type": "string"},
		"description": map[string]any{"type": "string"},
	}
	props := map[string]any{}
	required := make([]string, 0, 7)
	for i := 1; i <= 7; i++ {
		key := fmt.Sprintf("day%d", i)
		props[key] = map[string]any{
			"type":                 "object",
			"properties":           dayProps,
			"required":             []string{"title", "description"},
			"additionalProperties": false,
		}
		required = append(required, key)
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}

func projectionSchema() map[string]any {
	item := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"days":            map[string]any{"type": "integer"},
			"label":           map[string]any{"type": "string"},
			"description":     map[string]any{"type": "string"},
			"severity":        map[string]any{"type": "string", "enum": []string{"low", "medium", "high"}},
			"financialImpact": map[string]any{"type": "string"},
		},
		"required":             []string{"days", "label", "description", "severity", "financialImpact"},
		"additionalProperties": false,
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"projections": map[string]any{
				"type":     "array",
				"items":    item,
				"minItems": 3,
				"maxItems": 3,
			},
		},
		"required":             []string{"projections"},
		"additionalProperties": false,
	}
}

// validatePlanPayload checks for exactly day1..day7, each with a non-empty
// title and description. Schema mismatch counts as a generation failure.
func validatePlanPayload(payload map[string]any) error {
	for i := 1; i <= 7; i++ {
		key := fmt.Sprintf("day%d", i)
		raw, ok := payload[key]
		if !ok {
			return fmt.Errorf("plan payload missing %s", key)
		}
		day, ok := raw.(map[string]any)
		if !ok {
			return fmt.Errorf("plan payload %s is not an object", key)
		}
		title, _ := day["title"].(string)
		description, _ := day["description"].(string)
		if strings.TrimSpace(title) == "" || strings.TrimSpace(description) == "" {
			return fmt.Errorf("plan payload %s missing title or description", key)
		}
	}
	return nil
}

func validateProjectionPayload(payload map[string]any) error {
	raw, ok := payload["projections"]
	if !ok {
		return fmt.Errorf("projection payload missing projections")
	}
	items, ok := raw.([]any)
	if !ok {
		return fmt.Errorf("projections is not an array")
	}
	if len(items) != 3 {
		return fmt.Errorf("expected exactly 3 projections, got %d", len(items))
	}
	for i, rawItem := range items {
		item, ok := rawItem.(map[string]any)
		if !ok {
			return fmt.Errorf("projection %d is not an object", i)
		}
		if _, ok := item["days"].(float64); !ok {
			return fmt.Errorf("projection %d missing numeric days", i)
		}
		label, _ := item["label"].(string)
		description, _ := item["description"].(string)
		if strings.TrimSpace(label) == "" || strings.TrimSpace(description) == "" {
			return fmt.Errorf("projection %d missing label or description", i)
		}
		severity, _ := item["severity"].(string)
		switch severity {
		case "low", "medium", "high":
		default:
			return fmt.Errorf("projection %d has invalid severity %q", i, severity)
		}
		if _, ok := item["financialImpact"].(string); !ok {
			return fmt.Errorf("projection %d missing financialImpact", i)
		}
	}
	return nil
}

// FallbackPlanPayload is the fixed plan served when generation fails. It is
// never persisted, so the next request attempts generation again.
func FallbackPlanPayload() map[string]any {
	day := func(title, description string) map[string]any {
		return map[string]any{"title": title, "description": description}
	}
	return map[string]any{
		"isPersonalized": false,
		"day1":           day("Diagnóstico pessoal", "Revise suas anotações do evento e liste os três pontos mais fracos do seu processo de vendas."),
		"day2":           day("Mapa de clientes", "Liste dez clientes potenciais e classifique cada um por proximidade da decisão de compra."),
		"day3":           day("Roteiro de abordagem", "Escreva um roteiro de abertura de conversa e pratique em voz alta ao menos cinco vezes."),
		"day4":           day("Contato ativo", "Entre em contato com os três clientes mais próximos da decisão usando o roteiro do dia anterior."),
		"day5":           day("Tratamento de objeções", "Anote as objeções recebidas e prepare uma resposta estruturada para cada uma."),
		"day6":           day("Proposta de valor", "Refine sua proposta de valor com base nas conversas da semana e envie ao menos uma proposta formal."),
		"day7":           day("Revisão e próxima semana", "Avalie o que funcionou, registre os aprendizados e planeje as metas da próxima semana."),
	}
}
