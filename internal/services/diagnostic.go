package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vendalab/impact-backend/internal/config"
	"github.com/vendalab/impact-backend/internal/logger"
	"github.com/vendalab/impact-backend/internal/realtime"
	"github.com/vendalab/impact-backend/internal/repos"
	"github.com/vendalab/impact-backend/internal/types"
)

type Bottleneck struct {
	Dimension string  `json:"dimension"`
	Value     float64 `json:"value"`
}

// DiagnosticSummary is the aggregate view shown to the user: per-dimension
// means across all submitted days, the weakest dimension, and the overall
// score on a 0-100 scale.
type DiagnosticSummary struct {
	Means        map[string]float64 `json:"means"`
	Bottleneck   Bottleneck         `json:"bottleneck"`
	OverallScore int                `json:"overall_score"`
	DaysCounted  int                `json:"days_counted"`
}

type DiagnosticService interface {
	// Upsert stores the six scores for (user, event day), overwriting any
	// prior submission for the same day.
	Upsert(ctx context.Context, userID uuid.UUID, eventDay int, scores map[string]float64) (*types.DiagnosticEntry, error)
	GetForUser(ctx context.Context, userID uuid.UUID) ([]*types.DiagnosticEntry, error)
	// Summary returns ErrNoDiagnostic when the user has no entries.
	Summary(ctx context.Context, userID uuid.UUID) (*DiagnosticSummary, error)
}

type diagnosticService struct {
	db             *gorm.DB
	log            *logger.Logger
	cfg            config.EventConfig
	diagnosticRepo repos.DiagnosticRepo
	userRepo       repos.UserRepo
	emitter        SSEEmitter
}

func NewDiagnosticService(
	db *gorm.DB,
	log *logger.Logger,
	cfg config.EventConfig,
	diagnosticRepo repos.DiagnosticRepo,
	userRepo repos.UserRepo,
	emitter SSEEmitter,
) DiagnosticService {
	return &diagnosticService{
		db:             db,
		log:            log.With("service", "DiagnosticService"),
		cfg:            cfg,
		diagnosticRepo: diagnosticRepo,
		userRepo:       userRepo,
		emitter:        emitter,
	}
}

func (ds *diagnosticService) Upsert(ctx context.Context, userID uuid.UUID, eventDay int, scores map[string]float64) (*types.DiagnosticEntry, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("user id required")
	}
	if eventDay < 1 || eventDay > ds.cfg.EventDays {
		return nil, fmt.Errorf("event_day must be between 1 and %d", ds.cfg.EventDays)
	}
	if len(scores) != len(config.DefaultDimensionPriority) {
		return nil, fmt.Errorf("%w: all six dimensions required", ErrInvalidScores)
	}
	for _, dim := range config.DefaultDimensionPriority {
		v, ok := scores[dim]
		if !ok {
			return nil, fmt.Errorf("%w: missing dimension %q", ErrInvalidScores, dim)
		}
		if v < 0 || v > 10 {
			return nil, fmt.Errorf("%w: %s = %v", ErrInvalidScores, dim, v)
		}
	}

	users, uErr := ds.userRepo.GetByIDs(ctx, nil, []uuid.UUID{userID})
	if uErr != nil {
		return nil, fmt.Errorf("load user: %w", uErr)
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("unknown user %s", userID)
	}

	now := time.Now().UTC()
	entry := &types.DiagnosticEntry{
		ID:        uuid.New(),
		UserID:    userID,
		EventDay:  eventDay,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for dim, v := range scores {
		entry.SetScore(dim, v)
	}

	err := ds.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return ds.diagnosticRepo.Upsert(ctx, tx, entry)
	})
	if err != nil {
		return nil, fmt.Errorf("upsert diagnostic: %w", err)
	}

	ds.log.Info("Diagnostic submitted", "userID", userID, "eventDay", eventDay)
	ds.emitter.Emit(ctx, realtime.SSEMessage{
		Channel: userID.String(),
		Event:   realtime.SSEEventDiagnosticUpdated,
		Data:    entry,
	})
	return entry, nil
}

func (ds *diagnosticService) GetForUser(ctx context.Context, userID uuid.UUID) ([]*types.DiagnosticEntry, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("user id required")
	}
	return ds.diagnosticRepo.GetByUserID(ctx, nil, userID)
}

func (ds *diagnosticService) Summary(ctx context.Context, userID uuid.UUID) (*DiagnosticSummary, error) {
	entries, err := ds.GetForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrNoDiagnostic
	}

	means := DimensionMeans(entries)
	bottleneck, _ := ComputeBottleneck(entries, ds.cfg.DimensionPriority)
	return &DiagnosticSummary{
		Means:        means,
		Bottleneck:   bottleneck,
		OverallScore: OverallScore(entries),
		DaysCounted:  len(entries),
	}, nil
}

// DimensionMeans averages each dimension across all days present.
func DimensionMeans(entries []*types.DiagnosticEntry) map[string]float64 {
	means := make(map[string]float64, len(config.DefaultDimensionPriority))
	if len(entries) == 0 {
		return means
	}
	for _, dim := range config.DefaultDimensionPriority {
		var sum float64
		for _, e := range entries {
			v, _ := e.Score(dim)
			sum += v
		}
		means[dim] = sum / float64(len(entries))
	}
	return means
}

// ComputeBottleneck selects the dimension with the lowest mean. Ties go to
// the dimension earliest in priority; a strict less-than while walking the
// priority order gives exactly that.
func ComputeBottleneck(entries []*types.DiagnosticEntry, priority []string) (Bottleneck, bool) {
	if len(entries) == 0 {
		return Bottleneck{}, false
	}
	if len(priority) == 0 {
		priority = config.DefaultDimensionPriority
	}
	means := DimensionMeans(entries)

	best := Bottleneck{Dimension: priority[0], Value: means[priority[0]]}
	for _, dim := range priority[1:] {
		if means[dim] < best.Value {
			best = Bottleneck{Dimension: dim, Value: means[dim]}
		}
	}
	return best, true
}

// OverallScore is round(mean of the six dimension means * 10), a 0-100 value.
func OverallScore(entries []*types.DiagnosticEntry) int {
	if len(entries) == 0 {
		return 0
	}
	means := DimensionMeans(entries)
	var sum float64
	for _, v := range means {
		sum += v
	}
	return int(math.Round(sum / float64(len(means)) * 10))
}
