package optimization

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cutflow/core/internal/config"
	"github.com/cutflow/core/internal/errs"
	"github.com/cutflow/core/internal/events"
	"github.com/cutflow/core/internal/packing"
	"github.com/cutflow/core/internal/pool"
	"github.com/cutflow/core/internal/store"
	"github.com/cutflow/core/internal/tenant"
	"github.com/cutflow/core/pkg/idgen"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// Input is the OptimizationEngine's request shape.
type Input struct {
	CuttingJobID  string
	ScenarioID    string
	Algorithm     string // optional override; empty means "derive from job dimensionality"
	KerfMM        int
	AllowRotation bool
}

// Outcome is what Run returns: either a completed plan or a typed failure
// reason, never both.
type Outcome struct {
	Success bool
	PlanID       string
	PlanNumber   string
	Efficiency   float64
	WastePercent float64
	FailureReason string
}

// Engine loads a cutting job and candidate stock, selects a packing
// strategy, runs it through the bounded WorkerPool, and persists the
// resulting plan in a single transaction. It never partially persists: a
// failed or timed-out run leaves no CuttingPlan row behind.
type Engine struct {
	store   store.Store
	pool    *pool.WorkerPool
	events  *events.Manager
	cfg     config.OptimizationConfig
	log     zerolog.Logger
}

func NewEngine(st store.Store, workers *pool.WorkerPool, em *events.Manager, cfg config.OptimizationConfig, log zerolog.Logger) *Engine {
	return &Engine{
		store:  st,
		pool:   workers,
		events: em,
		cfg:    cfg,
		log:    log.With().Str("module", "optimization_engine").Logger(),
	}
}

// Run executes the full optimization for one job/scenario pair. ctx must
// carry a bound tenant id (internal/tenant); Run verifies it before
// touching the Store.
func (e *Engine) Run(ctx context.Context, in Input) Outcome {
	tenantID, tErr := tenant.Current(ctx)
	if tErr != nil {
		return e.fail(ctx, in.ScenarioID, tErr)
	}

	job, err := e.store.CuttingJobs().GetByID(ctx, in.CuttingJobID)
	if err != nil {
		return e.fail(ctx, in.ScenarioID, errs.Of(err))
	}
	if job.TenantID != tenantID {
		return e.fail(ctx, in.ScenarioID, errs.New(errs.Forbidden, "cutting job belongs to a different tenant"))
	}

	if sErr := checkTransition(job.Status, store.JobOptimizing); sErr != nil {
		return e.fail(ctx, in.ScenarioID, sErr)
	}
	if err := e.store.CuttingJobs().UpdateStatus(ctx, job.ID, store.JobOptimizing); err != nil {
		return e.fail(ctx, in.ScenarioID, errs.Of(err))
	}

	pieces, kind, err := e.loadPieces(ctx, job)
	if err != nil {
		return e.failJob(ctx, job, in.ScenarioID, errs.Of(err))
	}

	classes, err := e.loadStockClasses(ctx, job, kind)
	if err != nil {
		return e.failJob(ctx, job, in.ScenarioID, errs.Of(err))
	}

	algorithm := deriveAlgorithm(in.Algorithm, kind, e.cfg)
	taskKind := pool.Kind1D
	timeout := e.cfg.Timeout1D
	if kind == packing.Sheet2D {
		taskKind = pool.Kind2D
		timeout = e.cfg.Timeout2D
	}

	payload, err := msgpack.Marshal(in)
	if err != nil {
		return e.failJob(ctx, job, in.ScenarioID, errs.WrapInternal(err))
	}

	taskFn := buildTaskFunc(algorithm, pieces, classes, in.KerfMM, in.AllowRotation)
	future, subErr := e.pool.Submit(pool.Task{
		ID:        idgen.NewPrefixed("opt-task"),
		Kind:      taskKind,
		Payload:   payload,
		TimeoutMs: int(timeout.Milliseconds()),
	}, taskFn)
	if subErr != nil {
		return e.failJob(ctx, job, in.ScenarioID, subErr)
	}

	result, waitErr := future.Wait(ctx)
	if waitErr != nil {
		return e.failJob(ctx, job, in.ScenarioID, waitErr)
	}

	outcome, persistErr := e.persistPlan(ctx, job, in.ScenarioID, result)
	if persistErr != nil {
		return e.failJob(ctx, job, in.ScenarioID, persistErr)
	}
	return outcome
}

func (e *Engine) loadPieces(ctx context.Context, job store.CuttingJob) ([]packing.Piece, packing.Kind, error) {
	items, err := e.store.CuttingJobs().ItemsByJobID(ctx, job.ID)
	if err != nil {
		return nil, "", err
	}

	var pieces []packing.Piece
	var kind packing.Kind
	for _, item := range items {
		orderItem, err := e.store.OrderItems().GetByID(ctx, item.OrderItemID)
		if err != nil {
			return nil, "", err
		}

		itemKind := packing.Bar1D
		length, width := 0, 0
		switch orderItem.GeometryType {
		case store.GeometryBar:
			if orderItem.Length != nil {
				length = *orderItem.Length
			}
		case store.GeometrySheet:
			itemKind = packing.Sheet2D
			if orderItem.Length != nil {
				length = *orderItem.Length
			}
			if orderItem.Width != nil {
				width = *orderItem.Width
			}
		case store.GeometryCircle:
			return nil, "", errs.New(errs.Validation, "circle geometry is not packable by a bar or sheet strategy")
		}
		if kind == "" {
			kind = itemKind
		} else if kind != itemKind {
			return nil, "", errs.New(errs.Validation, "cutting job mixes 1D and 2D geometries")
		}

		for n := 0; n < orderItem.Quantity; n++ {
			pieces = append(pieces, packing.Piece{
				ID:          fmt.Sprintf("%s#%d", orderItem.ID, n),
				OrderItemID: orderItem.ID,
				LengthMM:    length,
				WidthMM:     width,
				CanRotate:   orderItem.CanRotate,
			})
		}
	}
	if kind == "" {
		kind = packing.Bar1D
	}
	return pieces, kind, nil
}

func (e *Engine) loadStockClasses(ctx context.Context, job store.CuttingJob, kind packing.Kind) ([]packing.StockClass, error) {
	stockType := store.StockTypeBar1D
	if kind == packing.Sheet2D {
		stockType = store.StockTypeSheet2D
	}
	items, err := e.store.StockItems().CandidatesForMaterial(ctx, job.MaterialTypeID, job.Thickness, stockType)
	if err != nil {
		return nil, err
	}

	classes := make([]packing.StockClass, 0, len(items))
	for i, item := range items {
		class := packing.StockClass{
			ID:             item.ID,
			Kind:           kind,
			AvailableQty:   item.AvailableQty(),
			InsertionOrder: i,
		}
		if item.UnitPriceCents != nil {
			class.UnitPriceCents = *item.UnitPriceCents
		}
		if item.Length != nil {
			class.LengthMM = *item.Length
		}
		if item.Width != nil {
			class.WidthMM = *item.Width
		}
		if item.Height != nil {
			class.HeightMM = *item.Height
		}
		if kind == packing.Sheet2D {
			// SHEET_2D stock carries its size in Width x Height, while the 2D
			// strategies read a sheet as LengthMM x WidthMM.
			class.LengthMM, class.WidthMM = class.WidthMM, class.HeightMM
		}
		classes = append(classes, class)
	}
	return classes, nil
}

func deriveAlgorithm(explicit string, kind packing.Kind, cfg config.OptimizationConfig) packing.Algorithm {
	if explicit != "" {
		return packing.Algorithm(explicit)
	}
	if kind == packing.Sheet2D {
		return packing.Algorithm(cfg.DefaultAlgorithm2D)
	}
	return packing.Algorithm(cfg.DefaultAlgorithm1D)
}

func buildTaskFunc(algorithm packing.Algorithm, pieces []packing.Piece, classes []packing.StockClass, kerf int, allowRotation bool) pool.TaskFunc {
	return func(token *packing.CancellationToken, progress packing.ProgressSink) (packing.Result, error) {
		opts := packing.Options{
			KerfMM:            kerf,
			AllowRotation:     allowRotation,
			CancellationToken: token,
			ProgressSink:      progress,
		}
		switch algorithm {
		case packing.FFD1D:
			return packing.FFD1DPack(pieces, classes, opts), nil
		case packing.BFD1D:
			return packing.BFD1DPack(pieces, classes, opts), nil
		case packing.BottomLeft2D:
			return packing.BottomLeft2DPack(pieces, classes, opts), nil
		case packing.Guillotine2D:
			return packing.Guillotine2DPack(pieces, classes, opts), nil
		default:
			return packing.Result{}, errs.Newf(errs.Validation, "unknown packing algorithm %q", algorithm)
		}
	}
}

func (e *Engine) persistPlan(ctx context.Context, job store.CuttingJob, scenarioID string, result packing.Result) (Outcome, *errs.Error) {
	planID := idgen.New()
	planNumber := idgen.NewPrefixed("PLAN")

	plan := store.CuttingPlan{
		ID:              planID,
		ScenarioID:      scenarioID,
		PlanNumber:      planNumber,
		TotalWasteMM:    result.TotalWasteMM2,
		WastePercentage: packing.BasisPointsToFloat(result.WastePercentageBP),
		StockUsedCount:  result.StockUsedCount,
		Efficiency:      packing.BasisPointsToFloat(result.EfficiencyBP),
		Status:          store.PlanDraft,
	}

	planStocks := make([]store.CuttingPlanStock, 0, len(result.UsageByStock))
	for seq, usage := range result.UsageByStock {
		placementsJSON, err := json.Marshal(usage.Placements)
		if err != nil {
			return Outcome{}, errs.WrapInternal(err)
		}
		planStocks = append(planStocks, store.CuttingPlanStock{
			ID:              idgen.New(),
			PlanID:          planID,
			StockItemID:     usage.StockClassID,
			Sequence:        seq,
			PlacementsJSON:  string(placementsJSON),
			WasteMM:         usage.WasteMM2,
			WastePercentage: wastePercentOfStock(usage),
		})
	}

	txErr := e.store.WithTx(ctx, func(ctx context.Context) error {
		if _, err := e.store.Plans().Create(ctx, plan, planStocks); err != nil {
			return err
		}
		reserved := map[string]int{}
		for _, usage := range result.UsageByStock {
			reserved[usage.StockClassID]++
		}
		for stockID, qty := range reserved {
			if err := e.store.StockItems().Reserve(ctx, stockID, qty); err != nil {
				return err
			}
		}
		if err := e.store.Scenarios().UpdateStatus(ctx, scenarioID, "COMPLETED"); err != nil {
			return err
		}
		return e.store.CuttingJobs().UpdateStatus(ctx, job.ID, store.JobOptimized)
	})
	if txErr != nil {
		return Outcome{}, errs.Of(txErr)
	}

	e.events.Emit(events.OptimizationCompleted, "cutting_plan", planID, job.TenantID, "", map[string]any{
		"scenarioId":      scenarioID,
		"planId":          planID,
		"planNumber":      planNumber,
		"efficiency":      plan.Efficiency,
		"wastePercentage": plan.WastePercentage,
	})

	return Outcome{
		Success:      true,
		PlanID:       planID,
		PlanNumber:   planNumber,
		Efficiency:   plan.Efficiency,
		WastePercent: plan.WastePercentage,
	}, nil
}

func wastePercentOfStock(usage packing.StockUsage) float64 {
	if usage.TotalAreaMM2 == 0 {
		return 0
	}
	return float64(usage.WasteMM2) / float64(usage.TotalAreaMM2) * 100
}

// failJob marks job FAILED (best-effort; the job's own status is secondary
// to reporting the original failure) and emits OPTIMIZATION_FAILED.
func (e *Engine) failJob(ctx context.Context, job store.CuttingJob, scenarioID string, cause *errs.Error) Outcome {
	if sErr := checkTransition(job.Status, store.JobFailed); sErr == nil {
		if err := e.store.CuttingJobs().UpdateStatus(ctx, job.ID, store.JobFailed); err != nil {
			e.log.Warn().Err(err).Str("job_id", job.ID).Msg("failed to mark cutting job FAILED after optimization failure")
		}
	}
	return e.fail(ctx, scenarioID, cause)
}

func (e *Engine) fail(ctx context.Context, scenarioID string, cause *errs.Error) Outcome {
	reason := string(cause.Code)
	e.log.Error().Err(cause).Str("scenario_id", scenarioID).Str("reason", reason).Msg("optimization failed")
	e.events.Emit(events.OptimizationFailed, "optimization_scenario", scenarioID, tenant.CurrentOptional(ctx), "", map[string]any{
		"scenarioId": scenarioID,
		"reason":     reason,
	})
	return Outcome{Success: false, FailureReason: reason}
}
