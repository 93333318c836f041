package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/khoslavarun/QuoteBuilder/internal/export"
	"github.com/khoslavarun/QuoteBuilder/internal/model"
	"github.com/khoslavarun/QuoteBuilder/internal/quote"
	"github.com/khoslavarun/QuoteBuilder/internal/repository"
	ws "github.com/khoslavarun/QuoteBuilder/internal/websocket"
)

// DTOs
type SaveRunRequest struct {
	RunName   string       `json:"run_name" binding:"required,max=255"`
	ProductID *string      `json:"product_id"`
	Inputs    quote.Inputs `json:"inputs"`
}

type RunResponse struct {
	ID          string       `json:"id"`
	RunName     string       `json:"run_name"`
	ProductID   *string      `json:"product_id"`
	ProductName string       `json:"product_name,omitempty"`
	PricingMode string       `json:"pricing_mode"`
	Inputs      quote.Inputs `json:"inputs"`
	Outputs     quote.Output `json:"outputs"`
	CreatedBy   *string      `json:"created_by"`
	CreatedAt   time.Time    `json:"created_at"`
}

type RunQuery struct {
	Search    string
	ProductID string
	Page      int
	Limit     int
}

// RunSummary is the lowest and highest advance scenario of one run.
type RunSummary struct {
	RunID   string         `json:"run_id"`
	RunName string         `json:"run_name"`
	Lowest  quote.Scenario `json:"lowest_advance"`
	Highest quote.Scenario `json:"highest_advance"`
}

// AdvanceDelta is run B minus run A for an advance percentage both runs share.
type AdvanceDelta struct {
	AdvancePct          float64 `json:"advance_pct"`
	InvoiceValue        float64 `json:"invoice_value"`
	SellingPricePerUnit float64 `json:"selling_price_per_unit"`
	FinancingCost       float64 `json:"financing_cost"`
	NetProfit           float64 `json:"net_profit"`
}

type CompareResponse struct {
	RunA     RunResponse    `json:"run_a"`
	RunB     RunResponse    `json:"run_b"`
	SummaryA *RunSummary    `json:"summary_a"`
	SummaryB *RunSummary    `json:"summary_b"`
	Deltas   []AdvanceDelta `json:"deltas"`
}

type ReplayResponse struct {
	RunID           string       `json:"run_id"`
	Matches         bool         `json:"matches"`
	SameShape       bool         `json:"same_shape"`
	MaxAbsDeviation float64      `json:"max_abs_deviation"`
	Tolerance       float64      `json:"tolerance"`
	Recomputed      quote.Output `json:"recomputed"`
}

type RunService interface {
	SaveRun(ctx context.Context, userID string, req SaveRunRequest) (RunResponse, error)
	ListRuns(ctx context.Context, q RunQuery) ([]RunResponse, int64, error)
	GetRun(ctx context.Context, id string) (RunResponse, error)
	CompareRuns(ctx context.Context, idA, idB string) (CompareResponse, error)
	ReplayRun(ctx context.Context, id string) (ReplayResponse, error)
	ExportRun(ctx context.Context, id string, format export.Format) (Document, error)
}

type runService struct {
	runRepo     repository.RunRepository
	productRepo repository.ProductRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	calc        CalculationService
	events      EventPublisher
	tracer      trace.Tracer
	log         *zap.Logger
}

func NewRunService(
	runRepo repository.RunRepository,
	productRepo repository.ProductRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	calc CalculationService,
	events EventPublisher,
	tracer trace.Tracer,
	log *zap.Logger,
) RunService {
	return &runService{
		runRepo:     runRepo,
		productRepo: productRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		calc:        calc,
		events:      events,
		tracer:      tracer,
		log:         log,
	}
}

func toRunResponse(run model.QuoteRun) RunResponse {
	res := RunResponse{
		ID:          run.ID.String(),
		RunName:     run.RunName,
		PricingMode: run.PricingMode,
		Inputs:      run.Inputs.Data(),
		Outputs:     run.Outputs.Data(),
		CreatedAt:   run.CreatedAt,
	}
	if run.ProductID != nil {
		id := run.ProductID.String()
		res.ProductID = &id
	}
	if run.Product != nil {
		res.ProductName = run.Product.Name
	}
	if run.CreatedBy != nil {
		id := run.CreatedBy.String()
		res.CreatedBy = &id
	}
	return res
}

// SaveRun recomputes the outputs from the submitted inputs and stores both.
func (s *runService) SaveRun(ctx context.Context, userID string, req SaveRunRequest) (RunResponse, error) {
	ctx, span := s.tracer.Start(ctx, "history.save")
	defer span.End()

	name := strings.TrimSpace(req.RunName)
	if name == "" {
		return RunResponse{}, fmt.Errorf("%w: run_name is required", ErrInvalidArgument)
	}

	var product *model.Product
	if req.ProductID != nil && strings.TrimSpace(*req.ProductID) != "" {
		productID, err := parseID("product", strings.TrimSpace(*req.ProductID))
		if err != nil {
			return RunResponse{}, err
		}
		if product, err = s.productRepo.FindByID(ctx, productID); err != nil {
			return RunResponse{}, notFound("product", err)
		}
	}

	out, err := s.calc.Calculate(ctx, req.Inputs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return RunResponse{}, err
	}

	run := model.QuoteRun{
		RunName:     name,
		PricingMode: string(req.Inputs.PricingMode),
		Inputs:      datatypes.NewJSONType(req.Inputs),
		Outputs:     datatypes.NewJSONType(out),
		CreatedBy:   actorID(userID),
	}
	if product != nil {
		run.ProductID = &product.ID
		run.Product = product
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		// Product is only attached for the response.
		run.Product = nil
		if err := s.runRepo.Create(txCtx, &run); err != nil {
			return fmt.Errorf("failed to save run: %w", err)
		}
		details := map[string]any{
			"pricing_mode": run.PricingMode,
			"scenarios":    len(out.Scenarios),
		}
		if run.ProductID != nil {
			details["product_id"] = run.ProductID.String()
		}
		if err := recordAudit(txCtx, s.auditRepo, userID, model.ActionSaveRun, run.ID.String(), run.RunName, details); err != nil {
			return err
		}
		run.Product = product
		res := toRunResponse(run)
		repository.AfterCommit(txCtx, func() {
			s.events.Publish(ws.EventRunSaved, res)
		})
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return RunResponse{}, err
	}

	span.SetAttributes(attribute.String("run.id", run.ID.String()))
	s.log.Info("run saved", zap.String("run_id", run.ID.String()), zap.String("run_name", run.RunName))
	return toRunResponse(run), nil
}

func (s *runService) ListRuns(ctx context.Context, q RunQuery) ([]RunResponse, int64, error) {
	filter := repository.RunFilter{
		Search: strings.TrimSpace(q.Search),
		Page:   q.Page,
		Limit:  q.Limit,
	}
	if q.ProductID != "" {
		productID, err := parseID("product", q.ProductID)
		if err != nil {
			return nil, 0, err
		}
		filter.ProductID = &productID
	}

	runs, total, err := s.runRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list runs: %w", err)
	}

	res := make([]RunResponse, 0, len(runs))
	for _, r := range runs {
		res = append(res, toRunResponse(r))
	}
	return res, total, nil
}

func (s *runService) GetRun(ctx context.Context, id string) (RunResponse, error) {
	run, err := s.find(ctx, id)
	if err != nil {
		return RunResponse{}, err
	}
	return toRunResponse(*run), nil
}

func (s *runService) CompareRuns(ctx context.Context, idA, idB string) (CompareResponse, error) {
	var runA, runB *model.QuoteRun

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		runA, err = s.find(gctx, idA)
		return err
	})
	g.Go(func() error {
		var err error
		runB, err = s.find(gctx, idB)
		return err
	})
	if err := g.Wait(); err != nil {
		return CompareResponse{}, err
	}

	a, b := runA.Outputs.Data(), runB.Outputs.Data()
	return CompareResponse{
		RunA:     toRunResponse(*runA),
		RunB:     toRunResponse(*runB),
		SummaryA: summarize(*runA, a),
		SummaryB: summarize(*runB, b),
		Deltas:   advanceDeltas(a, b),
	}, nil
}

func summarize(run model.QuoteRun, out quote.Output) *RunSummary {
	lowest, highest, ok := out.Extremes()
	if !ok {
		return nil
	}
	return &RunSummary{
		RunID:   run.ID.String(),
		RunName: run.RunName,
		Lowest:  lowest,
		Highest: highest,
	}
}

// advanceDeltas lists B minus A for every advance percentage present in both
// outputs, ascending.
func advanceDeltas(a, b quote.Output) []AdvanceDelta {
	byA, byB := a.ByAdvance(), b.ByAdvance()

	advances := make([]float64, 0, len(byA))
	for adv := range byA {
		advances = append(advances, adv)
	}

	deltas := make([]AdvanceDelta, 0)
	for _, adv := range quote.SortedAdvances(advances) {
		y, ok := byB[adv]
		if !ok {
			continue
		}
		x := byA[adv]
		deltas = append(deltas, AdvanceDelta{
			AdvancePct:          adv,
			InvoiceValue:        y.InvoiceValue - x.InvoiceValue,
			SellingPricePerUnit: y.SellingPricePerUnit - x.SellingPricePerUnit,
			FinancingCost:       y.FinancingCost - x.FinancingCost,
			NetProfit:           y.NetProfit - x.NetProfit,
		})
	}
	return deltas
}

// ReplayRun recomputes a stored run from its inputs and reports whether the
// result still matches the stored outputs.
func (s *runService) ReplayRun(ctx context.Context, id string) (ReplayResponse, error) {
	ctx, span := s.tracer.Start(ctx, "history.replay")
	defer span.End()

	run, err := s.find(ctx, id)
	if err != nil {
		return ReplayResponse{}, err
	}

	recomputed, err := s.calc.Calculate(ctx, run.Inputs.Data())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return ReplayResponse{}, err
	}

	d := quote.Compare(run.Outputs.Data(), recomputed)
	matches := d.Within(quote.DefaultTolerance)
	span.SetAttributes(
		attribute.String("run.id", run.ID.String()),
		attribute.Bool("replay.matches", matches),
	)
	if !matches {
		s.log.Warn("replayed run deviates from stored outputs",
			zap.String("run_id", run.ID.String()),
			zap.Bool("same_shape", d.Shape),
			zap.Float64("max_abs_deviation", d.MaxAbs),
		)
	}

	return ReplayResponse{
		RunID:           run.ID.String(),
		Matches:         matches,
		SameShape:       d.Shape,
		MaxAbsDeviation: d.MaxAbs,
		Tolerance:       quote.DefaultTolerance,
		Recomputed:      recomputed,
	}, nil
}

func (s *runService) ExportRun(ctx context.Context, id string, format export.Format) (Document, error) {
	run, err := s.find(ctx, id)
	if err != nil {
		return Document{}, err
	}
	in := run.Inputs.Data()
	return s.calc.Render(ctx, format, export.Report{
		Title:  run.RunName,
		Inputs: &in,
		Output: run.Outputs.Data(),
	})
}

func (s *runService) find(ctx context.Context, id string) (*model.QuoteRun, error) {
	runID, err := parseID("run", id)
	if err != nil {
		return nil, err
	}
	run, err := s.runRepo.FindByID(ctx, runID)
	if err != nil {
		return nil, notFound("run", err)
	}
	return run, nil
}
