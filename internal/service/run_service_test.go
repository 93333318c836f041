package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/khoslavarun/QuoteBuilder/internal/export"
	"github.com/khoslavarun/QuoteBuilder/internal/model"
	"github.com/khoslavarun/QuoteBuilder/internal/quote"
	ws "github.com/khoslavarun/QuoteBuilder/internal/websocket"
)

type runFixture struct {
	svc      RunService
	runs     *fakeRunRepo
	products *fakeProductRepo
	audit    *fakeAuditRepo
	events   *fakePublisher
}

func newRunFixture() runFixture {
	products := newFakeProductRepo()
	f := runFixture{
		runs:     &fakeRunRepo{products: products},
		products: products,
		audit:    &fakeAuditRepo{},
		events:   &fakePublisher{},
	}
	tracer := noop.NewTracerProvider().Tracer("test")
	calc := NewCalculationService(tracer, zap.NewNop())
	f.svc = NewRunService(f.runs, f.products, f.audit, &fakeTxManager{}, calc, f.events, tracer, zap.NewNop())
	return f
}

func fixedPriceInputs(price float64, advances ...float64) quote.Inputs {
	unitCost, zero, rate, months := 300.0, 0.0, 12.0, 4.0
	return quote.Inputs{
		Quantity:               1000,
		UnitCostLocal:          &unitCost,
		FXRate:                 82,
		Freight:                &zero,
		Insurance:              &zero,
		OtherCosts:             0,
		FinancingRateAnnualPct: &rate,
		CreditPeriodMonths:     &months,
		PricingMode:            quote.ModeFixedPrice,
		FixedPricePerUnit:      &price,
		AdvancePercentages:     advances,
	}
}

func almost(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-9
}

func TestSaveRun_ComputesOutputs(t *testing.T) {
	f := newRunFixture()
	product := &model.Product{Name: "Basmati Rice"}
	if err := f.products.Create(context.Background(), product); err != nil {
		t.Fatal(err)
	}
	productID := product.ID.String()

	userID := uuid.NewString()
	run, err := f.svc.SaveRun(context.Background(), userID, SaveRunRequest{
		RunName:   "  March quote ",
		ProductID: &productID,
		Inputs:    fixedPriceInputs(4, 0, 0.5, 1),
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	if run.RunName != "March quote" || run.ProductName != "Basmati Rice" || run.PricingMode != "B" {
		t.Fatalf("unexpected run %+v", run)
	}
	if run.CreatedBy == nil || *run.CreatedBy != userID {
		t.Fatalf("expected created_by %s, got %v", userID, run.CreatedBy)
	}
	if len(run.Outputs.Scenarios) != 3 || !almost(run.Outputs.Scenarios[0].InvoiceValue, 4000) {
		t.Fatalf("outputs were not computed: %+v", run.Outputs.Scenarios)
	}
	if got := f.audit.actions(); len(got) != 1 || got[0] != model.ActionSaveRun {
		t.Fatalf("unexpected audit %v", got)
	}
	if got := f.events.names(); len(got) != 1 || got[0] != ws.EventRunSaved {
		t.Fatalf("unexpected events %v", got)
	}
}

func TestSaveRun_Rejects(t *testing.T) {
	f := newRunFixture()

	missing := uuid.NewString()
	_, err := f.svc.SaveRun(context.Background(), "", SaveRunRequest{RunName: "x", ProductID: &missing, Inputs: fixedPriceInputs(4, 0)})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown product, got %v", err)
	}

	_, err = f.svc.SaveRun(context.Background(), "", SaveRunRequest{RunName: " ", Inputs: fixedPriceInputs(4, 0)})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for blank name, got %v", err)
	}

	bad := fixedPriceInputs(4, 0)
	bad.Quantity = 0
	_, err = f.svc.SaveRun(context.Background(), "", SaveRunRequest{RunName: "x", Inputs: bad})
	var fe *quote.FieldError
	if !errors.As(err, &fe) || fe.Field != "quantity" {
		t.Fatalf("expected quantity FieldError, got %v", err)
	}

	if len(f.runs.runs) != 0 || len(f.audit.actions()) != 0 {
		t.Fatalf("rejected saves must not persist anything")
	}
}

func TestListRuns_NewestFirstAndSearch(t *testing.T) {
	f := newRunFixture()
	for _, name := range []string{"Alpha", "Beta", "alphabet"} {
		if _, err := f.svc.SaveRun(context.Background(), "", SaveRunRequest{RunName: name, Inputs: fixedPriceInputs(4, 0)}); err != nil {
			t.Fatal(err)
		}
	}

	runs, total, err := f.svc.ListRuns(context.Background(), RunQuery{Search: "ALPHA", Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 || runs[0].RunName != "alphabet" || runs[1].RunName != "Alpha" {
		t.Fatalf("unexpected listing %+v", runs)
	}

	if _, _, err := f.svc.ListRuns(context.Background(), RunQuery{ProductID: "nope"}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for bad product id, got %v", err)
	}
}

func TestCompareRuns(t *testing.T) {
	f := newRunFixture()
	a, err := f.svc.SaveRun(context.Background(), "", SaveRunRequest{RunName: "A", Inputs: fixedPriceInputs(4, 1, 0, 0.5)})
	if err != nil {
		t.Fatal(err)
	}
	b, err := f.svc.SaveRun(context.Background(), "", SaveRunRequest{RunName: "B", Inputs: fixedPriceInputs(4.5, 0.5, 0.25, 0)})
	if err != nil {
		t.Fatal(err)
	}

	cmp, err := f.svc.CompareRuns(context.Background(), a.ID, b.ID)
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if cmp.SummaryA.Lowest.AdvancePct != 0 || cmp.SummaryA.Highest.AdvancePct != 1 {
		t.Fatalf("unexpected summary A %+v", cmp.SummaryA)
	}
	if cmp.SummaryB.Highest.AdvancePct != 0.5 {
		t.Fatalf("unexpected summary B %+v", cmp.SummaryB)
	}

	if len(cmp.Deltas) != 2 || cmp.Deltas[0].AdvancePct != 0 || cmp.Deltas[1].AdvancePct != 0.5 {
		t.Fatalf("unexpected deltas %+v", cmp.Deltas)
	}
	if !almost(cmp.Deltas[0].InvoiceValue, 500) || !almost(cmp.Deltas[0].SellingPricePerUnit, 0.5) {
		t.Fatalf("unexpected invoice delta %+v", cmp.Deltas[0])
	}

	if _, err := f.svc.CompareRuns(context.Background(), a.ID, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReplayRun(t *testing.T) {
	f := newRunFixture()
	run, err := f.svc.SaveRun(context.Background(), "", SaveRunRequest{RunName: "A", Inputs: fixedPriceInputs(4, 0, 0.3, 1)})
	if err != nil {
		t.Fatal(err)
	}

	res, err := f.svc.ReplayRun(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !res.Matches || res.MaxAbsDeviation != 0 {
		t.Fatalf("expected an exact replay, got %+v", res)
	}

	// Tamper with the stored outputs.
	stored := f.runs.runs[0]
	out := stored.Outputs.Data()
	out.Scenarios[1].NetProfit += 5
	stored.Outputs = datatypes.NewJSONType(out)

	res, err = f.svc.ReplayRun(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if res.Matches || !res.SameShape || !almost(res.MaxAbsDeviation, 5) {
		t.Fatalf("expected a deviation of 5, got %+v", res)
	}
}

func TestExportRun(t *testing.T) {
	f := newRunFixture()
	run, err := f.svc.SaveRun(context.Background(), "", SaveRunRequest{RunName: "March Quote", Inputs: fixedPriceInputs(4, 0, 1)})
	if err != nil {
		t.Fatal(err)
	}

	doc, err := f.svc.ExportRun(context.Background(), run.ID, export.CSV)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.HasSuffix(doc.Filename, ".csv") || !strings.HasPrefix(doc.ContentType, "text/csv") {
		t.Fatalf("unexpected document %q %q", doc.Filename, doc.ContentType)
	}
	if !strings.HasPrefix(string(doc.Body), "Metric,0%,100%") {
		t.Fatalf("unexpected body %q", doc.Body)
	}
}
