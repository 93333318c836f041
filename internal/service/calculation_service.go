package service

import (
	"bytes"
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/khoslavarun/QuoteBuilder/internal/export"
	"github.com/khoslavarun/QuoteBuilder/internal/quote"
)

// Document is a rendered export ready to be sent as a download.
type Document struct {
	Filename    string
	ContentType string
	Body        []byte
}

type CalculationService interface {
	Calculate(ctx context.Context, in quote.Inputs) (quote.Output, error)
	Render(ctx context.Context, format export.Format, report export.Report) (Document, error)
}

type calculationService struct {
	tracer trace.Tracer
	log    *zap.Logger
}

func NewCalculationService(tracer trace.Tracer, log *zap.Logger) CalculationService {
	return &calculationService{tracer: tracer, log: log}
}

func (s *calculationService) Calculate(ctx context.Context, in quote.Inputs) (quote.Output, error) {
	_, span := s.tracer.Start(ctx, "quote.calculate", trace.WithAttributes(
		attribute.String("quote.pricing_mode", string(in.PricingMode)),
		attribute.Int("quote.advance_count", len(in.AdvancePercentages)),
	))
	defer span.End()

	out, err := quote.Calculate(in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.log.Debug("calculation rejected", zap.String("pricing_mode", string(in.PricingMode)), zap.Error(err))
		return quote.Output{}, err
	}

	s.log.Debug("calculation completed",
		zap.String("pricing_mode", string(in.PricingMode)),
		zap.Int("scenarios", len(out.Scenarios)),
		zap.Float64("total_shipment_cost", out.TotalShipmentCost),
	)
	return out, nil
}

func (s *calculationService) Render(ctx context.Context, format export.Format, report export.Report) (Document, error) {
	_, span := s.tracer.Start(ctx, "quote.export", trace.WithAttributes(
		attribute.String("export.format", string(format)),
	))
	defer span.End()

	var buf bytes.Buffer
	if err := export.Write(&buf, format, report); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Document{}, fmt.Errorf("render %s export: %w", format, err)
	}
	return Document{
		Filename:    report.Filename(format),
		ContentType: format.ContentType(),
		Body:        buf.Bytes(),
	}, nil
}
