package calls

import (
	"context"
)

// DetectionService is what the HTTP handler needs from Service
type DetectionService interface {
	Detect(ctx context.Context) (*Report, error)
	DetectBatch(ctx context.Context, records []CallRecord) (*Report, error)
	Cells(ctx context.Context, resolution int) ([]CellAggregate, error)
	Policy() Policy
}

var _ DetectionService = (*Service)(nil)
