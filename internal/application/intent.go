package application

import (
	"context"

	"chaos-car/internal/domain"
	"chaos-car/internal/llm"
)

type IntentExtractor interface {
	GetIntent(ctx context.Context, text string) llm.Extraction
	Provider() string
}

type IntentTransformer interface {
	Apply(in domain.Intent, pct float64) domain.Intent
}
