// Package scan runs the two analysis flows end to end: label scanning
// (capture, text recognition, nutrition analysis) and spoilage detection
// (capture, classification). Each flow has its own session, so a running
// spoilage check never blocks a label scan.
package scan

import (
	"context"
	"encoding/json"
	"log"

	"github.com/fresheye/fresheye/internal/analysis"
	"github.com/fresheye/fresheye/internal/capture"
	"github.com/fresheye/fresheye/internal/models"
	"github.com/fresheye/fresheye/internal/ocr"
	"github.com/fresheye/fresheye/internal/storage"
)

// Backend is the slice of the api client the flows use. *api.Client
// satisfies it.
type Backend interface {
	ExtractNutrition(ctx context.Context, text string) (*analysis.Nutrition, error)
	PredictSpoilage(ctx context.Context, image []byte, filename string) (*analysis.Spoilage, error)
}

// Service owns the nutrition and spoilage sessions.
type Service struct {
	backend Backend
	engine  ocr.Engine
	store   storage.Store

	nutrition *capture.Session
	spoilage  *capture.Session
}

// NewService builds the service. store may be nil to disable history.
func NewService(backend Backend, engine ocr.Engine, store storage.Store) *Service {
	s := &Service{backend: backend, engine: engine, store: store}
	s.nutrition = capture.NewSession(nil, s.analyzeNutrition)
	s.spoilage = capture.NewSession(nil, s.analyzeSpoilage)
	return s
}

func (s *Service) analyzeNutrition(ctx context.Context, img *capture.Image) (any, error) {
	text, err := s.engine.ExtractText(ctx, img.Data, img.MIME)
	if err != nil {
		return nil, err
	}
	return s.backend.ExtractNutrition(ctx, text)
}

func (s *Service) analyzeSpoilage(ctx context.Context, img *capture.Image) (any, error) {
	return s.backend.PredictSpoilage(ctx, img.Data, "")
}

// ScanNutrition runs one label scan and records it in history.
func (s *Service) ScanNutrition(ctx context.Context) (*analysis.Nutrition, error) {
	result, err := s.nutrition.Run(ctx)
	if err != nil {
		return nil, err
	}
	n := result.(*analysis.Nutrition)
	s.record(ctx, models.ScanNutrition, "", s.nutrition.SourceName(), n)
	return n, nil
}

// ScanSpoilage runs one freshness check and records it in history.
func (s *Service) ScanSpoilage(ctx context.Context) (*analysis.Spoilage, error) {
	result, err := s.spoilage.Run(ctx)
	if err != nil {
		return nil, err
	}
	sp := result.(*analysis.Spoilage)
	label := sp.FoodName
	if label == "" {
		label = sp.PredictedClass
	}
	s.record(ctx, models.ScanSpoilage, label, s.spoilage.SourceName(), sp)
	return sp, nil
}

// record appends a history entry. A storage failure is logged, not returned;
// the scan itself succeeded and its result must still reach the user.
func (s *Service) record(ctx context.Context, kind models.ScanKind, label, source string, result any) {
	if s.store == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		log.Printf("history: encode %s result: %v", kind, err)
		return
	}
	rec := &models.ScanRecord{Kind: kind, Label: label, Source: source, Result: data}
	if err := s.store.SaveScan(ctx, rec); err != nil {
		log.Printf("history: save %s scan: %v", kind, err)
	}
}

// SetNutritionSource selects where label images come from.
func (s *Service) SetNutritionSource(src capture.Source) error {
	return s.nutrition.SetSource(src)
}

// SetSpoilageSource selects where spoilage images come from.
func (s *Service) SetSpoilageSource(src capture.Source) error {
	return s.spoilage.SetSource(src)
}

// NutritionState reports the label scan session state.
func (s *Service) NutritionState() capture.State { return s.nutrition.State() }

// SpoilageState reports the spoilage session state.
func (s *Service) SpoilageState() capture.State { return s.spoilage.State() }

// LastNutrition returns the last completed nutrition result, or nil.
func (s *Service) LastNutrition() *analysis.Nutrition {
	if n, ok := s.nutrition.Result().(*analysis.Nutrition); ok {
		return n
	}
	return nil
}

// LastSpoilage returns the last completed spoilage result, or nil.
func (s *Service) LastSpoilage() *analysis.Spoilage {
	if sp, ok := s.spoilage.Result().(*analysis.Spoilage); ok {
		return sp
	}
	return nil
}

// NutritionError returns the label scan session's last error message.
func (s *Service) NutritionError() string { return s.nutrition.Err() }

// SpoilageError returns the spoilage session's last error message.
func (s *Service) SpoilageError() string { return s.spoilage.Err() }
