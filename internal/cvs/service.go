// Package cvs manages structured CVs, including metered import from PDF uploads.
package cvs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kariyerai/backend/internal/ai"
	"github.com/kariyerai/backend/internal/entitlements"
	"github.com/kariyerai/backend/internal/models"
	"github.com/kariyerai/backend/internal/pdftext"
	"github.com/kariyerai/backend/internal/plans"
	"github.com/kariyerai/backend/pkg/storage"
)

const OperationImport = "cv_import"

var ErrInvalidCV = errors.New("invalid cv")

// Structurer turns resume text into CV data. *ai.Client satisfies it.
type Structurer interface {
	StructureCV(ctx context.Context, text string) (*ai.StructuredCV, error)
}

// FileStore keeps original uploads. *storage.S3 satisfies it.
type FileStore interface {
	PutCV(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	CVDownloadURL(ctx context.Context, key string) (string, error)
	DeleteCV(ctx context.Context, key string) error
}

// ImportResult is the outcome of a PDF import.
type ImportResult struct {
	CV      *models.CV `json:"cv"`
	Charged int        `json:"creditsCharged"`
	Balance int        `json:"balance"`
	Stored  bool       `json:"fileStored"`
}

// Service owns CV lifecycle rules.
type Service struct {
	store      Store
	ents       entitlements.Store
	meter      *entitlements.Meter
	structurer Structurer
	files      FileStore // nil when S3 is not configured
	importCost int
	extract    func([]byte) (string, error)
	logger     *zap.Logger
}

// NewService creates a CV service. files may be nil.
func NewService(store Store, ents entitlements.Store, meter *entitlements.Meter, structurer Structurer,
	files FileStore, importCost int, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if importCost < 1 {
		importCost = 1
	}
	return &Service{store: store, ents: ents, meter: meter, structurer: structurer, files: files,
		importCost: importCost, extract: pdftext.Extract, logger: logger}
}

// List returns the owner's CVs.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]models.CV, error) {
	list, err := s.store.List(ctx, userID)
	if list == nil {
		list = []models.CV{}
	}
	return list, err
}

// Get returns one CV.
func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*models.CV, error) {
	return s.store.Get(ctx, userID, id)
}

// Create stores a manually built or chat built CV under the plan's limit.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, title string, source models.CVSource, data json.RawMessage) (*models.CV, error) {
	cv, err := newCV(userID, title, source, data)
	if err != nil {
		return nil, err
	}
	limit, err := s.limit(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, cv, limit); err != nil {
		return nil, err
	}
	return cv, nil
}

// Update replaces title and data.
func (s *Service) Update(ctx context.Context, userID, id uuid.UUID, title string, data json.RawMessage) (*models.CV, error) {
	cv, err := s.store.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	next, err := newCV(userID, title, cv.Source, data)
	if err != nil {
		return nil, err
	}
	cv.Title, cv.Data = next.Title, next.Data
	if err := s.store.Update(ctx, cv); err != nil {
		return nil, err
	}
	return cv, nil
}

// Delete removes the CV and its stored upload. A storage failure is only logged.
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	cv, err := s.store.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, userID, id); err != nil {
		return err
	}
	if cv.PDFKey != nil && s.files != nil {
		if err := s.files.DeleteCV(ctx, *cv.PDFKey); err != nil {
			s.logger.Warn("delete cv file failed", zap.String("key", *cv.PDFKey), zap.Error(err))
		}
	}
	return nil
}

// FileURL returns a short-lived download link for the original upload.
func (s *Service) FileURL(ctx context.Context, userID, id uuid.UUID) (string, error) {
	cv, err := s.store.Get(ctx, userID, id)
	if err != nil {
		return "", err
	}
	if cv.PDFKey == nil || s.files == nil {
		return "", ErrNotFound
	}
	return s.files.CVDownloadURL(ctx, *cv.PDFKey)
}

// Import validates and extracts a PDF, then structures it with the AI service under the
// credits meter. The file is checked before any balance lookup; structuring or saving
// failures debit nothing.
func (s *Service) Import(ctx context.Context, userID uuid.UUID, file io.Reader, idempotencyKey string) (*ImportResult, error) {
	data, err := pdftext.Read(file)
	if err != nil {
		return nil, err
	}
	limit, err := s.limit(ctx, userID)
	if err != nil {
		return nil, err
	}
	if n, err := s.store.Count(ctx, userID); err != nil {
		return nil, err
	} else if n >= limit {
		return nil, ErrLimitReached
	}
	text, err := s.extract(data)
	if err != nil {
		return nil, err
	}

	var cv *models.CV
	op := entitlements.Operation{
		Name:      OperationImport,
		UserID:    userID,
		Resource:  entitlements.Credits,
		Required:  s.importCost,
		RequestID: entitlements.RequestID(userID, OperationImport, idempotencyKey),
	}
	charge, err := s.meter.Run(ctx, op, func(ctx context.Context) (int, error) {
		structured, err := s.structurer.StructureCV(ctx, text)
		if err != nil {
			return 0, err
		}
		cv, err = newCV(userID, structured.Title, models.CVSourcePDF, structured.Data)
		if err != nil {
			return 0, err
		}
		if err := s.store.Create(ctx, cv, limit); err != nil {
			return 0, err
		}
		return s.importCost, nil
	})
	if err != nil {
		var up *entitlements.UpstreamError
		if errors.As(err, &up) && errors.Is(up.Err, ErrLimitReached) {
			return nil, ErrLimitReached
		}
		return nil, err
	}

	res := &ImportResult{CV: cv, Charged: charge.Consumed, Balance: charge.Balance}
	if s.files != nil {
		key := storage.CVKey(userID.String(), cv.ID.String())
		if err := s.files.PutCV(ctx, key, "application/pdf", bytes.NewReader(data), int64(len(data))); err != nil {
			s.logger.Warn("store cv upload failed", zap.String("cv_id", cv.ID.String()), zap.Error(err))
		} else if err := s.store.SetPDFKey(ctx, userID, cv.ID, key); err != nil {
			s.logger.Warn("record cv upload key failed", zap.String("cv_id", cv.ID.String()), zap.Error(err))
		} else {
			cv.PDFKey = &key
			res.Stored = true
		}
	}
	s.logger.Info("cv imported",
		zap.String("user_id", userID.String()),
		zap.String("cv_id", cv.ID.String()),
		zap.Int("charged", res.Charged))
	return res, nil
}

func (s *Service) limit(ctx context.Context, userID uuid.UUID) (int, error) {
	snap, err := s.ents.Snapshot(ctx, userID)
	if err != nil {
		return 0, err
	}
	return plans.MustLookup(snap.Plan).MaxCVs, nil
}

func newCV(userID uuid.UUID, title string, source models.CVSource, data json.RawMessage) (*models.CV, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidCV)
	}
	if len(title) > 200 {
		return nil, fmt.Errorf("%w: title is too long", ErrInvalidCV)
	}
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("%w: data must be a JSON object", ErrInvalidCV)
	}
	return &models.CV{UserID: userID, Title: title, Source: source, Data: data}, nil
}
