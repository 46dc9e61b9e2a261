package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kesbangpol-dev/perizinan-api/internal/models"
	appErrors "github.com/kesbangpol-dev/perizinan-api/pkg/errors"
)

type submissionStore interface {
	Append(ctx context.Context, submission *models.Submission) error
}

type blobStore interface {
	Put(ctx context.Context, objectName string, r io.Reader, size int64, contentType string) (string, error)
}

// FileUpload carries one attached file through the pipeline. The content is
// fully consumed within the request; only the resulting URL is persisted.
type FileUpload struct {
	Filename string
	Size     int64
	MimeType string
	Content  io.ReadSeeker
}

// IntakeServiceConfig holds validation parameters for attached files.
type IntakeServiceConfig struct {
	MaxFileSize  int64
	AllowedMIMEs []string
}

// IntakeService runs the submission pipeline: field validation, file
// validation, sequential uploads, record append. Fail-fast with the first
// offender; files uploaded before a later failure are left in storage.
type IntakeService struct {
	repo    submissionStore
	blobs   blobStore
	metrics *MetricsService
	logger  *zap.Logger
	cfg     IntakeServiceConfig
	mimeSet map[string]struct{}
}

// NewIntakeService constructs the service with defaults.
func NewIntakeService(repo submissionStore, blobs blobStore, metrics *MetricsService, logger *zap.Logger, cfg IntakeServiceConfig) *IntakeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 10 * 1024 * 1024
	}
	if len(cfg.AllowedMIMEs) == 0 {
		cfg.AllowedMIMEs = []string{"application/pdf", "image/jpeg", "image/png"}
	}
	mimeSet := make(map[string]struct{}, len(cfg.AllowedMIMEs))
	for _, mt := range cfg.AllowedMIMEs {
		mimeSet[strings.ToLower(mt)] = struct{}{}
	}
	return &IntakeService{
		repo:    repo,
		blobs:   blobs,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
		mimeSet: mimeSet,
	}
}

// Submit validates and persists one permit application. Exactly one record is
// appended per successful call; repeated identical submissions produce
// independent records.
func (s *IntakeService) Submit(ctx context.Context, service models.ServiceType, fields map[string]string, files map[string]*FileUpload) (*models.Submission, error) {
	def, ok := DefinitionFor(service)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("unknown service type %q", service))
	}

	if err := s.validateFields(def, fields); err != nil {
		s.record(def, "rejected")
		return nil, err
	}
	if err := s.validateFiles(def, files); err != nil {
		s.record(def, "rejected")
		return nil, err
	}

	// Uploads are awaited one after another; the record append starts only
	// once every slot has a URL.
	urls := make(map[string]string, len(def.FileSlots))
	for _, slot := range def.FileSlots {
		upload := files[slot]
		url, err := s.uploadFile(ctx, upload)
		if err != nil {
			s.logger.Error("attachment upload failed",
				zap.String("service", string(def.Service)),
				zap.String("slot", slot),
				zap.Error(err))
			s.record(def, "failed")
			return nil, appErrors.Wrap(err, appErrors.ErrUploadFailed.Code, appErrors.ErrUploadFailed.Status, appErrors.ErrUploadFailed.Message)
		}
		urls[slot] = url
		if s.metrics != nil {
			s.metrics.RecordUploadBytes(upload.Size)
		}
	}

	submission, err := s.buildRecord(def, fields, urls)
	if err != nil {
		s.record(def, "failed")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.MsgSaveFailed)
	}
	if err := s.repo.Append(ctx, submission); err != nil {
		s.logger.Error("submission append failed",
			zap.String("service", string(def.Service)),
			zap.String("collection", def.Collection),
			zap.Error(err))
		s.record(def, "failed")
		return nil, appErrors.Wrap(err, appErrors.ErrPersistenceFailed.Code, appErrors.ErrPersistenceFailed.Status, appErrors.ErrPersistenceFailed.Message)
	}

	s.record(def, "accepted")
	return submission, nil
}

// validateFields reports the first absent or empty required field.
func (s *IntakeService) validateFields(def models.IntakeDefinition, fields map[string]string) error {
	for _, name := range def.RequiredFields {
		if strings.TrimSpace(fields[name]) == "" {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s is required", name))
		}
	}
	return nil
}

// validateFiles checks every required slot before any upload starts.
func (s *IntakeService) validateFiles(def models.IntakeDefinition, files map[string]*FileUpload) error {
	for _, slot := range def.FileSlots {
		upload := files[slot]
		if upload == nil || upload.Content == nil || upload.Size <= 0 {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("File %s is required", slot))
		}
		if upload.Size > s.cfg.MaxFileSize {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("File %s exceeds %d bytes limit", slot, s.cfg.MaxFileSize))
		}
		mimeType, err := s.detectMime(upload)
		if err != nil {
			return err
		}
		if _, allowed := s.mimeSet[strings.ToLower(mimeType)]; !allowed {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("File %s must be a PDF, JPEG, or PNG", slot))
		}
		upload.MimeType = mimeType
	}
	return nil
}

// uploadFile stores one attachment under a randomized unique name and returns
// its public URL.
func (s *IntakeService) uploadFile(ctx context.Context, upload *FileUpload) (string, error) {
	objectName := fmt.Sprintf("%s-%s", uuid.NewString(), sanitizeFilename(upload.Filename))
	if _, err := upload.Content.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("reset upload stream: %w", err)
	}
	return s.blobs.Put(ctx, objectName, upload.Content, upload.Size, upload.MimeType)
}

// buildRecord flattens submitted field values and file URLs into one payload.
// The creation timestamp is assigned at write time by the repository.
func (s *IntakeService) buildRecord(def models.IntakeDefinition, fields map[string]string, urls map[string]string) (*models.Submission, error) {
	payload := make(map[string]string, len(def.RequiredFields)+len(def.OptionalFields)+len(def.FileSlots))
	for _, name := range def.RequiredFields {
		payload[name] = strings.TrimSpace(fields[name])
	}
	for _, name := range def.OptionalFields {
		if value := strings.TrimSpace(fields[name]); value != "" {
			payload[name] = value
		}
	}
	for slot, url := range urls {
		payload[urlFieldName(slot)] = url
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal submission payload: %w", err)
	}
	return &models.Submission{
		Collection: def.Collection,
		Payload:    raw,
	}, nil
}

func (s *IntakeService) detectMime(upload *FileUpload) (string, error) {
	if upload.MimeType != "" {
		return upload.MimeType, nil
	}
	header := make([]byte, 512)
	n, err := upload.Content.Read(header)
	if err != nil && err != io.EOF {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to inspect file")
	}
	if _, err := upload.Content.Seek(0, io.SeekStart); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset upload stream")
	}
	if n == 0 {
		return "", appErrors.Clone(appErrors.ErrValidation, "empty file")
	}
	return http.DetectContentType(header[:n]), nil
}

func (s *IntakeService) record(def models.IntakeDefinition, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordSubmission(string(def.Service), outcome)
	}
}

// urlFieldName maps a file slot to its persisted URL field, e.g.
// proposalFile -> proposalUrl.
func urlFieldName(slot string) string {
	return strings.TrimSuffix(slot, "File") + "Url"
}

// sanitizeFilename strips any path components and whitespace from the
// client-supplied name.
func sanitizeFilename(raw string) string {
	name := filepath.Base(strings.TrimSpace(raw))
	if name == "." || name == string(filepath.Separator) || name == "" {
		return "attachment"
	}
	return strings.ReplaceAll(name, " ", "_")
}
