package service

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/mgsa-portal-api/internal/dto"
	"github.com/noah-isme/mgsa-portal-api/internal/models"
	"github.com/noah-isme/mgsa-portal-api/internal/observability"
	"github.com/noah-isme/mgsa-portal-api/internal/policy"
	"github.com/noah-isme/mgsa-portal-api/internal/repository"
)

var (
	// ErrUploadTooLarge indicates the payload exceeded the configured limit.
	ErrUploadTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrUploadTypeNotAllowed indicates the MIME type is not permitted.
	ErrUploadTypeNotAllowed = errors.New("file type not allowed")
	// ErrUploadScanFailed indicates validation of the file failed.
	ErrUploadScanFailed = errors.New("file scanning failed")
	// ErrUploadMissing is returned when the request carries no file.
	ErrUploadMissing = errors.New("file is required")
	// ErrStorageUnavailable is returned when no object storage is configured.
	ErrStorageUnavailable = errors.New("file storage is not configured")
)

var allowedMaterialTypes = map[string]struct{}{
	"application/pdf":               {},
	"application/zip":               {},
	"application/msword":            {},
	"application/vnd.ms-excel":      {},
	"application/vnd.ms-powerpoint": {},

	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   {},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         {},
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": {},
}

// FileStorage abstracts upload destinations.
type FileStorage interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// MaterialService attaches files to tutorials.
type MaterialService interface {
	Upload(ctx context.Context, principal policy.Principal, tutorialID uint, title string, file *multipart.FileHeader) (dto.MaterialResponse, error)
	List(ctx context.Context, principal policy.Principal, tutorialID uint) ([]dto.MaterialResponse, error)
}

type materialService struct {
	storage   FileStorage
	materials repository.MaterialRepository
	tutorials repository.TutorialRepository
	activity  ActivityRecorder
	logger    zerolog.Logger
	maxSize   int64
	tracer    trace.Tracer
}

// NewMaterialService constructs the material service. A nil storage disables uploads.
func NewMaterialService(storage FileStorage, materials repository.MaterialRepository, tutorials repository.TutorialRepository, activity ActivityRecorder, maxSizeMB int, logger zerolog.Logger) MaterialService {
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	return &materialService{
		storage:   storage,
		materials: materials,
		tutorials: tutorials,
		activity:  activity,
		logger:    logger.With().Str("component", "material_service").Logger(),
		maxSize:   int64(maxSizeMB) * 1024 * 1024,
		tracer:    otel.Tracer("github.com/noah-isme/mgsa-portal-api/internal/service/material"),
	}
}

func (s *materialService) List(ctx context.Context, principal policy.Principal, tutorialID uint) ([]dto.MaterialResponse, error) {
	if !principal.Authenticated() {
		return nil, ErrPermissionDenied
	}
	if _, err := loadTutorial(ctx, s.tutorials, tutorialID); err != nil {
		return nil, err
	}

	materials, err := s.materials.ListByTutorial(ctx, tutorialID)
	if err != nil {
		return nil, err
	}

	out := make([]dto.MaterialResponse, 0, len(materials))
	for _, material := range materials {
		out = append(out, dto.NewMaterialResponse(material))
	}
	return out, nil
}

func (s *materialService) Upload(ctx context.Context, principal policy.Principal, tutorialID uint, title string, file *multipart.FileHeader) (dto.MaterialResponse, error) {
	ctx, span := s.tracer.Start(ctx, "materials.upload", trace.WithAttributes(
		attribute.Int64("tutorial.id", int64(tutorialID)),
		attribute.Int64("upload.max_bytes", s.maxSize),
	))
	defer span.End()

	start := time.Now()
	defer func() {
		observability.UploadLatency().Observe(time.Since(start).Seconds())
	}()

	fail := func(reason string, err error) (dto.MaterialResponse, error) {
		if reason != "" {
			observability.UploadRejected().WithLabelValues(reason).Inc()
		}
		observability.UploadRequests().WithLabelValues("rejected").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return dto.MaterialResponse{}, err
	}

	tutorial, err := loadTutorial(ctx, s.tutorials, tutorialID)
	if err != nil {
		return fail("", err)
	}
	if err := policy.Authorize(principal, policy.ActionManageTutorial, policy.TutorialTarget(tutorial)); err != nil {
		return fail("permission", ErrPermissionDenied)
	}
	if s.storage == nil {
		return fail("storage", ErrStorageUnavailable)
	}
	if file == nil {
		return fail("missing", ErrUploadMissing)
	}

	span.SetAttributes(
		attribute.String("upload.original_name", strings.TrimSpace(file.Filename)),
		attribute.Int64("upload.request_size", file.Size),
	)
	if file.Size > s.maxSize {
		return fail("size", ErrUploadTooLarge)
	}

	handle, err := file.Open()
	if err != nil {
		return fail("", err)
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxSize+1)); err != nil {
		return fail("", err)
	}
	if int64(buf.Len()) > s.maxSize {
		return fail("size", ErrUploadTooLarge)
	}

	fileType := normalizeMime(mimetype.Detect(buf.Bytes()).String())
	span.SetAttributes(attribute.String("upload.detected_mime", fileType))
	if !isAllowedType(fileType) {
		return fail("type", ErrUploadTypeNotAllowed)
	}
	if err := s.scan(buf.Bytes(), fileType); err != nil {
		return fail("scan", err)
	}

	checksum := sha256.Sum256(buf.Bytes())
	sanitizedName := sanitizeFileName(file.Filename)

	url, err := s.storage.Upload(ctx, sanitizedName, bytes.NewReader(buf.Bytes()))
	if err != nil {
		s.logger.Error().Err(err).Uint("tutorial_id", tutorialID).Msg("failed to store tutorial material")
		return fail("storage", err)
	}

	material := models.TutorialMaterial{
		TutorialID:   tutorialID,
		Title:        materialTitle(title, file.Filename),
		FileName:     sanitizedName,
		URL:          url,
		MimeType:     fileType,
		SizeBytes:    int64(buf.Len()),
		Checksum:     hex.EncodeToString(checksum[:]),
		UploadedByID: principal.ID,
	}
	if err := s.materials.Create(ctx, &material); err != nil {
		return fail("", err)
	}

	observability.UploadRequests().WithLabelValues("stored").Inc()
	span.SetStatus(codes.Ok, "stored")
	s.logger.Info().
		Uint("tutorial_id", tutorialID).
		Uint("material_id", material.ID).
		Str("mime_type", fileType).
		Int64("size_bytes", material.SizeBytes).
		Msg("tutorial material uploaded")

	if s.activity != nil {
		id := tutorialID
		if _, err := s.activity.Record(ctx, ActivityEntry{
			ActorID:    principal.ID,
			ActorRole:  principal.Role.String(),
			Action:     "tutorial.material.uploaded",
			EntityType: "tutorial",
			EntityID:   &id,
			Metadata:   map[string]interface{}{"material_id": material.ID, "file_name": sanitizedName},
		}); err != nil {
			s.logger.Warn().Err(err).Msg("failed to record activity")
		}
	}

	return dto.NewMaterialResponse(material), nil
}

// scan bounds the expanded size of zip containers, which includes office documents.
func (s *materialService) scan(payload []byte, mime string) error {
	if mime != "application/zip" && !strings.Contains(mime, "openxmlformats") {
		return nil
	}

	reader, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return ErrUploadScanFailed
	}
	var totalUncompressed uint64
	for _, f := range reader.File {
		totalUncompressed += f.UncompressedSize64
		if totalUncompressed > uint64(s.maxSize*20) {
			return fmt.Errorf("zip archive uncompressed size too large: %w", ErrUploadScanFailed)
		}
	}
	return nil
}

func loadTutorial(ctx context.Context, repo repository.TutorialRepository, id uint) (models.Tutorial, error) {
	tutorial, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Tutorial{}, ErrTutorialNotFound
		}
		return models.Tutorial{}, err
	}
	return tutorial, nil
}

func materialTitle(title, fileName string) string {
	if trimmed := strings.TrimSpace(title); trimmed != "" {
		if len(trimmed) > 200 {
			trimmed = trimmed[:200]
		}
		return trimmed
	}
	return strings.TrimSpace(fileName)
}

func sanitizeFileName(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = strings.ToLower(base)
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		if r == '-' || r == '_' {
			return r
		}
		return '-'
	}, base)
	base = strings.Trim(base, "-")
	if base == "" {
		base = fmt.Sprintf("material-%d", time.Now().Unix())
	}
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		ext = ".bin"
	}
	return base + ext
}

func normalizeMime(m string) string {
	lower := strings.ToLower(strings.TrimSpace(m))
	if idx := strings.Index(lower, ";"); idx >= 0 {
		lower = strings.TrimSpace(lower[:idx])
	}
	if lower == "application/x-zip-compressed" {
		return "application/zip"
	}
	return lower
}

func isAllowedType(m string) bool {
	if strings.HasPrefix(m, "image/") {
		return true
	}
	_, ok := allowedMaterialTypes[m]
	return ok
}
