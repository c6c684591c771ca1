package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"docvault/internal/logger"
	"docvault/internal/model"
	"docvault/internal/repository"
	"docvault/internal/storage"
	"docvault/internal/validation"
)

const (
	pdfContentType = "application/pdf"
	// sniffBytes is how much of an upload is inspected when content sniffing is on.
	sniffBytes = 3072
)

// UploadInput describes one uploaded file field.
type UploadInput struct {
	Reader       io.Reader
	OriginalName string
	Size         int64
	// OwnerID is the authenticated caller, if any.
	OwnerID *string
}

// UploadResult reports where the upload was stored. Document is nil when the
// file was stored but its metadata record could not be registered.
type UploadResult struct {
	FilePath string
	FileName string
	Document *model.Document
}

// DocumentOptions tunes the document service.
type DocumentOptions struct {
	MaxUploadBytes int64
	// DefaultOwnerID owns uploads made without an authenticated caller.
	DefaultOwnerID string
	SniffContent   bool
	Metrics        *DocumentMetrics
	Now            func() time.Time
}

// DocumentService defines the document lifecycle use cases.
type DocumentService interface {
	// Upload validates and stores a PDF, then registers its metadata record.
	// A failure to register is logged and swallowed; the stored file is kept
	// and the result still reports success.
	Upload(ctx context.Context, in UploadInput) (*UploadResult, error)

	// List returns documents with owners attached. A non-positive limit returns all of them.
	List(ctx context.Context, limit, offset int) ([]model.Document, error)

	// Get returns a single document with its owner.
	Get(ctx context.Context, id string) (*model.Document, error)

	// Rename changes the display name, the only mutable field.
	Rename(ctx context.Context, id, fileName string) (*model.Document, error)

	// Delete removes the stored file (best effort) and then the record.
	Delete(ctx context.Context, id string) error

	// Open streams the stored file of a document.
	Open(ctx context.Context, id string) (io.ReadCloser, *model.Document, error)
}

// documentService is a concrete implementation of DocumentService.
type documentService struct {
	store storage.Storage
	repo  repository.DocumentRepository
	opts  DocumentOptions
}

// NewDocumentService constructs a new DocumentService.
func NewDocumentService(store storage.Storage, repo repository.DocumentRepository, opts DocumentOptions) DocumentService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &documentService{store: store, repo: repo, opts: opts}
}

func (s *documentService) Upload(ctx context.Context, in UploadInput) (*UploadResult, error) {
	log := logger.FromContext(ctx)

	res := validation.UploadFile(in.Reader != nil, in.OriginalName, in.Size, s.opts.MaxUploadBytes)
	if !res.OK() {
		s.opts.Metrics.upload(uploadRejected)
		return nil, newValidationError(res)
	}

	r := in.Reader
	if s.opts.SniffContent {
		var ok bool
		var err error
		if r, ok, err = sniffPDF(r); err != nil {
			return nil, fmt.Errorf("read upload: %w", err)
		} else if !ok {
			s.opts.Metrics.upload(uploadRejected)
			return nil, fieldError("file", "file content is not a PDF document")
		}
	}

	now := s.opts.Now().UTC()
	name := storedName(now, in.OriginalName)

	info, err := s.store.Put(ctx, name, r, storage.PutObjectOptions{
		Size:        in.Size,
		ContentType: pdfContentType,
		Metadata: map[string]string{
			"original-filename": in.OriginalName,
		},
	})
	if err != nil {
		s.opts.Metrics.upload(uploadStoreFailed)
		return nil, fmt.Errorf("%w: %w", ErrStoreFailed, err)
	}
	if in.Size >= 0 && info.Size != in.Size {
		_ = s.store.Delete(ctx, info.Location)
		s.opts.Metrics.upload(uploadStoreFailed)
		return nil, fmt.Errorf("%w: wrote %d of %d bytes", ErrStoreFailed, info.Size, in.Size)
	}

	result := &UploadResult{FilePath: info.Location, FileName: name}
	log = log.With(zap.String("file_path", info.Location), zap.String("file_name", name))

	owner := s.resolveOwner(in.OwnerID)
	if owner == "" {
		log.Warn("document_registration_skipped", zap.String("reason", "no authenticated caller and no default owner"))
		s.opts.Metrics.upload(uploadUnregistered)
		return result, nil
	}

	doc, err := s.repo.Create(ctx, &model.Document{
		FilePath:  info.Location,
		FileName:  name,
		UserID:    &owner,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		log.Error("document_registration_failed", zap.String("owner_id", owner), zap.Error(err))
		s.opts.Metrics.upload(uploadUnregistered)
		return result, nil
	}

	log.Info("document_uploaded", zap.String("document_id", doc.ID), zap.String("owner_id", owner), zap.Int64("size", info.Size))
	s.opts.Metrics.upload(uploadRegistered)
	result.Document = doc
	return result, nil
}

func (s *documentService) resolveOwner(caller *string) string {
	if caller != nil && *caller != "" {
		return *caller
	}
	return s.opts.DefaultOwnerID
}

// storedName prefixes the client name with the upload time in milliseconds.
// Only the base name is kept so a client cannot pick a directory.
func storedName(now time.Time, clientName string) string {
	base := filepath.Base(strings.ReplaceAll(clientName, "\\", "/"))
	base = strings.TrimSpace(base)
	if base == "" || base == "." || base == "/" {
		base = "document.pdf"
	}
	return fmt.Sprintf("%d-%s", now.UnixMilli(), base)
}

// sniffPDF inspects the head of r and returns a reader replaying the full stream.
func sniffPDF(r io.Reader) (io.Reader, bool, error) {
	head := make([]byte, sniffBytes)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, false, err
	}
	head = head[:n]
	ok := mimetype.Detect(head).Is(pdfContentType)
	return io.MultiReader(bytes.NewReader(head), r), ok, nil
}

// List returns documents without exposing repository types.
func (s *documentService) List(ctx context.Context, limit, offset int) ([]model.Document, error) {
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, repository.PageQuery{Limit: limit, Offset: offset})
}

// Get returns a document by ID.
func (s *documentService) Get(ctx context.Context, id string) (*model.Document, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

// Rename updates the display name and returns the refreshed record.
func (s *documentService) Rename(ctx context.Context, id, fileName string) (*model.Document, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	if res := validation.RenameDocument(fileName); !res.OK() {
		return nil, newValidationError(res)
	}
	if err := s.repo.UpdateFileName(ctx, id, strings.TrimSpace(fileName), s.opts.Now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete unlinks the stored file, then deletes the record. A failed unlink
// (including a file that is already gone) is logged and does not stop the
// record from being deleted.
func (s *documentService) Delete(ctx context.Context, id string) error {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, doc.FilePath); err != nil {
		s.opts.Metrics.cleanupFailed()
		logger.FromContext(ctx).Warn("document_file_cleanup_failed",
			zap.String("document_id", doc.ID),
			zap.String("file_path", doc.FilePath),
			zap.Bool("already_missing", errors.Is(err, fs.ErrNotExist)),
			zap.Error(err),
		)
	}

	if err := s.repo.Delete(ctx, doc.ID); err != nil {
		return fmt.Errorf("delete document record: %w", err)
	}
	return nil
}

// Open returns the stored file for streaming; the caller closes it.
func (s *documentService) Open(ctx context.Context, id string) (io.ReadCloser, *model.Document, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, _, err := s.store.Get(ctx, doc.FilePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, ErrFileMissing
		}
		return nil, nil, fmt.Errorf("open stored file: %w", err)
	}
	return rc, doc, nil
}
