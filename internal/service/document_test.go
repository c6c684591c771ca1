package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"testing"
	"time"

	"docvault/internal/model"
	"docvault/internal/repository"
	repoMocks "docvault/internal/repository/mocks"
	"docvault/internal/storage"
	storeMocks "docvault/internal/storage/mocks"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const pdfBody = "%PDF-1.4\n1 0 obj\n<<>>\nendobj\ntrailer\n<<>>\n%%EOF\n"

var fixedNow = time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func strPtr(s string) *string { return &s }

func TestDocumentService_Upload(t *testing.T) {
	ctx := context.Background()
	wantName := fmt.Sprintf("%d-report.pdf", fixedNow.UnixMilli())

	tests := []struct {
		name       string
		in         func() UploadInput
		opts       DocumentOptions
		setupMocks func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository)
		wantErr    error
		wantFields []string
		check      func(t *testing.T, res *UploadResult)
	}{
		{
			name: "registers document for authenticated caller",
			in: func() UploadInput {
				return UploadInput{Reader: strings.NewReader(pdfBody), OriginalName: "report.pdf", Size: int64(len(pdfBody)), OwnerID: strPtr("u-1")}
			},
			opts: DocumentOptions{MaxUploadBytes: 2 << 20, DefaultOwnerID: "u-default"},
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mStore.On("Put", ctx, wantName, mock.Anything, storage.PutObjectOptions{
					Size:        int64(len(pdfBody)),
					ContentType: "application/pdf",
					Metadata:    map[string]string{"original-filename": "report.pdf"},
				}).Return(storage.ObjectInfo{Key: wantName, Location: "/data/" + wantName, Size: int64(len(pdfBody))}, nil)

				mRepo.On("Create", ctx, mock.MatchedBy(func(d *model.Document) bool {
					return d.FilePath == "/data/"+wantName && d.FileName == wantName &&
						d.UserID != nil && *d.UserID == "u-1" && d.CreatedAt.Equal(fixedNow)
				})).Return(&model.Document{ID: "doc-1", FilePath: "/data/" + wantName, FileName: wantName, UserID: strPtr("u-1")}, nil)
			},
			check: func(t *testing.T, res *UploadResult) {
				assert.Equal(t, "/data/"+wantName, res.FilePath)
				assert.Equal(t, wantName, res.FileName)
				require.NotNil(t, res.Document)
				assert.Equal(t, "doc-1", res.Document.ID)
			},
		},
		{
			name: "falls back to default owner",
			in: func() UploadInput {
				return UploadInput{Reader: strings.NewReader(pdfBody), OriginalName: "report.pdf", Size: int64(len(pdfBody))}
			},
			opts: DocumentOptions{DefaultOwnerID: "u-default"},
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mStore.On("Put", ctx, wantName, mock.Anything, mock.Anything).
					Return(storage.ObjectInfo{Location: "/data/" + wantName, Size: int64(len(pdfBody))}, nil)
				mRepo.On("Create", ctx, mock.MatchedBy(func(d *model.Document) bool {
					return d.UserID != nil && *d.UserID == "u-default"
				})).Return(&model.Document{ID: "doc-2"}, nil)
			},
			check: func(t *testing.T, res *UploadResult) {
				require.NotNil(t, res.Document)
				assert.Equal(t, "doc-2", res.Document.ID)
			},
		},
		{
			name: "no owner available skips registration",
			in: func() UploadInput {
				return UploadInput{Reader: strings.NewReader(pdfBody), OriginalName: "report.pdf", Size: int64(len(pdfBody))}
			},
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mStore.On("Put", ctx, wantName, mock.Anything, mock.Anything).
					Return(storage.ObjectInfo{Location: "/data/" + wantName, Size: int64(len(pdfBody))}, nil)
			},
			check: func(t *testing.T, res *UploadResult) {
				assert.Equal(t, "/data/"+wantName, res.FilePath)
				assert.Nil(t, res.Document)
			},
		},
		{
			name: "registration failure still reports success",
			in: func() UploadInput {
				return UploadInput{Reader: strings.NewReader(pdfBody), OriginalName: "report.pdf", Size: int64(len(pdfBody)), OwnerID: strPtr("u-1")}
			},
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mStore.On("Put", ctx, wantName, mock.Anything, mock.Anything).
					Return(storage.ObjectInfo{Location: "/data/" + wantName, Size: int64(len(pdfBody))}, nil)
				mRepo.On("Create", ctx, mock.Anything).Return(nil, errors.New("db fail"))
			},
			check: func(t *testing.T, res *UploadResult) {
				assert.Equal(t, wantName, res.FileName)
				assert.Nil(t, res.Document)
			},
		},
		{
			name:       "missing file",
			in:         func() UploadInput { return UploadInput{} },
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {},
			wantFields: []string{"file is required"},
		},
		{
			name: "wrong extension",
			in: func() UploadInput {
				return UploadInput{Reader: strings.NewReader("hello"), OriginalName: "notes.txt", Size: 5}
			},
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {},
			wantFields: []string{"file extension must be pdf"},
		},
		{
			name: "too large",
			in: func() UploadInput {
				return UploadInput{Reader: strings.NewReader(pdfBody), OriginalName: "big.pdf", Size: 3 << 20}
			},
			opts:       DocumentOptions{MaxUploadBytes: 2 << 20},
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {},
			wantFields: []string{fmt.Sprintf("file must be at most %d bytes", 2<<20)},
		},
		{
			name: "content sniffing rejects non pdf bytes",
			in: func() UploadInput {
				return UploadInput{Reader: strings.NewReader("plain text pretending"), OriginalName: "fake.pdf", Size: 21}
			},
			opts:       DocumentOptions{SniffContent: true},
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {},
			wantFields: []string{"file content is not a PDF document"},
		},
		{
			name: "storage error",
			in: func() UploadInput {
				return UploadInput{Reader: strings.NewReader(pdfBody), OriginalName: "report.pdf", Size: int64(len(pdfBody))}
			},
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mStore.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).
					Return(storage.ObjectInfo{}, errors.New("disk full"))
			},
			wantErr: ErrStoreFailed,
		},
		{
			name: "short write is removed and reported",
			in: func() UploadInput {
				return UploadInput{Reader: strings.NewReader(pdfBody), OriginalName: "report.pdf", Size: int64(len(pdfBody))}
			},
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mStore.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).
					Return(storage.ObjectInfo{Location: "/data/partial.pdf", Size: 3}, nil)
				mStore.On("Delete", ctx, "/data/partial.pdf").Return(nil)
			},
			wantErr: ErrStoreFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mStore := new(storeMocks.MockStorage)
			mRepo := new(repoMocks.MockDocumentRepository)
			opts := tt.opts
			opts.Now = fixedClock
			svc := NewDocumentService(mStore, mRepo, opts)

			tt.setupMocks(mStore, mRepo)

			res, err := svc.Upload(ctx, tt.in())

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, res)
			case tt.wantFields != nil:
				var verr *ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, tt.wantFields, verr.Fields["file"])
			default:
				require.NoError(t, err)
				require.NotNil(t, res)
				if tt.check != nil {
					tt.check(t, res)
				}
			}

			mStore.AssertExpectations(t)
			mRepo.AssertExpectations(t)
		})
	}
}

func TestDocumentService_UploadMetrics(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	metrics, err := NewDocumentMetrics(reg)
	require.NoError(t, err)

	mStore := new(storeMocks.MockStorage)
	mRepo := new(repoMocks.MockDocumentRepository)
	svc := NewDocumentService(mStore, mRepo, DocumentOptions{Metrics: metrics, Now: fixedClock})

	mStore.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).
		Return(storage.ObjectInfo{Location: "/data/x.pdf", Size: int64(len(pdfBody))}, nil)

	_, err = svc.Upload(ctx, UploadInput{Reader: strings.NewReader(pdfBody), OriginalName: "x.pdf", Size: int64(len(pdfBody))})
	require.NoError(t, err)
	_, err = svc.Upload(ctx, UploadInput{Reader: strings.NewReader("x"), OriginalName: "x.doc", Size: 1})
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.uploads.WithLabelValues(uploadUnregistered)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.uploads.WithLabelValues(uploadRejected)))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.uploads.WithLabelValues(uploadRegistered)))

	_, err = NewDocumentMetrics(reg)
	assert.Error(t, err, "registering twice on the same registry must fail")
}

func TestStoredName(t *testing.T) {
	ms := fixedNow.UnixMilli()
	tests := []struct {
		in   string
		want string
	}{
		{"report.pdf", fmt.Sprintf("%d-report.pdf", ms)},
		{"../../etc/passwd.pdf", fmt.Sprintf("%d-passwd.pdf", ms)},
		{`C:\Users\ada\cv.pdf`, fmt.Sprintf("%d-cv.pdf", ms)},
		{"", fmt.Sprintf("%d-document.pdf", ms)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, storedName(fixedNow, tt.in), tt.in)
	}
}

func TestSniffPDFReplaysStream(t *testing.T) {
	r, ok, err := sniffPDF(strings.NewReader(pdfBody))
	require.NoError(t, err)
	assert.True(t, ok)

	b, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, pdfBody, string(b))
}

func TestDocumentService_List(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		limit      int
		offset     int
		setupMocks func(mRepo *repoMocks.MockDocumentRepository)
		wantErr    bool
		wantLen    int
	}{
		{
			name:  "happy path",
			limit: 10,
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("List", ctx, repository.PageQuery{Limit: 10, Offset: 0}).
					Return([]model.Document{{ID: "1"}, {ID: "2"}}, nil)
			},
			wantLen: 2,
		},
		{
			name:   "negative offset is clamped",
			limit:  0,
			offset: -1,
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("List", ctx, repository.PageQuery{Limit: 0, Offset: 0}).
					Return([]model.Document{}, nil)
			},
		},
		{
			name:  "repository error",
			limit: 10,
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("List", ctx, mock.Anything).Return(nil, errors.New("db fail"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mRepo := new(repoMocks.MockDocumentRepository)
			svc := NewDocumentService(nil, mRepo, DocumentOptions{})

			tt.setupMocks(mRepo)

			docs, err := svc.List(ctx, tt.limit, tt.offset)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Len(t, docs, tt.wantLen)
			}
			mRepo.AssertExpectations(t)
		})
	}
}

func TestDocumentService_Get(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		id         string
		setupMocks func(mRepo *repoMocks.MockDocumentRepository)
		wantErr    error
	}{
		{
			name: "happy path",
			id:   "valid-id",
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", ctx, "valid-id").Return(&model.Document{ID: "valid-id"}, nil)
			},
		},
		{
			name:       "validation - empty id",
			id:         "",
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {},
			wantErr:    ErrIDRequired,
		},
		{
			name: "not found - mapping sql.ErrNoRows",
			id:   "missing-id",
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", ctx, "missing-id").Return(nil, sql.ErrNoRows)
			},
			wantErr: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mRepo := new(repoMocks.MockDocumentRepository)
			svc := NewDocumentService(nil, mRepo, DocumentOptions{})

			tt.setupMocks(mRepo)

			doc, err := svc.Get(ctx, tt.id)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, doc)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.id, doc.ID)
			}
			mRepo.AssertExpectations(t)
		})
	}
}

func TestDocumentService_Rename(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path returns refreshed record", func(t *testing.T) {
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := NewDocumentService(nil, mRepo, DocumentOptions{Now: fixedClock})

		mRepo.On("UpdateFileName", ctx, "doc-1", "Quarterly.pdf", fixedNow).Return(nil)
		mRepo.On("FindByID", ctx, "doc-1").Return(&model.Document{ID: "doc-1", FileName: "Quarterly.pdf", UpdatedAt: fixedNow}, nil)

		doc, err := svc.Rename(ctx, "doc-1", "  Quarterly.pdf ")
		require.NoError(t, err)
		assert.Equal(t, "Quarterly.pdf", doc.FileName)
		mRepo.AssertExpectations(t)
	})

	t.Run("blank name is rejected", func(t *testing.T) {
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := NewDocumentService(nil, mRepo, DocumentOptions{})

		_, err := svc.Rename(ctx, "doc-1", "   ")
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields, "fileName")
		mRepo.AssertNotCalled(t, "UpdateFileName", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing document", func(t *testing.T) {
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := NewDocumentService(nil, mRepo, DocumentOptions{Now: fixedClock})

		mRepo.On("UpdateFileName", ctx, "nope", "a.pdf", fixedNow).Return(sql.ErrNoRows)

		_, err := svc.Rename(ctx, "nope", "a.pdf")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestDocumentService_Delete(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		id         string
		setupMocks func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository)
		wantErr    error
		wantErrMsg string
	}{
		{
			name: "happy path",
			id:   "valid-id",
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", ctx, "valid-id").Return(&model.Document{ID: "valid-id", FilePath: "/data/obj.pdf"}, nil)
				mStore.On("Delete", ctx, "/data/obj.pdf").Return(nil)
				mRepo.On("Delete", ctx, "valid-id").Return(nil)
			},
		},
		{
			name:       "validation - empty id",
			id:         "",
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {},
			wantErr:    ErrIDRequired,
		},
		{
			name: "not found",
			id:   "missing-id",
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", ctx, "missing-id").Return(nil, sql.ErrNoRows)
			},
			wantErr: ErrNotFound,
		},
		{
			name: "file already gone still deletes record",
			id:   "orphan-file",
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", ctx, "orphan-file").Return(&model.Document{ID: "orphan-file", FilePath: "/data/gone.pdf"}, nil)
				mStore.On("Delete", ctx, "/data/gone.pdf").Return(fs.ErrNotExist)
				mRepo.On("Delete", ctx, "orphan-file").Return(nil)
			},
		},
		{
			name: "storage delete error is swallowed",
			id:   "storage-fail-id",
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", ctx, "storage-fail-id").Return(&model.Document{ID: "storage-fail-id", FilePath: "path"}, nil)
				mStore.On("Delete", ctx, "path").Return(errors.New("permission denied"))
				mRepo.On("Delete", ctx, "storage-fail-id").Return(nil)
			},
		},
		{
			name: "repository delete error",
			id:   "repo-fail-id",
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", ctx, "repo-fail-id").Return(&model.Document{ID: "repo-fail-id", FilePath: "path"}, nil)
				mStore.On("Delete", ctx, "path").Return(nil)
				mRepo.On("Delete", ctx, "repo-fail-id").Return(errors.New("db fail"))
			},
			wantErrMsg: "delete document record: db fail",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mStore := new(storeMocks.MockStorage)
			mRepo := new(repoMocks.MockDocumentRepository)
			svc := NewDocumentService(mStore, mRepo, DocumentOptions{})

			tt.setupMocks(mStore, mRepo)

			err := svc.Delete(ctx, tt.id)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantErrMsg != "":
				assert.EqualError(t, err, tt.wantErrMsg)
			default:
				assert.NoError(t, err)
			}
			mStore.AssertExpectations(t)
			mRepo.AssertExpectations(t)
		})
	}
}

func TestDocumentService_DeleteCountsCleanupFailures(t *testing.T) {
	ctx := context.Background()
	metrics, err := NewDocumentMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	mStore := new(storeMocks.MockStorage)
	mRepo := new(repoMocks.MockDocumentRepository)
	svc := NewDocumentService(mStore, mRepo, DocumentOptions{Metrics: metrics})

	mRepo.On("FindByID", ctx, "d").Return(&model.Document{ID: "d", FilePath: "p"}, nil)
	mStore.On("Delete", ctx, "p").Return(fs.ErrNotExist)
	mRepo.On("Delete", ctx, "d").Return(nil)

	require.NoError(t, svc.Delete(ctx, "d"))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cleanupFailures))
}

func TestDocumentService_Open(t *testing.T) {
	ctx := context.Background()

	t.Run("streams stored file", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := NewDocumentService(mStore, mRepo, DocumentOptions{})

		mRepo.On("FindByID", ctx, "d").Return(&model.Document{ID: "d", FilePath: "/data/a.pdf"}, nil)
		mStore.On("Get", ctx, "/data/a.pdf").Return(io.NopCloser(strings.NewReader(pdfBody)), storage.ObjectInfo{}, nil)

		rc, doc, err := svc.Open(ctx, "d")
		require.NoError(t, err)
		defer rc.Close()
		b, _ := io.ReadAll(rc)
		assert.Equal(t, pdfBody, string(b))
		assert.Equal(t, "d", doc.ID)
	})

	t.Run("missing file", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := NewDocumentService(mStore, mRepo, DocumentOptions{})

		mRepo.On("FindByID", ctx, "d").Return(&model.Document{ID: "d", FilePath: "/data/a.pdf"}, nil)
		mStore.On("Get", ctx, "/data/a.pdf").Return(nil, storage.ObjectInfo{}, fmt.Errorf("open: %w", fs.ErrNotExist))

		_, _, err := svc.Open(ctx, "d")
		assert.ErrorIs(t, err, ErrFileMissing)
	})
}

// TestDocumentService_LocalStorageRoundTrip exercises the service against the
// filesystem backend on an in-memory afero filesystem.
func TestDocumentService_LocalStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	memfs := afero.NewMemMapFs()
	store, err := storage.NewLocal(memfs, "/srv/uploads")
	require.NoError(t, err)

	mRepo := new(repoMocks.MockDocumentRepository)
	svc := NewDocumentService(store, mRepo, DocumentOptions{
		MaxUploadBytes: 2 << 20,
		DefaultOwnerID: "u-1",
		SniffContent:   true,
		Now:            fixedClock,
	})

	wantPath := fmt.Sprintf("/srv/uploads/%d-invoice.pdf", fixedNow.UnixMilli())
	mRepo.On("Create", ctx, mock.Anything).Return(&model.Document{ID: "doc-1", FilePath: wantPath}, nil)

	res, err := svc.Upload(ctx, UploadInput{Reader: strings.NewReader(pdfBody), OriginalName: "invoice.pdf", Size: int64(len(pdfBody))})
	require.NoError(t, err)
	assert.Equal(t, wantPath, res.FilePath)

	b, err := afero.ReadFile(memfs, wantPath)
	require.NoError(t, err)
	assert.Equal(t, pdfBody, string(b))

	mRepo.On("FindByID", ctx, "doc-1").Return(&model.Document{ID: "doc-1", FilePath: wantPath}, nil)
	mRepo.On("Delete", ctx, "doc-1").Return(nil)
	require.NoError(t, svc.Delete(ctx, "doc-1"))

	exists, err := afero.Exists(memfs, wantPath)
	require.NoError(t, err)
	assert.False(t, exists)
	mRepo.AssertExpectations(t)
}
