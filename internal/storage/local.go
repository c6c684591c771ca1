package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Local stores objects as files in a single content directory.
// Writes go to a temporary file that is renamed into place, so a reader never
// observes a partially written document.
type Local struct {
	fs   afero.Fs
	root string
}

// NewLocal prepares dir (created if missing) on fs. dir is made absolute so
// stored locations do not depend on the working directory.
func NewLocal(fs afero.Fs, dir string) (*Local, error) {
	if dir == "" {
		return nil, fmt.Errorf("upload directory is required")
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve upload directory: %w", err)
	}
	if err := fs.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &Local{fs: fs, root: root}, nil
}

var _ Storage = (*Local)(nil)

// Root returns the absolute content directory.
func (l *Local) Root() string { return l.root }

// Put streams r into root/key, overwriting an existing file.
func (l *Local) Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error) {
	dest, err := l.resolve(key)
	if err != nil {
		return ObjectInfo{}, err
	}

	tmp, err := afero.TempFile(l.fs, l.root, ".upload-*")
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(tmp, h), &ctxReader{ctx: ctx, r: r})
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = l.fs.Remove(tmpName)
		return ObjectInfo{}, fmt.Errorf("write %s: %w", key, err)
	}

	if err := l.fs.Rename(tmpName, dest); err != nil {
		_ = l.fs.Remove(tmpName)
		return ObjectInfo{}, fmt.Errorf("move %s into place: %w", key, err)
	}

	st, err := l.fs.Stat(dest)
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("stat %s after write: %w", key, err)
	}

	return ObjectInfo{
		Key:          filepath.Base(dest),
		Location:     dest,
		Size:         n,
		ETag:         hex.EncodeToString(h.Sum(nil)),
		ContentType:  opt.ContentType,
		LastModified: st.ModTime(),
		Metadata:     opt.Metadata,
	}, nil
}

// Get opens the stored file.
func (l *Local) Get(ctx context.Context, ref string) (io.ReadCloser, ObjectInfo, error) {
	info, err := l.Stat(ctx, ref)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	f, err := l.fs.Open(info.Location)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	return f, info, nil
}

// Stat reports the stored file's size and modification time.
func (l *Local) Stat(_ context.Context, ref string) (ObjectInfo, error) {
	p, err := l.resolve(ref)
	if err != nil {
		return ObjectInfo{}, err
	}
	st, err := l.fs.Stat(p)
	if err != nil {
		return ObjectInfo{}, err
	}
	return ObjectInfo{
		Key:          filepath.Base(p),
		Location:     p,
		Size:         st.Size(),
		LastModified: st.ModTime(),
	}, nil
}

// Delete unlinks the stored file.
func (l *Local) Delete(_ context.Context, ref string) error {
	p, err := l.resolve(ref)
	if err != nil {
		return err
	}
	return l.fs.Remove(p)
}

// resolve maps a key or an absolute location to a path inside root.
func (l *Local) resolve(ref string) (string, error) {
	if ref == "" {
		return "", fmt.Errorf("empty object reference")
	}
	p := ref
	if !filepath.IsAbs(p) {
		p = filepath.Join(l.root, p)
	}
	p = filepath.Clean(p)
	rel, err := filepath.Rel(l.root, p)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s: %w", ref, ErrOutsideRoot)
	}
	return p, nil
}

// ctxReader stops a copy once the request context is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
