package filestore

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/kia/core"
)

// LocalStorage keeps files under a directory served by the API at urlPrefix.
type LocalStorage struct {
	dir       string
	urlPrefix string
	maxSize   int64
}

var _ core.FileStorage = (*LocalStorage)(nil)

func NewLocalStorage(conf *core.Config) *LocalStorage {
	return &LocalStorage{
		dir:       conf.Storage.UploadDir,
		urlPrefix: "/" + strings.Trim(conf.Storage.URLPrefix, "/"),
		maxSize:   conf.Storage.MaxUploadSize,
	}
}

func (s *LocalStorage) Dir() string       { return s.dir }
func (s *LocalStorage) URLPrefix() string { return s.urlPrefix }

func (s *LocalStorage) Save(_ context.Context, folder string, upload core.Upload) (string, error) {
	key := objectKey(folder, upload.Filename)
	fp := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(fp), 0o755); err != nil {
		return "", errors.Wrap(err, "creating upload folder")
	}

	f, err := os.Create(fp)
	if err != nil {
		return "", errors.Wrap(err, "creating file")
	}
	defer f.Close()

	r := upload.Content
	if s.maxSize > 0 {
		r = io.LimitReader(r, s.maxSize+1)
	}
	n, err := io.Copy(f, r)
	if err == nil && s.maxSize > 0 && n > s.maxSize {
		err = errFileTooLarge
	}
	if err != nil {
		_ = f.Close()
		_ = os.Remove(fp)
		if err == errFileTooLarge {
			return "", core.NewFieldValidationError("file", err.Error())
		}
		return "", errors.Wrap(err, "writing file")
	}
	return s.urlPrefix + "/" + key, nil
}

func (s *LocalStorage) Delete(_ context.Context, url string) (bool, error) {
	idx := strings.Index(url, s.urlPrefix+"/")
	if idx < 0 {
		return false, nil
	}
	key := path.Clean(url[idx+len(s.urlPrefix)+1:])
	if strings.HasPrefix(key, "..") {
		return false, nil
	}
	if err := os.Remove(filepath.Join(s.dir, filepath.FromSlash(key))); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrap(err, "removing file")
	}
	return true, nil
}

var errFileTooLarge = errors.New("file is too large")

// objectKey is <folder>/<random hex><lowercased ext>.
func objectKey(folder, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	name := strings.ReplaceAll(uuid.NewString(), "-", "") + ext
	return path.Join(strings.Trim(folder, "/"), name)
}
