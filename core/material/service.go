package material

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kia/core"
	"github.com/trezcool/kia/core/subject"
)

var (
	// errors
	ErrNotFound = errors.New("material not found")

	errInvalidSubject = "select a valid subject"
)

type (
	Repository interface {
		CreateMaterial(ctx context.Context, mat Material) (Material, error)
		QueryMaterials(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Material, error)
		GetMaterial(ctx context.Context, id int) (Material, error)
		UpdateMaterial(ctx context.Context, mat Material) (Material, error)
		DeleteMaterial(ctx context.Context, id int) error
	}

	Service interface {
		CheckSubject(ctx context.Context, subjectID int) error
		Create(ctx context.Context, nm NewMaterial, upload *core.Upload) (Material, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Material, error)
		GetByID(ctx context.Context, id int) (Material, error)
		Update(ctx context.Context, mat Material, nm NewMaterial, upload *core.Upload) (Material, error)
		Delete(ctx context.Context, mat Material) error
		// DeleteForSubject removes every material of a subject with its files.
		DeleteForSubject(ctx context.Context, subjectID int) error
		// FixFileURLs prefixes relative upload URLs with baseURL and returns the number of fixed materials.
		FixFileURLs(ctx context.Context, baseURL string) (int, error)
	}

	service struct {
		repo        Repository
		subSvc      subject.Service
		storage     core.FileStorage
		allowedExts []string
		urlPrefix   string
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, subSvc subject.Service, storage core.FileStorage, conf *core.Config) Service {
	return &service{
		repo:        repo,
		subSvc:      subSvc,
		storage:     storage,
		allowedExts: conf.Storage.AllowedExtensions,
		urlPrefix:   conf.Storage.URLPrefix,
	}
}

func (svc *service) CheckSubject(ctx context.Context, subjectID int) error {
	if _, err := svc.subSvc.GetByID(ctx, subjectID); err != nil {
		if errors.Cause(err) == subject.ErrNotFound {
			return core.NewFieldValidationError("subject_id", errInvalidSubject)
		}
		return errors.Wrap(err, "finding subject")
	}
	return nil
}

func (svc *service) saveFile(ctx context.Context, subjectID int, upload core.Upload) (string, error) {
	if !core.HasAllowedExtension(upload.Filename, svc.allowedExts) {
		return "", core.NewFieldValidationError(
			"file", fmt.Sprintf("file type not allowed, use one of: %s", strings.Join(svc.allowedExts, ", ")))
	}
	url, err := svc.storage.Save(ctx, fmt.Sprintf("materials/%d", subjectID), upload)
	if err != nil {
		return "", errors.Wrap(err, "saving material file")
	}
	return url, nil
}

func (svc *service) deleteFile(ctx context.Context, url null.String) error {
	if !url.Valid || url.String == "" {
		return nil
	}
	_, err := svc.storage.Delete(ctx, url.String)
	return errors.Wrap(err, "deleting material file")
}

func (svc *service) Create(ctx context.Context, nm NewMaterial, upload *core.Upload) (Material, error) {
	mat := Material{
		SubjectID:  nm.SubjectID,
		Title:      nm.Title,
		Type:       nm.Type,
		OrderIndex: nm.OrderIndex,
		CreatedAt:  time.Now().UTC(),
	}
	switch nm.Type {
	case TypeVideo:
		mat.VideoURL = null.StringFrom(nm.VideoURL)
	case TypeFile:
		if upload != nil {
			url, err := svc.saveFile(ctx, nm.SubjectID, *upload)
			if err != nil {
				return Material{}, err
			}
			mat.FileURL = null.StringFrom(url)
		}
	}

	mat, err := svc.repo.CreateMaterial(ctx, mat)
	if err != nil {
		return Material{}, errors.Wrap(err, "creating material")
	}
	return mat, nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Material, error) {
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "subject_id", Ascending: true}, {Field: "order_index", Ascending: true}}
	}
	return svc.repo.QueryMaterials(ctx, filter, ordering)
}

func (svc *service) GetByID(ctx context.Context, id int) (Material, error) {
	return svc.repo.GetMaterial(ctx, id)
}

// Update saves validated changes on mat. Switching to a video, or uploading a
// new file, removes the previous file.
func (svc *service) Update(ctx context.Context, mat Material, nm NewMaterial, upload *core.Upload) (Material, error) {
	oldFile := mat.FileURL
	var dropOld bool

	mat.Title = nm.Title
	mat.Type = nm.Type
	mat.SubjectID = nm.SubjectID
	mat.OrderIndex = nm.OrderIndex

	switch nm.Type {
	case TypeVideo:
		mat.VideoURL = null.StringFrom(nm.VideoURL)
		mat.FileURL = null.String{}
		dropOld = true
	case TypeFile:
		mat.VideoURL = null.String{}
		if upload != nil {
			url, err := svc.saveFile(ctx, nm.SubjectID, *upload)
			if err != nil {
				return Material{}, err
			}
			mat.FileURL = null.StringFrom(url)
			dropOld = true
		}
	}

	mat, err := svc.repo.UpdateMaterial(ctx, mat)
	if err != nil {
		return Material{}, errors.Wrap(err, "updating material")
	}
	if dropOld {
		if err := svc.deleteFile(ctx, oldFile); err != nil {
			return mat, err
		}
	}
	return mat, nil
}

func (svc *service) Delete(ctx context.Context, mat Material) error {
	if err := svc.repo.DeleteMaterial(ctx, mat.ID); err != nil {
		return err
	}
	return svc.deleteFile(ctx, mat.FileURL)
}

func (svc *service) DeleteForSubject(ctx context.Context, subjectID int) error {
	mats, err := svc.repo.QueryMaterials(ctx, &QueryFilter{SubjectID: subjectID}, nil)
	if err != nil {
		return errors.Wrap(err, "querying materials")
	}
	for _, mat := range mats {
		if err := svc.Delete(ctx, mat); err != nil {
			return err
		}
	}
	return nil
}

func (svc *service) FixFileURLs(ctx context.Context, baseURL string) (int, error) {
	baseURL = strings.TrimRight(core.CleanString(baseURL), "/")
	if baseURL == "" {
		return 0, errors.New("base URL is required")
	}
	prefix := "/" + strings.Trim(svc.urlPrefix, "/") + "/"

	mats, err := svc.repo.QueryMaterials(ctx, nil, nil)
	if err != nil {
		return 0, errors.Wrap(err, "querying materials")
	}
	var fixed int
	for _, mat := range mats {
		if !mat.FileURL.Valid || !strings.HasPrefix(mat.FileURL.String, prefix) {
			continue
		}
		mat.FileURL = null.StringFrom(baseURL + mat.FileURL.String)
		if _, err := svc.repo.UpdateMaterial(ctx, mat); err != nil {
			return fixed, errors.Wrapf(err, "updating material %d", mat.ID)
		}
		fixed++
	}
	return fixed, nil
}
