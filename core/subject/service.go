package subject

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/kia/core"
	"github.com/trezcool/kia/core/classe"
)

var (
	// errors
	ErrNotFound = errors.New("subject not found")

	errInvalidClass = "select a valid class"
	errNameExists   = "this class already has a subject with this name"
)

type (
	Repository interface {
		CreateSubject(ctx context.Context, sub Subject) (Subject, error)
		// QuerySubjects returns subjects with their class name and material count.
		QuerySubjects(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Subject, error)
		CountSubjects(ctx context.Context, filter *QueryFilter) (int, error)
		GetSubject(ctx context.Context, id int) (Subject, error)
		GetSubjectByName(ctx context.Context, classID int, name string) (Subject, error)
		UpdateSubject(ctx context.Context, sub Subject) (Subject, error)
		// DeleteSubject also deletes the subject materials.
		DeleteSubject(ctx context.Context, id int) error
	}

	Service interface {
		CheckClass(ctx context.Context, classID int) error
		CheckNameUniqueness(ctx context.Context, classID int, name string, excludedID ...int) error
		Create(ctx context.Context, ns NewSubject) (Subject, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Subject, error)
		Count(ctx context.Context, filter *QueryFilter) (int, error)
		GetByID(ctx context.Context, id int) (Subject, error)
		GetByName(ctx context.Context, classID int, name string) (Subject, error)
		Update(ctx context.Context, sub Subject, ns NewSubject) (Subject, error)
		Delete(ctx context.Context, id int) error
	}

	service struct {
		repo   Repository
		clsSvc classe.Service
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, clsSvc classe.Service) Service {
	return &service{repo: repo, clsSvc: clsSvc}
}

func (svc *service) CheckClass(ctx context.Context, classID int) error {
	if _, err := svc.clsSvc.GetByID(ctx, classID); err != nil {
		if errors.Cause(err) == classe.ErrNotFound {
			return core.NewFieldValidationError("class_id", errInvalidClass)
		}
		return errors.Wrap(err, "finding class")
	}
	return nil
}

func (svc *service) CheckNameUniqueness(ctx context.Context, classID int, name string, excludedID ...int) error {
	sub, err := svc.repo.GetSubjectByName(ctx, classID, name)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return nil
		}
		return errors.Wrap(err, "checking subject name")
	}
	if len(excludedID) > 0 && sub.ID == excludedID[0] {
		return nil
	}
	return core.NewFieldValidationError("name", errNameExists)
}

func (svc *service) Create(ctx context.Context, ns NewSubject) (Subject, error) {
	sub, err := svc.repo.CreateSubject(ctx, Subject{
		ClassID:     ns.ClassID,
		Name:        ns.Name,
		Description: ns.Description,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return Subject{}, errors.Wrap(err, "creating subject")
	}
	return sub, nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Subject, error) {
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "class_id", Ascending: true}, {Field: "name", Ascending: true}}
	}
	return svc.repo.QuerySubjects(ctx, filter, ordering)
}

func (svc *service) Count(ctx context.Context, filter *QueryFilter) (int, error) {
	return svc.repo.CountSubjects(ctx, filter)
}

func (svc *service) GetByID(ctx context.Context, id int) (Subject, error) {
	return svc.repo.GetSubject(ctx, id)
}

func (svc *service) GetByName(ctx context.Context, classID int, name string) (Subject, error) {
	return svc.repo.GetSubjectByName(ctx, classID, core.CleanString(name))
}

func (svc *service) Update(ctx context.Context, sub Subject, ns NewSubject) (Subject, error) {
	sub.Name = ns.Name
	sub.Description = ns.Description
	sub.ClassID = ns.ClassID
	return svc.repo.UpdateSubject(ctx, sub)
}

func (svc *service) Delete(ctx context.Context, id int) error {
	return svc.repo.DeleteSubject(ctx, id)
}
