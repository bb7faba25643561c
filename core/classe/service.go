package classe

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/kia/core"
)

var (
	// errors
	ErrNotFound = errors.New("class not found")

	errNameExists = "a class with this name already exists"
)

type (
	Repository interface {
		CreateClasse(ctx context.Context, cls Classe) (Classe, error)
		// QueryClasses returns every class with its student and subject counts.
		QueryClasses(ctx context.Context, ordering []core.DBOrdering) ([]Classe, error)
		CountClasses(ctx context.Context) (int, error)
		GetClasse(ctx context.Context, id int) (Classe, error)
		GetClasseByName(ctx context.Context, name string) (Classe, error)
		UpdateClasse(ctx context.Context, cls Classe) (Classe, error)
		// DeleteClasse un-assigns the class students and deletes its subjects and attendance.
		DeleteClasse(ctx context.Context, id int) error
	}

	Service interface {
		CheckNameUniqueness(ctx context.Context, name string, excludedID ...int) error
		Create(ctx context.Context, nc NewClasse) (Classe, error)
		Query(ctx context.Context, ordering []core.DBOrdering) ([]Classe, error)
		Count(ctx context.Context) (int, error)
		GetByID(ctx context.Context, id int) (Classe, error)
		GetByName(ctx context.Context, name string) (Classe, error)
		Update(ctx context.Context, cls Classe, data NewClasse) (Classe, error)
		Delete(ctx context.Context, id int) error
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) CheckNameUniqueness(ctx context.Context, name string, excludedID ...int) error {
	cls, err := svc.repo.GetClasseByName(ctx, name)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return nil
		}
		return errors.Wrap(err, "checking class name")
	}
	if len(excludedID) > 0 && cls.ID == excludedID[0] {
		return nil
	}
	return core.NewFieldValidationError("name", errNameExists)
}

func (svc *service) Create(ctx context.Context, nc NewClasse) (Classe, error) {
	cls, err := svc.repo.CreateClasse(ctx, Classe{
		Name:        nc.Name,
		Description: nc.Description,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return Classe{}, errors.Wrap(err, "creating class")
	}
	return cls, nil
}

func (svc *service) Query(ctx context.Context, ordering []core.DBOrdering) ([]Classe, error) {
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "name", Ascending: true}}
	}
	return svc.repo.QueryClasses(ctx, ordering)
}

func (svc *service) Count(ctx context.Context) (int, error) {
	return svc.repo.CountClasses(ctx)
}

func (svc *service) GetByID(ctx context.Context, id int) (Classe, error) {
	return svc.repo.GetClasse(ctx, id)
}

func (svc *service) GetByName(ctx context.Context, name string) (Classe, error) {
	return svc.repo.GetClasseByName(ctx, core.CleanString(name))
}

func (svc *service) Update(ctx context.Context, cls Classe, data NewClasse) (Classe, error) {
	cls.Name = data.Name
	cls.Description = data.Description
	return svc.repo.UpdateClasse(ctx, cls)
}

func (svc *service) Delete(ctx context.Context, id int) error {
	return svc.repo.DeleteClasse(ctx, id)
}
