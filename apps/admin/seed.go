package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/kia/core/classe"
	"github.com/trezcool/kia/core/subject"
)

type seedClasse struct {
	name        string
	description string
	subjects    []string
}

var seedClasses = []seedClasse{
	{name: "KG1", description: "Kindergarten, first year", subjects: []string{"Arabic", "English", "Mathematics", "Islamic Studies"}},
	{name: "KG2", description: "Kindergarten, second year", subjects: []string{"Arabic", "English", "Mathematics", "Islamic Studies"}},
	{name: "Grade 1", description: "Primary, first grade", subjects: []string{"Arabic", "English", "Mathematics", "Science", "Islamic Studies"}},
	{name: "Grade 2", description: "Primary, second grade", subjects: []string{"Arabic", "English", "Mathematics", "Science", "Islamic Studies"}},
}

// seed creates the sample classes and subjects that do not exist yet.
func (cli *commandLine) seed() error {
	ctx := context.Background()
	var nClasses, nSubjects int

	for _, sc := range seedClasses {
		cls, err := cli.clsSvc.GetByName(ctx, sc.name)
		if err != nil {
			if errors.Cause(err) != classe.ErrNotFound {
				return errors.Wrapf(err, "finding class %q", sc.name)
			}
			if cls, err = cli.clsSvc.Create(ctx, classe.NewClasse{Name: sc.name, Description: sc.description}); err != nil {
				return err
			}
			nClasses++
		}

		for _, name := range sc.subjects {
			if _, err := cli.subSvc.GetByName(ctx, cls.ID, name); err == nil {
				continue
			} else if errors.Cause(err) != subject.ErrNotFound {
				return errors.Wrapf(err, "finding subject %q", name)
			}
			if _, err := cli.subSvc.Create(ctx, subject.NewSubject{Name: name, ClassID: cls.ID}); err != nil {
				return err
			}
			nSubjects++
		}
	}

	fmt.Fprintf(cli.out, "%d classes and %d subjects created\n", nClasses, nSubjects)
	return nil
}
