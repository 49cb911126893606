package core

import (
	"context"

	"tutorcore/pkg/domain"
)

// StudentCatalog manages student records and the per-student theme view.
type StudentCatalog struct {
	store domain.PersistentStore
	serviceOptions
}

// NewStudentCatalog constructs a catalog over the injected store.
func NewStudentCatalog(store domain.PersistentStore, opts ...ServiceOption) *StudentCatalog {
	return &StudentCatalog{store: store, serviceOptions: newServiceOptions(opts)}
}

// ListStudents returns every student ordered by full name.
func (c *StudentCatalog) ListStudents(ctx context.Context) ([]domain.Student, error) {
	out := make([]domain.Student, 0)
	err := c.run(ctx, opListStudents, func(ctx context.Context) (string, error) {
		return "", c.store.View(ctx, func(v domain.TransactionView) error {
			students, err := v.ListStudents()
			if err != nil {
				return err
			}
			out = append(out, students...)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListStudentThemeViews returns, per student, the names of every theme of the
// student's grade. Students whose grade has no themes get an empty list.
func (c *StudentCatalog) ListStudentThemeViews(ctx context.Context) ([]domain.StudentThemeView, error) {
	var rows []domain.StudentThemeRow
	err := c.run(ctx, opListStudentThemeViews, func(ctx context.Context) (string, error) {
		return "", c.store.View(ctx, func(v domain.TransactionView) error {
			var err error
			rows, err = v.StudentThemeRows()
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	groups := GroupRows(rows,
		func(r domain.StudentThemeRow) int64 { return r.StudentID },
		func(r domain.StudentThemeRow) string { return r.FullName },
		func(r domain.StudentThemeRow) (string, bool) {
			if r.ThemeName == nil {
				return "", false
			}
			return *r.ThemeName, true
		},
	)
	views := make([]domain.StudentThemeView, 0, len(groups))
	for _, g := range groups {
		views = append(views, domain.StudentThemeView{StudentID: g.Key, FullName: g.Parent, ThemeNames: g.Children})
	}
	return views, nil
}

// GetStudent returns the student with id or domain.ErrNotFound.
func (c *StudentCatalog) GetStudent(ctx context.Context, id int64) (domain.Student, error) {
	var st domain.Student
	err := c.run(ctx, opGetStudent, func(ctx context.Context) (string, error) {
		return formatID(id), c.store.View(ctx, func(v domain.TransactionView) error {
			var err error
			st, err = v.GetStudent(id)
			return err
		})
	})
	return st, err
}

// AddStudent parses raw text of the form "Вася Пупкин 6 класс [notes]" and
// stores the student. The returned entity has no ID.
func (c *StudentCatalog) AddStudent(ctx context.Context, raw string) (domain.Student, error) {
	var st domain.Student
	err := c.run(ctx, opAddStudent, func(ctx context.Context) (string, error) {
		parsed, err := ParseStudentAddition(raw)
		if err != nil {
			return "", err
		}
		err = c.withLock(ctx, LockKeyStudents, func() error {
			return c.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
				return tx.InsertStudent(parsed)
			})
		})
		if err != nil {
			return "", err
		}
		st = parsed
		return "", nil
	})
	if err != nil {
		return domain.Student{}, err
	}
	return st, nil
}

// DeleteStudent removes the student with id. Deleting an absent id succeeds.
func (c *StudentCatalog) DeleteStudent(ctx context.Context, id int64) error {
	return c.run(ctx, opDeleteStudent, func(ctx context.Context) (string, error) {
		return formatID(id), c.withLock(ctx, LockKeyStudents, func() error {
			return c.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
				return tx.DeleteStudent(id)
			})
		})
	})
}
