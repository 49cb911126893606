package core

import (
	"context"
	"fmt"

	"tutorcore/pkg/domain"
)

// ThemeCatalog manages grade-scoped themes and the dictations that hang off them.
type ThemeCatalog struct {
	store domain.PersistentStore
	serviceOptions
}

// NewThemeCatalog constructs a catalog over the injected store.
func NewThemeCatalog(store domain.PersistentStore, opts ...ServiceOption) *ThemeCatalog {
	return &ThemeCatalog{store: store, serviceOptions: newServiceOptions(opts)}
}

// duplicateThemeError builds the rejection for an existing (grade, name) pair.
func duplicateThemeError(grade, name string) *domain.DuplicateError {
	return &domain.DuplicateError{
		Grade:   grade,
		Name:    name,
		Message: fmt.Sprintf("Ошибка!\nТакая тема для %s класса уже есть\n\nВведите другую тему, или нажмите /cancel", grade),
	}
}

// ValidateGradeLabel reports whether raw is a grade label such as "6 класс".
func (c *ThemeCatalog) ValidateGradeLabel(raw string) error {
	return ValidateGradeLabel(raw)
}

// ListGradeThemeViews groups every theme by grade. Grades appear in numeric
// order of their prefix and themes by name within a grade.
func (c *ThemeCatalog) ListGradeThemeViews(ctx context.Context) ([]domain.GradeThemeView, error) {
	var rows []domain.Theme
	err := c.run(ctx, opListGradeThemeViews, func(ctx context.Context) (string, error) {
		return "", c.store.View(ctx, func(v domain.TransactionView) error {
			var err error
			rows, err = v.GradeThemeRows()
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	groups := GroupRows(rows,
		func(t domain.Theme) string { return t.Grade },
		func(t domain.Theme) string { return t.Grade },
		func(t domain.Theme) (domain.ThemeEntry, bool) {
			if t.ID == nil {
				return domain.ThemeEntry{}, false
			}
			return domain.ThemeEntry{Name: t.Name, ID: *t.ID}, true
		},
	)
	views := make([]domain.GradeThemeView, 0, len(groups))
	for _, g := range groups {
		views = append(views, domain.GradeThemeView{Grade: g.Parent, Themes: g.Children})
	}
	return views, nil
}

// GetTheme returns the theme with id or domain.ErrNotFound.
func (c *ThemeCatalog) GetTheme(ctx context.Context, id int64) (domain.Theme, error) {
	var th domain.Theme
	err := c.run(ctx, opGetTheme, func(ctx context.Context) (string, error) {
		return formatID(id), c.store.View(ctx, func(v domain.TransactionView) error {
			var err error
			th, err = v.GetTheme(id)
			return err
		})
	})
	return th, err
}

// AddTheme stores a new theme for grade unless the (grade, name) pair exists.
// The check and the insert share one transaction.
func (c *ThemeCatalog) AddTheme(ctx context.Context, grade, name string) (domain.Theme, error) {
	var out domain.Theme
	err := c.run(ctx, opAddTheme, func(ctx context.Context) (string, error) {
		g, err := normalizeGradeLabel(grade)
		if err != nil {
			return "", err
		}
		n, err := ParseThemeName(name)
		if err != nil {
			return "", err
		}
		theme := domain.Theme{Grade: g, Name: n}
		err = c.withLock(ctx, LockKeyThemes, func() error {
			return c.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
				pairs, err := tx.ThemePairs()
				if err != nil {
					return err
				}
				for _, p := range pairs {
					if p == theme.Key() {
						return duplicateThemeError(g, n)
					}
				}
				return tx.InsertTheme(theme)
			})
		})
		if err != nil {
			return "", err
		}
		out = theme
		return "", nil
	})
	if err != nil {
		return domain.Theme{}, err
	}
	return out, nil
}

// RenameTheme changes the name of theme id and returns the stored row. The new
// name must not collide with another theme of the same grade.
func (c *ThemeCatalog) RenameTheme(ctx context.Context, id int64, newName string) (domain.Theme, error) {
	var out domain.Theme
	err := c.run(ctx, opRenameTheme, func(ctx context.Context) (string, error) {
		name, err := ParseThemeName(newName)
		if err != nil {
			return formatID(id), err
		}
		return formatID(id), c.withLock(ctx, LockKeyThemes, func() error {
			return c.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
				current, err := tx.GetTheme(id)
				if err != nil {
					return err
				}
				if current.Name == name {
					out = current
					return nil
				}
				pairs, err := tx.ThemePairs()
				if err != nil {
					return err
				}
				target := domain.ThemeKey{Grade: current.Grade, Name: name}
				for _, p := range pairs {
					if p == target {
						return duplicateThemeError(current.Grade, name)
					}
				}
				out, err = tx.UpdateThemeName(id, name)
				return err
			})
		})
	})
	if err != nil {
		return domain.Theme{}, err
	}
	return out, nil
}

// DeleteTheme removes theme id and every dictation attached to it in one
// transaction. Deleting an absent id succeeds.
func (c *ThemeCatalog) DeleteTheme(ctx context.Context, id int64) error {
	return c.run(ctx, opDeleteTheme, func(ctx context.Context) (string, error) {
		var removed int64
		err := c.withLock(ctx, LockKeyThemes, func() error {
			return c.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
				if err := tx.DeleteTheme(id); err != nil {
					return err
				}
				n, err := tx.DeleteDictationsByTheme(id)
				if err != nil {
					return err
				}
				removed = n
				return nil
			})
		})
		if err == nil {
			c.logger.Info("theme deleted", "theme_id", id, "dictations_removed", removed)
		}
		return formatID(id), err
	})
}

// AddDictation attaches a dictation text to an existing theme.
func (c *ThemeCatalog) AddDictation(ctx context.Context, themeID int64, text string) (domain.Dictation, error) {
	var out domain.Dictation
	err := c.run(ctx, opAddDictation, func(ctx context.Context) (string, error) {
		body, err := parseDictationText(text)
		if err != nil {
			return "", err
		}
		d := domain.Dictation{ThemeID: themeID, Text: body}
		err = c.withLock(ctx, LockKeyThemes, func() error {
			return c.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
				if _, err := tx.GetTheme(themeID); err != nil {
					return err
				}
				return tx.InsertDictation(d)
			})
		})
		if err != nil {
			return "", err
		}
		out = d
		return "", nil
	})
	if err != nil {
		return domain.Dictation{}, err
	}
	return out, nil
}

// ListDictations returns the dictations of theme themeID ordered by id.
func (c *ThemeCatalog) ListDictations(ctx context.Context, themeID int64) ([]domain.Dictation, error) {
	out := make([]domain.Dictation, 0)
	err := c.run(ctx, opListDictations, func(ctx context.Context) (string, error) {
		return formatID(themeID), c.store.View(ctx, func(v domain.TransactionView) error {
			if _, err := v.GetTheme(themeID); err != nil {
				return err
			}
			ds, err := v.ListDictations(themeID)
			if err != nil {
				return err
			}
			out = append(out, ds...)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
