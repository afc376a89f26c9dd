package model

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

func (t Theme) Valid() bool { return t == ThemeLight || t == ThemeDark }

// Toggled flips between light and dark. Anything else toggles to dark.
func (t Theme) Toggled() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

type Preferences struct {
	UserID  string              `json:"user_id"`
	Theme   Theme               `json:"theme"`
	Columns map[string][]string `json:"columns"`
}

// DefaultPreferences is what a user sees before saving anything.
func DefaultPreferences(userID string) *Preferences {
	return &Preferences{
		UserID:  userID,
		Theme:   ThemeLight,
		Columns: map[string][]string{},
	}
}

// ColumnOrder returns the saved order for table, or its default.
func (p *Preferences) ColumnOrder(table *Table) []string {
	if order, ok := p.Columns[table.Name]; ok && table.IsPermutation(order) {
		return append([]string(nil), order...)
	}
	return table.DefaultOrder()
}
