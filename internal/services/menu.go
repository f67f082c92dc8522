package services

import (
	"strings"

	"github.com/tastoria/tastoria-backend/internal/models"
	"github.com/tastoria/tastoria-backend/internal/storage"
)

// PageSize is how many items of a category are offered per message
const PageSize = 3

// MenuService loads the sellable catalog grouped by category
type MenuService struct {
	store storage.Store
}

// NewMenuService creates a new menu service
func NewMenuService(store storage.Store) *MenuService {
	return &MenuService{store: store}
}

// GetMenuByCategory returns the current catalog grouped by category.
// Paused items are excluded; category order follows catalog order.
func (s *MenuService) GetMenuByCategory() (*Menu, error) {
	items, err := s.store.GetMenuItems()
	if err != nil {
		return nil, err
	}

	menu := &Menu{items: make(map[string][]*models.MenuItem)}
	for _, item := range items {
		if !item.Available() {
			continue
		}

		category := item.Category
		if category == "" {
			category = "Uncategorized"
		}

		if _, exists := menu.items[category]; !exists {
			menu.categories = append(menu.categories, category)
		}
		menu.items[category] = append(menu.items[category], item)
	}

	return menu, nil
}

// Menu is a point-in-time snapshot of the orderable catalog
type Menu struct {
	categories []string
	items      map[string][]*models.MenuItem
}

// Categories lists category names in catalog order
func (m *Menu) Categories() []string {
	return m.categories
}

// Items returns the items of a category
func (m *Menu) Items(category string) []*models.MenuItem {
	return m.items[category]
}

// MatchCategory resolves customer input to a category name,
// exact match first, then case-insensitive
func (m *Menu) MatchCategory(input string) (string, bool) {
	input = strings.TrimSpace(input)

	if _, exists := m.items[input]; exists {
		return input, true
	}

	for _, name := range m.categories {
		if strings.EqualFold(name, input) {
			return name, true
		}
	}
	return "", false
}

// FindItem looks an item up by exact name across all categories
func (m *Menu) FindItem(name string) *models.MenuItem {
	for _, category := range m.categories {
		for _, item := range m.items[category] {
			if item.Name == name {
				return item
			}
		}
	}
	return nil
}

// Page returns the page-th slice of a category (PageSize items) and
// whether a further slice exists after it
func (m *Menu) Page(category string, page int) ([]*models.MenuItem, bool) {
	items := m.items[category]

	start := page * PageSize
	if start >= len(items) {
		return nil, false
	}

	end := start + PageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], end < len(items)
}
