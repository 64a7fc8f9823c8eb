package mongo

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/djkgamc/ExcelDataAnalyzer/internal/domain"
	"github.com/djkgamc/ExcelDataAnalyzer/internal/repo"
)

func testStorage(t *testing.T) *Storage {
	t.Helper()
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI is not set")
	}
	s, err := New(Config{URI: uri, Database: "menu_converter_test", Timeout: 10 * time.Second})
	require.NoError(t, err)
	require.NoError(t, s.CreateIndexes(context.Background()))
	t.Cleanup(func() {
		_ = s.Database().Drop(context.Background())
		_ = s.Close(context.Background())
	})
	return s
}

func TestRuleRepositoryCRUD(t *testing.T) {
	s := testStorage(t)
	rules := NewRuleRepository(s.Database())
	ctx := context.Background()

	rule := &domain.SubstitutionRule{
		Allergen:    domain.AllergenDairy,
		Original:    "milk",
		Replacement: "oat milk",
	}
	require.NoError(t, rules.Create(ctx, rule))
	require.False(t, rule.ID.IsZero())
	assert.False(t, rule.CreatedAt.IsZero())

	got, err := rules.GetByID(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, "oat milk", got.Replacement)

	rule.Replacement = "rice milk"
	require.NoError(t, rules.Update(ctx, rule))
	got, err = rules.GetByID(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, "rice milk", got.Replacement)

	byAllergen, err := rules.ListByAllergen(ctx, domain.AllergenDairy)
	require.NoError(t, err)
	assert.Len(t, byAllergen, 1)

	require.NoError(t, rules.Delete(ctx, rule.ID))
	_, err = rules.GetByID(ctx, rule.ID)
	assert.ErrorIs(t, err, repo.ErrNotFound)
	assert.ErrorIs(t, rules.Delete(ctx, rule.ID), repo.ErrNotFound)
}

func TestTaskRepositoryLifecycle(t *testing.T) {
	s := testStorage(t)
	tasks := NewTaskRepository(s.Database())
	ctx := context.Background()

	task := &domain.ConversionTask{
		MenuName:  "week-12",
		Content:   "B: milk",
		Format:    "text",
		Allergens: []domain.Allergen{domain.AllergenDairy},
	}
	require.NoError(t, tasks.Create(ctx, task))
	assert.Equal(t, domain.StatusQueued, task.Status)

	require.NoError(t, tasks.UpdateStatus(ctx, task.ID, domain.StatusProcessing, ""))
	got, err := tasks.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, got.Status)

	n, err := tasks.IncrementRetryCount(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	menuID := primitive.NewObjectID()
	require.NoError(t, tasks.AttachMenu(ctx, task.ID, menuID))
	got, err = tasks.GetByID(ctx, task.ID)
	require.NoError(t, err)
	require.NotNil(t, got.MenuID)
	assert.Equal(t, menuID, *got.MenuID)

	_, err = tasks.GetByID(ctx, primitive.NewObjectID())
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestMenuRepositoryRoundTrip(t *testing.T) {
	s := testStorage(t)
	menus := NewMenuRepository(s.Database())
	ctx := context.Background()

	menu := &domain.ConvertedMenu{
		Name:      "week-12",
		Allergens: []domain.Allergen{domain.AllergenDairy},
		Original: &domain.MenuDocument{
			Periods: []domain.MealPeriod{{
				Name:   "breakfast",
				Dishes: []domain.Dish{{Marker: "B:", Span: 1, Ingredients: []string{"milk"}}},
			}},
			Grid: domain.Grid{Rows: 1, Cols: 1, Cells: [][]string{{"B: milk"}},
				MealCells: []domain.CellRef{{Row: 0, Col: 0}}},
		},
	}
	require.NoError(t, menus.Create(ctx, menu))
	require.False(t, menu.ID.IsZero())

	got, err := menus.GetByID(ctx, menu.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Original)
	assert.Equal(t, []string{"milk"}, got.Original.Periods[0].Dishes[0].Ingredients)
	assert.Equal(t, "B: milk", got.Original.Grid.Cells[0][0])

	listed, err := menus.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	require.NoError(t, menus.Delete(ctx, menu.ID))
	assert.ErrorIs(t, menus.Delete(ctx, menu.ID), repo.ErrNotFound)
}
