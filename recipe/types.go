/*
Package recipe provides versioned production formulas and the capacity
resolver.

PURPOSE:
  A Recipe is an immutable, versioned formula: it yields one output item at
  an expected quantity and consumes a fixed per-one-batch list of
  ingredient quantities. Editing a recipe never mutates a row - it creates
  the next version, so batches recorded against older versions keep an
  accurate reference.

SEE ALSO:
  - resolver.go: Max-producible-batches computation
*/
package recipe

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/artisan/ledger-engine/ledger"
)

// ErrNoIngredients is returned when capacity is requested for a recipe with
// an empty ingredient list. A recipe must consume something.
var ErrNoIngredients = errors.New("recipe has no ingredients")

type RecipeID string

// Ingredient is one per-one-batch line of a recipe.
type Ingredient struct {
	ItemID   ledger.ItemID
	Quantity decimal.Decimal
}

type Recipe struct {
	ID                    RecipeID
	Name                  string
	Version               int
	IsArchived            bool
	YieldsItemID          ledger.ItemID
	ExpectedYield         decimal.Decimal // output quantity per one batch
	LaborMinutes          int
	ProjectedMaterialCost decimal.Decimal // per one batch
	Ingredients           []Ingredient
	CreatedAt             time.Time
}

// =============================================================================
// BOOK - versioned recipe store
// =============================================================================

// Book stores every version of every recipe. Version rows are immutable;
// Update appends the next version and archives the previous one.
type Book struct {
	mu       sync.RWMutex
	versions map[RecipeID][]*Recipe // ascending version order
}

func NewBook() *Book {
	return &Book{versions: make(map[RecipeID][]*Recipe)}
}

// Create registers version 1 of a new recipe.
func (b *Book) Create(r Recipe) (RecipeID, error) {
	if err := validate(r); err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if r.ID == "" {
		r.ID = RecipeID("rec-" + uuid.NewString())
	}
	r.Version = 1
	r.IsArchived = false
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	stored := r
	b.versions[r.ID] = []*Recipe{&stored}
	return r.ID, nil
}

// Update appends the next version of an existing recipe. The previous
// version is archived but kept; batches referencing it stay accurate.
func (b *Book) Update(id RecipeID, r Recipe) (Recipe, error) {
	if err := validate(r); err != nil {
		return Recipe{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	versions, ok := b.versions[id]
	if !ok {
		return Recipe{}, ledger.ErrRecipeNotFound
	}
	latest := versions[len(versions)-1]
	latest.IsArchived = true

	r.ID = id
	r.Version = latest.Version + 1
	r.IsArchived = false
	r.CreatedAt = time.Now().UTC()
	stored := r
	b.versions[id] = append(versions, &stored)
	return stored, nil
}

// Restore loads a persisted recipe version as-is. Boot-time rehydration
// only; versions must arrive in ascending order per recipe.
func (b *Book) Restore(r Recipe) {
	b.mu.Lock()
	defer b.mu.Unlock()
	stored := r
	b.versions[r.ID] = append(b.versions[r.ID], &stored)
}

// Latest returns the newest version of a recipe.
func (b *Book) Latest(id RecipeID) (Recipe, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	versions, ok := b.versions[id]
	if !ok {
		return Recipe{}, ledger.ErrRecipeNotFound
	}
	return *versions[len(versions)-1], nil
}

// Version returns one specific version of a recipe.
func (b *Book) Version(id RecipeID, version int) (Recipe, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, r := range b.versions[id] {
		if r.Version == version {
			return *r, nil
		}
	}
	return Recipe{}, ledger.ErrRecipeNotFound
}

// List returns the newest version of every recipe, sorted by name.
func (b *Book) List(includeArchived bool) []Recipe {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var result []Recipe
	for _, versions := range b.versions {
		latest := versions[len(versions)-1]
		if latest.IsArchived && !includeArchived {
			continue
		}
		result = append(result, *latest)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

func validate(r Recipe) error {
	if r.Name == "" {
		return &ledger.ValidationError{Field: "name", Message: "name is required"}
	}
	if r.YieldsItemID == "" {
		return &ledger.ValidationError{Field: "yieldsItemId", Message: "output item is required"}
	}
	if !r.ExpectedYield.IsPositive() {
		return &ledger.ValidationError{Field: "expectedYield", Message: "expected yield must be greater than 0"}
	}
	if len(r.Ingredients) == 0 {
		return &ledger.ValidationError{Field: "ingredients", Message: "at least one ingredient is required"}
	}
	for _, ing := range r.Ingredients {
		if ing.ItemID == "" {
			return &ledger.ValidationError{Field: "ingredients", Message: "ingredient item id is required"}
		}
		if !ing.Quantity.IsPositive() {
			return &ledger.ValidationError{Field: "ingredients", Message: "ingredient quantity must be greater than 0"}
		}
		if ing.ItemID == r.YieldsItemID {
			return &ledger.ValidationError{Field: "ingredients", Message: "a recipe cannot consume its own output"}
		}
	}
	return nil
}
