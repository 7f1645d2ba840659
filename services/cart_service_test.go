package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kriscao123/freshfood-backend/models"
	"github.com/kriscao123/freshfood-backend/repository"
)

// mockCartRepository keeps carts in memory and honors the same version
// guard the Mongo implementation enforces.
type mockCartRepository struct {
	carts map[primitive.ObjectID]*models.Cart
	err   error
}

func newMockCartRepository() *mockCartRepository {
	return &mockCartRepository{carts: make(map[primitive.ObjectID]*models.Cart)}
}

func (m *mockCartRepository) FindActiveByUserID(_ context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, c := range m.carts {
		if c.UserID == userID && c.Status == models.CartStatusActive {
			clone := *c
			clone.Items = append([]models.CartItem(nil), c.Items...)
			return &clone, nil
		}
	}
	return nil, repository.ErrCartNotFound
}

func (m *mockCartRepository) FindByID(_ context.Context, id primitive.ObjectID) (*models.Cart, error) {
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.carts[id]
	if !ok {
		return nil, repository.ErrCartNotFound
	}
	clone := *c
	clone.Items = append([]models.CartItem(nil), c.Items...)
	return &clone, nil
}

func (m *mockCartRepository) Insert(_ context.Context, cart *models.Cart) error {
	if m.err != nil {
		return m.err
	}
	for _, c := range m.carts {
		if c.UserID == cart.UserID && c.Status == models.CartStatusActive {
			return repository.ErrCartConflict
		}
	}
	cart.ID = primitive.NewObjectID()
	clone := *cart
	m.carts[cart.ID] = &clone
	return nil
}

func (m *mockCartRepository) UpdateActive(_ context.Context, cart *models.Cart) error {
	if m.err != nil {
		return m.err
	}
	stored, ok := m.carts[cart.ID]
	if !ok || stored.Status != models.CartStatusActive || stored.Version != cart.Version {
		return repository.ErrCartConflict
	}
	cart.Version++
	clone := *cart
	clone.Items = append([]models.CartItem(nil), cart.Items...)
	m.carts[cart.ID] = &clone
	return nil
}

type mockProductRepository struct {
	products map[primitive.ObjectID]*models.Product
}

func (m *mockProductRepository) FindByID(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	if p, ok := m.products[id]; ok {
		return p, nil
	}
	return nil, repository.ErrProductNotFound
}

func (m *mockProductRepository) List(context.Context, string, int, int) ([]models.Product, int64, error) {
	return nil, 0, nil
}

func newCartService(repo *mockCartRepository) *CartService {
	return NewCartService(repo, &mockProductRepository{}, nil)
}

func assertTotalConsistent(t *testing.T, cart *models.Cart) {
	t.Helper()
	want, err := CartTotal(cart.Items)
	require.NoError(t, err)
	assert.Equal(t, want, cart.TotalPrice, "total must equal the sum over line items")
}

func TestAddItem_CreatesCartOnFirstAdd(t *testing.T) {
	repo := newMockCartRepository()
	svc := newCartService(repo)
	userID := primitive.NewObjectID()
	productID := primitive.NewObjectID()

	cart, err := svc.AddItem(context.Background(), userID, productID, 2, 15000)
	require.NoError(t, err)

	assert.Equal(t, models.CartStatusActive, cart.Status)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)
	assert.Equal(t, int64(30000), cart.TotalPrice)
	assertTotalConsistent(t, cart)
}

func TestAddItem_MergesExistingLine(t *testing.T) {
	repo := newMockCartRepository()
	svc := newCartService(repo)
	userID := primitive.NewObjectID()
	productID := primitive.NewObjectID()

	_, err := svc.AddItem(context.Background(), userID, productID, 2, 15000)
	require.NoError(t, err)

	cart, err := svc.AddItem(context.Background(), userID, productID, 3, 15000)
	require.NoError(t, err)

	require.Len(t, cart.Items, 1, "adding the same product must not duplicate the line")
	assert.Equal(t, 5, cart.Items[0].Quantity)
	assert.Equal(t, int64(75000), cart.TotalPrice)
	assertTotalConsistent(t, cart)
}

func TestAddItem_KeepsPriceSnapshotOnMerge(t *testing.T) {
	repo := newMockCartRepository()
	svc := newCartService(repo)
	userID := primitive.NewObjectID()
	productID := primitive.NewObjectID()

	_, err := svc.AddItem(context.Background(), userID, productID, 1, 15000)
	require.NoError(t, err)

	// The catalog price changed; the line keeps its original snapshot.
	cart, err := svc.AddItem(context.Background(), userID, productID, 1, 18000)
	require.NoError(t, err)

	assert.Equal(t, int64(15000), cart.Items[0].Price)
	assert.Equal(t, int64(30000), cart.TotalPrice)
}

func TestAddItem_InvalidQuantity(t *testing.T) {
	svc := newCartService(newMockCartRepository())

	for _, quantity := range []int{0, -1} {
		_, err := svc.AddItem(context.Background(), primitive.NewObjectID(), primitive.NewObjectID(), quantity, 15000)
		assert.ErrorIs(t, err, ErrInvalidQuantity)
	}
}

func TestAddItem_NegativePrice(t *testing.T) {
	svc := newCartService(newMockCartRepository())

	_, err := svc.AddItem(context.Background(), primitive.NewObjectID(), primitive.NewObjectID(), 1, -100)
	assert.ErrorIs(t, err, ErrInvalidPrice)
}

func TestAddItem_SnapshotsCatalogPriceWhenNotSupplied(t *testing.T) {
	repo := newMockCartRepository()
	productID := primitive.NewObjectID()
	products := &mockProductRepository{products: map[primitive.ObjectID]*models.Product{
		productID: {ID: productID, Title: "Rau muống", Price: 12000},
	}}
	svc := NewCartService(repo, products, nil)

	cart, err := svc.AddItem(context.Background(), primitive.NewObjectID(), productID, 2, 0)
	require.NoError(t, err)

	assert.Equal(t, int64(12000), cart.Items[0].Price)
	assert.Equal(t, int64(24000), cart.TotalPrice)
}

func TestAddItem_UnknownProductWhenPriceNotSupplied(t *testing.T) {
	svc := newCartService(newMockCartRepository())

	_, err := svc.AddItem(context.Background(), primitive.NewObjectID(), primitive.NewObjectID(), 1, 0)
	assert.ErrorIs(t, err, repository.ErrProductNotFound)
}

func TestUpdateItem_SetsAbsoluteQuantity(t *testing.T) {
	repo := newMockCartRepository()
	svc := newCartService(repo)
	userID := primitive.NewObjectID()
	productID := primitive.NewObjectID()

	cart, err := svc.AddItem(context.Background(), userID, productID, 5, 15000)
	require.NoError(t, err)

	updated, err := svc.UpdateItem(context.Background(), cart.ID, productID, 2)
	require.NoError(t, err)

	assert.Equal(t, 2, updated.Items[0].Quantity)
	assert.Equal(t, int64(30000), updated.TotalPrice)
	assertTotalConsistent(t, updated)
}

func TestUpdateItem_RejectsNonPositiveQuantity(t *testing.T) {
	repo := newMockCartRepository()
	svc := newCartService(repo)
	userID := primitive.NewObjectID()
	productID := primitive.NewObjectID()

	cart, err := svc.AddItem(context.Background(), userID, productID, 5, 15000)
	require.NoError(t, err)

	_, err = svc.UpdateItem(context.Background(), cart.ID, productID, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	// The line is untouched.
	current, err := svc.GetActiveCart(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 5, current.Items[0].Quantity)
}

func TestUpdateItem_ItemNotFound(t *testing.T) {
	repo := newMockCartRepository()
	svc := newCartService(repo)
	userID := primitive.NewObjectID()

	cart, err := svc.AddItem(context.Background(), userID, primitive.NewObjectID(), 1, 15000)
	require.NoError(t, err)

	_, err = svc.UpdateItem(context.Background(), cart.ID, primitive.NewObjectID(), 3)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestRemoveItem(t *testing.T) {
	repo := newMockCartRepository()
	svc := newCartService(repo)
	userID := primitive.NewObjectID()
	first := primitive.NewObjectID()
	second := primitive.NewObjectID()

	cart, err := svc.AddItem(context.Background(), userID, first, 2, 15000)
	require.NoError(t, err)
	cart, err = svc.AddItem(context.Background(), userID, second, 1, 40000)
	require.NoError(t, err)
	require.Len(t, cart.Items, 2)

	cart, err = svc.RemoveItem(context.Background(), cart.ID, first)
	require.NoError(t, err)

	require.Len(t, cart.Items, 1)
	assert.Equal(t, second, cart.Items[0].ProductID)
	assert.Equal(t, int64(40000), cart.TotalPrice)
	assertTotalConsistent(t, cart)
}

func TestRemoveItem_ItemNotFound(t *testing.T) {
	repo := newMockCartRepository()
	svc := newCartService(repo)
	userID := primitive.NewObjectID()

	cart, err := svc.AddItem(context.Background(), userID, primitive.NewObjectID(), 1, 15000)
	require.NoError(t, err)

	_, err = svc.RemoveItem(context.Background(), cart.ID, primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestCheckout_SecondCallConflicts(t *testing.T) {
	repo := newMockCartRepository()
	svc := newCartService(repo)
	userID := primitive.NewObjectID()

	cart, err := svc.AddItem(context.Background(), userID, primitive.NewObjectID(), 1, 15000)
	require.NoError(t, err)

	checked, err := svc.Checkout(context.Background(), cart.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CartStatusCheckedOut, checked.Status)

	_, err = svc.Checkout(context.Background(), cart.ID)
	assert.ErrorIs(t, err, ErrCartNotActive)
}

func TestCheckout_NewCartAfterCheckout(t *testing.T) {
	repo := newMockCartRepository()
	svc := newCartService(repo)
	userID := primitive.NewObjectID()

	cart, err := svc.AddItem(context.Background(), userID, primitive.NewObjectID(), 1, 15000)
	require.NoError(t, err)

	_, err = svc.Checkout(context.Background(), cart.ID)
	require.NoError(t, err)

	// The next add starts a fresh active cart.
	fresh, err := svc.AddItem(context.Background(), userID, primitive.NewObjectID(), 2, 9000)
	require.NoError(t, err)

	assert.NotEqual(t, cart.ID, fresh.ID)
	assert.Equal(t, models.CartStatusActive, fresh.Status)
	assert.Equal(t, int64(18000), fresh.TotalPrice)
}

func TestMutations_TotalAlwaysRecomputed(t *testing.T) {
	repo := newMockCartRepository()
	svc := newCartService(repo)
	userID := primitive.NewObjectID()
	a := primitive.NewObjectID()
	b := primitive.NewObjectID()
	c := primitive.NewObjectID()

	cart, err := svc.AddItem(context.Background(), userID, a, 3, 7000)
	require.NoError(t, err)
	assertTotalConsistent(t, cart)

	cart, err = svc.AddItem(context.Background(), userID, b, 1, 52000)
	require.NoError(t, err)
	assertTotalConsistent(t, cart)

	cart, err = svc.AddItem(context.Background(), userID, c, 2, 11000)
	require.NoError(t, err)
	assertTotalConsistent(t, cart)

	cart, err = svc.UpdateItem(context.Background(), cart.ID, a, 1)
	require.NoError(t, err)
	assertTotalConsistent(t, cart)

	cart, err = svc.RemoveItem(context.Background(), cart.ID, b)
	require.NoError(t, err)
	assertTotalConsistent(t, cart)

	cart, err = svc.AddItem(context.Background(), userID, a, 4, 7000)
	require.NoError(t, err)
	assertTotalConsistent(t, cart)
	assert.Equal(t, int64(5*7000+2*11000), cart.TotalPrice)
}
