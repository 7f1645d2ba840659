package services

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/kriscao123/freshfood-backend/models"
	"github.com/kriscao123/freshfood-backend/repository"
)

// CartService owns all mutations of the per-user active cart. After every
// mutation the cart total is recomputed from the line items and the whole
// document is persisted in a single conditional write, so a saved cart can
// never carry a total that disagrees with its items.
type CartService struct {
	carts        repository.CartRepository
	products     repository.ProductRepository
	interactions repository.InteractionRepository
}

func NewCartService(carts repository.CartRepository, products repository.ProductRepository, interactions repository.InteractionRepository) *CartService {
	return &CartService{
		carts:        carts,
		products:     products,
		interactions: interactions,
	}
}

// GetActiveCart returns the user's active cart, or
// repository.ErrCartNotFound when none exists.
func (s *CartService) GetActiveCart(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	return s.carts.FindActiveByUserID(ctx, userID)
}

// AddItem puts quantity units of a product into the user's active cart,
// creating the cart on first add. An existing line for the same product is
// merged by incrementing its quantity; the unit-price snapshot of the line
// is the one captured when it was first added. When unitPrice is zero the
// catalog price is snapshotted instead.
func (s *CartService) AddItem(ctx context.Context, userID, productID primitive.ObjectID, quantity int, unitPrice int64) (*models.Cart, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if unitPrice < 0 {
		return nil, ErrInvalidPrice
	}

	if unitPrice == 0 {
		product, err := s.products.FindByID(ctx, productID)
		if err != nil {
			return nil, err
		}
		unitPrice = product.Price
	}

	cart, err := s.carts.FindActiveByUserID(ctx, userID)
	if errors.Is(err, repository.ErrCartNotFound) {
		cart, err = s.createCartWithItem(ctx, userID, productID, quantity, unitPrice)
		if err == nil {
			s.recordInteraction(userID, productID, models.InteractionAddToCart, quantity)
			return cart, nil
		}
		if !errors.Is(err, repository.ErrCartConflict) {
			return nil, err
		}
		// Lost the creation race: another request created the active cart
		// first. Reload it and merge into it instead.
		cart, err = s.carts.FindActiveByUserID(ctx, userID)
	}
	if err != nil {
		return nil, err
	}

	if idx := cart.FindItem(productID); idx >= 0 {
		cart.Items[idx].Quantity += quantity
	} else {
		cart.Items = append(cart.Items, models.CartItem{
			ProductID: productID,
			Quantity:  quantity,
			Price:     unitPrice,
		})
	}

	if err := s.saveCart(ctx, cart); err != nil {
		return nil, err
	}

	s.recordInteraction(userID, productID, models.InteractionAddToCart, quantity)
	return cart, nil
}

// UpdateItem sets the line's quantity to the given absolute value. The
// stored unit-price snapshot is left untouched. Non-positive quantities are
// rejected, never treated as removal.
func (s *CartService) UpdateItem(ctx context.Context, cartID, productID primitive.ObjectID, quantity int) (*models.Cart, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	cart, err := s.loadActive(ctx, cartID)
	if err != nil {
		return nil, err
	}

	idx := cart.FindItem(productID)
	if idx < 0 {
		return nil, ErrItemNotFound
	}
	cart.Items[idx].Quantity = quantity

	if err := s.saveCart(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// RemoveItem deletes the product's line from the cart.
func (s *CartService) RemoveItem(ctx context.Context, cartID, productID primitive.ObjectID) (*models.Cart, error) {
	cart, err := s.loadActive(ctx, cartID)
	if err != nil {
		return nil, err
	}

	idx := cart.FindItem(productID)
	if idx < 0 {
		return nil, ErrItemNotFound
	}
	cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)

	if err := s.saveCart(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// Checkout transitions the cart from active to checked_out. A second
// checkout of the same cart fails with ErrCartNotActive so the caller layer
// can never create two orders from one cart.
func (s *CartService) Checkout(ctx context.Context, cartID primitive.ObjectID) (*models.Cart, error) {
	cart, err := s.loadActive(ctx, cartID)
	if err != nil {
		return nil, err
	}

	cart.Status = models.CartStatusCheckedOut
	if err := s.carts.UpdateActive(ctx, cart); err != nil {
		if errors.Is(err, repository.ErrCartConflict) {
			// A concurrent checkout won the conditional update.
			return nil, ErrCartNotActive
		}
		return nil, err
	}
	return cart, nil
}

func (s *CartService) createCartWithItem(ctx context.Context, userID, productID primitive.ObjectID, quantity int, unitPrice int64) (*models.Cart, error) {
	cart := &models.Cart{
		UserID: userID,
		Items: []models.CartItem{{
			ProductID: productID,
			Quantity:  quantity,
			Price:     unitPrice,
		}},
		Status: models.CartStatusActive,
	}

	total, err := CartTotal(cart.Items)
	if err != nil {
		return nil, err
	}
	cart.TotalPrice = total

	if err := s.carts.Insert(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *CartService) loadActive(ctx context.Context, cartID primitive.ObjectID) (*models.Cart, error) {
	cart, err := s.carts.FindByID(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if cart.Status != models.CartStatusActive {
		return nil, ErrCartNotActive
	}
	return cart, nil
}

// saveCart recomputes the aggregate total and persists the cart body and
// total as one record update.
func (s *CartService) saveCart(ctx context.Context, cart *models.Cart) error {
	total, err := CartTotal(cart.Items)
	if err != nil {
		return err
	}
	cart.TotalPrice = total

	return s.carts.UpdateActive(ctx, cart)
}

// recordInteraction writes a behavioral signal for the recommender.
// Best-effort: it never blocks or fails the cart mutation.
func (s *CartService) recordInteraction(userID, productID primitive.ObjectID, kind string, value int) {
	if s.interactions == nil {
		return
	}
	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		err := s.interactions.Insert(bgCtx, &models.Interaction{
			UserID:    userID,
			ProductID: productID,
			Type:      kind,
			Value:     value,
		})
		if err != nil {
			zap.L().Warn("Failed to record interaction",
				zap.String("type", kind), zap.Error(err))
		}
	}()
}
