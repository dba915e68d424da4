package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/GratienSA/escargotAPI/internal/catalog"
	"github.com/GratienSA/escargotAPI/internal/domain"
	"github.com/GratienSA/escargotAPI/internal/event"
	"github.com/GratienSA/escargotAPI/internal/repository"
	apperrors "github.com/GratienSA/escargotAPI/pkg/errors"
)

// Cart operation upper-bound limits to prevent abuse.
const (
	// MaxQuantityPerLine is the maximum quantity allowed for a single line.
	MaxQuantityPerLine = 100
	// MaxLinesPerCart is the maximum number of distinct lines in a cart.
	MaxLinesPerCart = 50
)

// ProductGetter is the catalog surface the cart service needs. Products are
// always looked up server-side so the client can never dictate a price.
type ProductGetter interface {
	GetProduct(ctx context.Context, id int64) (*catalog.Product, error)
}

// CartService implements the business logic for cart and favorites
// operations.
type CartService struct {
	repo     repository.CartRepository
	catalog  ProductGetter
	producer *event.Producer
	pricing  domain.PricingPolicy
	logger   *slog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(
	repo repository.CartRepository,
	catalog ProductGetter,
	producer *event.Producer,
	pricing domain.PricingPolicy,
	logger *slog.Logger,
) *CartService {
	return &CartService{
		repo:     repo,
		catalog:  catalog,
		producer: producer,
		pricing:  pricing,
		logger:   logger,
	}
}

// Totals derives the price breakdown for a cart.
func (s *CartService) Totals(cart *domain.Cart) domain.Totals {
	return s.pricing.ComputeTotals(cart)
}

// GetCart retrieves the cart for a session. If no cart exists, returns an
// empty cart without persisting it.
func (s *CartService) GetCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("session id is required")
	}

	cart, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return domain.NewCart(sessionID), nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}

	return cart, nil
}

// AddProduct looks up the product in the catalog and adds it to the
// session's cart, merging with an existing line for the same product.
func (s *CartService) AddProduct(ctx context.Context, sessionID string, productID int64) (*domain.Cart, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("session id is required")
	}
	if productID <= 0 {
		return nil, apperrors.InvalidInput("product id must be positive")
	}

	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("look up product %d: %w", productID, err)
	}

	cart, err := s.GetCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if i := cart.FindLineIndex(productID); i >= 0 {
		if cart.Lines[i].Quantity+1 > MaxQuantityPerLine {
			return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", MaxQuantityPerLine))
		}
	} else if len(cart.Lines) >= MaxLinesPerCart {
		return nil, apperrors.InvalidInput(fmt.Sprintf("cart must not contain more than %d lines", MaxLinesPerCart))
	}

	cart.AddProduct(product.Ref())

	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}
	s.publishUpdated(ctx, cart)

	s.logger.InfoContext(ctx, "product added to cart",
		slog.String("session_id", sessionID),
		slog.Int64("product_id", productID),
		slog.Int("item_count", cart.ItemCount()),
	)

	return cart, nil
}

// RemoveProduct deletes the line for a product. Removing a product that is
// not in the cart succeeds without changing anything.
func (s *CartService) RemoveProduct(ctx context.Context, sessionID string, productID int64) (*domain.Cart, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("session id is required")
	}

	cart, err := s.GetCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	cart.RemoveProduct(productID)

	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}
	s.publishUpdated(ctx, cart)

	s.logger.InfoContext(ctx, "product removed from cart",
		slog.String("session_id", sessionID),
		slog.Int64("product_id", productID),
	)

	return cart, nil
}

// UpdateQuantity sets the quantity of an existing line. The boolean reports
// whether the update applied: false means the product is not in the cart or
// the quantity is invalid, and the cart is unchanged. The error covers
// storage failures only.
func (s *CartService) UpdateQuantity(ctx context.Context, sessionID string, productID int64, quantity int) (*domain.Cart, bool, error) {
	if sessionID == "" {
		return nil, false, apperrors.InvalidInput("session id is required")
	}
	if quantity > MaxQuantityPerLine {
		return nil, false, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", MaxQuantityPerLine))
	}

	cart, err := s.GetCart(ctx, sessionID)
	if err != nil {
		return nil, false, err
	}

	if !cart.UpdateQuantity(productID, quantity) {
		return cart, false, nil
	}

	if err := s.save(ctx, cart); err != nil {
		return nil, false, err
	}
	s.publishUpdated(ctx, cart)

	s.logger.InfoContext(ctx, "cart quantity updated",
		slog.String("session_id", sessionID),
		slog.Int64("product_id", productID),
		slog.Int("quantity", quantity),
	)

	return cart, true, nil
}

// ClearCart empties the cart lines. Favorites and the session user survive.
func (s *CartService) ClearCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("session id is required")
	}

	cart, err := s.GetCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	cart.Clear()

	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}

	if err := s.producer.PublishCartCleared(ctx, sessionID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.cleared event",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "cart cleared",
		slog.String("session_id", sessionID),
	)

	return cart, nil
}

// ToggleFavorite flips a product's favorite membership and reports the
// resulting state.
func (s *CartService) ToggleFavorite(ctx context.Context, sessionID string, productID int64) (*domain.Cart, bool, error) {
	if sessionID == "" {
		return nil, false, apperrors.InvalidInput("session id is required")
	}

	cart, err := s.GetCart(ctx, sessionID)
	if err != nil {
		return nil, false, err
	}

	// Removal needs no catalog lookup; a product delisted after being
	// favorited must still be removable.
	ref := domain.ProductRef{ID: productID}
	if !cart.IsFavorite(productID) {
		product, err := s.catalog.GetProduct(ctx, productID)
		if err != nil {
			return nil, false, fmt.Errorf("look up product %d: %w", productID, err)
		}
		ref = product.Ref()
	}

	favored := cart.ToggleFavorite(ref)

	if err := s.save(ctx, cart); err != nil {
		return nil, false, err
	}

	s.logger.InfoContext(ctx, "favorite toggled",
		slog.String("session_id", sessionID),
		slog.Int64("product_id", productID),
		slog.Bool("favored", favored),
	)

	return cart, favored, nil
}

// ClearFavorites removes all favorites. Cart lines are untouched.
func (s *CartService) ClearFavorites(ctx context.Context, sessionID string) (*domain.Cart, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("session id is required")
	}

	cart, err := s.GetCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	cart.ClearFavorites()

	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}

	return cart, nil
}

func (s *CartService) save(ctx context.Context, cart *domain.Cart) error {
	cart.UpdatedAt = time.Now().UTC()
	if err := s.repo.Save(ctx, cart); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func (s *CartService) publishUpdated(ctx context.Context, cart *domain.Cart) {
	if err := s.producer.PublishCartUpdated(ctx, cart); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.updated event",
			slog.String("session_id", cart.SessionID),
			slog.String("error", err.Error()),
		)
	}
}
