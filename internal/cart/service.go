package cart

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/framecraft/backend-store/internal/lock"
	"github.com/framecraft/backend-store/internal/obs"
	"github.com/framecraft/backend-store/internal/pricing"
)

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("invalid input")

// Selection is one catalog product chosen for a bundle.
type Selection struct {
	ProductID string `json:"productId"`
	Title     string `json:"title"`
	Qty       int    `json:"qty"`
}

// CustomSelection is a user-uploaded design standing in for a catalog
// product. The preview URL identifies the upload; pricing works the same
// as for catalog posters.
type CustomSelection struct {
	PreviewURL string `json:"previewUrl"`
	Title      string `json:"title"`
	Qty        int    `json:"qty"`
}

// Service owns cart state transitions. All mutations load the state,
// transform it and save it back; the bundle allocator reruns over the
// whole affected bundle on every change.
type Service struct {
	Store Store
	Lock  *lock.Locker
	Now   func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Create initialises an empty cart and persists it.
func (s *Service) Create(ctx context.Context) (State, error) {
	if s == nil || s.Store == nil {
		return State{}, errors.New("cart service not configured")
	}
	state := State{ID: uuid.NewString(), UpdatedAt: s.now()}
	if err := s.Store.Save(ctx, state); err != nil {
		return State{}, err
	}
	return state, nil
}

// Get loads a cart by id.
func (s *Service) Get(ctx context.Context, cartID string) (State, error) {
	if s == nil || s.Store == nil {
		return State{}, errors.New("cart service not configured")
	}
	return s.Store.Load(ctx, cartID)
}

// AddBundle builds one item per selected product, prices each from its
// size and optional frame, runs the allocator and appends the bundle.
func (s *Service) AddBundle(ctx context.Context, cartID string, selections []Selection, size pricing.PosterSize, frame *pricing.FrameOption) (State, error) {
	if len(selections) == 0 {
		return State{}, fmt.Errorf("at least one product is required: %w", ErrInvalidInput)
	}
	return s.mutate(ctx, cartID, func(state *State) (bool, error) {
		bundleID := s.bundleID()
		items, err := buildItems(bundleID, selections, size, frame)
		if err != nil {
			return false, err
		}
		state.Bundles = append(state.Bundles, buildBundle(bundleID, items))
		return true, nil
	})
}

// AddCustomBundle behaves like AddBundle for user-uploaded designs. Each
// upload becomes a virtual product keyed by a generated id.
func (s *Service) AddCustomBundle(ctx context.Context, cartID string, selections []CustomSelection, size pricing.PosterSize, frame *pricing.FrameOption) (State, error) {
	if len(selections) == 0 {
		return State{}, fmt.Errorf("at least one upload is required: %w", ErrInvalidInput)
	}
	return s.mutate(ctx, cartID, func(state *State) (bool, error) {
		bundleID := s.bundleID()
		items := make([]pricing.BundleItem, 0, len(selections))
		for i, sel := range selections {
			if strings.TrimSpace(sel.PreviewURL) == "" {
				return false, fmt.Errorf("preview url is required: %w", ErrInvalidInput)
			}
			qty := sel.Qty
			if qty <= 0 {
				qty = 1
			}
			virtualID := "custom-" + uuid.NewString()
			title := sel.Title
			if strings.TrimSpace(title) == "" {
				title = "Custom poster"
			}
			items = append(items, pricing.BundleItem{
				ID:        fmt.Sprintf("%s-%s-%d", bundleID, virtualID, i),
				ProductID: virtualID,
				Title:     title,
				Qty:       qty,
				Size:      size,
				Frame:     frame,
				UnitPrice: pricing.UnitPrice(size, frame),
			})
		}
		state.Bundles = append(state.Bundles, buildBundle(bundleID, items))
		return true, nil
	})
}

// UpdateBundle fully replaces a bundle's item set and reruns allocation.
// A missing bundle id is a no-op that leaves the stored state untouched;
// found reports whether anything changed.
func (s *Service) UpdateBundle(ctx context.Context, cartID, bundleID string, selections []Selection, size pricing.PosterSize, frame *pricing.FrameOption) (state State, found bool, err error) {
	if len(selections) == 0 {
		return State{}, false, fmt.Errorf("at least one product is required: %w", ErrInvalidInput)
	}
	state, err = s.mutate(ctx, cartID, func(state *State) (bool, error) {
		idx := state.findBundle(bundleID)
		if idx < 0 {
			return false, nil
		}
		found = true
		items, err := buildItems(bundleID, selections, size, frame)
		if err != nil {
			return false, err
		}
		state.Bundles[idx] = buildBundle(bundleID, items)
		return true, nil
	})
	return state, found, err
}

// RemoveBundle drops a bundle from the cart. Bundles are priced
// independently, so nothing else recomputes.
func (s *Service) RemoveBundle(ctx context.Context, cartID, bundleID string) (State, error) {
	return s.mutate(ctx, cartID, func(state *State) (bool, error) {
		idx := state.findBundle(bundleID)
		if idx < 0 {
			return false, nil
		}
		state.Bundles = append(state.Bundles[:idx], state.Bundles[idx+1:]...)
		return true, nil
	})
}

// Clear empties the cart.
func (s *Service) Clear(ctx context.Context, cartID string) (State, error) {
	return s.mutate(ctx, cartID, func(state *State) (bool, error) {
		if len(state.Bundles) == 0 {
			return false, nil
		}
		state.Bundles = nil
		return true, nil
	})
}

func (s *Service) mutate(ctx context.Context, cartID string, fn func(*State) (bool, error)) (State, error) {
	if s == nil || s.Store == nil {
		return State{}, errors.New("cart service not configured")
	}
	if strings.TrimSpace(cartID) == "" {
		return State{}, fmt.Errorf("cart id is required: %w", ErrInvalidInput)
	}
	apply := func(ctx context.Context) (State, error) {
		state, err := s.Store.Load(ctx, cartID)
		if err != nil {
			return State{}, err
		}
		changed, err := fn(&state)
		if err != nil {
			return State{}, err
		}
		if !changed {
			return state, nil
		}
		state.UpdatedAt = s.now()
		if err := s.Store.Save(ctx, state); err != nil {
			return State{}, err
		}
		return state, nil
	}
	if s.Lock == nil {
		return apply(ctx)
	}
	var state State
	err := s.Lock.WithLock(ctx, "cart:lock:"+cartID, 5*time.Second, func(ctx context.Context) error {
		var err error
		state, err = apply(ctx)
		return err
	})
	return state, err
}

func (s *Service) bundleID() string {
	return strconv.FormatInt(s.now().UnixMilli(), 10)
}

func buildItems(bundleID string, selections []Selection, size pricing.PosterSize, frame *pricing.FrameOption) ([]pricing.BundleItem, error) {
	items := make([]pricing.BundleItem, 0, len(selections))
	for i, sel := range selections {
		if strings.TrimSpace(sel.ProductID) == "" {
			return nil, fmt.Errorf("product id is required: %w", ErrInvalidInput)
		}
		qty := sel.Qty
		if qty <= 0 {
			qty = 1
		}
		items = append(items, pricing.BundleItem{
			ID:        fmt.Sprintf("%s-%s-%d", bundleID, sel.ProductID, i),
			ProductID: sel.ProductID,
			Title:     sel.Title,
			Qty:       qty,
			Size:      size,
			Frame:     frame,
			UnitPrice: pricing.UnitPrice(size, frame),
		})
	}
	return items, nil
}

func buildBundle(id string, items []pricing.BundleItem) Bundle {
	deal, totals := pricing.Allocate(items)
	if obs.BundleAllocationUnits != nil {
		units := 0
		for _, item := range items {
			units += item.Qty
		}
		obs.BundleAllocationUnits.Observe(float64(units))
	}
	return Bundle{
		ID:          id,
		Items:       items,
		Subtotal:    totals.Subtotal,
		Total:       totals.Total,
		Discount:    totals.Discount,
		AppliedDeal: deal,
	}
}
