// Package cart управляет корзиной покупателя: снимки цен, проверка остатков, кэш чтения.
package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/vladislavdragonenkov/storefront/internal/cache"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

const cacheOpTimeout = time.Second

// Storage — хранилище корзин с атомарной границей по владельцу.
type Storage interface {
	domain.Transactor
	Carts() domain.CartRepository
}

// Cache — кэш корзин для чтения. Промах обозначается cache.ErrCacheMiss, остальные ошибки не ломают запрос.
type Cache interface {
	Get(ctx context.Context, owner string) (domain.Cart, error)
	Set(ctx context.Context, cart domain.Cart) error
	Delete(ctx context.Context, owner string) error
}

// Option настраивает Service.
type Option func(*Service)

// WithCache подключает кэш корзин.
func WithCache(c Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithLogger задаёт logger сервиса.
func WithLogger(logger *log.Entry) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics задаёт метрики корзины.
func WithMetrics(m *metrics.CartMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock подменяет источник времени (для тестов).
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service реализует операции корзины.
type Service struct {
	store   Storage
	catalog domain.CatalogReader
	cache   Cache
	logger  *log.Entry
	metrics *metrics.CartMetrics
	now     func() time.Time

	loads singleflight.Group
}

// NewService создаёт сервис корзины.
func NewService(store Storage, catalog domain.CatalogReader, options ...Option) *Service {
	s := &Service{
		store:   store,
		catalog: catalog,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, option := range options {
		option(s)
	}
	if s.logger == nil {
		s.logger = log.WithField("component", "cart-service")
	}
	return s
}

// Get возвращает корзину владельца, создавая пустую при первом обращении.
func (s *Service) Get(ctx context.Context, owner string) (domain.Cart, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return domain.Cart{}, domain.ErrOwnerRequired
	}

	if cart, ok := s.fromCache(ctx, owner); ok {
		return cart, nil
	}

	v, err, _ := s.loads.Do(owner, func() (any, error) {
		if s.cache == nil {
			return s.load(ctx, owner)
		}
		return s.loadAndFill(ctx, owner)
	})
	if err != nil {
		return domain.Cart{}, err
	}
	return v.(domain.Cart).Clone(), nil
}

// SetItem ставит количество товара в корзине. quantity < 1 удаляет позицию.
func (s *Service) SetItem(ctx context.Context, owner, productID string, quantity int) (domain.Cart, error) {
	if quantity < 1 {
		return s.RemoveItem(ctx, owner, productID)
	}

	owner = strings.TrimSpace(owner)
	productID = strings.TrimSpace(productID)
	if owner == "" {
		return domain.Cart{}, domain.ErrOwnerRequired
	}

	product, err := s.availableProduct(ctx, productID)
	if err != nil {
		s.recordMutation("set_item", err)
		return domain.Cart{}, err
	}
	if quantity > product.Stock {
		err := fmt.Errorf("%w: product %s has %d, requested %d", domain.ErrInsufficientStock, productID, product.Stock, quantity)
		s.recordMutation("set_item", err)
		return domain.Cart{}, err
	}

	snapshot := product.Snapshot()
	return s.mutate(ctx, owner, "set_item", func(cart *domain.Cart, now time.Time) (bool, error) {
		cart.Upsert(domain.CartItem{
			ProductID: snapshot.ID,
			Quantity:  quantity,
			UnitPrice: snapshot.Price,
			Name:      snapshot.Name,
			Image:     snapshot.Image,
		}, now)
		return true, nil
	})
}

// RemoveItem удаляет позицию; отсутствие позиции не считается ошибкой.
func (s *Service) RemoveItem(ctx context.Context, owner, productID string) (domain.Cart, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return domain.Cart{}, domain.ErrOwnerRequired
	}
	productID = strings.TrimSpace(productID)

	return s.mutate(ctx, owner, "remove_item", func(cart *domain.Cart, now time.Time) (bool, error) {
		return cart.Remove(productID, now), nil
	})
}

// Clear очищает корзину.
func (s *Service) Clear(ctx context.Context, owner string) (domain.Cart, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return domain.Cart{}, domain.ErrOwnerRequired
	}

	return s.mutate(ctx, owner, "clear", func(cart *domain.Cart, now time.Time) (bool, error) {
		cart.Empty(now)
		return true, nil
	})
}

// RefreshReport перечисляет позиции, изменённые при обновлении снимков.
type RefreshReport struct {
	Removed  []string
	Capped   []string
	Repriced []string
}

// Changed сообщает, изменилось ли что-нибудь.
func (r RefreshReport) Changed() bool {
	return len(r.Removed)+len(r.Capped)+len(r.Repriced) > 0
}

// Refresh заново снимает цены всех позиций из каталога. Позиции снятых с продажи товаров
// удаляются, количество сверх остатка урезается.
func (s *Service) Refresh(ctx context.Context, owner string) (domain.Cart, RefreshReport, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return domain.Cart{}, RefreshReport{}, domain.ErrOwnerRequired
	}

	var report RefreshReport
	cart, err := s.mutate(ctx, owner, "refresh", func(cart *domain.Cart, now time.Time) (bool, error) {
		report = RefreshReport{}
		items := append([]domain.CartItem(nil), cart.Items...)
		for _, item := range items {
			product, err := s.availableProduct(ctx, item.ProductID)
			if errors.Is(err, domain.ErrProductNotFound) || (err == nil && product.Stock <= 0) {
				cart.Remove(item.ProductID, now)
				report.Removed = append(report.Removed, item.ProductID)
				continue
			}
			if err != nil {
				return false, err
			}

			snapshot := product.Snapshot()
			next := domain.CartItem{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				UnitPrice: snapshot.Price,
				Name:      snapshot.Name,
				Image:     snapshot.Image,
			}
			if next.Quantity > product.Stock {
				next.Quantity = product.Stock
				report.Capped = append(report.Capped, item.ProductID)
			}
			if !next.UnitPrice.Equal(item.UnitPrice) {
				report.Repriced = append(report.Repriced, item.ProductID)
			}
			cart.Upsert(next, now)
		}
		return report.Changed(), nil
	})
	if err != nil {
		return domain.Cart{}, RefreshReport{}, err
	}

	if report.Changed() {
		s.logger.WithFields(log.Fields{
			"owner":    owner,
			"removed":  len(report.Removed),
			"capped":   len(report.Capped),
			"repriced": len(report.Repriced),
		}).Info("cart refreshed from catalog")
	}
	return cart, report, nil
}

// Invalidate удаляет корзину из кэша; вызывается после изменений корзины вне сервиса.
func (s *Service) Invalidate(ctx context.Context, owner string) {
	if s.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheOpTimeout)
	defer cancel()
	if err := s.cache.Delete(ctx, owner); err != nil {
		s.logger.WithError(err).WithField("owner", owner).Warn("cart cache invalidate failed")
	}
}

// mutate загружает корзину в атомарной границе владельца, применяет fn и сохраняет результат.
// При ошибке fn хранилище не меняется.
func (s *Service) mutate(ctx context.Context, owner, op string, fn func(cart *domain.Cart, now time.Time) (bool, error)) (domain.Cart, error) {
	var result domain.Cart
	err := s.store.Atomically(ctx, owner, func(ctx context.Context, tx domain.Tx) error {
		cart, created, err := loadOrNew(ctx, tx.Carts(), owner, s.now())
		if err != nil {
			return err
		}
		changed, err := fn(&cart, s.now())
		if err != nil {
			return err
		}
		if changed || created {
			if err := tx.Carts().Save(ctx, cart); err != nil {
				return fmt.Errorf("save cart: %w", err)
			}
		}
		result = cart
		return nil
	})
	s.recordMutation(op, err)
	if err != nil {
		return domain.Cart{}, err
	}

	s.Invalidate(ctx, owner)
	return result, nil
}

func (s *Service) load(ctx context.Context, owner string) (domain.Cart, error) {
	cart, err := s.store.Carts().Get(ctx, owner)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, domain.ErrCartNotFound) {
		return domain.Cart{}, fmt.Errorf("load cart: %w", err)
	}

	err = s.store.Atomically(ctx, owner, func(ctx context.Context, tx domain.Tx) error {
		var created bool
		cart, created, err = loadOrNew(ctx, tx.Carts(), owner, s.now())
		if err != nil || !created {
			return err
		}
		return tx.Carts().Save(ctx, cart)
	})
	if err != nil {
		return domain.Cart{}, fmt.Errorf("create cart: %w", err)
	}
	return cart, nil
}

// loadAndFill читает корзину и заполняет кэш под блокировкой владельца. Изменение корзины
// не может зафиксироваться между чтением и записью в кэш, а его инвалидация идёт после коммита.
func (s *Service) loadAndFill(ctx context.Context, owner string) (domain.Cart, error) {
	var cart domain.Cart
	err := s.store.Atomically(ctx, owner, func(ctx context.Context, tx domain.Tx) error {
		var (
			created bool
			err     error
		)
		cart, created, err = loadOrNew(ctx, tx.Carts(), owner, s.now())
		if err != nil {
			return err
		}
		if created {
			if err := tx.Carts().Save(ctx, cart); err != nil {
				return err
			}
		}
		s.toCache(ctx, cart)
		return nil
	})
	if err != nil {
		return domain.Cart{}, fmt.Errorf("load cart: %w", err)
	}
	return cart, nil
}

func loadOrNew(ctx context.Context, carts domain.CartRepository, owner string, now time.Time) (domain.Cart, bool, error) {
	cart, err := carts.Get(ctx, owner)
	switch {
	case err == nil:
		return cart, false, nil
	case errors.Is(err, domain.ErrCartNotFound):
		return domain.NewCart(owner, now), true, nil
	default:
		return domain.Cart{}, false, fmt.Errorf("load cart: %w", err)
	}
}

// availableProduct возвращает товар, доступный для продажи.
func (s *Service) availableProduct(ctx context.Context, productID string) (domain.Product, error) {
	if productID == "" {
		return domain.Product{}, fmt.Errorf("%w: empty product id", domain.ErrProductNotFound)
	}
	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}
	if !product.Active {
		return domain.Product{}, fmt.Errorf("%w: %s is inactive", domain.ErrProductNotFound, productID)
	}
	return product, nil
}

func (s *Service) fromCache(ctx context.Context, owner string) (domain.Cart, bool) {
	if s.cache == nil {
		return domain.Cart{}, false
	}

	cacheCtx, cancel := context.WithTimeout(ctx, cacheOpTimeout)
	defer cancel()

	cart, err := s.cache.Get(cacheCtx, owner)
	switch {
	case err == nil:
		s.recordCache("hit")
		return cart, true
	case errors.Is(err, cache.ErrCacheMiss):
		s.recordCache("miss")
	default:
		s.recordCache("error")
		s.logger.WithError(err).WithField("owner", owner).Warn("cart cache get failed")
	}
	return domain.Cart{}, false
}

func (s *Service) toCache(ctx context.Context, cart domain.Cart) {
	if s.cache == nil {
		return
	}
	cacheCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheOpTimeout)
	defer cancel()
	if err := s.cache.Set(cacheCtx, cart); err != nil {
		s.logger.WithError(err).WithField("owner", cart.Owner).Warn("cart cache set failed")
	}
}

func (s *Service) recordMutation(op string, err error) {
	if s.metrics != nil {
		s.metrics.RecordMutation(op, err)
	}
}

func (s *Service) recordCache(result string) {
	if s.metrics != nil {
		s.metrics.RecordCache(result)
	}
}
