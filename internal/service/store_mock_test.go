package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func mustDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// memStore is an in-memory repository.Store. WithTx snapshots all tables and
// restores them when fn fails.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	products   map[uuid.UUID]domain.Product
	categories map[uuid.UUID]domain.Category
	carts      map[string]domain.Cart
	items      map[uuid.UUID]map[uuid.UUID]domain.CartItem

	failProductWrites error
}

// memTx is the Store handed to WithTx callbacks; nested calls join it.
type memTx struct{ *memStore }

func (t memTx) WithTx(ctx context.Context, fn func(repository.Store) error) error {
	return fn(t)
}

func newMemStore() *memStore {
	return &memStore{
		products:   make(map[uuid.UUID]domain.Product),
		categories: make(map[uuid.UUID]domain.Category),
		carts:      make(map[string]domain.Cart),
		items:      make(map[uuid.UUID]map[uuid.UUID]domain.CartItem),
	}
}

func (m *memStore) Products() repository.ProductRepository   { return memProducts{m} }
func (m *memStore) Categories() repository.CategoryRepository { return memCategories{m} }
func (m *memStore) Carts() repository.CartRepository          { return memCarts{m} }

func (m *memStore) WithTx(ctx context.Context, fn func(repository.Store) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	snapshot := m.clone()
	m.mu.Unlock()

	err := fn(memTx{m})

	m.mu.Lock()
	if err != nil {
		m.products = snapshot.products
		m.categories = snapshot.categories
		m.carts = snapshot.carts
		m.items = snapshot.items
	}
	m.mu.Unlock()
	return err
}

func (m *memStore) clone() *memStore {
	c := newMemStore()
	for k, v := range m.products {
		c.products[k] = v
	}
	for k, v := range m.categories {
		c.categories[k] = v
	}
	for k, v := range m.carts {
		c.carts[k] = v
	}
	for cartID, items := range m.items {
		c.items[cartID] = make(map[uuid.UUID]domain.CartItem, len(items))
		for k, v := range items {
			c.items[cartID][k] = v
		}
	}
	return c
}

func (m *memStore) productCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.products)
}

func (m *memStore) categoryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.categories)
}

func (m *memStore) cartCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.carts)
}

// addProduct stores p directly, creating its category by name when given.
func (m *memStore) addProduct(name, price, category string) domain.Product {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	p := domain.Product{
		ID:        uuid.New(),
		Name:      name,
		Price:     mustDecimal(price),
		Stock:     10,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if category != "" {
		var id *uuid.UUID
		for _, c := range m.categories {
			if strings.EqualFold(c.Name, category) {
				cid := c.ID
				id = &cid
			}
		}
		if id == nil {
			c := domain.Category{ID: uuid.New(), Name: category, CreatedAt: now}
			m.categories[c.ID] = c
			id = &c.ID
		}
		p.CategoryID = id
	}
	m.products[p.ID] = p
	return p
}

func (m *memStore) withCategoryName(p domain.Product) *domain.Product {
	p.CategoryName = ""
	if p.CategoryID != nil {
		if c, ok := m.categories[*p.CategoryID]; ok {
			p.CategoryName = c.Name
		}
	}
	return &p
}

type memProducts struct{ m *memStore }

func (r memProducts) Create(ctx context.Context, product *domain.Product) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.failProductWrites != nil {
		return r.m.failProductWrites
	}
	for _, p := range r.m.products {
		if p.ExternalID != nil && product.ExternalID != nil && *p.ExternalID == *product.ExternalID {
			return repository.ErrProductAlreadyExists
		}
	}
	r.m.products[product.ID] = *product
	return nil
}

func (r memProducts) Update(ctx context.Context, product *domain.Product) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.failProductWrites != nil {
		return r.m.failProductWrites
	}
	existing, ok := r.m.products[product.ID]
	if !ok {
		return repository.ErrProductNotFound
	}
	updated := *product
	updated.ExternalID = existing.ExternalID
	updated.CreatedAt = existing.CreatedAt
	r.m.products[product.ID] = updated
	return nil
}

func (r memProducts) Delete(ctx context.Context, id uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(r.m.products, id)
	for _, items := range r.m.items {
		delete(items, id)
	}
	return nil
}

func (r memProducts) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return r.m.withCategoryName(p), nil
}

func (r memProducts) FindByExternalID(ctx context.Context, externalID int64) (*domain.Product, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, p := range r.m.products {
		if p.ExternalID != nil && *p.ExternalID == externalID {
			return r.m.withCategoryName(p), nil
		}
	}
	return nil, repository.ErrProductNotFound
}

func (r memProducts) List(ctx context.Context, q repository.ProductQuery) ([]*domain.Product, int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	var matched []*domain.Product
	for _, p := range r.m.products {
		product := r.m.withCategoryName(p)
		if product.Price.LessThan(q.MinPrice) || product.Price.GreaterThan(q.MaxPrice) {
			continue
		}
		if q.Category != "" && !strings.EqualFold(product.CategoryName, q.Category) {
			continue
		}
		if q.Search != "" && !strings.Contains(strings.ToLower(product.Name), strings.ToLower(q.Search)) {
			continue
		}
		matched = append(matched, product)
	}

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		var less bool
		switch q.SortBy {
		case "name":
			less = a.Name < b.Name
		case "price":
			less = a.Price.LessThan(b.Price)
		default:
			less = a.CreatedAt.Before(b.CreatedAt)
		}
		if q.SortOrder == repository.SortOrderDesc {
			return !less
		}
		return less
	})

	total := len(matched)
	start := q.Offset
	if start > total {
		start = total
	}
	end := start + q.Limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

type memCategories struct{ m *memStore }

func (r memCategories) Create(ctx context.Context, category *domain.Category) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, c := range r.m.categories {
		if strings.EqualFold(c.Name, category.Name) {
			return repository.ErrCategoryAlreadyExists
		}
	}
	r.m.categories[category.ID] = *category
	return nil
}

func (r memCategories) List(ctx context.Context) ([]*domain.Category, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []*domain.Category{}
	for _, c := range r.m.categories {
		c := c
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r memCategories) FindByName(ctx context.Context, name string) (*domain.Category, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, c := range r.m.categories {
		if strings.EqualFold(c.Name, name) {
			c := c
			return &c, nil
		}
	}
	return nil, repository.ErrCategoryNotFound
}

type memCarts struct{ m *memStore }

func (r memCarts) CreateIfAbsent(ctx context.Context, cart *domain.Cart) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.carts[cart.SessionID]; !ok {
		stored := *cart
		stored.Items = nil
		r.m.carts[cart.SessionID] = stored
	}
	return nil
}

func (r memCarts) FindBySessionID(ctx context.Context, sessionID string) (*domain.Cart, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	cart, ok := r.m.carts[sessionID]
	if !ok {
		return nil, repository.ErrCartNotFound
	}

	cart.Items = []domain.CartItem{}
	for _, item := range r.m.items[cart.ID] {
		item.Product = *r.m.withCategoryName(r.m.products[item.ProductID])
		cart.Items = append(cart.Items, item)
	}
	sort.Slice(cart.Items, func(i, j int) bool {
		return cart.Items[i].CreatedAt.Before(cart.Items[j].CreatedAt)
	})
	return &cart, nil
}

func (r memCarts) cartByID(cartID uuid.UUID) (string, bool) {
	for session, c := range r.m.carts {
		if c.ID == cartID {
			return session, true
		}
	}
	return "", false
}

func (r memCarts) Touch(ctx context.Context, cartID uuid.UUID, at time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	session, ok := r.cartByID(cartID)
	if !ok {
		return repository.ErrCartNotFound
	}
	c := r.m.carts[session]
	c.UpdatedAt = at
	r.m.carts[session] = c
	return nil
}

func (r memCarts) Delete(ctx context.Context, cartID uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	session, ok := r.cartByID(cartID)
	if !ok {
		return repository.ErrCartNotFound
	}
	delete(r.m.items, cartID)
	delete(r.m.carts, session)
	return nil
}

func (r memCarts) AddItem(ctx context.Context, item *domain.CartItem) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	items, ok := r.m.items[item.CartID]
	if !ok {
		items = make(map[uuid.UUID]domain.CartItem)
		r.m.items[item.CartID] = items
	}
	if existing, ok := items[item.ProductID]; ok {
		existing.Quantity += item.Quantity
		existing.UpdatedAt = item.UpdatedAt
		items[item.ProductID] = existing
		return nil
	}
	items[item.ProductID] = *item
	return nil
}

func (r memCarts) UpdateItemQuantity(ctx context.Context, cartID, productID uuid.UUID, quantity int, at time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	item, ok := r.m.items[cartID][productID]
	if !ok {
		return repository.ErrCartItemNotFound
	}
	item.Quantity = quantity
	item.UpdatedAt = at
	r.m.items[cartID][productID] = item
	return nil
}

func (r memCarts) RemoveItem(ctx context.Context, cartID, productID uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.items[cartID][productID]; !ok {
		return repository.ErrCartItemNotFound
	}
	delete(r.m.items[cartID], productID)
	return nil
}

func (r memCarts) ClearItems(ctx context.Context, cartID uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	delete(r.m.items, cartID)
	return nil
}
