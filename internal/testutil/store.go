// Package testutil provides in-memory stand-ins for the MongoDB repositories
// and external gateways so handlers and routes can be exercised without
// running services.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"podreseller_back_end/internal/apperr"
	"podreseller_back_end/internal/models"
	"podreseller_back_end/internal/repository"
	"podreseller_back_end/internal/services"
)

var ErrInjected = errors.New("injected failure")

// Store keeps every collection in memory. Set the Fail* fields to make the
// matching operations return ErrInjected.
type Store struct {
	mu       sync.Mutex
	products []models.Product
	carts    []models.CartItem
	users    []models.User
	payments []models.Payment
	cleanups []models.CleanupJob

	FailReads      bool
	FailCartDelete bool
}

func NewStore() *Store { return &Store{} }

// Products, Carts, Users and Payments expose narrow views with the same method
// sets as the repositories they replace.
func (s *Store) Products() *Products { return &Products{s} }
func (s *Store) Carts() *Carts       { return &Carts{s} }
func (s *Store) Users() *Users       { return &Users{s} }
func (s *Store) Payments() *Payments { return &Payments{s} }

func (s *Store) readErr() error {
	if s.FailReads {
		return ErrInjected
	}
	return nil
}

// =============================================
// PRODUCTS
// =============================================

type Products struct{ s *Store }

func (p *Products) Seed(items ...models.Product) []models.Product {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	out := make([]models.Product, 0, len(items))
	for _, it := range items {
		if it.ID.IsZero() {
			it.ID = primitive.NewObjectID()
		}
		p.s.products = append(p.s.products, it)
		out = append(out, it)
	}
	return out
}

func (p *Products) filter(match func(models.Product) bool) ([]models.Product, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	if err := p.s.readErr(); err != nil {
		return nil, err
	}
	out := []models.Product{}
	for _, it := range p.s.products {
		if match(it) {
			out = append(out, it)
		}
	}
	return out, nil
}

func (p *Products) All(context.Context) ([]models.Product, error) {
	return p.filter(func(models.Product) bool { return true })
}

func (p *Products) ByCategory(_ context.Context, category string) ([]models.Product, error) {
	return p.filter(func(it models.Product) bool { return it.Category == category })
}

func (p *Products) BySeller(_ context.Context, seller string) ([]models.Product, error) {
	return p.filter(func(it models.Product) bool { return it.SellerName == seller })
}

func (p *Products) ByID(_ context.Context, id primitive.ObjectID) ([]models.Product, error) {
	return p.filter(func(it models.Product) bool { return it.ID == id })
}

func (p *Products) Search(_ context.Context, q string) ([]models.Product, error) {
	q = strings.ToLower(q)
	return p.filter(func(it models.Product) bool {
		for _, f := range []string{it.Name, it.Description, it.Category, it.SellerName} {
			if strings.Contains(strings.ToLower(f), q) {
				return true
			}
		}
		return false
	})
}

func (p *Products) Insert(_ context.Context, it *models.Product) (models.InsertResult, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	it.ID = primitive.NewObjectID()
	p.s.products = append(p.s.products, *it)
	return models.InsertResult{Acknowledged: true, InsertedID: it.ID}, nil
}

func (p *Products) Update(_ context.Context, id primitive.ObjectID, fields map[string]any) (models.UpdateResult, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	res := models.UpdateResult{Acknowledged: true}
	for i := range p.s.products {
		it := &p.s.products[i]
		if it.ID != id {
			continue
		}
		res.MatchedCount = 1
		before := *it
		for k, v := range fields {
			switch k {
			case "name":
				it.Name = v.(string)
			case "price":
				it.Price = v.(float64)
			case "description":
				it.Description = v.(string)
			case "image":
				it.Image = v.(string)
			default:
				return models.UpdateResult{}, fmt.Errorf("unknown product field %q", k)
			}
		}
		if *it != before {
			res.ModifiedCount = 1
		}
	}
	return res, nil
}

func (p *Products) Delete(_ context.Context, id primitive.ObjectID) (models.DeleteResult, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	res := models.DeleteResult{Acknowledged: true}
	kept := p.s.products[:0]
	for _, it := range p.s.products {
		if it.ID == id {
			res.DeletedCount++
			continue
		}
		kept = append(kept, it)
	}
	p.s.products = kept
	return res, nil
}

// =============================================
// CARTS
// =============================================

type Carts struct{ s *Store }

func (c *Carts) Insert(_ context.Context, item *models.CartItem) (models.InsertResult, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	item.ID = primitive.NewObjectID()
	c.s.carts = append(c.s.carts, *item)
	return models.InsertResult{Acknowledged: true, InsertedID: item.ID}, nil
}

func (c *Carts) ByEmail(_ context.Context, email string) ([]models.CartItem, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if err := c.s.readErr(); err != nil {
		return nil, err
	}
	out := []models.CartItem{}
	for _, it := range c.s.carts {
		if it.Email == email {
			out = append(out, it)
		}
	}
	return out, nil
}

func (c *Carts) Delete(_ context.Context, id primitive.ObjectID) (models.DeleteResult, string, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	email := ""
	for _, it := range c.s.carts {
		if it.ID == id {
			email = it.Email
		}
	}
	n := c.s.deleteCartsLocked([]primitive.ObjectID{id})
	return models.DeleteResult{Acknowledged: true, DeletedCount: n}, email, nil
}

func (s *Store) deleteCartsLocked(ids []primitive.ObjectID) int64 {
	drop := map[primitive.ObjectID]bool{}
	for _, id := range ids {
		drop[id] = true
	}
	var n int64
	kept := s.carts[:0]
	for _, it := range s.carts {
		if drop[it.ID] {
			n++
			continue
		}
		kept = append(kept, it)
	}
	s.carts = kept
	return n
}

// =============================================
// USERS
// =============================================

type Users struct{ s *Store }

func (u *Users) Seed(items ...models.User) []models.User {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	out := make([]models.User, 0, len(items))
	for _, it := range items {
		if it.ID.IsZero() {
			it.ID = primitive.NewObjectID()
		}
		u.s.users = append(u.s.users, it)
		out = append(out, it)
	}
	return out
}

func (u *Users) All(context.Context) ([]models.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if err := u.s.readErr(); err != nil {
		return nil, err
	}
	return append([]models.User{}, u.s.users...), nil
}

func (u *Users) FindByEmail(_ context.Context, email string) (*models.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if err := u.s.readErr(); err != nil {
		return nil, err
	}
	for _, it := range u.s.users {
		if it.Email == email {
			found := it
			return &found, nil
		}
	}
	return nil, nil
}

// Insert enforces email uniqueness like the unique index does.
func (u *Users) Insert(_ context.Context, it *models.User) (models.InsertResult, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	for _, existing := range u.s.users {
		if existing.Email == it.Email {
			return models.InsertResult{}, repository.ErrUserExists
		}
	}
	it.ID = primitive.NewObjectID()
	u.s.users = append(u.s.users, *it)
	return models.InsertResult{Acknowledged: true, InsertedID: it.ID}, nil
}

func (u *Users) Delete(_ context.Context, id primitive.ObjectID) (models.DeleteResult, string, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	for i, it := range u.s.users {
		if it.ID == id {
			u.s.users = append(u.s.users[:i], u.s.users[i+1:]...)
			return models.DeleteResult{Acknowledged: true, DeletedCount: 1}, it.Email, nil
		}
	}
	return models.DeleteResult{Acknowledged: true}, "", nil
}

func (u *Users) PromoteAdmin(_ context.Context, id primitive.ObjectID) (models.UpdateResult, string, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	for i := range u.s.users {
		it := &u.s.users[i]
		if it.ID != id {
			continue
		}
		res := models.UpdateResult{Acknowledged: true, MatchedCount: 1}
		if !it.IsAdmin() {
			res.ModifiedCount = 1
		}
		it.Role = models.RoleAdmin
		return res, it.Email, nil
	}
	return models.UpdateResult{Acknowledged: true}, "", nil
}

// =============================================
// PAYMENTS
// =============================================

type Payments struct{ s *Store }

func (p *Payments) ByEmail(_ context.Context, email string) ([]models.Payment, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	if err := p.s.readErr(); err != nil {
		return nil, err
	}
	out := []models.Payment{}
	for _, it := range p.s.payments {
		if it.Email == email {
			out = append(out, it)
		}
	}
	return out, nil
}

// Checkout mirrors the repository's non-transactional path, including the
// cleanup job queued when FailCartDelete is set.
func (p *Payments) Checkout(_ context.Context, pay *models.Payment) (models.CheckoutResult, error) {
	ids, err := repository.ParseIDs(pay.CartIDs)
	if err != nil {
		return models.CheckoutResult{}, err
	}

	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	pay.ID = primitive.NewObjectID()
	if pay.Date == nil {
		now := time.Now().UTC()
		pay.Date = &now
	}
	p.s.payments = append(p.s.payments, *pay)
	res := models.CheckoutResult{PaymentResult: models.InsertResult{Acknowledged: true, InsertedID: pay.ID}}

	if p.s.FailCartDelete {
		res.CleanupPending = true
		p.s.cleanups = append(p.s.cleanups, models.CleanupJob{
			ID:        primitive.NewObjectID(),
			PaymentID: pay.ID,
			CartIDs:   pay.CartIDs,
			LastError: ErrInjected.Error(),
			CreatedAt: time.Now().UTC(),
		})
		return res, nil
	}

	res.DeleteResult = models.DeleteResult{Acknowledged: true, DeletedCount: p.s.deleteCartsLocked(ids)}
	return res, nil
}

func (p *Payments) SetStatusByTransaction(_ context.Context, transactionID, status string) (models.UpdateResult, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	res := models.UpdateResult{Acknowledged: true}
	for i := range p.s.payments {
		if p.s.payments[i].TransactionID == transactionID {
			res.MatchedCount++
			if p.s.payments[i].Status != status {
				res.ModifiedCount++
			}
			p.s.payments[i].Status = status
			break
		}
	}
	return res, nil
}

func (p *Payments) PendingCleanups(context.Context) ([]models.CleanupJob, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	if err := p.s.readErr(); err != nil {
		return nil, err
	}
	return append([]models.CleanupJob{}, p.s.cleanups...), nil
}

func (p *Payments) DeleteCarts(_ context.Context, cartIDs []string) (models.DeleteResult, error) {
	ids, err := repository.ParseIDs(cartIDs)
	if err != nil {
		return models.DeleteResult{}, err
	}
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	if p.s.FailCartDelete {
		return models.DeleteResult{}, ErrInjected
	}
	return models.DeleteResult{Acknowledged: true, DeletedCount: p.s.deleteCartsLocked(ids)}, nil
}

func (p *Payments) CompleteCleanup(_ context.Context, jobID primitive.ObjectID) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	for i, j := range p.s.cleanups {
		if j.ID == jobID {
			p.s.cleanups = append(p.s.cleanups[:i], p.s.cleanups[i+1:]...)
			return nil
		}
	}
	return nil
}

func (p *Payments) FailCleanup(_ context.Context, jobID primitive.ObjectID, cause error) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	for i := range p.s.cleanups {
		if p.s.cleanups[i].ID == jobID {
			p.s.cleanups[i].Attempts++
			p.s.cleanups[i].LastError = cause.Error()
		}
	}
	return nil
}

// =============================================
// GATEWAYS
// =============================================

// Index is an in-memory search index matching on product name.
type Index struct {
	mu      sync.Mutex
	docs    map[string]models.Product
	Removed []string
	Err     error
}

func NewIndex() *Index { return &Index{docs: map[string]models.Product{}} }

func (i *Index) Index(_ context.Context, p models.Product) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.Err != nil {
		return i.Err
	}
	i.docs[p.ID.Hex()] = p
	return nil
}

func (i *Index) Remove(_ context.Context, id string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.docs, id)
	i.Removed = append(i.Removed, id)
	return i.Err
}

func (i *Index) Search(_ context.Context, q string) ([]models.Product, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.Err != nil {
		return nil, i.Err
	}
	out := []models.Product{}
	for _, p := range i.docs {
		if strings.Contains(strings.ToLower(p.Name), strings.ToLower(q)) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (i *Index) Doc(id string) (models.Product, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	p, ok := i.docs[id]
	return p, ok
}

// Images records uploads and returns a predictable URL.
type Images struct {
	Uploaded []string
}

func (im *Images) Upload(_ context.Context, productID, filename string, r io.Reader, _ int64, _ string) (string, error) {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	url := fmt.Sprintf("http://minio.local/products/%s/%s", productID, filename)
	im.Uploaded = append(im.Uploaded, url)
	return url, nil
}

// Mailer records receipts instead of sending them.
type Mailer struct {
	mu   sync.Mutex
	Sent []models.Payment
}

func (m *Mailer) SendReceipt(_ context.Context, p models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, p)
	return nil
}

func (m *Mailer) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}

// CartFeed is an in-process stand-in for the Redis cart channels.
type CartFeed struct {
	mu        sync.Mutex
	subs      map[string][]chan string
	published []string
}

func NewCartFeed() *CartFeed { return &CartFeed{subs: map[string][]chan string{}} }

func (f *CartFeed) Publish(_ context.Context, email, event string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, email+" "+event)
	for _, ch := range f.subs[email] {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

func (f *CartFeed) Subscribe(_ context.Context, email string) (<-chan string, func(), error) {
	ch := make(chan string, 16)
	f.mu.Lock()
	f.subs[email] = append(f.subs[email], ch)
	f.mu.Unlock()

	stop := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		subs := f.subs[email]
		for i, c := range subs {
			if c == ch {
				f.subs[email] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
	}
	return ch, stop, nil
}

// Published lists "<email> <event>" in publish order.
func (f *CartFeed) Published() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.published...)
}

// Subscribers reports how many streams listen on email's channel.
func (f *CartFeed) Subscribers(email string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs[email])
}

// Gateway stands in for Stripe. ParseWebhook accepts any payload whose
// signature equals ValidSignature.
type Gateway struct {
	mu             sync.Mutex
	Amounts        []int64
	ValidSignature string
	Event          services.WebhookEvent
	Err            error
}

func (g *Gateway) CreatePaymentIntent(amount int64, currency string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return "", g.Err
	}
	g.Amounts = append(g.Amounts, amount)
	return fmt.Sprintf("pi_test_%d_secret_%s", amount, currency), nil
}

func (g *Gateway) ParseWebhook(_ []byte, signature string) (services.WebhookEvent, error) {
	if signature != g.ValidSignature {
		return services.WebhookEvent{}, apperr.BadRequest("invalid signature")
	}
	return g.Event, nil
}
