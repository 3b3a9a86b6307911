// Package ledger keeps customer accounts: customers, their transaction log
// and the balances computed from it.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"seafood-agent/internal/domain"
	"seafood-agent/internal/store"
	"seafood-agent/internal/textnorm"
)

const maxSuggestions = 5

var phonePattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

type Ledger struct {
	db       *store.Store
	log      *zap.Logger
	now      func() time.Time
	newToken func() string
}

func New(db *store.Store, log *zap.Logger) (*Ledger, error) {
	if db == nil {
		return nil, errors.New("ledger: store must not be nil")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{
		db:  db,
		log: log.With(zap.String("component", "ledger")),
		now: func() time.Time { return time.Now().UTC() },
		newToken: func() string {
			return strings.ReplaceAll(uuid.NewString(), "-", "")
		},
	}, nil
}

// ResolveCustomer finds an active customer by name, ignoring case and
// diacritics. On a miss the error is a *domain.NotFoundError carrying up to
// five suggestions.
func (l *Ledger) ResolveCustomer(ctx context.Context, name string) (domain.Customer, error) {
	if strings.TrimSpace(name) == "" {
		return domain.Customer{}, domain.InvalidInput("falta el nombre del cliente")
	}
	customers, err := l.db.ListActiveCustomers(ctx)
	if err != nil {
		return domain.Customer{}, fmt.Errorf("ledger: resolve customer: %w", err)
	}
	names := make([]string, len(customers))
	for i, c := range customers {
		names[i] = c.Name
	}
	m := textnorm.Resolve(names, name, maxSuggestions)
	if m.Index < 0 {
		return domain.Customer{}, domain.NotFound("cliente", name, m.Suggestions...)
	}
	return customers[m.Index], nil
}

func (l *Ledger) Customer(ctx context.Context, id uint) (domain.Customer, error) {
	c, err := l.db.GetCustomer(ctx, id)
	if err != nil {
		return domain.Customer{}, err
	}
	if !c.IsActive {
		return domain.Customer{}, domain.NotFound("cliente", fmt.Sprintf("#%d", id))
	}
	return c, nil
}

// CreateCustomer registers a new customer. A name that already exists
// (folded) is a conflict.
func (l *Ledger) CreateCustomer(ctx context.Context, name, phone string) (domain.Customer, error) {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return domain.Customer{}, domain.InvalidInput("falta el nombre del cliente")
	}
	if err := l.ensureNameFree(ctx, name, 0); err != nil {
		return domain.Customer{}, err
	}
	c := domain.Customer{Name: name, IsActive: true}
	if strings.TrimSpace(phone) != "" {
		p, err := NormalizePhone(phone)
		if err != nil {
			return domain.Customer{}, err
		}
		c.Phone = &p
	}
	if err := l.db.CreateCustomer(ctx, &c); err != nil {
		return domain.Customer{}, fmt.Errorf("ledger: create customer: %w", err)
	}
	l.log.Info("customer created", zap.Uint("customer_id", c.ID))
	return c, nil
}

// FindOrCreateCustomer resolves name and creates the customer implicitly when
// nothing resembles it. When there are close matches nothing is created and
// the *domain.NotFoundError with suggestions is returned.
func (l *Ledger) FindOrCreateCustomer(ctx context.Context, name string) (domain.Customer, bool, error) {
	c, err := l.ResolveCustomer(ctx, name)
	if err == nil {
		return c, false, nil
	}
	var nf *domain.NotFoundError
	if !errors.As(err, &nf) || len(nf.Suggestions) > 0 {
		return domain.Customer{}, false, err
	}
	c, err = l.CreateCustomer(ctx, titleName(name), "")
	if err != nil {
		return domain.Customer{}, false, err
	}
	return c, true, nil
}

func (l *Ledger) RenameCustomer(ctx context.Context, id uint, newName string) (domain.Customer, error) {
	newName = strings.Join(strings.Fields(newName), " ")
	if newName == "" {
		return domain.Customer{}, domain.InvalidInput("falta el nuevo nombre")
	}
	if err := l.ensureNameFree(ctx, newName, id); err != nil {
		return domain.Customer{}, err
	}
	if err := l.db.UpdateCustomer(ctx, id, map[string]any{"name": newName}); err != nil {
		return domain.Customer{}, fmt.Errorf("ledger: rename customer: %w", err)
	}
	return l.db.GetCustomer(ctx, id)
}

func (l *Ledger) SetPhone(ctx context.Context, id uint, phone string) (domain.Customer, error) {
	p, err := NormalizePhone(phone)
	if err != nil {
		return domain.Customer{}, err
	}
	if err := l.db.UpdateCustomer(ctx, id, map[string]any{"phone": p}); err != nil {
		return domain.Customer{}, fmt.Errorf("ledger: set phone: %w", err)
	}
	return l.db.GetCustomer(ctx, id)
}

// DeactivateCustomer soft-deletes a customer and drops its share link.
func (l *Ledger) DeactivateCustomer(ctx context.Context, id uint) error {
	if err := l.db.UpdateCustomer(ctx, id, map[string]any{"is_active": false, "share_token": nil}); err != nil {
		return fmt.Errorf("ledger: deactivate customer: %w", err)
	}
	return nil
}

// ShareToken returns the customer's read-only link token, generating one when
// none exists.
func (l *Ledger) ShareToken(ctx context.Context, id uint) (string, error) {
	c, err := l.Customer(ctx, id)
	if err != nil {
		return "", err
	}
	if c.ShareToken != nil && *c.ShareToken != "" {
		return *c.ShareToken, nil
	}
	token := l.newToken()
	if err := l.db.UpdateCustomer(ctx, id, map[string]any{"share_token": token}); err != nil {
		return "", fmt.Errorf("ledger: share token: %w", err)
	}
	return token, nil
}

func (l *Ledger) RevokeShareToken(ctx context.Context, id uint) error {
	if err := l.db.UpdateCustomer(ctx, id, map[string]any{"share_token": nil}); err != nil {
		return fmt.Errorf("ledger: revoke share token: %w", err)
	}
	return nil
}

// SharedAccount is the read-only view behind a share link.
func (l *Ledger) SharedAccount(ctx context.Context, token string) (domain.Customer, domain.Balance, error) {
	c, err := l.db.CustomerByShareToken(ctx, strings.TrimSpace(token))
	if err != nil {
		return domain.Customer{}, domain.Balance{}, err
	}
	b, err := l.Balance(ctx, c.ID)
	if err != nil {
		return domain.Customer{}, domain.Balance{}, err
	}
	return c, b, nil
}

// Balance is recomputed from the log on every call.
func (l *Ledger) Balance(ctx context.Context, customerID uint) (domain.Balance, error) {
	txs, err := l.db.ListTransactions(ctx, customerID, 0)
	if err != nil {
		return domain.Balance{}, fmt.Errorf("ledger: balance: %w", err)
	}
	return ComputeBalance(txs), nil
}

// Movements returns the latest entries, newest first.
func (l *Ledger) Movements(ctx context.Context, customerID uint, limit int) ([]domain.Transaction, error) {
	txs, err := l.db.ListTransactions(ctx, customerID, limit)
	if err != nil {
		return nil, fmt.Errorf("ledger: movements: %w", err)
	}
	return txs, nil
}

// Outstanding sums balances across every active customer.
func (l *Ledger) Outstanding(ctx context.Context) (domain.Balance, error) {
	txs, err := l.db.ListAllTransactions(ctx)
	if err != nil {
		return domain.Balance{}, fmt.Errorf("ledger: outstanding: %w", err)
	}
	return ComputeBalance(txs), nil
}

// Entry is a manual ledger record.
type Entry struct {
	CustomerID    uint
	Type          domain.TransactionType
	Amount        domain.Amount
	Description   string
	Date          time.Time
	PaymentMethod string
}

func (l *Ledger) Record(ctx context.Context, e Entry) (domain.Transaction, error) {
	if e.Type != domain.TxPurchase && e.Type != domain.TxPayment {
		return domain.Transaction{}, domain.InvalidInput("tipo de movimiento desconocido %q", e.Type)
	}
	if !e.Amount.Primary().IsPositive() {
		return domain.Transaction{}, domain.InvalidInput("el monto debe ser mayor que cero")
	}
	if e.Date.IsZero() {
		e.Date = l.now()
	}
	t := domain.Transaction{
		CustomerID:  e.CustomerID,
		Type:        e.Type,
		Date:        e.Date,
		Description: strings.TrimSpace(e.Description),
	}
	t.SetAmount(e.Amount)
	if m := strings.TrimSpace(e.PaymentMethod); m != "" {
		t.PaymentMethod = &m
	}
	if t.Description == "" {
		if e.Type == domain.TxPayment {
			t.Description = "Abono"
		} else {
			t.Description = "Compra"
		}
	}
	if err := l.db.CreateTransaction(ctx, &t); err != nil {
		return domain.Transaction{}, fmt.Errorf("ledger: record: %w", err)
	}
	l.log.Info("transaction recorded",
		zap.Uint("transaction_id", t.ID),
		zap.String("type", string(t.Type)),
		zap.String("lane", string(t.CurrencyLane)))
	return t, nil
}

// SetPaid flips an entry's paid flag and, for linked entries, the quote's
// status in the same database transaction.
func (l *Ledger) SetPaid(ctx context.Context, txID uint, paid bool) (domain.Transaction, error) {
	var out domain.Transaction
	err := l.db.Transaction(ctx, func(tx *store.Store) error {
		t, err := tx.GetTransaction(ctx, txID)
		if err != nil {
			return err
		}
		if err := tx.SetTransactionPaid(ctx, txID, paid); err != nil {
			return err
		}
		t.IsPaid = paid
		if t.LinkedQuoteID != nil {
			status := domain.QuotePending
			if paid {
				status = domain.QuotePaid
			}
			if err := tx.SetQuoteStatus(ctx, *t.LinkedQuoteID, status); err != nil && !errors.Is(err, domain.ErrNotFound) {
				return err
			}
		}
		out = t
		return nil
	})
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("ledger: set paid: %w", err)
	}
	return out, nil
}

// DeleteTransaction hard-deletes an entry. A linked quote keeps its status.
func (l *Ledger) DeleteTransaction(ctx context.Context, txID uint) (domain.Transaction, error) {
	t, err := l.db.GetTransaction(ctx, txID)
	if err != nil {
		return domain.Transaction{}, err
	}
	if err := l.db.DeleteTransaction(ctx, txID); err != nil {
		return domain.Transaction{}, fmt.Errorf("ledger: delete transaction: %w", err)
	}
	l.log.Info("transaction deleted", zap.Uint("transaction_id", txID))
	return t, nil
}

// LinkQuote creates the single ledger entry for a quote. A quote that is
// already linked is a conflict and the existing entry is left untouched.
func (l *Ledger) LinkQuote(ctx context.Context, quoteID, customerID uint) (domain.Transaction, error) {
	var out domain.Transaction
	err := l.db.Transaction(ctx, func(tx *store.Store) error {
		q, err := tx.GetQuote(ctx, quoteID)
		if err != nil {
			return err
		}
		existing, err := tx.TransactionByQuote(ctx, quoteID)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.Conflict("el presupuesto #%d ya está vinculado al movimiento #%d", quoteID, existing.ID)
		}
		c, err := tx.GetCustomer(ctx, customerID)
		if err != nil {
			return err
		}
		if !c.IsActive {
			return domain.NotFound("cliente", c.Name)
		}
		qid := q.ID
		t := domain.Transaction{
			CustomerID:    customerID,
			Type:          domain.TxPurchase,
			Date:          q.Date,
			Description:   fmt.Sprintf("Presupuesto #%d", q.ID),
			LinkedQuoteID: &qid,
			IsPaid:        q.Status == domain.QuotePaid,
		}
		t.SetAmount(q.LedgerAmount())
		if err := tx.CreateTransaction(ctx, &t); err != nil {
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("ledger: link quote: %w", err)
	}
	l.log.Info("quote linked", zap.Uint("quote_id", quoteID), zap.Uint("transaction_id", out.ID))
	return out, nil
}

// LinkQuoteByName resolves the customer by name and links the quote.
func (l *Ledger) LinkQuoteByName(ctx context.Context, quoteID uint, customerName string) (domain.Transaction, domain.Customer, error) {
	c, err := l.ResolveCustomer(ctx, customerName)
	if err != nil {
		return domain.Transaction{}, domain.Customer{}, err
	}
	t, err := l.LinkQuote(ctx, quoteID, c.ID)
	if err != nil {
		return domain.Transaction{}, domain.Customer{}, err
	}
	return t, c, nil
}

func (l *Ledger) ensureNameFree(ctx context.Context, name string, selfID uint) error {
	customers, err := l.db.ListActiveCustomers(ctx)
	if err != nil {
		return fmt.Errorf("ledger: list customers: %w", err)
	}
	for _, c := range customers {
		if c.ID != selfID && textnorm.Equal(c.Name, name) {
			return domain.Conflict("ya existe el cliente %s", c.Name)
		}
	}
	return nil
}

// NormalizePhone strips separators and validates the digits.
func NormalizePhone(raw string) (string, error) {
	p := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, strings.TrimSpace(raw))
	if !phonePattern.MatchString(p) {
		return "", domain.InvalidInput("teléfono inválido %q", raw)
	}
	return p, nil
}

func titleName(name string) string {
	words := strings.Fields(name)
	for i, w := range words {
		r := []rune(w)
		words[i] = strings.ToUpper(string(r[0])) + strings.ToLower(string(r[1:]))
	}
	return strings.Join(words, " ")
}
