/*
credit.go - Cookie-credit ledger

PURPOSE:
  Spends one credit from a user's balance and mints a new uniquely named
  credit token ("cookie") for that user, as one atomic unit. Also manages
  which of a user's tokens is the active one.

INVARIANTS:
  1. Balance never goes below zero
  2. A token is minted iff the balance was > 0 before the spend
  3. Token names are unique across all tokens
  4. At most one active token per user

TRANSACTION DISCIPLINE:
  Every operation here owns its transaction boundary. Callers never commit
  on the ledger's behalf; a failure anywhere inside Spend leaves neither the
  balance change nor the token durable.

NAME UNIQUENESS:
  A candidate name is checked against existing tokens, then inserted. The
  store's unique constraint on the name is the real guard: if a concurrent
  writer claims the name between check and insert, the insert reports
  ErrDuplicateTokenName and a fresh name is drawn. Both loops share one
  bounded attempt budget.

UNSET BALANCE:
  A nil CreditBalance is treated as 0. Such users cannot spend until an
  admin grants credits.

SEE ALSO:
  - names.go: random name source
  - store.go: TokenStore / UserStore
*/
package forum

import (
	"context"
	"errors"
)

// DefaultMaxNameAttempts bounds the name search. With 62^7 possible names the
// expected number of attempts is 1.
const DefaultMaxNameAttempts = 16

// =============================================================================
// CREDIT LEDGER
// =============================================================================

type CreditLedger struct {
	Store           TxStore
	Names           NameGenerator
	Clock           Clock
	MaxNameAttempts int
}

func NewCreditLedger(store TxStore) *CreditLedger {
	return &CreditLedger{
		Store:           store,
		Names:           RandomNames{Length: DefaultTokenNameLength},
		Clock:           systemClock,
		MaxNameAttempts: DefaultMaxNameAttempts,
	}
}

func (l *CreditLedger) now() Clock {
	if l.Clock == nil {
		return systemClock
	}
	return l.Clock
}

func (l *CreditLedger) attempts() int {
	if l.MaxNameAttempts <= 0 {
		return DefaultMaxNameAttempts
	}
	return l.MaxNameAttempts
}

// =============================================================================
// NAME GENERATION
// =============================================================================

// GenerateUniqueName returns a name not held by any existing token in s.
// Call it inside a transaction; the name is only reserved once inserted.
func (l *CreditLedger) GenerateUniqueName(ctx context.Context, s Store) (string, error) {
	name, _, err := l.freeName(ctx, s, l.attempts())
	return name, err
}

// freeName draws names until one is free or budget runs out. It returns the
// number of draws it used.
func (l *CreditLedger) freeName(ctx context.Context, s Store, budget int) (string, int, error) {
	for used := 1; used <= budget; used++ {
		name, err := l.Names.NewName()
		if err != nil {
			return "", used, err
		}
		exists, err := s.TokenNameExists(ctx, name)
		if err != nil {
			return "", used, err
		}
		if !exists {
			return name, used, nil
		}
	}
	return "", budget, &NameExhaustedError{Attempts: budget}
}

// mintToken inserts a new token for owner, retrying on name collisions.
func (l *CreditLedger) mintToken(ctx context.Context, s Store, owner UserID) (*CreditToken, error) {
	remaining := l.attempts()
	for remaining > 0 {
		name, used, err := l.freeName(ctx, s, remaining)
		remaining -= used
		if errors.Is(err, ErrNameSpaceExhausted) {
			break
		}
		if err != nil {
			return nil, err
		}

		token := CreditToken{
			Name:     name,
			IssuedAt: l.now()(),
			Banned:   false,
			Active:   false,
			OwnerID:  owner,
		}
		err = s.InsertToken(ctx, token)
		if errors.Is(err, ErrDuplicateTokenName) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return &token, nil
	}
	return nil, &NameExhaustedError{Attempts: l.attempts()}
}

// =============================================================================
// SPEND
// =============================================================================

// Spend takes one credit from the user and mints a token.
//
// Results:
//   - (user, token, nil): spent; user carries the decremented balance
//   - (user, nil, nil):   insufficient balance, nothing changed
//   - (nil, nil, err):    ErrUserNotFound or a store failure (rolled back)
func (l *CreditLedger) Spend(ctx context.Context, userID UserID) (*User, *CreditToken, error) {
	var (
		user  *User
		token *CreditToken
	)
	err := l.Store.WithTx(ctx, func(s Store) error {
		u, err := s.GetUserForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if u == nil {
			return ErrUserNotFound
		}
		if !u.CanSpend() {
			user = u
			return nil
		}

		balance := u.Balance() - 1
		if err := s.SetCreditBalance(ctx, userID, balance); err != nil {
			return err
		}
		minted, err := l.mintToken(ctx, s, userID)
		if err != nil {
			return err
		}

		u.CreditBalance = &balance
		user, token = u, minted
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return user, token, nil
}

// =============================================================================
// ACTIVATION
// =============================================================================

// SetTokenActive makes name the owner's only active token.
func (l *CreditLedger) SetTokenActive(ctx context.Context, name string) (*CreditToken, error) {
	var activated *CreditToken
	err := l.Store.WithTx(ctx, func(s Store) error {
		t, err := s.GetToken(ctx, name)
		if err != nil {
			return err
		}
		if t == nil {
			return ErrTokenNotFound
		}
		if t.Banned {
			return ErrTokenBanned
		}
		if err := s.DeactivateTokens(ctx, t.OwnerID); err != nil {
			return err
		}
		if err := s.SetTokenActive(ctx, name, true); err != nil {
			return err
		}
		t.Active = true
		activated = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return activated, nil
}

// =============================================================================
// QUERIES & ADMIN
// =============================================================================

// Token returns a single token by name.
func (l *CreditLedger) Token(ctx context.Context, name string) (*CreditToken, error) {
	t, err := l.Store.GetToken(ctx, name)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrTokenNotFound
	}
	return t, nil
}

// Tokens lists the tokens a user owns, oldest first.
func (l *CreditLedger) Tokens(ctx context.Context, userID UserID) ([]CreditToken, error) {
	if _, err := l.user(ctx, userID); err != nil {
		return nil, err
	}
	return l.Store.ListTokens(ctx, userID)
}

// Balance returns the user's spendable balance (0 when unset).
func (l *CreditLedger) Balance(ctx context.Context, userID UserID) (int64, error) {
	u, err := l.user(ctx, userID)
	if err != nil {
		return 0, err
	}
	return u.Balance(), nil
}

// Grant adds n credits to a user's balance. An unset balance starts from 0.
func (l *CreditLedger) Grant(ctx context.Context, userID UserID, n int64) (*User, error) {
	if n <= 0 {
		return nil, ErrInvalidAmount
	}
	var user *User
	err := l.Store.WithTx(ctx, func(s Store) error {
		u, err := s.GetUserForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if u == nil {
			return ErrUserNotFound
		}
		balance := u.Balance() + n
		if err := s.SetCreditBalance(ctx, userID, balance); err != nil {
			return err
		}
		u.CreditBalance = &balance
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// CreateUser registers an account. A nil balance leaves it unset.
func (l *CreditLedger) CreateUser(ctx context.Context, email, fullName string, balance *int64) (*User, error) {
	if balance != nil && *balance < 0 {
		return nil, ErrInvalidAmount
	}
	u := User{
		ID:            NewUserID(),
		Email:         email,
		FullName:      fullName,
		CreditBalance: balance,
		CreatedAt:     l.now()(),
	}
	if err := l.Store.SaveUser(ctx, u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (l *CreditLedger) user(ctx context.Context, userID UserID) (*User, error) {
	u, err := l.Store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}
