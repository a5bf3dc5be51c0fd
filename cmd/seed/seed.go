package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"expensetracker/internal/auth"
	apperrors "expensetracker/internal/errors"
	"expensetracker/internal/repository"
	"expensetracker/internal/service"
)

// Fixture is the demo data a seed run writes for one user.
type Fixture struct {
	Budget     decimal.Decimal   `json:"budget"`
	Categories []FixtureCategory `json:"categories"`
}

// FixtureCategory is a category with the expenses recorded against it.
type FixtureCategory struct {
	Name     string           `json:"name"`
	Expenses []FixtureExpense `json:"expenses"`
}

// FixtureExpense is a single seeded expense.
type FixtureExpense struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// SeedResult counts what a seed run created.
type SeedResult struct {
	UserCreated bool
	Categories  int
	Expenses    int
	Remaining   decimal.Decimal
}

func defaultFixture() Fixture {
	return Fixture{
		Budget: decimal.NewFromInt(1500),
		Categories: []FixtureCategory{
			{Name: "Groceries", Expenses: []FixtureExpense{
				{Description: "Weekly shop", Amount: decimal.RequireFromString("84.20")},
				{Description: "Farmers market", Amount: decimal.RequireFromString("23.50")},
			}},
			{Name: "Transport", Expenses: []FixtureExpense{
				{Description: "Monthly pass", Amount: decimal.RequireFromString("65.00")},
			}},
			{Name: "Eating out", Expenses: []FixtureExpense{
				{Description: "Pizza night", Amount: decimal.RequireFromString("31.90")},
				{Description: "Coffee", Amount: decimal.RequireFromString("4.10")},
			}},
		},
	}
}

// loadFixture reads a fixture from an http(s) URL or a local file. An empty
// source yields the built-in demo data.
func loadFixture(ctx context.Context, source string) (Fixture, error) {
	if source == "" {
		return defaultFixture(), nil
	}

	var (
		body []byte
		err  error
	)
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		body, err = fetchFixture(ctx, source)
	} else {
		body, err = os.ReadFile(source)
	}
	if err != nil {
		return Fixture{}, err
	}

	var fixture Fixture
	if err := json.Unmarshal(body, &fixture); err != nil {
		return Fixture{}, fmt.Errorf("failed to parse fixture: %w", err)
	}
	return fixture, nil
}

func fetchFixture(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch fixture: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fixture URL returned status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

// seeder writes fixtures through the same services the HTTP API uses, so
// seeded data obeys the ledger rules.
type seeder struct {
	store      repository.Store
	auth       service.AuthService
	ledger     service.LedgerService
	categories service.CategoryService
	log        logrus.FieldLogger
}

func newSeeder(store repository.Store, sessionSecret string, log logrus.FieldLogger) *seeder {
	ledger := service.NewLedgerService(store, nil, nil, log)
	return &seeder{
		store:      store,
		auth:       service.NewAuthService(store.Users(), auth.NewJWTService(sessionSecret, 0), auth.NewTokenStore(nil)),
		ledger:     ledger,
		categories: service.NewCategoryService(store),
		log:        log,
	}
}

// Seed ensures the user exists, sets the budget and records every fixture
// expense. Running it twice records the expenses twice.
func (s *seeder) Seed(ctx context.Context, username, password string, fixture Fixture) (*SeedResult, error) {
	result := &SeedResult{}

	user, _, err := s.auth.Register(ctx, username, password, password)
	switch {
	case err == nil:
		result.UserCreated = true
	case errors.Is(err, apperrors.ErrDuplicateUsername):
		user, err = s.store.Users().FindByUsername(ctx, strings.TrimSpace(username))
		if err != nil {
			return nil, fmt.Errorf("error loading user %s: %w", username, err)
		}
	default:
		return nil, fmt.Errorf("error creating user %s: %w", username, err)
	}

	if fixture.Budget.IsPositive() {
		if err := s.ledger.SetBudget(ctx, user.ID, fixture.Budget); err != nil {
			return nil, fmt.Errorf("error setting budget: %w", err)
		}
	}

	for _, fc := range fixture.Categories {
		category, err := s.categories.AddCategory(ctx, user.ID, fc.Name)
		if err != nil {
			s.log.WithError(err).Warnf("Skipping category %q", fc.Name)
			continue
		}
		result.Categories++

		for _, fe := range fc.Expenses {
			if _, _, err := s.ledger.RecordExpense(ctx, user.ID, fe.Description, fe.Amount, category.ID); err != nil {
				if apperrors.Internal(err) {
					return nil, err
				}
				s.log.WithError(err).Warnf("Skipping expense %q", fe.Description)
				continue
			}
			result.Expenses++
		}
	}

	result.Remaining, err = s.ledger.RemainingBudget(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("error reading budget: %w", err)
	}
	return result, nil
}
