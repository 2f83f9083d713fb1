// Package seed populates an empty ledger with starter data so the service is
// usable out of the box.
package seed

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/paisasplit/splitledger/internal/interfaces"
	"github.com/paisasplit/splitledger/internal/models"
	"github.com/paisasplit/splitledger/internal/money"
)

// Fixture describes the starter data. It can be loaded from a YAML file or
// left at the built-in defaults.
type Fixture struct {
	Accounts []AccountFixture `yaml:"accounts"`
	Groups   []GroupFixture   `yaml:"groups"`
}

type AccountFixture struct {
	Name           string `yaml:"name"`
	Type           string `yaml:"type"`
	OpeningBalance string `yaml:"opening_balance"`
	Currency       string `yaml:"currency"`
}

type GroupFixture struct {
	Name    string          `yaml:"name"`
	Members []MemberFixture `yaml:"members"`
}

type MemberFixture struct {
	Name string `yaml:"name"`
	Self bool   `yaml:"self"`
}

// DefaultFixture mirrors the app's first-run data: one cash account and a
// small friends group.
func DefaultFixture(currency string) Fixture {
	return Fixture{
		Accounts: []AccountFixture{
			{Name: "Cash", Type: "cash", OpeningBalance: "1000.00", Currency: currency},
		},
		Groups: []GroupFixture{
			{Name: "Friends", Members: []MemberFixture{
				{Name: "You", Self: true},
				{Name: "Alice"},
				{Name: "Bob"},
			}},
		},
	}
}

// LoadFixture reads a fixture from a YAML file.
func LoadFixture(path string) (Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, err
	}
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Fixture{}, fmt.Errorf("seed fixture %s: %w", path, err)
	}
	return f, nil
}

type Seeder struct {
	store   interfaces.Store
	fixture Fixture
}

func NewSeeder(store interfaces.Store, fixture Fixture) *Seeder {
	return &Seeder{store: store, fixture: fixture}
}

// SeedIfEmpty creates the fixture's accounts when no accounts exist yet and
// the fixture's groups when no groups exist yet. Running it against a
// populated store is a no-op, so it is safe on every startup.
func (s *Seeder) SeedIfEmpty(ctx context.Context) error {
	accounts, err := s.store.Accounts(ctx)
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		for _, af := range s.fixture.Accounts {
			opening, err := money.Parse(af.OpeningBalance)
			if err != nil {
				return fmt.Errorf("seed account %q: %w", af.Name, err)
			}
			typ := models.AccountType(af.Type)
			if !typ.Valid() {
				return fmt.Errorf("seed account %q: unknown type %q", af.Name, af.Type)
			}
			if err := s.store.UpsertAccount(ctx, models.NewAccount(af.Name, typ, opening, af.Currency)); err != nil {
				return err
			}
		}
	}

	groups, err := s.store.Groups(ctx)
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		for _, gf := range s.fixture.Groups {
			group := models.NewGroup(gf.Name)
			if err := s.store.UpsertGroup(ctx, group); err != nil {
				return err
			}
			for _, mf := range gf.Members {
				if err := s.store.UpsertMember(ctx, models.NewMember(group.ID, mf.Name, mf.Self)); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
