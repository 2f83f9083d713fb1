package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	_ "github.com/lib/pq"

	"github.com/paisasplit/splitledger/internal/apperr"
	"github.com/paisasplit/splitledger/internal/config"
	"github.com/paisasplit/splitledger/internal/events/kafka"
	"github.com/paisasplit/splitledger/internal/interfaces"
	"github.com/paisasplit/splitledger/internal/ledger"
	"github.com/paisasplit/splitledger/internal/models"
	"github.com/paisasplit/splitledger/internal/money"
	"github.com/paisasplit/splitledger/internal/seed"
	"github.com/paisasplit/splitledger/internal/split"
	"github.com/paisasplit/splitledger/internal/storage/memory"
	"github.com/paisasplit/splitledger/internal/storage/postgres"
	"github.com/paisasplit/splitledger/internal/storage/sqlite"
)

func main() {
	cfg := config.Load()

	store, cleanup, err := openStore(cfg)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer cleanup()

	var publisher interfaces.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		p := kafka.NewPublisher(cfg.KafkaBrokers)
		defer p.Close()
		publisher = p
	}

	service := ledger.NewService(store, publisher)

	fixture := seed.DefaultFixture(cfg.Currency)
	if cfg.SeedFile != "" {
		if fixture, err = seed.LoadFixture(cfg.SeedFile); err != nil {
			log.Fatalf("load seed fixture: %v", err)
		}
	}
	if err := seed.NewSeeder(store, fixture).SeedIfEmpty(context.Background()); err != nil {
		log.Fatalf("seed: %v", err)
	}

	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	http.HandleFunc("/accounts", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			accounts, err := store.Accounts(r.Context())
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			writeJSON(w, accounts)

		case http.MethodPost:
			var req struct {
				Name           string      `json:"name"`
				Type           string      `json:"type"`
				OpeningBalance money.Money `json:"opening_balance"`
				Currency       string      `json:"currency"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "invalid request body", http.StatusBadRequest)
				return
			}
			typ := models.AccountType(req.Type)
			if !typ.Valid() {
				http.Error(w, "unknown account type", http.StatusBadRequest)
				return
			}
			if req.Currency == "" {
				req.Currency = cfg.Currency
			}
			account := models.NewAccount(req.Name, typ, req.OpeningBalance, req.Currency)
			if err := store.UpsertAccount(r.Context(), account); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusCreated)
			writeJSON(w, account)

		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	http.HandleFunc("/accounts/balance", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		accountID := r.URL.Query().Get("account_id")
		if accountID == "" {
			http.Error(w, "account_id is a mandatory field", http.StatusBadRequest)
			return
		}

		account, err := store.Account(r.Context(), accountID)
		if errors.Is(err, apperr.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		writeJSON(w, struct {
			AccountID string      `json:"account_id"`
			Balance   money.Money `json:"balance"`
		}{
			AccountID: accountID,
			Balance:   account.CurrentBalance,
		})
	})

	http.HandleFunc("/groups", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			groups, err := store.Groups(r.Context())
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			writeJSON(w, groups)

		case http.MethodPost:
			var req struct {
				Name    string `json:"name"`
				Members []struct {
					Name string `json:"name"`
					Self bool   `json:"self"`
				} `json:"members"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "invalid request body", http.StatusBadRequest)
				return
			}
			group := models.NewGroup(req.Name)
			if err := store.UpsertGroup(r.Context(), group); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			for _, m := range req.Members {
				if err := store.UpsertMember(r.Context(), models.NewMember(group.ID, m.Name, m.Self)); err != nil {
					http.Error(w, err.Error(), http.StatusInternalServerError)
					return
				}
			}
			w.WriteHeader(http.StatusCreated)
			writeJSON(w, group)

		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	http.HandleFunc("/groups/members", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		groupID := r.URL.Query().Get("group_id")
		if groupID == "" {
			http.Error(w, "group_id is a mandatory field", http.StatusBadRequest)
			return
		}
		members, err := store.Members(r.Context(), groupID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, members)
	})

	http.HandleFunc("/transactions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		txs, err := store.Transactions(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, txs)
	})

	http.HandleFunc("/transactions/split", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req splitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.Currency == "" {
			req.Currency = cfg.Currency
		}

		tx := models.NewSplitTransaction(req.Title, req.AccountID, req.GroupID, req.PayerMemberID, req.Total, req.Currency)
		tx.CategoryID = req.CategoryID

		splits, err := buildSplits(tx, req)
		if err != nil {
			httpError(w, err)
			return
		}

		if err := service.ApplySplitTransaction(r.Context(), tx, splits); err != nil {
			httpError(w, err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		writeJSON(w, struct {
			Transaction models.Transaction `json:"transaction"`
			Splits      []models.Split     `json:"splits"`
		}{tx, splits})
	})

	http.HandleFunc("/settlements", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			settlements, err := store.Settlements(r.Context())
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			writeJSON(w, settlements)

		case http.MethodPost:
			var req struct {
				GroupID             string      `json:"group_id"`
				FromMemberID        string      `json:"from_member_id"`
				ToMemberID          string      `json:"to_member_id"`
				AccountID           string      `json:"account_id"`
				Amount              money.Money `json:"amount"`
				Currency            string      `json:"currency"`
				Method              string      `json:"method"`
				LinkedTransactionID string      `json:"linked_transaction_id"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "invalid request body", http.StatusBadRequest)
				return
			}
			method := models.SettlementMethod(req.Method)
			if !method.Valid() {
				http.Error(w, "unknown settlement method", http.StatusBadRequest)
				return
			}
			if req.Currency == "" {
				req.Currency = cfg.Currency
			}
			stl := models.NewSettlement(req.GroupID, req.FromMemberID, req.ToMemberID,
				req.AccountID, req.Amount, req.Currency, method, req.LinkedTransactionID)

			if err := service.RecordSettlement(r.Context(), stl); err != nil {
				httpError(w, err)
				return
			}
			w.WriteHeader(http.StatusCreated)
			writeJSON(w, stl)

		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	http.HandleFunc("/ledgerEntries", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		entries, err := store.Entries(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, entries)
	})

	http.HandleFunc("/reports/networth", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		accounts, err := store.Accounts(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		entries, err := store.Entries(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, struct {
			TotalBalance money.Money `json:"total_balance"`
			Receivable   money.Money `json:"receivable"`
			NetWorth     money.Money `json:"net_worth"`
		}{
			TotalBalance: ledger.TotalBalance(accounts),
			Receivable:   ledger.OutstandingReceivables(entries),
			NetWorth:     ledger.NetWorth(accounts, entries),
		})
	})

	log.Printf("starting server on %s (storage=%s)", cfg.ListenAddr, cfg.Storage)
	log.Fatal(http.ListenAndServe(cfg.ListenAddr, nil))
}

type splitRequest struct {
	Title         string      `json:"title"`
	AccountID     string      `json:"account_id"`
	GroupID       string      `json:"group_id"`
	PayerMemberID string      `json:"payer_member_id"`
	CategoryID    string      `json:"category_id"`
	Total         money.Money `json:"total"`
	Currency      string      `json:"currency"`
	Mode          string      `json:"mode"` // equal | custom_amounts | percentages | shares
	PayerIncluded bool        `json:"payer_included"`
	Participants  []struct {
		MemberID string      `json:"member_id"`
		Amount   money.Money `json:"amount"`
		Percent  float64     `json:"percent"`
		Shares   int         `json:"shares"`
	} `json:"participants"`
}

// buildSplits resolves the request's participants into per-member share
// amounts according to the split mode. Whether the resolved shares sum to
// the transaction total is the service's validation, not repeated here.
func buildSplits(tx models.Transaction, req splitRequest) ([]models.Split, error) {
	participants := req.Participants

	var shares []money.Money
	var err error
	switch models.SplitMode(req.Mode) {
	case models.ModeEqual:
		// The allocator hands remainder cents to the leading slots and
		// zeroes any slot past the divisor, so an excluded payer has to sit
		// at the end of the order.
		if !req.PayerIncluded {
			for i, p := range participants {
				if p.MemberID == req.PayerMemberID && i != len(participants)-1 {
					reordered := append(participants[:0:0], participants[:i]...)
					reordered = append(reordered, participants[i+1:]...)
					participants = append(reordered, participants[i])
					break
				}
			}
		}
		shares, err = split.AllocateEqual(tx.AmountTotal, len(participants), req.PayerIncluded)

	case models.ModePercentages:
		percents := make([]float64, len(participants))
		for i, p := range participants {
			percents[i] = p.Percent
		}
		shares, err = split.ResolvePercentages(tx.AmountTotal, percents)

	case models.ModeShares:
		counts := make([]int, len(participants))
		for i, p := range participants {
			counts[i] = p.Shares
		}
		shares, err = split.ResolveShares(tx.AmountTotal, counts)

	case models.ModeCustomAmounts, models.ModeItemized:
		// Itemized splits arrive with per-member item totals already summed,
		// so both modes carry explicit amounts.
		amounts := make([]money.Money, len(participants))
		for i, p := range participants {
			amounts[i] = p.Amount
		}
		shares = split.ResolveCustom(amounts)

	default:
		return nil, apperr.Validationf("unknown split mode %q", req.Mode)
	}
	if err != nil {
		return nil, err
	}

	splits := make([]models.Split, len(participants))
	for i, p := range participants {
		sp := models.NewSplit(tx.ID, p.MemberID, shares[i])
		if !req.PayerIncluded && p.MemberID == req.PayerMemberID {
			sp.Included = false
		}
		splits[i] = sp
	}
	return splits, nil
}

func openStore(cfg config.Config) (interfaces.Store, func(), error) {
	switch cfg.Storage {
	case "memory":
		return memory.NewStore(), func() {}, nil

	case "sqlite":
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil

	case "postgres":
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		store := postgres.NewStore(db)
		if err := store.Migrate(context.Background()); err != nil {
			db.Close()
			return nil, nil, err
		}
		return store, func() { db.Close() }, nil

	default:
		return nil, nil, apperr.Validationf("unknown storage backend %q", cfg.Storage)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func httpError(w http.ResponseWriter, err error) {
	if apperr.IsValidation(err) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if errors.Is(err, apperr.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
