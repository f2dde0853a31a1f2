// Package importer resolves companies and customers by natural key and
// writes one debt per source row, in that order, against a store.Store.
package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/BeAltea/altea-pay/pkg/models"
	"github.com/BeAltea/altea-pay/pkg/normalize"
	"github.com/BeAltea/altea-pay/pkg/report"
	"github.com/BeAltea/altea-pay/pkg/store"
)

// ErrCompanyNotFound is returned when the company must already exist and
// the lookup finds nothing.
var ErrCompanyNotFound = errors.New("company not found")

type customerKey struct {
	companyID string
	document  string
}

// Importer runs one import. It is not safe for concurrent use.
type Importer struct {
	store     store.Store
	opts      Options
	logger    *log.Logger
	customers map[customerKey]string
}

// New returns an importer writing to st.
func New(st store.Store, opts Options, logger *log.Logger) *Importer {
	if logger == nil {
		logger = log.Default()
	}
	opts.OpenStatus = models.DebtStatus(strings.ToLower(strings.TrimSpace(string(opts.OpenStatus))))
	if !opts.OpenStatus.Valid() || opts.OpenStatus == models.StatusCancelled {
		opts.OpenStatus = models.StatusOverdue
	}
	if opts.Schema.Name == "" {
		opts.Schema = SchemaCustomers
	}
	if opts.Collections.Customers == "" {
		opts.Collections.Customers = opts.Schema.Customers
	}
	return &Importer{
		store:     st,
		opts:      opts,
		logger:    logger,
		customers: make(map[customerKey]string),
	}
}

// ResolveCompany finds the company by CNPJ or creates it. It reports
// whether a record was created. Every failure here is fatal for a run.
func (i *Importer) ResolveCompany(ctx context.Context, c models.Company) (string, bool, error) {
	name := strings.TrimSpace(c.Name)
	taxID := strings.TrimSpace(c.TaxID)
	coll := i.opts.Collections.Companies

	if i.opts.DedupeCompanies || i.opts.CompanyMustExist {
		if taxID == "" {
			return "", false, fmt.Errorf("company cnpj is required to look the company up")
		}
		rec, err := i.store.FindOne(ctx, coll, store.Filter{"cnpj": taxID})
		switch {
		case err == nil:
			id := rec.ID()
			if id == "" {
				return "", false, fmt.Errorf("company %s returned without id", taxID)
			}
			i.logger.Info("company found", "cnpj", taxID, "id", id)
			return id, false, nil
		case errors.Is(err, store.ErrNotFound):
			if i.opts.CompanyMustExist {
				return "", false, fmt.Errorf("%w: cnpj %s", ErrCompanyNotFound, taxID)
			}
		default:
			return "", false, fmt.Errorf("find company %s: %w", taxID, err)
		}
	}

	if name == "" {
		return "", false, fmt.Errorf("company name is required")
	}
	rec, err := i.store.Create(ctx, coll, store.Record{
		"name":    name,
		"cnpj":    nullable(taxID),
		"email":   nullable(c.Email),
		"phone":   nullable(c.Phone),
		"address": nullable(c.Address),
	})
	if err != nil {
		return "", false, fmt.Errorf("create company %s: %w", name, err)
	}
	id := rec.ID()
	if id == "" {
		return "", false, fmt.Errorf("company %s created without id", name)
	}
	i.logger.Info("company created", "name", name, "cnpj", taxID, "id", id)
	return id, true, nil
}

// ResolveCustomer returns the id of the customer with c.Document inside
// companyID, creating it when needed. A key already resolved during this
// run is answered from memory.
func (i *Importer) ResolveCustomer(ctx context.Context, companyID string, c models.Customer) (string, bool, error) {
	doc := strings.TrimSpace(c.Document)
	key := customerKey{companyID: companyID, document: doc}
	if id, ok := i.customers[key]; ok {
		return id, false, nil
	}
	coll := i.opts.Collections.Customers
	schema := i.opts.Schema

	if i.opts.DedupeCustomers {
		rec, err := i.store.FindOne(ctx, coll, store.Filter{schema.DocumentColumn: doc, "company_id": companyID})
		switch {
		case err == nil && rec.ID() != "":
			i.customers[key] = rec.ID()
			return rec.ID(), false, nil
		case err == nil:
			return "", false, fmt.Errorf("customer %s returned without id", doc)
		case !errors.Is(err, store.ErrNotFound):
			return "", false, fmt.Errorf("find customer %s: %w", doc, err)
		}
	}

	rec, err := i.store.Create(ctx, coll, i.customerRecord(companyID, doc, c))
	if err != nil {
		return "", false, fmt.Errorf("create customer %s: %w", doc, err)
	}
	if rec.ID() == "" {
		return "", false, fmt.Errorf("customer %s created without id", doc)
	}
	i.customers[key] = rec.ID()
	return rec.ID(), true, nil
}

func (i *Importer) customerRecord(companyID, doc string, c models.Customer) store.Record {
	schema := i.opts.Schema
	rec := store.Record{
		"company_id": companyID,
		"name":       strings.TrimSpace(c.Name),
		"email":      nullable(c.Email),
		"phone":      nullable(c.Phone),
		"address":    nullable(c.Address),
	}
	rec[schema.DocumentColumn] = doc
	if schema.CustomerStatus != "" {
		rec["status"] = schema.CustomerStatus
	}
	if schema.Legacy {
		if c.Address == "" {
			rec["address"] = nullable(c.City)
		}
		return rec
	}

	state := c.State
	if state == "" {
		state = i.opts.DefaultState
	}
	rec["city"] = nullable(c.City)
	rec["state"] = nullable(state)
	rec["zip_code"] = nullable(c.ZipCode)
	return rec
}

// CreateDebt writes d unconditionally. Debts are never deduplicated.
func (i *Importer) CreateDebt(ctx context.Context, d models.Debt) (string, error) {
	var due any
	if d.DueDate != nil {
		due = normalize.FormatDate(*d.DueDate)
	}
	rec := store.Record{
		"company_id":  d.CompanyID,
		"amount":      d.Amount,
		"due_date":    due,
		"status":      string(d.Status),
		"description": d.Description,
	}
	rec[i.opts.Schema.CustomerRef] = d.CustomerID
	if !i.opts.Schema.Legacy {
		rec["classification"] = string(d.Classification)
	}
	created, err := i.store.Create(ctx, i.opts.Collections.Debts, rec)
	if err != nil {
		return "", fmt.Errorf("create debt: %w", err)
	}
	return created.ID(), nil
}

// Run imports rows for company. A non-nil error with a nil summary means
// the run stopped before writing any row. Cancellation returns the
// summary gathered so far together with the context error.
func (i *Importer) Run(ctx context.Context, company models.Company, rows []models.Row) (*report.Summary, error) {
	start := time.Now()
	summary := report.New(i.opts.MaxErrors)

	if !i.opts.DedupeCustomers {
		i.logger.Warn("customer dedupe is off, rerunning this import will duplicate customers")
	}

	companyID, created, err := i.ResolveCompany(ctx, company)
	if err != nil {
		return nil, fmt.Errorf("company step: %w", err)
	}
	summary.CompanyID = companyID
	summary.CompanyCreated = created

	entries := i.normalizeAll(rows, summary)
	groups := GroupEntries(entries)
	i.logger.Info("rows grouped", "rows", len(rows), "valid", len(entries), "customers", len(groups))

	done := 0
	for _, g := range groups {
		if err := ctx.Err(); err != nil {
			summary.Duration = time.Since(start)
			return summary, err
		}

		first := g.Entries[0]
		customerID, created, err := i.ResolveCustomer(ctx, companyID, models.Customer{
			CompanyID: companyID,
			Name:      first.Name,
			Document:  g.Document,
			City:      first.City,
		})
		if err != nil {
			summary.CustomersFailed++
			summary.DebtsFailed += len(g.Entries)
			summary.AddError(first.Line, "%v", err)
			i.logger.Error("customer step failed", "document", g.Document, "rows", len(g.Entries), "err", err)
			done += len(g.Entries)
			continue
		}
		if created {
			summary.CustomersCreated++
		} else {
			summary.CustomersReused++
		}
		i.logger.Info("customer resolved", "document", g.Document, "id", customerID, "created", created, "debts", len(g.Entries))

		for _, e := range g.Entries {
			debt := e.Debt
			debt.CompanyID = companyID
			debt.CustomerID = customerID
			id, err := i.CreateDebt(ctx, debt)
			if err != nil {
				summary.DebtsFailed++
				summary.AddError(e.Line, "%v", err)
				i.logger.Error("debt not created", "row", e.Line, "document", g.Document, "err", err)
			} else {
				summary.DebtsCreated++
				i.logger.Debug("debt created", "row", e.Line, "id", id, "amount", debt.Amount.StringFixed(2))
			}
			done++
			if i.opts.ProgressEvery > 0 && done%i.opts.ProgressEvery == 0 {
				i.logger.Info("progress", "rows", done, "total", len(entries))
			}
		}
	}

	summary.Duration = time.Since(start)
	return summary, nil
}

func nullable(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return s
}
