// Package service wires configuration, sources, stores and the importer
// together for the command line and HTTP front ends.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/BeAltea/altea-pay/pkg/config"
	"github.com/BeAltea/altea-pay/pkg/importer"
	"github.com/BeAltea/altea-pay/pkg/models"
	"github.com/BeAltea/altea-pay/pkg/normalize"
	"github.com/BeAltea/altea-pay/pkg/report"
	"github.com/BeAltea/altea-pay/pkg/source"
	"github.com/BeAltea/altea-pay/pkg/store"
	"github.com/BeAltea/altea-pay/pkg/store/memstore"
	"github.com/BeAltea/altea-pay/pkg/store/postgres"
	"github.com/BeAltea/altea-pay/pkg/store/rest"
)

// StoreFactory opens the store a run writes to. The returned func releases it.
type StoreFactory func(ctx context.Context, cfg config.StoreConfig, logger *log.Logger) (store.Store, func(), error)

type Processor struct {
	config    *config.Config
	logger    *log.Logger
	openStore StoreFactory
}

func NewProcessor(cfg *config.Config, logger *log.Logger) *Processor {
	return &Processor{
		config:    cfg,
		logger:    logger,
		openStore: OpenStore,
	}
}

// WithStoreFactory replaces how stores are opened.
func (p *Processor) WithStoreFactory(f StoreFactory) *Processor {
	p.openStore = f
	return p
}

// OpenStore connects to the store selected by cfg.Driver.
func OpenStore(ctx context.Context, cfg config.StoreConfig, logger *log.Logger) (store.Store, func(), error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		pg, err := postgres.Open(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	default:
		client, err := rest.New(rest.Options{
			URL:       cfg.URL,
			Key:       cfg.Key,
			Timeout:   cfg.Timeout,
			Retries:   uint64(cfg.Retries),
			RetryWait: cfg.RetryWait,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return client, func() {}, nil
	}
}

// Options translates configuration into importer policies.
func (p *Processor) Options() (importer.Options, error) {
	mode, err := normalize.ParseMode(p.config.Import.AmountMode)
	if err != nil {
		return importer.Options{}, err
	}
	schema, err := importer.ParseSchema(p.config.Store.Schema)
	if err != nil {
		return importer.Options{}, err
	}
	opts := importer.DefaultOptions()
	opts.Schema = schema
	opts.Collections = importer.Collections{
		Companies: p.config.Store.Collections.Companies,
		Customers: p.config.Store.Collections.Customers,
		Debts:     p.config.Store.Collections.Debts,
	}
	if opts.Collections.Customers == "" {
		opts.Collections.Customers = schema.Customers
	}
	opts.DedupeCompanies = p.config.Import.DedupeCompanies
	opts.DedupeCustomers = p.config.Import.DedupeCustomers
	opts.CompanyMustExist = p.config.Import.CompanyMustExist
	opts.AmountMode = mode
	opts.OpenStatus = models.DebtStatus(strings.ToLower(strings.TrimSpace(p.config.Import.OpenStatus)))
	opts.ValidateDocuments = p.config.Import.ValidateDocuments
	opts.DefaultState = p.config.Import.DefaultState
	opts.MaxErrors = p.config.Import.MaxErrors
	return opts, nil
}

// Import reads src and writes it for company. A dry run writes to an
// in-memory store and needs no credentials. When the company must exist
// a dry run assumes it does.
func (p *Processor) Import(ctx context.Context, company models.Company, src source.Source, dryRun bool) (*report.Summary, error) {
	if err := p.config.Validate(!dryRun); err != nil {
		return nil, err
	}
	opts, err := p.Options()
	if err != nil {
		return nil, err
	}

	rows, err := src.Rows(ctx)
	if err != nil {
		return nil, err
	}
	p.logger.Info("rows read", "count", len(rows), "dry_run", dryRun)

	var (
		st      store.Store
		release = func() {}
	)
	if dryRun {
		mem := memstore.New()
		if opts.CompanyMustExist {
			// The in-memory store starts empty, so the company lookup
			// cannot be checked without the real store.
			mem.Seed(opts.Collections.Companies, store.Record{
				"name": strings.TrimSpace(company.Name),
				"cnpj": strings.TrimSpace(company.TaxID),
			})
			p.logger.Warn("dry run does not check that the company exists", "cnpj", company.TaxID)
		}
		st = mem
	} else {
		st, release, err = p.openStore(ctx, p.config.Store, p.logger)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
	}
	defer release()

	summary, err := importer.New(st, opts, p.logger).Run(ctx, company, rows)
	if summary != nil {
		summary.DryRun = dryRun
		p.writeMetrics(summary)
	}
	return summary, err
}

// Preview reads and normalizes src without any store access.
func (p *Processor) Preview(ctx context.Context, src source.Source) ([]importer.Entry, *report.Summary, error) {
	if err := p.config.Validate(false); err != nil {
		return nil, nil, err
	}
	opts, err := p.Options()
	if err != nil {
		return nil, nil, err
	}
	rows, err := src.Rows(ctx)
	if err != nil {
		return nil, nil, err
	}
	entries, summary := importer.New(memstore.New(), opts, p.logger).Preview(rows)
	return entries, summary, nil
}

func (p *Processor) writeMetrics(summary *report.Summary) {
	path := p.config.Metrics.File
	if path == "" {
		return
	}
	if err := summary.WriteMetrics(path, time.Now()); err != nil {
		p.logger.Warn("metrics not written", "file", path, "err", err)
		return
	}
	p.logger.Debug("metrics written", "file", path)
}
