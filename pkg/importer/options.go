package importer

import (
	"fmt"
	"strings"

	"github.com/BeAltea/altea-pay/pkg/models"
	"github.com/BeAltea/altea-pay/pkg/normalize"
	"github.com/BeAltea/altea-pay/pkg/report"
)

// Collections names the store collections written by a run.
type Collections struct {
	Companies string
	Customers string
	Debts     string
}

// Schema names the customer columns of a target database.
type Schema struct {
	Name string
	// Customers is the customer collection used when none is configured.
	Customers string
	// DocumentColumn holds the CPF or CNPJ of a customer.
	DocumentColumn string
	// CustomerRef is the debt column pointing at the customer.
	CustomerRef string
	// CustomerStatus is written on new customers when set.
	CustomerStatus string
	// Legacy tables keep the city in address and have no city, state,
	// zip_code or debt classification columns.
	Legacy bool
}

var (
	SchemaCustomers = Schema{
		Name:           "customers",
		Customers:      "customers",
		DocumentColumn: "document",
		CustomerRef:    "customer_id",
	}
	// SchemaClients is the layout of the legacy clients table.
	SchemaClients = Schema{
		Name:           "clients",
		Customers:      "clients",
		DocumentColumn: "cpf_cnpj",
		CustomerRef:    "client_id",
		CustomerStatus: "active",
		Legacy:         true,
	}
)

// ParseSchema accepts "customers" or "clients". Empty means customers.
func ParseSchema(s string) (Schema, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", SchemaCustomers.Name:
		return SchemaCustomers, nil
	case SchemaClients.Name:
		return SchemaClients, nil
	default:
		return Schema{}, fmt.Errorf("unknown schema %q (want customers or clients)", s)
	}
}

// Options are the import policies. The zero value is not usable; start
// from DefaultOptions.
type Options struct {
	Collections Collections
	Schema      Schema

	// DedupeCompanies looks the company up by CNPJ before creating it.
	DedupeCompanies bool
	// CompanyMustExist turns the company step into a lookup only.
	CompanyMustExist bool
	// DedupeCustomers looks customers up by (document, company) before
	// creating them. Without it every run creates new customers.
	DedupeCustomers bool

	AmountMode        normalize.Mode
	OpenStatus        models.DebtStatus
	ValidateDocuments bool
	DefaultState      string

	MaxErrors     int
	ProgressEvery int
}

func DefaultOptions() Options {
	return Options{
		Collections: Collections{
			Companies: "companies",
			Customers: "customers",
			Debts:     "debts",
		},
		Schema:          SchemaCustomers,
		DedupeCompanies: true,
		DedupeCustomers: true,
		AmountMode:      normalize.Strict,
		OpenStatus:      models.StatusOverdue,
		DefaultState:    "SP",
		MaxErrors:       report.DefaultMaxErrors,
		ProgressEvery:   10,
	}
}
