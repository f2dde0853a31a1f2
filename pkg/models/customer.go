package models

// Company owns customers and debts. TaxID holds the CNPJ and is the
// natural key used to find an existing company.
type Company struct {
	ID      string `yaml:"-"`
	Name    string `yaml:"name"`
	TaxID   string `yaml:"cnpj"`
	Email   string `yaml:"email"`
	Phone   string `yaml:"phone"`
	Address string `yaml:"address"`
}

// Customer is a debtor of a company, identified by Document (CPF or CNPJ)
// within that company.
type Customer struct {
	ID        string
	CompanyID string
	Name      string
	Document  string
	Email     string
	Phone     string
	Address   string
	City      string
	State     string
	ZipCode   string
}
