package registry

// Category keys of the built-in profiles.
const (
	CategoryW2            = "w2"
	Category1099NEC       = "1099-nec"
	Category1099MISC      = "1099-misc"
	Category1099INT       = "1099-int"
	Category1098          = "1098"
	Category1040          = "1040"
	CategoryInvoice       = "invoice"
	CategoryReceipt       = "receipt"
	CategoryBankStatement = "bank-statement"
	CategoryIDDocument    = "id-document"
	CategoryBusinessCard  = "business-card"
)

// DefaultProfiles are the categories supported out of the box.
func DefaultProfiles() []Profile {
	return []Profile{
		{
			Key:         CategoryW2,
			ModelID:     "prebuilt-tax.us.w2",
			DisplayName: "W-2 Wage and Tax Statement",
			ExpectedFields: []string{
				"Employee", "Employer", "TaxYear",
				"WagesTipsAndOtherCompensation", "FederalIncomeTaxWithheld",
			},
		},
		{
			Key:            Category1099NEC,
			ModelID:        "prebuilt-tax.us.1099NEC",
			DisplayName:    "1099-NEC Nonemployee Compensation",
			ExpectedFields: []string{"Payer", "Recipient", "TaxYear", "Box1"},
		},
		{
			Key:            Category1099MISC,
			ModelID:        "prebuilt-tax.us.1099MISC",
			DisplayName:    "1099-MISC Miscellaneous Information",
			ExpectedFields: []string{"Payer", "Recipient", "TaxYear"},
		},
		{
			Key:            Category1099INT,
			ModelID:        "prebuilt-tax.us.1099INT",
			DisplayName:    "1099-INT Interest Income",
			ExpectedFields: []string{"Payer", "Recipient", "TaxYear", "Box1"},
		},
		{
			Key:            Category1098,
			ModelID:        "prebuilt-tax.us.1098",
			DisplayName:    "1098 Mortgage Interest Statement",
			ExpectedFields: []string{"Lender", "Borrower", "TaxYear", "MortgageInterest"},
		},
		{
			Key:            Category1040,
			ModelID:        "prebuilt-tax.us.1040",
			DisplayName:    "1040 U.S. Individual Income Tax Return",
			ExpectedFields: []string{"Taxpayer", "TaxYear", "FilingStatus"},
		},
		{
			Key:            CategoryInvoice,
			ModelID:        "prebuilt-invoice",
			DisplayName:    "Invoice",
			ExpectedFields: []string{"InvoiceId", "InvoiceTotal", "DueDate"},
		},
		{
			Key:            CategoryReceipt,
			ModelID:        "prebuilt-receipt",
			DisplayName:    "Receipt",
			ExpectedFields: []string{"MerchantName", "TransactionDate", "Total"},
		},
		{
			Key:         CategoryBankStatement,
			ModelID:     "prebuilt-bankStatement.us",
			DisplayName: "Bank Statement",
			ExpectedFields: []string{
				"BankName", "AccountHolderName", "StatementStartDate", "StatementEndDate",
			},
		},
		{
			Key:            CategoryIDDocument,
			ModelID:        "prebuilt-idDocument",
			DisplayName:    "Identity Document",
			ExpectedFields: []string{"FirstName", "LastName", "DocumentNumber", "DateOfBirth"},
		},
		{
			Key:            CategoryBusinessCard,
			ModelID:        "prebuilt-businessCard",
			DisplayName:    "Business Card",
			ExpectedFields: []string{"ContactNames", "CompanyNames"},
		},
		{
			Key:         CategoryGeneral,
			ModelID:     GenericModelID,
			DisplayName: "General Document",
		},
	}
}

// Default returns a registry of DefaultProfiles.
func Default() *Registry {
	return MustNew(DefaultProfiles())
}
