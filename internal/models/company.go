// internal/models/company.go
package models

import "time"

// CompanySize follows the IBGE porte classification used by Brazilian agencies.
type CompanySize string

const (
	SizeMEI    CompanySize = "MEI"
	SizeMicro  CompanySize = "MICRO"
	SizeSmall  CompanySize = "SMALL"
	SizeMedium CompanySize = "MEDIUM"
	SizeLarge  CompanySize = "LARGE"
)

// Cnae is a single economic-activity code from the company registration.
// Codes are hierarchical: divisão.grupo-classe/subclasse, e.g. "62.01-5-01".
type Cnae struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	IsPrimary   bool   `json:"isPrimary"`
}

type Financial struct {
	HasCounterpartCapacity bool    `json:"hasCounterpartCapacity"`
	TypicalCounterpart     float64 `json:"typicalCounterpart,omitempty"` // percentage 0-100
}

type Patents struct {
	Registered int `json:"registered,omitempty"`
	Pending    int `json:"pending,omitempty"`
}

type Partnerships struct {
	EmbrapiiUnits []string `json:"embrapiiUnits,omitempty"`
	Universities  []string `json:"universities,omitempty"`
}

// CompanyProfile is the hydrated snapshot a scoring evaluation consumes.
// Every optional field uses a pointer or nilable slice so "not informed"
// stays distinguishable from an explicit zero.
type CompanyProfile struct {
	ID             string       `json:"id,omitempty"`
	Size           CompanySize  `json:"size,omitempty"`
	Sector         string       `json:"sector,omitempty"`
	State          string       `json:"state,omitempty"` // UF, e.g. "SP"
	AnnualRevenue  *float64     `json:"annualRevenue,omitempty"`
	EmployeeCount  *int         `json:"employeeCount,omitempty"`
	FoundationDate *time.Time   `json:"foundationDate,omitempty"`
	Cnaes          []Cnae       `json:"cnaes,omitempty"`
	RDThemes       []string     `json:"rdThemes,omitempty"`
	Financial      Financial    `json:"financial"`
	Patents        Patents      `json:"patents"`
	Partnerships   Partnerships `json:"partnerships"`
	Embedding      []float64    `json:"embedding,omitempty"`
}

// PrimaryCnae returns the primary activity code, or nil if none is flagged.
func (c *CompanyProfile) PrimaryCnae() *Cnae {
	for i := range c.Cnaes {
		if c.Cnaes[i].IsPrimary {
			return &c.Cnaes[i]
		}
	}
	return nil
}

// YearsOperating computes the company age in fractional years at the given
// reference instant. Returns false when the foundation date is unknown.
func (c *CompanyProfile) YearsOperating(now time.Time) (float64, bool) {
	if c.FoundationDate == nil {
		return 0, false
	}
	years := now.Sub(*c.FoundationDate).Hours() / 24 / 365.25
	return years, true
}
