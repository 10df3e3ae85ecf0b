package model

// InputRow is one company row from the input table. Immutable once loaded.
type InputRow struct {
	ID                 int      `json:"id"` // stable 1-based row index
	CompanyName        string   `json:"company_name"`
	GivenURL           string   `json:"given_url"`
	GivenPhoneNumber   string   `json:"given_phone_number,omitempty"`
	Description        string   `json:"description,omitempty"`
	TargetCountryCodes []string `json:"target_country_codes,omitempty"`
}

// URLDeterminationStatus records how canonicalization of a row's URL ended.
type URLDeterminationStatus string

const (
	URLDeterminedOK      URLDeterminationStatus = "ok"
	URLDeterminedProbed  URLDeterminationStatus = "tld_probed"
	URLInvalid           URLDeterminationStatus = "invalid"
	URLUnsupportedScheme URLDeterminationStatus = "unsupported_scheme"
	URLEmptyAfterClean   URLDeterminationStatus = "empty_after_cleaning"
)

// CanonicalMapping links an input row to its canonical URL forms.
// Created in Pass 1 and frozen thereafter. Cross-references are identifier
// values (row ID, URL strings), never pointers.
type CanonicalMapping struct {
	RowID           int                    `json:"row_id"`
	InitialPathful  string                 `json:"initial_pathful"`
	BaseCanonical   string                 `json:"base_canonical"`
	Determination   URLDeterminationStatus `json:"determination"`
	ProbeWarning    bool                   `json:"probe_warning,omitempty"` // TLD probing exhausted, host kept as-is
	DeterminedError string                 `json:"determined_error,omitempty"`
}

// Determined reports whether the row produced usable canonical forms.
func (m CanonicalMapping) Determined() bool {
	return m.Determination == URLDeterminedOK || m.Determination == URLDeterminedProbed
}
