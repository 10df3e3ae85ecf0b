package fetcher

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/EmiliosRichards/Phone-Correction-Pipeline/internal/model"
)

// Profile maps the logical input columns onto the header aliases one file
// family uses. Alias matching is case-insensitive on trimmed header text.
type Profile struct {
	Name               string
	CompanyName        []string
	GivenURL           []string
	GivenPhoneNumber   []string
	Description        []string
	TargetCountryCodes []string
}

var profiles = []Profile{
	{
		Name:               "default",
		CompanyName:        []string{"CompanyName", "Company Name", "Company", "Firma", "Firmenname"},
		GivenURL:           []string{"GivenURL", "URL", "Website", "Webseite", "Web", "Homepage"},
		GivenPhoneNumber:   []string{"GivenPhoneNumber", "PhoneNumber", "Phone", "Number", "Telefonnummer", "Telefon"},
		Description:        []string{"Description", "Beschreibung", "Notes"},
		TargetCountryCodes: []string{"TargetCountryCodes", "Target Country Codes", "CountryCodes"},
	},
	{
		Name:               "lean",
		CompanyName:        []string{"Name"},
		GivenURL:           []string{"URL"},
		GivenPhoneNumber:   []string{"Number"},
		Description:        nil,
		TargetCountryCodes: nil,
	},
}

// ProfileByName returns the named input profile.
func ProfileByName(name string) (Profile, error) {
	if strings.TrimSpace(name) == "" {
		name = "default"
	}
	for _, p := range profiles {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	return Profile{}, eris.Errorf("fetcher: unknown input profile %q", name)
}

// Columns holds resolved 0-based column indices; -1 marks an absent column.
type Columns struct {
	CompanyName        int
	GivenURL           int
	GivenPhoneNumber   int
	Description        int
	TargetCountryCodes int
}

// ResolveColumns matches the header row against the profile's aliases.
func (p Profile) ResolveColumns(header []string) Columns {
	find := func(aliases []string) int {
		for i, h := range header {
			h = strings.TrimSpace(h)
			for _, a := range aliases {
				if strings.EqualFold(h, a) {
					return i
				}
			}
		}
		return -1
	}
	return Columns{
		CompanyName:        find(p.CompanyName),
		GivenURL:           find(p.GivenURL),
		GivenPhoneNumber:   find(p.GivenPhoneNumber),
		Description:        find(p.Description),
		TargetCountryCodes: find(p.TargetCountryCodes),
	}
}

// RowFrom builds an InputRow from one record using the resolved columns.
func (c Columns) RowFrom(id int, record []string) model.InputRow {
	cell := func(idx int) string {
		if idx < 0 || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	row := model.InputRow{
		ID:               id,
		CompanyName:      cell(c.CompanyName),
		GivenURL:         cell(c.GivenURL),
		GivenPhoneNumber: cell(c.GivenPhoneNumber),
		Description:      cell(c.Description),
	}
	if codes := cell(c.TargetCountryCodes); codes != "" {
		for _, code := range strings.Split(codes, ",") {
			if code = strings.ToUpper(strings.TrimSpace(code)); code != "" {
				row.TargetCountryCodes = append(row.TargetCountryCodes, code)
			}
		}
	}
	return row
}
