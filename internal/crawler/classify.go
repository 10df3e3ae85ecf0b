package crawler

import (
	"net/url"
	"strings"

	"github.com/EmiliosRichards/Phone-Correction-Pipeline/internal/model"
)

var (
	defaultContactKeywords = []string{"kontakt", "contact"}
	defaultImprintKeywords = []string{"impressum", "imprint", "legal-notice", "legalnotice"}
	defaultLegalKeywords   = []string{"datenschutz", "privacy", "agb", "terms", "legal"}
	defaultGeneralKeywords = []string{"about", "ueber-uns", "uber-uns", "team", "unternehmen", "company", "services", "produkte"}
)

// Classifier assigns a page type from a landed URL. Keyword lists are checked
// in order; the first match wins.
type Classifier struct {
	contact []string
	imprint []string
	legal   []string
	general []string
}

// NewClassifier builds a Classifier. Nil lists fall back to defaults.
func NewClassifier(contact, imprint, legal, general []string) *Classifier {
	if contact == nil {
		contact = defaultContactKeywords
	}
	if imprint == nil {
		imprint = defaultImprintKeywords
	}
	if legal == nil {
		legal = defaultLegalKeywords
	}
	if general == nil {
		general = defaultGeneralKeywords
	}
	return &Classifier{contact: contact, imprint: imprint, legal: legal, general: general}
}

// Classify maps a landed URL to a page type. Pure and deterministic.
func (c *Classifier) Classify(landedURL string) model.PageType {
	if landedURL == "" {
		return model.PageTypeUnknown
	}

	urlLower := strings.ToLower(landedURL)
	u, err := url.Parse(urlLower)
	if err != nil {
		return model.PageTypeUnknown
	}
	pathLower := u.EscapedPath()

	// Path keywords are the stronger signal; the full URL is a fallback.
	for _, probe := range []string{pathLower, urlLower} {
		switch {
		case containsAny(probe, c.contact):
			return model.PageTypeContact
		case containsAny(probe, c.imprint):
			return model.PageTypeImprint
		case containsAny(probe, c.legal):
			return model.PageTypeLegal
		}
	}

	if pathLower == "" || pathLower == "/" {
		return model.PageTypeHomepage
	}
	if containsAny(pathLower, c.general) {
		return model.PageTypeGeneral
	}
	return model.PageTypeUnknown
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
