package model

// PageType is the category assigned to a scraped page based on its URL.
type PageType string

const (
	PageTypeContact  PageType = "contact"
	PageTypeImprint  PageType = "imprint"
	PageTypeLegal    PageType = "legal"
	PageTypeHomepage PageType = "homepage"
	PageTypeGeneral  PageType = "general_content"
	PageTypeUnknown  PageType = "unknown"
)

// RelevantPageTypes are the classifications that count as contact-bearing
// for outcome derivation.
func RelevantPageTypes() []PageType {
	return []PageType{PageTypeContact, PageTypeImprint, PageTypeLegal, PageTypeHomepage}
}

// ScraperStatus is the closed per-pathful-URL fetch outcome enum.
type ScraperStatus string

const (
	StatusSuccess          ScraperStatus = "Success"
	StatusAlreadyProcessed ScraperStatus = "AlreadyProcessed"
	StatusInvalidURL       ScraperStatus = "InvalidURL"
	StatusErrorNetwork     ScraperStatus = "Error_Network"
	StatusErrorDNS         ScraperStatus = "Error_DNS"
	StatusErrorAccess      ScraperStatus = "Error_AccessDenied"
	StatusErrorNotFound    ScraperStatus = "Error_ContentNotFound"
	StatusErrorTimeout     ScraperStatus = "Error_Timeout"
	StatusErrorRobots      ScraperStatus = "Error_RobotsDisallowed"
	StatusErrorRedirects   ScraperStatus = "Error_MaxRedirects"
	StatusErrorGeneric     ScraperStatus = "Error_Generic"
)

// statusPriority orders statuses from most to least successful. A base
// domain's status is the best pathful status under it.
var statusPriority = map[ScraperStatus]int{
	StatusSuccess:          0,
	StatusAlreadyProcessed: 1,
	StatusErrorNotFound:    2,
	StatusErrorAccess:      3,
	StatusErrorRobots:      4,
	StatusErrorRedirects:   5,
	StatusErrorTimeout:     6,
	StatusErrorNetwork:     7,
	StatusErrorDNS:         8,
	StatusErrorGeneric:     9,
	StatusInvalidURL:       10,
}

// BestStatus returns the most successful of the given statuses, or
// Error_Generic when the list is empty.
func BestStatus(statuses []ScraperStatus) ScraperStatus {
	best := StatusErrorGeneric
	bestRank := len(statusPriority)
	for _, s := range statuses {
		rank, ok := statusPriority[s]
		if !ok {
			continue
		}
		if rank < bestRank {
			best = s
			bestRank = rank
		}
	}
	return best
}

// IsNetworkError reports whether the status belongs to the network-error set
// used by outcome derivation.
func (s ScraperStatus) IsNetworkError() bool {
	switch s {
	case StatusErrorNetwork, StatusErrorDNS, StatusErrorTimeout:
		return true
	}
	return false
}

// IsAccessDenied reports whether the status belongs to the access-denied set.
func (s ScraperStatus) IsAccessDenied() bool {
	return s == StatusErrorAccess || s == StatusErrorRobots
}

// IsContentNotFound reports whether the status belongs to the not-found set.
func (s ScraperStatus) IsContentNotFound() bool {
	return s == StatusErrorNotFound
}

// ScrapedPage is a successfully fetched page whose cleaned text was retained.
type ScrapedPage struct {
	SourceURL       string   `json:"source_url"`       // pathful URL as requested
	FinalLandedURL  string   `json:"final_landed_url"` // after all redirects, normalized
	CleanedTextPath string   `json:"cleaned_text_path"`
	PageType        PageType `json:"page_type"`
}
