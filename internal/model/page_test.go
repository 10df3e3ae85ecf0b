package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBestStatus(t *testing.T) {
	tests := []struct {
		name     string
		statuses []ScraperStatus
		want     ScraperStatus
	}{
		{"empty", nil, StatusErrorGeneric},
		{"single success", []ScraperStatus{StatusSuccess}, StatusSuccess},
		{"success beats errors", []ScraperStatus{StatusErrorDNS, StatusSuccess, StatusErrorTimeout}, StatusSuccess},
		{"already processed beats errors", []ScraperStatus{StatusErrorNetwork, StatusAlreadyProcessed}, StatusAlreadyProcessed},
		{"not found beats dns", []ScraperStatus{StatusErrorDNS, StatusErrorNotFound}, StatusErrorNotFound},
		{"invalid is worst", []ScraperStatus{StatusInvalidURL, StatusErrorGeneric}, StatusErrorGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BestStatus(tt.statuses))
		})
	}
}

func TestStatusSets(t *testing.T) {
	assert.True(t, StatusErrorDNS.IsNetworkError())
	assert.True(t, StatusErrorTimeout.IsNetworkError())
	assert.False(t, StatusErrorAccess.IsNetworkError())

	assert.True(t, StatusErrorRobots.IsAccessDenied())
	assert.True(t, StatusErrorAccess.IsAccessDenied())
	assert.False(t, StatusErrorDNS.IsAccessDenied())

	assert.True(t, StatusErrorNotFound.IsContentNotFound())
	assert.False(t, StatusSuccess.IsContentNotFound())
}

func TestJourneyDerivations(t *testing.T) {
	j := &CanonicalDomainJourney{
		BaseDomain: "https://example.com",
		PathfulStatuses: map[string]ScraperStatus{
			"https://example.com/contact": StatusSuccess,
			"https://example.com/legal":   StatusErrorNotFound,
		},
		PagesByType: map[PageType]int{
			PageTypeContact: 1,
			PageTypeGeneral: 3,
		},
	}

	assert.Equal(t, StatusSuccess, j.OverallStatus())
	assert.Equal(t, 4, j.TotalPagesScraped())
	assert.True(t, j.HasRelevantPage())

	j.PagesByType = map[PageType]int{PageTypeGeneral: 2, PageTypeUnknown: 1}
	assert.False(t, j.HasRelevantPage())
}
