package urlnorm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EmiliosRichards/Phone-Correction-Pipeline/internal/model"
)

type fakeResolver struct {
	known map[string]bool
}

func (r *fakeResolver) LookupHost(_ context.Context, host string) ([]string, error) {
	if r.known[host] {
		return []string{"203.0.113.1"}, nil
	}
	return nil, errors.New("no such host")
}

func TestNormalizePathful(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"http://EXAMPLE.com/Contact", "http://example.com/Contact"},
		{"http://example.com/contact/", "http://example.com/contact"},
		{"https://example.com:443/contact", "https://example.com/contact"},
		{"http://example.com:80", "http://example.com/"},
		{"http://example.com:8080/a", "http://example.com:8080/a"},
		{"http://example.com/a#frag", "http://example.com/a"},
		{"http://example.com/index.html", "http://example.com/"},
		{"http://example.com/docs/index.php", "http://example.com/docs"},
		{"http://example.com/a?b=1", "http://example.com/a?b=1"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePathful(tt.in))
		})
	}
}

func TestBaseOf(t *testing.T) {
	assert.Equal(t, "https://www.example.com", BaseOf("https://www.example.com/contact?x=1"))
	assert.Equal(t, "http://example.com", BaseOf("http://example.com/"))
}

func TestDomainLabel(t *testing.T) {
	assert.Equal(t, "example", DomainLabel("https://www.example.com"))
	assert.Equal(t, "foo-bar", DomainLabel("http://foo-bar.de"))
}

func TestCanonicalizeBasic(t *testing.T) {
	n := New(nil, &fakeResolver{})

	m := n.Canonicalize(context.Background(), 1, "  Example.COM/Contact ")
	assert.Equal(t, model.URLDeterminedOK, m.Determination)
	assert.Equal(t, "http://example.com/Contact", m.InitialPathful)
	assert.Equal(t, "http://example.com", m.BaseCanonical)
}

func TestCanonicalizeRejections(t *testing.T) {
	n := New(nil, &fakeResolver{})

	tests := []struct {
		name string
		in   string
		want model.URLDeterminationStatus
	}{
		{"empty", "   ", model.URLEmptyAfterClean},
		{"localhost", "http://localhost/x", model.URLInvalid},
		{"bad ip", "http://999.0.1/", model.URLInvalid},
		{"ftp scheme", "ftp://example.com", model.URLUnsupportedScheme},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := n.Canonicalize(context.Background(), 1, tt.in)
			assert.Equal(t, tt.want, m.Determination)
			assert.False(t, m.Determined())
		})
	}
}

func TestCanonicalizeValidIPAllowed(t *testing.T) {
	n := New(nil, &fakeResolver{})
	m := n.Canonicalize(context.Background(), 1, "http://192.168.0.10/status")
	assert.Equal(t, model.URLDeterminedOK, m.Determination)
	assert.Equal(t, "http://192.168.0.10/status", m.InitialPathful)
}

func TestCanonicalizeTLDProbing(t *testing.T) {
	n := New([]string{"de", "com"}, &fakeResolver{known: map[string]bool{"acme.com": true}})

	m := n.Canonicalize(context.Background(), 4, "acme")
	require.Equal(t, model.URLDeterminedProbed, m.Determination)
	assert.Equal(t, "http://acme.com/", m.InitialPathful)
	assert.Equal(t, "http://acme.com", m.BaseCanonical)
	assert.False(t, m.ProbeWarning)
}

func TestCanonicalizeTLDProbingExhausted(t *testing.T) {
	n := New([]string{"de", "com"}, &fakeResolver{})

	m := n.Canonicalize(context.Background(), 4, "acme")
	assert.Equal(t, model.URLDeterminedOK, m.Determination)
	assert.True(t, m.ProbeWarning)
	assert.Equal(t, "http://acme/", m.InitialPathful)
}

func TestCanonicalizeHostWhitespace(t *testing.T) {
	n := New(nil, &fakeResolver{})
	m := n.Canonicalize(context.Background(), 2, "http://exa mple.com/kontakt")
	assert.Equal(t, model.URLDeterminedOK, m.Determination)
	assert.Equal(t, "http://example.com/kontakt", m.InitialPathful)
}
