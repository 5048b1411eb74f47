package sources

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tender-writer/internal/domain"
	"tender-writer/internal/fault"
	"tender-writer/internal/source"
	"tender-writer/internal/source/sanral"
	"tender-writer/internal/source/transnet"
)

func TestResolveIgnoresCase(t *testing.T) {
	reg := Registry()
	for _, key := range []string{"SanralLambda", "sanrallambda", "SANRAL", " sanral "} {
		h, err := reg.Resolve(key)
		require.NoError(t, err, key)
		assert.Equal(t, domain.SourceSanral, h.Type, key)
	}
}

func TestEveryPortalHasAnAlias(t *testing.T) {
	reg := Registry()
	for _, st := range []domain.SourceType{
		domain.SourceETender, domain.SourceEskom, domain.SourceTransnet, domain.SourceSars, domain.SourceSanral,
	} {
		h, ok := reg.Handler(st)
		require.True(t, ok, st)
		assert.GreaterOrEqual(t, len(h.Aliases), 2, st)
		for _, a := range h.Aliases {
			got, err := reg.Resolve(a)
			require.NoError(t, err)
			assert.Equal(t, st, got.Type)
		}
	}
}

func TestUnknownKeyIsUnsupported(t *testing.T) {
	_, err := Registry().Decode("cidb", []byte(`{"title":"x"}`))
	require.Error(t, err)
	assert.Equal(t, fault.UnsupportedSource, fault.CategoryOf(err))

	var fe *fault.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "cidb", fe.Key)
}

func TestMalformedBodies(t *testing.T) {
	reg := Registry()
	for name, body := range map[string]string{
		"empty":      "",
		"null":       "null",
		"not json":   "<html>",
		"array":      `[1,2]`,
		"bad date":   `{"closingDate":"next tuesday"}`,
		"bool tnum":  `{"tenderNumber":true}`,
		"tags mixed": `{"tags":"roads"}`,
	} {
		_, err := reg.Decode("sanral", []byte(body))
		require.Error(t, err, name)
		assert.Equal(t, fault.MalformedPayload, fault.CategoryOf(err), name)
	}
}

func TestNumericTenderNumberBecomesText(t *testing.T) {
	v, err := Registry().Decode("SanralLambda",
		[]byte(`{"title":"Road works","tenderNumber":12345,"closingDate":"2030-01-01T00:00:00Z","tags":["Roads","roads"]}`))
	require.NoError(t, err)

	m, ok := v.(*sanral.Message)
	require.True(t, ok)
	assert.Equal(t, domain.SourceSanral, v.SourceType())
	assert.Equal(t, "12345", string(m.TenderNumber))
	assert.Equal(t, 2030, m.ClosingDate.Year())
	assert.Equal(t, []string{"Roads", "roads"}, v.Shared().Tags)
}

func TestTransnetAttachmentsAreDocuments(t *testing.T) {
	v, err := Registry().Decode("transnet",
		[]byte(`{"attachments":[{"name":"RFQ","url":"https://example.org/rfq.pdf"}],"region":"Durban"}`))
	require.NoError(t, err)
	require.Len(t, v.Documents(), 1)
	assert.Equal(t, "RFQ", v.Documents()[0].Name)

	h, _ := Registry().Handler(domain.SourceTransnet)
	d, err := h.Detail(v)
	require.NoError(t, err)
	assert.Equal(t, "Durban", d.(transnet.Detail).Location)
}

func TestDuplicateAliasPanics(t *testing.T) {
	assert.Panics(t, func() {
		h := sanral.Handler()
		other := sanral.Handler()
		other.Type = "Other"
		_ = source.NewRegistry(h, other)
	})
}
