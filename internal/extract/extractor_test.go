package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"catalog-ingest/internal/catalog"
)

func newTestExtractor() *Extractor {
	return New(nil, catalog.NewRetrier(), nil, Config{}, zap.NewNop())
}

const fullProductPage = `<!DOCTYPE html>
<html><body>
<nav aria-label="breadcrumb"><a href="/">Home</a><a href="/c/men">Men</a><a href="/c/men/tees">Graphic Tees</a></nav>
<h1 data-testid="product-title">AE Vintage Graphic Tee</h1>
<div data-testid="product-price">$24.95</div>
<img data-testid="product-image" src="https://img.ae.com/is/image/product/123.jpg"/>
<div data-testid="product-description">Soft cotton tee with vintage wash.</div>
<div class="size-selector">
  <button>XS</button><button>S</button><button>M</button><button>L</button><button>XL</button>
  <button>Size chart</button>
</div>
</body></html>`

func TestFromHTMLFullPage(t *testing.T) {
	t.Parallel()

	attempt, err := newTestExtractor().FromHTML(fullProductPage, "https://www.ae.com/us/en/p/men/tees/0001")
	require.NoError(t, err)

	assert.Equal(t, "AE Vintage Graphic Tee", attempt.Title)
	assert.Equal(t, "Soft cotton tee with vintage wash.", attempt.Description)
	assert.Equal(t, "https://img.ae.com/is/image/product/123.jpg", attempt.ImageURL)
	assert.Equal(t, []string{"XS", "S", "M", "L", "XL"}, attempt.Sizes, "oversized labels filtered")
	assert.Equal(t, []string{"Home", "Men", "Graphic Tees"}, attempt.Breadcrumbs)
	assert.Equal(t, "Graphic Tees", attempt.Category)
	assert.Equal(t, catalog.GenderMan, attempt.Gender)
	require.NotNil(t, attempt.Price)
	assert.Equal(t, "24.95", attempt.Price.String())
	assert.Equal(t, "USD", attempt.Currency)
}

// The primary price selector is absent but a JSON-LD block carries offers.
const structuredDataPage = `<!DOCTYPE html>
<html><head>
<script type="application/ld+json">
{"@type":"Product","name":"Fallback Hoodie","description":"Fleece hoodie.",
 "image":["https://img.ae.com/is/image/product/777.jpg"],
 "offers":{"price":"29.99","priceCurrency":"USD"}}
</script>
</head><body>
<div id="app"></div>
</body></html>`

func TestFromHTMLStructuredDataFallback(t *testing.T) {
	t.Parallel()

	attempt, err := newTestExtractor().FromHTML(structuredDataPage, "https://www.ae.com/us/en/p/hoodies/0002")
	require.NoError(t, err)

	assert.Equal(t, "Fallback Hoodie", attempt.Title)
	assert.Equal(t, "Fleece hoodie.", attempt.Description)
	assert.Equal(t, "https://img.ae.com/is/image/product/777.jpg", attempt.ImageURL)
	require.NotNil(t, attempt.Price)
	assert.Equal(t, "29.99", attempt.Price.String())
	assert.Equal(t, "USD", attempt.Currency)
}

func TestFromHTMLMissingFieldsDoNotAbort(t *testing.T) {
	t.Parallel()

	attempt, err := newTestExtractor().FromHTML(`<html><body><p>nothing here</p></body></html>`,
		"https://www.ae.com/us/en/p/unknown/0003")
	require.NoError(t, err, "a bare page must still produce a partial attempt")

	assert.Empty(t, attempt.Title)
	assert.Empty(t, attempt.ImageURL)
	assert.Nil(t, attempt.Price)
	assert.Equal(t, catalog.GenderOther, attempt.Gender)
	assert.Equal(t, "USD", attempt.Currency, "currency defaults when undetectable")
}

func TestFromHTMLNumericStructuredPrice(t *testing.T) {
	t.Parallel()

	page := `<html><head><script type="application/ld+json">
	{"@type":"Product","name":"Numeric","offers":[{"price":49.5,"priceCurrency":"EUR"}]}
	</script></head><body></body></html>`

	attempt, err := newTestExtractor().FromHTML(page, "https://www.ae.com/p/x")
	require.NoError(t, err)
	require.NotNil(t, attempt.Price)
	assert.Equal(t, "49.5", attempt.Price.String())
	assert.Equal(t, "EUR", attempt.Currency)
}

func TestHeuristicImageFallback(t *testing.T) {
	t.Parallel()

	page := `<html><body>
	<img src="/sprites/icons.svg"/>
	<img src="https://cdn.ae.com/media/product/55443.jpg"/>
	</body></html>`

	attempt, err := newTestExtractor().FromHTML(page, "https://www.ae.com/p/x")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.ae.com/media/product/55443.jpg", attempt.ImageURL)
}
