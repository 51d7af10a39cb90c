package extract

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// page bundles the parsed DOM with its structured-data block so strategies
// can consult either.
type page struct {
	doc *goquery.Document
	ld  *productLD
}

// strategy yields a candidate value for one field, or "" when the markup it
// expects is absent.
type strategy func(*page) string

// firstNonEmpty applies strategies in order; the first hit wins.
func firstNonEmpty(p *page, strategies []strategy) string {
	for _, s := range strategies {
		if v := s(p); v != "" {
			return v
		}
	}
	return ""
}

func text(selector string) strategy {
	return func(p *page) string {
		var out string
		p.doc.Find(selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			if v := strings.TrimSpace(sel.Text()); v != "" {
				out = v
				return false
			}
			return true
		})
		return out
	}
}

func imageSrc(selector string) strategy {
	return func(p *page) string {
		var out string
		p.doc.Find(selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			src := strings.TrimSpace(sel.AttrOr("src", ""))
			if src == "" {
				src = strings.TrimSpace(sel.AttrOr("data-src", ""))
			}
			if src != "" {
				out = src
				return false
			}
			return true
		})
		return out
	}
}

// The selector lists mirror the catalog's markup variants, most specific
// first; structured data is the last resort for every field.

var titleStrategies = []strategy{
	text(`h1[data-testid="product-title"]`),
	text(`h1.product-title`),
	text(`h1[class*="ProductTitle"]`),
	text(`[data-testid="product-name"]`),
	text(`.product-name`),
	text(`h1`),
	func(p *page) string { return p.ld.name() },
}

var priceStrategies = []strategy{
	text(`[data-testid="product-price"]`),
	text(`.product-price`),
	text(`[class*="price"]`),
	func(p *page) string { return p.ld.price() },
}

var descriptionStrategies = []strategy{
	text(`[data-testid="product-description"]`),
	text(`.product-description`),
	text(`[class*="description"]`),
	func(p *page) string { return p.ld.description() },
}

var imageStrategies = []strategy{
	imageSrc(`img[data-testid="product-image"]`),
	imageSrc(`img.product-image`),
	imageSrc(`img[class*="product-image"]`),
	imageSrc(`.product-image img`),
	func(p *page) string { return p.ld.image() },
	heuristicImage,
}

// heuristicImage scans every image for something that looks like product
// media when the dedicated selectors all missed.
func heuristicImage(p *page) string {
	var out string
	p.doc.Find("img").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		src := strings.TrimSpace(sel.AttrOr("src", ""))
		if src == "" {
			src = strings.TrimSpace(sel.AttrOr("data-src", ""))
		}
		if src == "" {
			return true
		}
		lower := strings.ToLower(src)
		if strings.Contains(lower, "product") ||
			strings.HasSuffix(lower, ".jpg") || strings.HasSuffix(lower, ".jpeg") || strings.HasSuffix(lower, ".png") {
			out = src
			return false
		}
		return true
	})
	return out
}

var sizeSelectors = []string{
	`[data-testid*="size"] button`,
	`button[class*="size"]`,
	`.size-selector button`,
	`[class*="SizeSelector"] button`,
}

// collectSizes harvests the first selector list with any hits, dropping
// blanks, oversized labels and duplicates while keeping display order.
func collectSizes(p *page) []string {
	for _, selector := range sizeSelectors {
		sel := p.doc.Find(selector)
		if sel.Length() == 0 {
			continue
		}
		seen := make(map[string]struct{})
		var sizes []string
		sel.Each(func(_ int, s *goquery.Selection) {
			v := strings.TrimSpace(s.Text())
			if v == "" || len(v) >= 10 {
				return
			}
			if _, ok := seen[v]; ok {
				return
			}
			seen[v] = struct{}{}
			sizes = append(sizes, v)
		})
		if len(sizes) > 0 {
			return sizes
		}
	}
	return nil
}

func collectBreadcrumbs(p *page) []string {
	var crumbs []string
	p.doc.Find(`[class*="breadcrumb"] a, nav[aria-label*="breadcrumb"] a`).Each(func(_ int, s *goquery.Selection) {
		if v := strings.TrimSpace(s.Text()); v != "" {
			crumbs = append(crumbs, v)
		}
	})
	return crumbs
}

// productLD is the subset of a JSON-LD Product block the strategies consult.
type productLD struct {
	Type        string          `json:"@type"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Image       json.RawMessage `json:"image"`
	Offers      json.RawMessage `json:"offers"`
}

type offerLD struct {
	Price         json.RawMessage `json:"price"`
	PriceCurrency string          `json:"priceCurrency"`
}

// parseProductLD scans ld+json script blocks for the first Product entity.
// Returns an empty (never nil) block when none parses.
func parseProductLD(doc *goquery.Document) *productLD {
	var found *productLD
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var ld productLD
		if err := json.Unmarshal([]byte(s.Text()), &ld); err != nil {
			return true
		}
		if !strings.EqualFold(ld.Type, "Product") {
			return true
		}
		found = &ld
		return false
	})
	if found == nil {
		return &productLD{}
	}
	return found
}

func (ld *productLD) name() string        { return strings.TrimSpace(ld.Name) }
func (ld *productLD) description() string { return strings.TrimSpace(ld.Description) }

// image handles both a bare string and an array of URLs.
func (ld *productLD) image() string {
	if len(ld.Image) == 0 {
		return ""
	}
	var single string
	if err := json.Unmarshal(ld.Image, &single); err == nil {
		return strings.TrimSpace(single)
	}
	var many []string
	if err := json.Unmarshal(ld.Image, &many); err == nil && len(many) > 0 {
		return strings.TrimSpace(many[0])
	}
	return ""
}

// price renders the offer as display text ("$29.99" style) so it flows
// through the same normalization as the DOM strategies.
func (ld *productLD) price() string {
	if len(ld.Offers) == 0 {
		return ""
	}
	offer := decodeOffer(ld.Offers)
	if offer == nil {
		return ""
	}
	price := rawToString(offer.Price)
	if price == "" {
		return ""
	}
	if offer.PriceCurrency != "" {
		return offer.PriceCurrency + " " + price
	}
	return price
}

// decodeOffer accepts either a single offers object or an array of them.
func decodeOffer(raw json.RawMessage) *offerLD {
	var one offerLD
	if err := json.Unmarshal(raw, &one); err == nil && len(one.Price) > 0 {
		return &one
	}
	var many []offerLD
	if err := json.Unmarshal(raw, &many); err == nil {
		for i := range many {
			if len(many[i].Price) > 0 {
				return &many[i]
			}
		}
	}
	return nil
}

// rawToString tolerates both "29.99" and 29.99 in structured data.
func rawToString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return jsonNumber(f)
	}
	return ""
}

func jsonNumber(f float64) string {
	b, err := json.Marshal(f)
	if err != nil {
		return ""
	}
	return string(b)
}
