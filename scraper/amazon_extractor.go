package scraper

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"boxtrack/models"
)

// AmazonExtractor parses product pages with CSS selectors. It works on the
// rendered HTML string, so it needs no live browser and can be exercised
// against fixture pages.
type AmazonExtractor struct{}

// NewAmazonExtractor creates a new extractor.
func NewAmazonExtractor() *AmazonExtractor {
	return &AmazonExtractor{}
}

var priceSelectors = []string{
	"#corePrice_feature_div .a-price .a-offscreen",
	"#corePriceDisplay_desktop_feature_div .a-price .a-offscreen",
	"#priceblock_ourprice",
	"#priceblock_dealprice",
	"#priceblock_saleprice",
	".a-price .a-offscreen",
}

var sellerSelectors = []string{
	"#sellerProfileTriggerId",
	"#merchant-info a",
	".offer-display-feature-text-message",
}

var soldByPattern = regexp.MustCompile(`(?i)sold by\s+(.+?)(?:\s+and\s|\.|$)`)
var offersCountPattern = regexp.MustCompile(`\((\d+)\)`)

// Extract parses the rendered page into a snapshot. It returns an
// ExtractionError when neither a title nor a price can be found, which
// usually means an error page or a layout the selectors do not cover.
func (x *AmazonExtractor) Extract(html, asin, region string) (*models.PageSnapshot, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &ExtractionError{ASIN: asin, Region: region, Reason: "unparseable HTML: " + err.Error()}
	}

	snapshot := &models.PageSnapshot{}

	snapshot.Title = cleanText(doc.Find("#productTitle").First().Text())

	for _, sel := range priceSelectors {
		raw := doc.Find(sel).First().Text()
		if raw == "" {
			continue
		}
		value, display, perr := ParseDisplayPrice(raw)
		if perr == nil {
			snapshot.Price = &value
			snapshot.PriceDisplay = display
			break
		}
	}

	snapshot.SellerName = x.extractSeller(doc)
	snapshot.HasBuyBox = snapshot.SellerName != "" && snapshot.Price != nil
	snapshot.TotalOffers = x.extractOfferCount(doc)

	if img, ok := doc.Find("#landingImage").First().Attr("src"); ok {
		snapshot.ImageURL = img
	}

	if snapshot.Title == "" && snapshot.Price == nil {
		return nil, &ExtractionError{ASIN: asin, Region: region, Reason: "no title or price found on page"}
	}
	return snapshot, nil
}

func (x *AmazonExtractor) extractSeller(doc *goquery.Document) string {
	for _, sel := range sellerSelectors {
		if name := cleanText(doc.Find(sel).First().Text()); name != "" {
			// The offer display block sometimes wraps the name in a
			// "Sold by X." sentence.
			if m := soldByPattern.FindStringSubmatch(name); m != nil {
				return cleanText(m[1])
			}
			return name
		}
	}
	if m := soldByPattern.FindStringSubmatch(cleanText(doc.Find("#merchant-info").First().Text())); m != nil {
		return cleanText(m[1])
	}
	return ""
}

func (x *AmazonExtractor) extractOfferCount(doc *goquery.Document) int {
	link := doc.Find("#olp-sl-new a, #olp_feature_div a").First().Text()
	if m := offersCountPattern.FindStringSubmatch(link); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	// A page with a Buy Box but no offer listing link still has one offer.
	if doc.Find("#buybox, #desktop_buybox").Length() > 0 {
		return 1
	}
	return 0
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
