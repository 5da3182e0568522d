package importer

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopsync/backend/internal/application/exchange"
	"github.com/shopsync/backend/internal/domain/catalog"
)

// ambiguousID marks a name|alias key that occurs more than once locally.
// Rows referencing an ambiguous definition are ignored rather than guessed
// at.
const ambiguousID = 0

// importedCategory records where a foreign category landed locally.
type importedCategory struct {
	ForeignParentID int
	DestinationID   int
}

// pendingLink is an attribute value waiting for its linked product to get a
// local id in pass 2.
type pendingLink struct {
	value            *catalog.ProductVariantAttributeValue
	foreignProductID int
}

// pendingBundle is a bundle part whose contained product id is foreign until
// pass 2.
type pendingBundle struct {
	bundleLocalID int
	row           exchange.ProductBundleItemRow
}

// pendingGrouped is a product whose grouped parent id is foreign until pass 2.
type pendingGrouped struct {
	localID         int
	foreignParentID int
}

// pendingRequired is a product whose required-product id list is foreign
// until pass 2.
type pendingRequired struct {
	localID    int
	foreignCSV string
}

// cargo is the in-memory working set of one import run: id translation maps,
// name based dedupe indexes and the work queued for pass 2. Fragment scoped
// members are reset per batch; everything else lives for the whole run.
type cargo struct {
	// name|alias -> id; ambiguousID when the pair is not unique locally.
	specAttributes map[string]int
	attributes     map[string]int

	// "attrID|optionName" -> option id.
	specOptions map[string]int

	// lowercased name -> id.
	manufacturers map[string]int
	tags          map[string]int
	deliveryTimes map[string]int
	quantityUnits map[string]int

	// lowercased culture -> language id.
	languages map[string]int

	// foreign id translation, filled as rows import.
	categoryIDs         map[int]importedCategory
	productIDs          map[int]int
	newProductIDs       map[int]bool
	attributeMappingIDs map[int]int
	attributeValueIDs   map[int]int

	// "productID|attrID" -> variant mapping id, "mappingID|valueName" -> value id.
	variantMappings map[string]int
	variantValues   map[string]int

	// image URL -> local picture id; zero records a failed download so the
	// URL is not fetched again this run.
	pictures map[string]int

	// pass 2 queues.
	links    []pendingLink
	bundles  []pendingBundle
	grouped  []pendingGrouped
	required []pendingRequired

	// fragment scoped prescan indexes.
	existingBySku  map[string]*catalog.Product
	existingByGtin map[string]*catalog.Product

	// name|alias pairs already reported as ambiguous, to log each only once.
	reportedAmbiguous map[string]bool
}

func newCargo() *cargo {
	return &cargo{
		specAttributes:      make(map[string]int),
		attributes:          make(map[string]int),
		specOptions:         make(map[string]int),
		manufacturers:       make(map[string]int),
		tags:                make(map[string]int),
		deliveryTimes:       make(map[string]int),
		quantityUnits:       make(map[string]int),
		languages:           make(map[string]int),
		categoryIDs:         make(map[int]importedCategory),
		productIDs:          make(map[int]int),
		newProductIDs:       make(map[int]bool),
		attributeMappingIDs: make(map[int]int),
		attributeValueIDs:   make(map[int]int),
		variantMappings:     make(map[string]int),
		variantValues:       make(map[string]int),
		pictures:            make(map[string]int),
		existingBySku:       make(map[string]*catalog.Product),
		existingByGtin:      make(map[string]*catalog.Product),
		reportedAmbiguous:   make(map[string]bool),
	}
}

// clearFragmentData drops the prescan indexes before the next batch.
func (c *cargo) clearFragmentData() {
	c.existingBySku = make(map[string]*catalog.Product)
	c.existingByGtin = make(map[string]*catalog.Product)
}

// lowered normalizes a lookup key.
func lowered(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// nameAliasKey is the dedupe identity of attribute definitions.
func nameAliasKey(name, alias string) string {
	return strings.ToLower(strings.TrimSpace(name)) + "|" + strings.ToLower(strings.TrimSpace(alias))
}

func optionKey(attributeID int, optionName string) string {
	return fmt.Sprintf("%d|%s", attributeID, strings.ToLower(strings.TrimSpace(optionName)))
}

func mappingKey(productID, attributeID int) string {
	return fmt.Sprintf("%d|%d", productID, attributeID)
}

func valueKey(mappingID int, valueName string) string {
	return fmt.Sprintf("%d|%s", mappingID, strings.ToLower(strings.TrimSpace(valueName)))
}

// load fills the run scoped dedupe indexes from the local catalog. Attribute
// definitions whose name|alias pair occurs twice are entered as ambiguous.
func (c *cargo) load(ctx context.Context, repos Repositories) error {
	specAttrs, err := repos.Attributes.SpecificationAttributes(ctx)
	if err != nil {
		return err
	}
	for _, a := range specAttrs {
		key := nameAliasKey(a.Name, a.Alias)
		if _, dup := c.specAttributes[key]; dup {
			c.specAttributes[key] = ambiguousID
			continue
		}
		c.specAttributes[key] = a.ID
	}
	for _, a := range specAttrs {
		options, err := repos.Attributes.OptionsByAttribute(ctx, a.ID)
		if err != nil {
			return err
		}
		for _, o := range options {
			c.specOptions[optionKey(a.ID, o.Name)] = o.ID
		}
	}

	attrs, err := repos.Attributes.ProductAttributes(ctx)
	if err != nil {
		return err
	}
	for _, a := range attrs {
		key := nameAliasKey(a.Name, a.Alias)
		if _, dup := c.attributes[key]; dup {
			c.attributes[key] = ambiguousID
			continue
		}
		c.attributes[key] = a.ID
	}

	deliveryTimes, err := repos.Lookups.DeliveryTimes(ctx)
	if err != nil {
		return err
	}
	for _, dt := range deliveryTimes {
		c.deliveryTimes[strings.ToLower(dt.Name)] = dt.ID
	}

	quantityUnits, err := repos.Lookups.QuantityUnits(ctx)
	if err != nil {
		return err
	}
	for _, qu := range quantityUnits {
		c.quantityUnits[strings.ToLower(qu.Name)] = qu.ID
	}

	languages, err := repos.Localization.Languages(ctx)
	if err != nil {
		return err
	}
	for _, lang := range languages {
		c.languages[strings.ToLower(lang.LanguageCulture)] = lang.ID
	}

	return nil
}
