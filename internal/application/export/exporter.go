package export

import (
	"context"
	"strconv"
	"strings"

	"github.com/shopsync/backend/internal/application/exchange"
	"github.com/shopsync/backend/internal/domain/catalog"
	"github.com/shopsync/backend/internal/domain/connector"
	"github.com/shopsync/backend/internal/infrastructure/xmlstream"
	"go.uber.org/zap"
)

// exporter carries the per-run caches of one product data export. Lookup
// tables that are small and read per product (categories, attribute
// definitions, units) are loaded once up front.
type exporter struct {
	svc  *Service
	conn *connector.Connection
	opts Options

	languages []*catalog.Language

	categories        map[int]*catalog.Category
	orderedCategories []*catalog.Category
	categoryStores    map[int][]int

	specAttrs     map[int]*catalog.SpecificationAttribute
	prodAttrs     map[int]*catalog.ProductAttribute
	deliveryTimes map[int]*catalog.DeliveryTime
	quantityUnits map[int]*catalog.QuantityUnit

	// Connection store restriction; empty means unrestricted.
	storeIDs []int

	// Categories referenced by at least one exported product, plus their
	// ancestors. Only these make it into the category section.
	allowedCategories map[int]bool
}

func (s *Service) newExporter(ctx context.Context, conn *connector.Connection, opts Options) (*exporter, error) {
	ex := &exporter{
		svc:               s,
		conn:              conn,
		opts:              opts,
		storeIDs:          conn.StoreIDs(),
		categories:        make(map[int]*catalog.Category),
		specAttrs:         make(map[int]*catalog.SpecificationAttribute),
		prodAttrs:         make(map[int]*catalog.ProductAttribute),
		deliveryTimes:     make(map[int]*catalog.DeliveryTime),
		quantityUnits:     make(map[int]*catalog.QuantityUnit),
		allowedCategories: make(map[int]bool),
	}

	var err error
	if ex.languages, err = s.repos.Localization.Languages(ctx); err != nil {
		return nil, err
	}

	categories, _, err := s.repos.Categories.List(ctx, 0, 0)
	if err != nil {
		return nil, err
	}
	ex.orderedCategories = categories
	for _, c := range categories {
		ex.categories[c.ID] = c
	}

	if len(ex.storeIDs) > 0 {
		mappings, err := s.repos.Stores.MappingsByName(ctx, "Category")
		if err != nil {
			return nil, err
		}
		ex.categoryStores = make(map[int][]int)
		for _, m := range mappings {
			ex.categoryStores[m.EntityID] = append(ex.categoryStores[m.EntityID], m.StoreID)
		}
	}

	specAttrs, err := s.repos.Attributes.SpecificationAttributes(ctx)
	if err != nil {
		return nil, err
	}
	for _, a := range specAttrs {
		ex.specAttrs[a.ID] = a
	}

	prodAttrs, err := s.repos.Attributes.ProductAttributes(ctx)
	if err != nil {
		return nil, err
	}
	for _, a := range prodAttrs {
		ex.prodAttrs[a.ID] = a
	}

	deliveryTimes, err := s.repos.Lookups.DeliveryTimes(ctx)
	if err != nil {
		return nil, err
	}
	for _, dt := range deliveryTimes {
		ex.deliveryTimes[dt.ID] = dt
	}

	quantityUnits, err := s.repos.Lookups.QuantityUnits(ctx)
	if err != nil {
		return nil, err
	}
	for _, qu := range quantityUnits {
		ex.quantityUnits[qu.ID] = qu
	}

	return ex, nil
}

// writeProducts streams the Products section. Every product counts exactly
// once: written rows as success, everything else as failure.
func (ex *exporter) writeProducts(ctx context.Context, dw *xmlstream.DocumentWriter) error {
	if err := dw.BeginSection("Products", ex.svc.versionString()); err != nil {
		return err
	}

	batchSize := ex.svc.cfg.Import.BatchSize
	if batchSize <= 0 {
		batchSize = xmlstream.DefaultBatchSize
	}

	var stats xmlstream.SectionStats
	filter := catalog.ProductFilter{
		ManufacturerIDs: ex.conn.ManufacturerIDs(),
		StoreIDs:        ex.storeIDs,
		CategoryIDs:     ex.opts.CategoryIDs,
		UpdatedOnFrom:   ex.opts.UpdatedOnFrom,
		IncludeHidden:   ex.svc.cfg.Connector.IncludeHiddenProducts,
		PageSize:        batchSize,
	}

	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		filter.Page = page
		products, _, err := ex.svc.repos.Products.List(ctx, filter)
		if err != nil {
			return err
		}
		if len(products) == 0 {
			break
		}

		skuOverrides, err := ex.skuOverrides(ctx, products)
		if err != nil {
			return err
		}

		for _, p := range products {
			stats.TotalRecords++
			row, err := ex.buildProductRow(ctx, p, skuOverrides[p.ID])
			if err == nil {
				err = dw.WriteEntity("Product", row)
			}
			if err != nil {
				stats.Failure++
				ex.svc.logger.Warn("product export failed",
					zap.Int("product_id", p.ID), zap.Error(err))
				continue
			}
			stats.Success++
		}

		if len(products) < filter.PageSize {
			break
		}
	}

	return dw.EndSection(stats)
}

// skuOverrides resolves the peer specific SKU substitutions for one page.
func (ex *exporter) skuOverrides(ctx context.Context, products []*catalog.Product) (map[int]string, error) {
	if !ex.svc.cfg.Connector.EnableSkuMapping {
		return nil, nil
	}
	ids := make([]int, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}
	mappings, err := ex.svc.repos.SkuMappings.FindByProductIDs(ctx, ex.conn.Domain(), ids)
	if err != nil {
		return nil, err
	}
	overrides := make(map[int]string, len(mappings))
	for _, m := range mappings {
		overrides[m.ProductID] = m.Sku
	}
	return overrides, nil
}

func (ex *exporter) buildProductRow(ctx context.Context, p *catalog.Product, skuOverride string) (*exchange.ProductRow, error) {
	sku := p.Sku
	if skuOverride != "" {
		sku = skuOverride
	}

	row := &exchange.ProductRow{
		ID:                     p.ID,
		Name:                   p.Name,
		ShortDescription:       p.ShortDescription,
		FullDescription:        p.FullDescription,
		Sku:                    sku,
		Gtin:                   p.Gtin,
		ManufacturerPartNumber: p.ManufacturerPartNumber,
		ProductTypeID:          p.ProductTypeID,
		ParentGroupedProductID: p.ParentGroupedProductID,
		Price:                  p.Price,
		OldPrice:               p.OldPrice,
		ProductCost:            p.ProductCost,
		SpecialPrice:           p.SpecialPrice,
		SpecialPriceStartUtc:   p.SpecialPriceStartUtc,
		SpecialPriceEndUtc:     p.SpecialPriceEndUtc,
		DisableBuyButton:       p.DisableBuyButton,
		DisableWishlistButton:  p.DisableWishlistButton,
		StockQuantity:          p.StockQuantity,
		MinStockQuantity:       p.MinStockQuantity,
		Weight:                 p.Weight,
		Length:                 p.Length,
		Width:                  p.Width,
		Height:                 p.Height,
		RequireOtherProducts:   p.RequireOtherProducts,
		RequiredProductIds:     p.RequiredProductIds,

		AutomaticallyAddRequiredProducts: p.AutomaticallyAddRequiredProducts,
		BundleTitleText:                  p.BundleTitleText,
		BundlePerItemPricing:             p.BundlePerItemPricing,
	}

	if p.DeliveryTimeID != nil {
		if dt, ok := ex.deliveryTimes[*p.DeliveryTimeID]; ok {
			row.DeliveryTime = &exchange.DeliveryTimeRow{
				Name:          dt.Name,
				DisplayLocale: dt.DisplayLocale,
				ColorHexValue: dt.ColorHexValue,
				DisplayOrder:  dt.DisplayOrder,
			}
		}
	}
	if p.QuantityUnitID != nil {
		if qu, ok := ex.quantityUnits[*p.QuantityUnitID]; ok {
			row.QuantityUnit = &exchange.QuantityUnitRow{
				Name:         qu.Name,
				Description:  qu.Description,
				DisplayOrder: qu.DisplayOrder,
			}
		}
	}

	var err error
	if row.SeName, err = ex.svc.repos.Localization.ActiveSlug(ctx, "Product", p.ID, 0); err != nil {
		return nil, err
	}
	if row.Localized, err = ex.localizedRows(ctx, "Product", p.ID); err != nil {
		return nil, err
	}

	if err := ex.addCategories(ctx, p.ID, row); err != nil {
		return nil, err
	}
	if err := ex.addManufacturers(ctx, p.ID, row); err != nil {
		return nil, err
	}
	if err := ex.addTags(ctx, p.ID, row); err != nil {
		return nil, err
	}
	if err := ex.addTierPrices(ctx, p.ID, row); err != nil {
		return nil, err
	}
	if err := ex.addSpecAttributes(ctx, p.ID, row); err != nil {
		return nil, err
	}
	if err := ex.addAttributes(ctx, p.ID, row); err != nil {
		return nil, err
	}
	if err := ex.addCombinations(ctx, p.ID, row); err != nil {
		return nil, err
	}
	if err := ex.addPictures(ctx, p.ID, row); err != nil {
		return nil, err
	}
	if p.ProductTypeID == catalog.ProductTypeBundle {
		if err := ex.addBundleItems(ctx, p.ID, row); err != nil {
			return nil, err
		}
	}

	return row, nil
}

func (ex *exporter) addCategories(ctx context.Context, productID int, row *exchange.ProductRow) error {
	mappings, err := ex.svc.repos.Products.Categories(ctx, productID)
	if err != nil {
		return err
	}
	for _, m := range mappings {
		if !ex.categoryAllowed(m.CategoryID) {
			continue
		}
		ex.includeWithAncestors(m.CategoryID)
		row.ProductCategories = append(row.ProductCategories, exchange.ProductCategoryRow{
			DisplayOrder: m.DisplayOrder,
			Category:     exchange.CategoryRef{ID: m.CategoryID, Name: ex.categories[m.CategoryID].Name},
		})
	}
	return nil
}

// categoryAllowed walks the parent chain. A category is excluded when it or
// any ancestor is deleted, or is store-limited to stores the connection may
// not see.
func (ex *exporter) categoryAllowed(id int) bool {
	seen := 0
	for c := ex.categories[id]; c != nil; c = ex.categories[c.ParentCategoryID] {
		if c.Deleted {
			return false
		}
		if len(ex.storeIDs) > 0 && c.LimitedToStores && !intersects(ex.categoryStores[c.ID], ex.storeIDs) {
			return false
		}
		if seen++; seen > len(ex.categories) {
			// Cycle in the tree; treat as unreachable.
			return false
		}
	}
	return ex.categories[id] != nil
}

// includeWithAncestors marks a category and its whole parent chain for the
// category section.
func (ex *exporter) includeWithAncestors(id int) {
	for c := ex.categories[id]; c != nil && !ex.allowedCategories[c.ID]; c = ex.categories[c.ParentCategoryID] {
		ex.allowedCategories[c.ID] = true
	}
}

func (ex *exporter) addManufacturers(ctx context.Context, productID int, row *exchange.ProductRow) error {
	mappings, err := ex.svc.repos.Products.Manufacturers(ctx, productID)
	if err != nil {
		return err
	}
	if len(mappings) == 0 {
		return nil
	}
	ids := make([]int, len(mappings))
	for i, m := range mappings {
		ids[i] = m.ManufacturerID
	}
	manufacturers, err := ex.svc.repos.Manufacturers.FindByIDs(ctx, ids)
	if err != nil {
		return err
	}
	byID := make(map[int]*catalog.Manufacturer, len(manufacturers))
	for _, m := range manufacturers {
		byID[m.ID] = m
	}
	for _, mapping := range mappings {
		m, ok := byID[mapping.ManufacturerID]
		if !ok {
			continue
		}
		row.ProductManufacturers = append(row.ProductManufacturers, exchange.ProductManufacturerRow{
			DisplayOrder: mapping.DisplayOrder,
			Manufacturer: exchange.ManufacturerRow{Name: m.Name, Description: m.Description},
		})
	}
	return nil
}

func (ex *exporter) addTags(ctx context.Context, productID int, row *exchange.ProductRow) error {
	ids, err := ex.svc.repos.Products.TagIDs(ctx, productID)
	if err != nil {
		return err
	}
	tags, err := ex.svc.repos.Tags.FindByIDs(ctx, ids)
	if err != nil {
		return err
	}
	for _, tag := range tags {
		row.ProductTags = append(row.ProductTags, exchange.ProductTagRow{Name: tag.Name})
	}
	return nil
}

func (ex *exporter) addTierPrices(ctx context.Context, productID int, row *exchange.ProductRow) error {
	prices, err := ex.svc.repos.Products.TierPrices(ctx, productID)
	if err != nil {
		return err
	}
	for _, tp := range prices {
		row.TierPrices = append(row.TierPrices, exchange.TierPriceRow{
			Quantity: tp.Quantity,
			Price:    tp.Price,
		})
	}
	return nil
}

func (ex *exporter) addSpecAttributes(ctx context.Context, productID int, row *exchange.ProductRow) error {
	mappings, err := ex.svc.repos.Attributes.ProductSpecAttributes(ctx, productID)
	if err != nil {
		return err
	}
	if len(mappings) == 0 {
		return nil
	}
	ids := make([]int, len(mappings))
	for i, m := range mappings {
		ids[i] = m.SpecificationAttributeOptionID
	}
	options, err := ex.svc.repos.Attributes.OptionsByIDs(ctx, ids)
	if err != nil {
		return err
	}
	byID := make(map[int]*catalog.SpecificationAttributeOption, len(options))
	for _, o := range options {
		byID[o.ID] = o
	}
	for _, mapping := range mappings {
		option, ok := byID[mapping.SpecificationAttributeOptionID]
		if !ok {
			continue
		}
		attr, ok := ex.specAttrs[option.SpecificationAttributeID]
		if !ok {
			continue
		}
		row.ProductSpecificationAttributes = append(row.ProductSpecificationAttributes, exchange.ProductSpecificationAttributeRow{
			AllowFiltering:    mapping.AllowFiltering,
			ShowOnProductPage: mapping.ShowOnProductPage,
			DisplayOrder:      mapping.DisplayOrder,
			SpecificationAttributeOption: exchange.SpecificationAttributeOptionRow{
				ID:           option.ID,
				Name:         option.Name,
				Alias:        option.Alias,
				DisplayOrder: option.DisplayOrder,
				SpecificationAttribute: exchange.SpecificationAttributeRef{
					ID:           attr.ID,
					Name:         attr.Name,
					Alias:        attr.Alias,
					DisplayOrder: attr.DisplayOrder,
				},
			},
		})
	}
	return nil
}

func (ex *exporter) addAttributes(ctx context.Context, productID int, row *exchange.ProductRow) error {
	variants, err := ex.svc.repos.Attributes.VariantAttributes(ctx, productID)
	if err != nil {
		return err
	}
	for _, va := range variants {
		attr, ok := ex.prodAttrs[va.ProductAttributeID]
		if !ok {
			continue
		}
		values, err := ex.svc.repos.Attributes.VariantValues(ctx, va.ID)
		if err != nil {
			return err
		}
		attrRow := exchange.ProductAttributeRow{
			ID:                     va.ID,
			TextPrompt:             va.TextPrompt,
			IsRequired:             va.IsRequired,
			AttributeControlTypeID: va.AttributeControlTypeID,
			DisplayOrder:           va.DisplayOrder,
			Attribute: exchange.AttributeRef{
				ID:          attr.ID,
				Name:        attr.Name,
				Alias:       attr.Alias,
				Description: attr.Description,
			},
		}
		for _, v := range values {
			attrRow.AttributeValues = append(attrRow.AttributeValues, exchange.AttributeValueRow{
				ID:               v.ID,
				Name:             v.Name,
				Alias:            v.Alias,
				ColorSquaresRgb:  v.ColorSquaresRgb,
				PriceAdjustment:  v.PriceAdjustment,
				WeightAdjustment: v.WeightAdjustment,
				IsPreSelected:    v.IsPreSelected,
				DisplayOrder:     v.DisplayOrder,
				ValueTypeID:      v.ValueTypeID,
				LinkedProductID:  v.LinkedProductID,
				Quantity:         v.Quantity,
			})
		}
		row.ProductAttributes = append(row.ProductAttributes, attrRow)
	}
	return nil
}

func (ex *exporter) addCombinations(ctx context.Context, productID int, row *exchange.ProductRow) error {
	combinations, err := ex.svc.repos.Products.Combinations(ctx, productID)
	if err != nil {
		return err
	}
	for _, c := range combinations {
		comboRow := exchange.ProductAttributeCombinationRow{
			Sku:                    c.Sku,
			Gtin:                   c.Gtin,
			ManufacturerPartNumber: c.ManufacturerPartNumber,
			Price:                  c.Price,
			StockQuantity:          c.StockQuantity,
			AllowOutOfStockOrders:  c.AllowOutOfStockOrders,
			IsActive:               c.IsActive,
			AttributesXml:          c.AttributesXml,
		}
		pictureIDs := splitIDList(c.AssignedPictureIds)
		pictures, err := ex.svc.repos.Media.FindByIDs(ctx, pictureIDs)
		if err != nil {
			return err
		}
		for _, pic := range pictures {
			comboRow.Pictures = append(comboRow.Pictures, ex.pictureRow(pic))
		}
		row.ProductAttributeCombinations = append(row.ProductAttributeCombinations, comboRow)
	}
	return nil
}

func (ex *exporter) addPictures(ctx context.Context, productID int, row *exchange.ProductRow) error {
	mappings, err := ex.svc.repos.Products.Pictures(ctx, productID)
	if err != nil {
		return err
	}
	if len(mappings) == 0 {
		return nil
	}
	ids := make([]int, len(mappings))
	for i, m := range mappings {
		ids[i] = m.PictureID
	}
	pictures, err := ex.svc.repos.Media.FindByIDs(ctx, ids)
	if err != nil {
		return err
	}
	byID := make(map[int]*catalog.Picture, len(pictures))
	for _, p := range pictures {
		byID[p.ID] = p
	}
	for _, mapping := range mappings {
		pic, ok := byID[mapping.PictureID]
		if !ok {
			continue
		}
		row.ProductPictures = append(row.ProductPictures, exchange.ProductPictureRow{
			DisplayOrder: mapping.DisplayOrder,
			Picture:      ex.pictureRow(pic),
		})
	}
	return nil
}

func (ex *exporter) addBundleItems(ctx context.Context, productID int, row *exchange.ProductRow) error {
	items, err := ex.svc.repos.Products.BundleItems(ctx, productID)
	if err != nil {
		return err
	}
	for _, item := range items {
		row.ProductBundleItems = append(row.ProductBundleItems, exchange.ProductBundleItemRow{
			ProductID:          item.ProductID,
			Quantity:           item.Quantity,
			Discount:           item.Discount,
			DiscountPercentage: item.DiscountPercentage,
			Name:               item.Name,
			ShortDescription:   item.ShortDescription,
			HideThumbnail:      item.HideThumbnail,
			Visible:            item.Visible,
			Published:          item.Published,
			DisplayOrder:       item.DisplayOrder,
		})
	}
	return nil
}

func (ex *exporter) pictureRow(p *catalog.Picture) exchange.PictureRow {
	return exchange.PictureRow{
		ID:               p.ID,
		FullSizeImageUrl: ex.svc.mediaURL(p),
		MimeType:         p.MimeType,
		SeoFilename:      p.SeoFilename,
	}
}

// localizedRows builds the per-culture translation rows of one entity from
// its stored localized properties and per-language slugs.
func (ex *exporter) localizedRows(ctx context.Context, group string, entityID int) ([]exchange.LocalizedRow, error) {
	if len(ex.languages) == 0 {
		return nil, nil
	}
	props, err := ex.svc.repos.Localization.LocalizedProperties(ctx, group, entityID)
	if err != nil {
		return nil, err
	}
	byLang := make(map[int]map[string]string)
	for _, p := range props {
		values, ok := byLang[p.LanguageID]
		if !ok {
			values = make(map[string]string)
			byLang[p.LanguageID] = values
		}
		values[p.LocaleKey] = p.LocaleValue
	}

	var rows []exchange.LocalizedRow
	for _, lang := range ex.languages {
		values := byLang[lang.ID]
		seName, err := ex.svc.repos.Localization.ActiveSlug(ctx, group, entityID, lang.ID)
		if err != nil {
			return nil, err
		}
		if len(values) == 0 && seName == "" {
			continue
		}
		rows = append(rows, exchange.LocalizedRow{
			Culture:          lang.LanguageCulture,
			Name:             values["Name"],
			ShortDescription: values["ShortDescription"],
			FullDescription:  values["FullDescription"],
			Description:      values["Description"],
			BundleTitleText:  values["BundleTitleText"],
			Alias:            values["Alias"],
			SeName:           seName,
		})
	}
	return rows, nil
}

// writeCategories streams the Categories section: every category referenced
// by an exported product plus its ancestors, in tree order.
func (ex *exporter) writeCategories(ctx context.Context, dw *xmlstream.DocumentWriter) error {
	if err := dw.BeginSection("Categories", ex.svc.versionString()); err != nil {
		return err
	}

	var stats xmlstream.SectionStats
	for _, c := range ex.orderedCategories {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !ex.allowedCategories[c.ID] {
			continue
		}
		stats.TotalRecords++
		row, err := ex.buildCategoryRow(ctx, c)
		if err == nil {
			err = dw.WriteEntity("Category", row)
		}
		if err != nil {
			stats.Failure++
			ex.svc.logger.Warn("category export failed",
				zap.Int("category_id", c.ID), zap.Error(err))
			continue
		}
		stats.Success++
	}

	return dw.EndSection(stats)
}

func (ex *exporter) buildCategoryRow(ctx context.Context, c *catalog.Category) (*exchange.CategoryRow, error) {
	row := &exchange.CategoryRow{
		ID:               c.ID,
		ParentCategoryID: c.ParentCategoryID,
		Name:             c.Name,
		Alias:            c.Alias,
		Description:      c.Description,
		DisplayOrder:     c.DisplayOrder,
	}

	var err error
	if row.SeName, err = ex.svc.repos.Localization.ActiveSlug(ctx, "Category", c.ID, 0); err != nil {
		return nil, err
	}
	if row.Localized, err = ex.localizedRows(ctx, "Category", c.ID); err != nil {
		return nil, err
	}

	if c.PictureID != nil {
		pictures, err := ex.svc.repos.Media.FindByIDs(ctx, []int{*c.PictureID})
		if err != nil {
			return nil, err
		}
		if len(pictures) > 0 {
			pic := ex.pictureRow(pictures[0])
			row.Picture = &pic
		}
	}

	return row, nil
}

func intersects(a, b []int) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

func splitIDList(s string) []int {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	ids := make([]int, 0, len(parts))
	for _, p := range parts {
		if id, err := strconv.Atoi(strings.TrimSpace(p)); err == nil && id > 0 {
			ids = append(ids, id)
		}
	}
	return ids
}
