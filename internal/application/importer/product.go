package importer

import (
	"context"
	"encoding/xml"
	"os"

	"github.com/shopsync/backend/internal/application/exchange"
	"github.com/shopsync/backend/internal/domain/catalog"
	"github.com/shopsync/backend/internal/domain/shared"
	"github.com/shopsync/backend/internal/infrastructure/state"
	"github.com/shopsync/backend/internal/infrastructure/xmlstream"
	"go.uber.org/zap"
)

// outcome classifies one product row. Every processed row lands in exactly
// one bucket.
type outcome int

const (
	outcomeAdded outcome = iota
	outcomeUpdated
	outcomeSkipped
	outcomeFailed
)

// importProducts is pass 1: stream the product section batch-wise, prescan
// each batch against the local catalog and reconcile row by row. The whole
// catalog is never held in memory.
func (e *Engine) importProducts(ctx context.Context, path string, settings Settings, c *cargo, info *state.ProcessingInfo) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	selected := make(map[int]bool, len(settings.SelectedProductIDs))
	for _, id := range settings.SelectedProductIDs {
		selected[id] = true
	}

	return xmlstream.ReadFragments(file, "Products", "Product", e.batchSize(), func(elements [][]byte) (bool, error) {
		if e.cancelled(ctx) {
			return false, nil
		}

		rows := make([]exchange.ProductRow, 0, len(elements))
		for _, raw := range elements {
			var row exchange.ProductRow
			if err := xml.Unmarshal(raw, &row); err != nil {
				info.TotalProcessed++
				info.FailedRecords++
				e.importLog.Warn("unreadable product row", zap.Error(err))
				continue
			}
			if !settings.ImportAll && !selected[row.ID] {
				continue
			}
			rows = append(rows, row)
		}

		c.clearFragmentData()
		if err := e.prescan(ctx, rows, c); err != nil {
			return false, err
		}

		for i := range rows {
			if e.cancelled(ctx) {
				return false, nil
			}
			switch e.importProduct(ctx, &rows[i], settings, c) {
			case outcomeAdded:
				info.NewRecords++
			case outcomeUpdated:
				info.ModifiedRecords++
			case outcomeSkipped:
				info.SkippedRecords++
			case outcomeFailed:
				info.FailedRecords++
			}
			info.TotalProcessed++
		}

		if info.TotalProcessed > info.TotalRecords {
			info.TotalRecords = info.TotalProcessed
		}
		if err := e.registry.Update(ctx, state.SlotProductImport, *info); err != nil {
			e.logger.Warn("update import progress", zap.Error(err))
		}
		return true, nil
	})
}

// prescan resolves the batch's SKUs and GTINs against the local catalog in
// two queries instead of one lookup per row.
func (e *Engine) prescan(ctx context.Context, rows []exchange.ProductRow, c *cargo) error {
	var skus, gtins []string
	for i := range rows {
		if rows[i].Sku != "" {
			skus = append(skus, rows[i].Sku)
		}
		if rows[i].Gtin != "" {
			gtins = append(gtins, rows[i].Gtin)
		}
	}

	bySku, err := e.repos.Products.FindBySkus(ctx, skus)
	if err != nil {
		return err
	}
	for _, p := range bySku {
		c.existingBySku[lowered(p.Sku)] = p
	}

	byGtin, err := e.repos.Products.FindByGtins(ctx, gtins)
	if err != nil {
		return err
	}
	for _, p := range byGtin {
		c.existingByGtin[lowered(p.Gtin)] = p
	}
	return nil
}

// importProduct reconciles one row. Resolution order is SKU first, GTIN
// second. Failures inside a row are logged and count the row as failed.
func (e *Engine) importProduct(ctx context.Context, row *exchange.ProductRow, settings Settings, c *cargo) outcome {
	var existing *catalog.Product
	if row.Sku != "" {
		existing = c.existingBySku[lowered(row.Sku)]
	}
	if existing == nil && row.Gtin != "" {
		existing = c.existingByGtin[lowered(row.Gtin)]
	}

	if existing != nil && !settings.UpdateExistingProducts {
		// Still record the translation so pass 2 references resolve.
		c.productIDs[row.ID] = existing.ID
		return outcomeSkipped
	}
	if existing == nil && row.Name == "" {
		e.importLog.Warn("product row without name", zap.Int("foreign_id", row.ID), zap.String("sku", row.Sku))
		return outcomeFailed
	}

	isNew := existing == nil
	result := outcomeUpdated
	if isNew {
		result = outcomeAdded
	}

	p, err := e.applyProductRow(ctx, row, existing, settings, c)
	if err != nil {
		e.importLog.Warn("product import failed",
			zap.Int("foreign_id", row.ID), zap.String("sku", row.Sku), zap.Error(err))
		return outcomeFailed
	}

	c.productIDs[row.ID] = p.ID
	if isNew {
		c.newProductIDs[p.ID] = true
	}

	if err := e.applyProductLinks(ctx, row, p, isNew, settings, c); err != nil {
		e.importLog.Warn("product relations import failed",
			zap.Int("foreign_id", row.ID), zap.Int("product_id", p.ID), zap.Error(err))
		return outcomeFailed
	}

	return result
}

// applyProductRow writes the flat product record.
func (e *Engine) applyProductRow(ctx context.Context, row *exchange.ProductRow, existing *catalog.Product, settings Settings, c *cargo) (*catalog.Product, error) {
	isNew := existing == nil

	var p *catalog.Product
	if isNew {
		p = &catalog.Product{
			BaseEntity: shared.NewBaseEntity(),
			Published:  settings.Publish,
		}
	} else {
		p = existing
	}

	if isNew || !settings.IgnoreEntityNames {
		p.Name = row.Name
		p.ShortDescription = row.ShortDescription
		p.FullDescription = row.FullDescription
		p.BundleTitleText = row.BundleTitleText
	}

	p.Sku = row.Sku
	p.Gtin = row.Gtin
	p.ManufacturerPartNumber = row.ManufacturerPartNumber
	p.ProductTypeID = row.ProductTypeID
	p.Price = row.Price
	p.OldPrice = row.OldPrice
	p.ProductCost = row.ProductCost
	p.SpecialPrice = row.SpecialPrice
	p.SpecialPriceStartUtc = row.SpecialPriceStartUtc
	p.SpecialPriceEndUtc = row.SpecialPriceEndUtc
	p.DisableBuyButton = row.DisableBuyButton
	p.DisableWishlistButton = row.DisableWishlistButton
	p.StockQuantity = row.StockQuantity
	p.MinStockQuantity = row.MinStockQuantity
	p.Weight = row.Weight
	p.Length = row.Length
	p.Width = row.Width
	p.Height = row.Height
	p.RequireOtherProducts = row.RequireOtherProducts
	p.AutomaticallyAddRequiredProducts = row.AutomaticallyAddRequiredProducts
	p.BundlePerItemPricing = row.BundlePerItemPricing
	p.TaxCategoryID = settings.TaxCategoryID
	p.LimitedToStores = settings.LimitedToStores

	// Foreign references; translated in pass 2.
	p.ParentGroupedProductID = 0
	p.RequiredProductIds = ""

	if row.DeliveryTime != nil {
		id, err := e.ensureDeliveryTime(ctx, row.DeliveryTime, c)
		if err != nil {
			return nil, err
		}
		p.DeliveryTimeID = &id
	}
	if row.QuantityUnit != nil {
		id, err := e.ensureQuantityUnit(ctx, row.QuantityUnit, c)
		if err != nil {
			return nil, err
		}
		p.QuantityUnitID = &id
	}

	if isNew {
		if err := e.repos.Products.Create(ctx, p); err != nil {
			return nil, err
		}
	} else {
		p.Touch()
		if err := e.repos.Products.Update(ctx, p); err != nil {
			return nil, err
		}
	}

	if row.ParentGroupedProductID != 0 {
		c.grouped = append(c.grouped, pendingGrouped{localID: p.ID, foreignParentID: row.ParentGroupedProductID})
	}
	if row.RequiredProductIds != "" {
		c.required = append(c.required, pendingRequired{localID: p.ID, foreignCSV: row.RequiredProductIds})
	}

	return p, nil
}

// applyProductLinks writes everything hanging off the product record.
func (e *Engine) applyProductLinks(ctx context.Context, row *exchange.ProductRow, p *catalog.Product, isNew bool, settings Settings, c *cargo) error {
	if settings.LimitedToStores {
		if err := e.repos.Stores.ReplaceMappings(ctx, "Product", p.ID, settings.StoreIDs); err != nil {
			return err
		}
	}

	if _, err := reserveSlug(ctx, e.repos.Localization, "Product", p.ID, 0, row.SeName, p.Name); err != nil {
		return err
	}
	if err := e.applyLocalized(ctx, "Product", p.ID, row.Localized, c); err != nil {
		return err
	}

	if err := e.assignCategories(ctx, row, p, isNew, c); err != nil {
		return err
	}
	if err := e.assignManufacturers(ctx, row, p, isNew, settings, c); err != nil {
		return err
	}
	if err := e.assignTags(ctx, row, p, isNew, c); err != nil {
		return err
	}

	// Tier prices and combinations are insert-only for new products;
	// touching them on existing products risks clobbering local pricing.
	if isNew {
		for _, tp := range row.TierPrices {
			err := e.repos.Products.AddTierPrice(ctx, &catalog.TierPrice{
				ProductID: p.ID,
				Quantity:  tp.Quantity,
				Price:     tp.Price,
			})
			if err != nil {
				return err
			}
		}
	}

	if err := e.assignSpecAttributes(ctx, row, p, isNew, c); err != nil {
		return err
	}
	if err := e.assignVariantAttributes(ctx, row, p, isNew, c); err != nil {
		return err
	}

	if settings.DownloadImages {
		if err := e.assignPictures(ctx, row, p, isNew, c); err != nil {
			return err
		}
	}

	if isNew {
		if err := e.assignCombinations(ctx, row, p, settings, c); err != nil {
			return err
		}
	}

	if p.ProductTypeID == catalog.ProductTypeBundle {
		for _, item := range row.ProductBundleItems {
			c.bundles = append(c.bundles, pendingBundle{bundleLocalID: p.ID, row: item})
		}
	}

	return nil
}

func (e *Engine) assignCategories(ctx context.Context, row *exchange.ProductRow, p *catalog.Product, isNew bool, c *cargo) error {
	if len(row.ProductCategories) == 0 {
		return nil
	}
	assigned := make(map[int]bool)
	if !isNew {
		ids, err := e.repos.Products.CategoryIDs(ctx, p.ID)
		if err != nil {
			return err
		}
		for _, id := range ids {
			assigned[id] = true
		}
	}
	for _, pc := range row.ProductCategories {
		imported, ok := c.categoryIDs[pc.Category.ID]
		if !ok || assigned[imported.DestinationID] {
			continue
		}
		err := e.repos.Products.AddCategory(ctx, &catalog.ProductCategory{
			ProductID:    p.ID,
			CategoryID:   imported.DestinationID,
			DisplayOrder: pc.DisplayOrder,
		})
		if err != nil {
			return err
		}
		assigned[imported.DestinationID] = true
	}
	return nil
}

func (e *Engine) assignManufacturers(ctx context.Context, row *exchange.ProductRow, p *catalog.Product, isNew bool, settings Settings, c *cargo) error {
	if len(row.ProductManufacturers) == 0 {
		return nil
	}
	assigned := make(map[int]bool)
	if !isNew {
		mappings, err := e.repos.Products.Manufacturers(ctx, p.ID)
		if err != nil {
			return err
		}
		for _, m := range mappings {
			assigned[m.ManufacturerID] = true
		}
	}
	for _, pm := range row.ProductManufacturers {
		if pm.Manufacturer.Name == "" {
			continue
		}
		id, err := e.ensureManufacturer(ctx, pm.Manufacturer, settings, c)
		if err != nil {
			return err
		}
		if assigned[id] {
			continue
		}
		err = e.repos.Products.AddManufacturer(ctx, &catalog.ProductManufacturer{
			ProductID:      p.ID,
			ManufacturerID: id,
			DisplayOrder:   pm.DisplayOrder,
		})
		if err != nil {
			return err
		}
		assigned[id] = true
	}
	return nil
}

func (e *Engine) assignTags(ctx context.Context, row *exchange.ProductRow, p *catalog.Product, isNew bool, c *cargo) error {
	if len(row.ProductTags) == 0 {
		return nil
	}
	assigned := make(map[int]bool)
	if !isNew {
		ids, err := e.repos.Products.TagIDs(ctx, p.ID)
		if err != nil {
			return err
		}
		for _, id := range ids {
			assigned[id] = true
		}
	}
	for _, pt := range row.ProductTags {
		if pt.Name == "" {
			continue
		}
		id, err := e.ensureTag(ctx, pt.Name, c)
		if err != nil {
			return err
		}
		if assigned[id] {
			continue
		}
		if err := e.repos.Products.AttachTag(ctx, p.ID, id); err != nil {
			return err
		}
		assigned[id] = true
	}
	return nil
}

func (e *Engine) assignSpecAttributes(ctx context.Context, row *exchange.ProductRow, p *catalog.Product, isNew bool, c *cargo) error {
	if len(row.ProductSpecificationAttributes) == 0 {
		return nil
	}
	assigned := make(map[int]bool)
	if !isNew {
		mappings, err := e.repos.Attributes.ProductSpecAttributes(ctx, p.ID)
		if err != nil {
			return err
		}
		for _, m := range mappings {
			assigned[m.SpecificationAttributeOptionID] = true
		}
	}

	for _, psa := range row.ProductSpecificationAttributes {
		option := psa.SpecificationAttributeOption
		attrKey := nameAliasKey(option.SpecificationAttribute.Name, option.SpecificationAttribute.Alias)

		localAttrID, known := c.specAttributes[attrKey]
		if known && localAttrID == ambiguousID {
			e.reportAmbiguous(c, "specification attribute", attrKey)
			continue
		}
		if !known {
			attr := &catalog.SpecificationAttribute{
				Name:         option.SpecificationAttribute.Name,
				Alias:        option.SpecificationAttribute.Alias,
				DisplayOrder: option.SpecificationAttribute.DisplayOrder,
			}
			if err := e.repos.Attributes.CreateSpecificationAttribute(ctx, attr); err != nil {
				return err
			}
			c.specAttributes[attrKey] = attr.ID
			localAttrID = attr.ID
		}

		oKey := optionKey(localAttrID, option.Name)
		localOptionID, ok := c.specOptions[oKey]
		if !ok {
			opt := &catalog.SpecificationAttributeOption{
				SpecificationAttributeID: localAttrID,
				Name:                     option.Name,
				Alias:                    option.Alias,
				DisplayOrder:             option.DisplayOrder,
			}
			if err := e.repos.Attributes.CreateOption(ctx, opt); err != nil {
				return err
			}
			c.specOptions[oKey] = opt.ID
			localOptionID = opt.ID
		}

		if assigned[localOptionID] {
			continue
		}
		err := e.repos.Attributes.AddProductSpecAttribute(ctx, &catalog.ProductSpecificationAttribute{
			ProductID:                      p.ID,
			SpecificationAttributeOptionID: localOptionID,
			AllowFiltering:                 psa.AllowFiltering,
			ShowOnProductPage:              psa.ShowOnProductPage,
			DisplayOrder:                   psa.DisplayOrder,
		})
		if err != nil {
			return err
		}
		assigned[localOptionID] = true
	}
	return nil
}

func (e *Engine) assignVariantAttributes(ctx context.Context, row *exchange.ProductRow, p *catalog.Product, isNew bool, c *cargo) error {
	if len(row.ProductAttributes) == 0 {
		return nil
	}

	existingByAttr := make(map[int]*catalog.ProductVariantAttribute)
	if !isNew {
		mappings, err := e.repos.Attributes.VariantAttributes(ctx, p.ID)
		if err != nil {
			return err
		}
		for _, m := range mappings {
			existingByAttr[m.ProductAttributeID] = m
		}
	}

	for _, pa := range row.ProductAttributes {
		key := nameAliasKey(pa.Attribute.Name, pa.Attribute.Alias)
		localAttrID, known := c.attributes[key]
		if known && localAttrID == ambiguousID {
			e.reportAmbiguous(c, "product attribute", key)
			continue
		}
		if !known {
			attr := &catalog.ProductAttribute{
				Name:        pa.Attribute.Name,
				Alias:       pa.Attribute.Alias,
				Description: pa.Attribute.Description,
			}
			if err := e.repos.Attributes.CreateProductAttribute(ctx, attr); err != nil {
				return err
			}
			c.attributes[key] = attr.ID
			localAttrID = attr.ID
		}

		mKey := mappingKey(p.ID, localAttrID)
		mappingID, ok := c.variantMappings[mKey]
		mappingExisted := false
		if !ok {
			if m := existingByAttr[localAttrID]; m != nil {
				mappingID = m.ID
				mappingExisted = true
			} else {
				va := &catalog.ProductVariantAttribute{
					ProductID:              p.ID,
					ProductAttributeID:     localAttrID,
					TextPrompt:             pa.TextPrompt,
					IsRequired:             pa.IsRequired,
					AttributeControlTypeID: pa.AttributeControlTypeID,
					DisplayOrder:           pa.DisplayOrder,
				}
				if err := e.repos.Attributes.AddVariantAttribute(ctx, va); err != nil {
					return err
				}
				mappingID = va.ID
			}
			c.variantMappings[mKey] = mappingID
		}
		c.attributeMappingIDs[pa.ID] = mappingID

		existingValues := make(map[string]int)
		if mappingExisted {
			values, err := e.repos.Attributes.VariantValues(ctx, mappingID)
			if err != nil {
				return err
			}
			for _, v := range values {
				existingValues[lowered(v.Name)] = v.ID
			}
		}

		for _, av := range pa.AttributeValues {
			vKey := valueKey(mappingID, av.Name)
			localValueID, ok := c.variantValues[vKey]
			if !ok {
				if id, found := existingValues[lowered(av.Name)]; found {
					localValueID = id
				} else {
					value := &catalog.ProductVariantAttributeValue{
						ProductVariantAttributeID: mappingID,
						Name:                      av.Name,
						Alias:                     av.Alias,
						ColorSquaresRgb:           av.ColorSquaresRgb,
						PriceAdjustment:           av.PriceAdjustment,
						WeightAdjustment:          av.WeightAdjustment,
						IsPreSelected:             av.IsPreSelected,
						DisplayOrder:              av.DisplayOrder,
						ValueTypeID:               av.ValueTypeID,
						Quantity:                  av.Quantity,
					}
					if err := e.repos.Attributes.AddVariantValue(ctx, value); err != nil {
						return err
					}
					if av.ValueTypeID == catalog.AttributeValueTypeProductLinkage && av.LinkedProductID != 0 {
						c.links = append(c.links, pendingLink{value: value, foreignProductID: av.LinkedProductID})
					}
					localValueID = value.ID
				}
				c.variantValues[vKey] = localValueID
			}
			c.attributeValueIDs[av.ID] = localValueID
		}
	}
	return nil
}

func (e *Engine) assignCombinations(ctx context.Context, row *exchange.ProductRow, p *catalog.Product, settings Settings, c *cargo) error {
	for _, combo := range row.ProductAttributeCombinations {
		attrsXml, ok := rewriteAttributesXml(combo.AttributesXml, c)
		if !ok {
			e.importLog.Warn("combination references unknown attributes",
				zap.Int("product_id", p.ID), zap.String("sku", combo.Sku))
			continue
		}

		var pictureIDs []int
		if settings.DownloadImages {
			for _, id := range e.resolvePictures(ctx, combo.Pictures, c) {
				if id != 0 {
					pictureIDs = append(pictureIDs, id)
				}
			}
		}

		err := e.repos.Products.AddCombination(ctx, &catalog.ProductVariantAttributeCombination{
			ProductID:              p.ID,
			Sku:                    combo.Sku,
			Gtin:                   combo.Gtin,
			ManufacturerPartNumber: combo.ManufacturerPartNumber,
			Price:                  combo.Price,
			AttributesXml:          attrsXml,
			StockQuantity:          combo.StockQuantity,
			AllowOutOfStockOrders:  combo.AllowOutOfStockOrders,
			IsActive:               combo.IsActive,
			AssignedPictureIds:     joinIDList(pictureIDs),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) assignPictures(ctx context.Context, row *exchange.ProductRow, p *catalog.Product, isNew bool, c *cargo) error {
	if len(row.ProductPictures) == 0 {
		return nil
	}
	assigned := make(map[int]bool)
	if !isNew {
		mappings, err := e.repos.Products.Pictures(ctx, p.ID)
		if err != nil {
			return err
		}
		for _, m := range mappings {
			assigned[m.PictureID] = true
		}
	}
	pics := make([]exchange.PictureRow, len(row.ProductPictures))
	for i, pp := range row.ProductPictures {
		pics[i] = pp.Picture
	}
	ids := e.resolvePictures(ctx, pics, c)
	for i, pp := range row.ProductPictures {
		if ids[i] == 0 || assigned[ids[i]] {
			continue
		}
		err := e.repos.Products.AddPicture(ctx, &catalog.ProductPicture{
			ProductID:    p.ID,
			PictureID:    ids[i],
			DisplayOrder: pp.DisplayOrder,
		})
		if err != nil {
			return err
		}
		assigned[ids[i]] = true
	}
	return nil
}

func (e *Engine) ensureManufacturer(ctx context.Context, row exchange.ManufacturerRow, settings Settings, c *cargo) (int, error) {
	key := lowered(row.Name)
	if id, ok := c.manufacturers[key]; ok {
		return id, nil
	}
	found, err := e.repos.Manufacturers.FindByNames(ctx, []string{row.Name})
	if err != nil {
		return 0, err
	}
	if len(found) > 0 {
		c.manufacturers[key] = found[0].ID
		return found[0].ID, nil
	}
	m := &catalog.Manufacturer{
		BaseEntity:  shared.NewBaseEntity(),
		Name:        row.Name,
		Description: row.Description,
		Published:   settings.Publish,
	}
	if err := e.repos.Manufacturers.Create(ctx, m); err != nil {
		return 0, err
	}
	c.manufacturers[key] = m.ID
	return m.ID, nil
}

func (e *Engine) ensureTag(ctx context.Context, name string, c *cargo) (int, error) {
	key := lowered(name)
	if id, ok := c.tags[key]; ok {
		return id, nil
	}
	found, err := e.repos.Tags.FindByNames(ctx, []string{name})
	if err != nil {
		return 0, err
	}
	if len(found) > 0 {
		c.tags[key] = found[0].ID
		return found[0].ID, nil
	}
	t := &catalog.ProductTag{Name: name}
	if err := e.repos.Tags.Create(ctx, t); err != nil {
		return 0, err
	}
	c.tags[key] = t.ID
	return t.ID, nil
}

func (e *Engine) ensureDeliveryTime(ctx context.Context, row *exchange.DeliveryTimeRow, c *cargo) (int, error) {
	key := lowered(row.Name)
	if id, ok := c.deliveryTimes[key]; ok {
		return id, nil
	}
	dt := &catalog.DeliveryTime{
		Name:          row.Name,
		DisplayLocale: row.DisplayLocale,
		ColorHexValue: row.ColorHexValue,
		DisplayOrder:  row.DisplayOrder,
	}
	if err := e.repos.Lookups.CreateDeliveryTime(ctx, dt); err != nil {
		return 0, err
	}
	c.deliveryTimes[key] = dt.ID
	return dt.ID, nil
}

func (e *Engine) ensureQuantityUnit(ctx context.Context, row *exchange.QuantityUnitRow, c *cargo) (int, error) {
	key := lowered(row.Name)
	if id, ok := c.quantityUnits[key]; ok {
		return id, nil
	}
	qu := &catalog.QuantityUnit{
		Name:         row.Name,
		Description:  row.Description,
		DisplayOrder: row.DisplayOrder,
	}
	if err := e.repos.Lookups.CreateQuantityUnit(ctx, qu); err != nil {
		return 0, err
	}
	c.quantityUnits[key] = qu.ID
	return qu.ID, nil
}

// reportAmbiguous logs an ambiguous definition once per run.
func (e *Engine) reportAmbiguous(c *cargo, kind, key string) {
	if c.reportedAmbiguous[key] {
		return
	}
	c.reportedAmbiguous[key] = true
	e.importLog.Warn("ambiguous definition ignored", zap.String("kind", kind), zap.String("key", key))
}
