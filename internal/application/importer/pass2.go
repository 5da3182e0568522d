package importer

import (
	"context"
	"strconv"
	"strings"

	"github.com/shopsync/backend/internal/domain/catalog"
	"go.uber.org/zap"
)

// runPassTwo resolves the references between rows queued during pass 1: now
// that every row has a local id, linked attribute values, bundle parts,
// grouped parents and required-product lists can be translated.
func (e *Engine) runPassTwo(ctx context.Context, settings Settings, c *cargo) error {
	if err := e.resolveLinks(ctx, c); err != nil {
		return err
	}
	if err := e.resolveBundles(ctx, c); err != nil {
		return err
	}
	if err := e.resolveGrouped(ctx, c); err != nil {
		return err
	}
	return e.resolveRequired(ctx, c)
}

// resolveLinks sets the local product id on linkage attribute values. A
// linked product missing from the document leaves the value unlinked.
func (e *Engine) resolveLinks(ctx context.Context, c *cargo) error {
	for _, link := range c.links {
		localID := c.productIDs[link.foreignProductID]
		if localID == 0 {
			e.importLog.Warn("linked product not in document",
				zap.Int("foreign_product_id", link.foreignProductID),
				zap.Int("value_id", link.value.ID))
		}
		link.value.LinkedProductID = localID
		if err := e.repos.Attributes.UpdateVariantValue(ctx, link.value); err != nil {
			return err
		}
	}
	return nil
}

// resolveBundles writes the bundle part rows. Parts whose contained product
// never made it into the local catalog are dropped.
func (e *Engine) resolveBundles(ctx context.Context, c *cargo) error {
	existingByBundle := make(map[int][]*catalog.ProductBundleItem)

	for _, pending := range c.bundles {
		localChild := c.productIDs[pending.row.ProductID]
		if localChild == 0 {
			e.importLog.Warn("bundle part product not in document",
				zap.Int("bundle_product_id", pending.bundleLocalID),
				zap.Int("foreign_product_id", pending.row.ProductID))
			continue
		}

		items, loaded := existingByBundle[pending.bundleLocalID]
		if !loaded {
			var err error
			items, err = e.repos.Products.BundleItems(ctx, pending.bundleLocalID)
			if err != nil {
				return err
			}
			existingByBundle[pending.bundleLocalID] = items
		}

		var existing *catalog.ProductBundleItem
		for _, item := range items {
			if item.ProductID == localChild {
				existing = item
				break
			}
		}

		if existing != nil {
			existing.Quantity = pending.row.Quantity
			existing.Discount = pending.row.Discount
			existing.DiscountPercentage = pending.row.DiscountPercentage
			existing.Name = pending.row.Name
			existing.ShortDescription = pending.row.ShortDescription
			existing.HideThumbnail = pending.row.HideThumbnail
			existing.Visible = pending.row.Visible
			existing.Published = pending.row.Published
			existing.DisplayOrder = pending.row.DisplayOrder
			if err := e.repos.Products.UpdateBundleItem(ctx, existing); err != nil {
				return err
			}
			continue
		}

		item := &catalog.ProductBundleItem{
			ProductID:          localChild,
			BundleProductID:    pending.bundleLocalID,
			Quantity:           pending.row.Quantity,
			Discount:           pending.row.Discount,
			DiscountPercentage: pending.row.DiscountPercentage,
			Name:               pending.row.Name,
			ShortDescription:   pending.row.ShortDescription,
			HideThumbnail:      pending.row.HideThumbnail,
			Visible:            pending.row.Visible,
			Published:          pending.row.Published,
			DisplayOrder:       pending.row.DisplayOrder,
		}
		if err := e.repos.Products.AddBundleItem(ctx, item); err != nil {
			return err
		}
		existingByBundle[pending.bundleLocalID] = append(items, item)
	}
	return nil
}

// resolveGrouped points associated products at their local grouped parent.
func (e *Engine) resolveGrouped(ctx context.Context, c *cargo) error {
	for _, pending := range c.grouped {
		localParent := c.productIDs[pending.foreignParentID]
		if localParent == 0 {
			e.importLog.Warn("grouped parent not in document",
				zap.Int("product_id", pending.localID),
				zap.Int("foreign_parent_id", pending.foreignParentID))
		}
		p, err := e.repos.Products.FindByID(ctx, pending.localID)
		if err != nil {
			return err
		}
		p.ParentGroupedProductID = localParent
		if err := e.repos.Products.Update(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// resolveRequired translates required-product id lists, dropping ids the
// document did not carry.
func (e *Engine) resolveRequired(ctx context.Context, c *cargo) error {
	for _, pending := range c.required {
		var localIDs []int
		for _, foreignID := range parseIDList(pending.foreignCSV) {
			if localID := c.productIDs[foreignID]; localID != 0 {
				localIDs = append(localIDs, localID)
			}
		}
		p, err := e.repos.Products.FindByID(ctx, pending.localID)
		if err != nil {
			return err
		}
		p.RequiredProductIds = joinIDList(localIDs)
		if err := e.repos.Products.Update(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func parseIDList(s string) []int {
	var ids []int
	for _, part := range strings.Split(s, ",") {
		id, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || id == 0 {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func joinIDList(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}
