package importer

import "encoding/xml"

// selectedAttributes is the document form of a combination's selected values.
// The ids are the exporting shop's variant attribute mapping ids and value
// ids.
type selectedAttributes struct {
	XMLName    xml.Name            `xml:"Attributes"`
	Attributes []selectedAttribute `xml:"ProductVariantAttribute"`
}

type selectedAttribute struct {
	ID     int   `xml:"ID,attr"`
	Values []int `xml:"ProductVariantAttributeValue>Value"`
}

// rewriteAttributesXml translates the foreign mapping and value ids of a
// combination's attribute set to local ids. Returns false when any id has no
// local counterpart; such combinations cannot be represented and are dropped.
func rewriteAttributesXml(raw string, c *cargo) (string, bool) {
	if raw == "" {
		return "", true
	}

	var selected selectedAttributes
	if err := xml.Unmarshal([]byte(raw), &selected); err != nil {
		return "", false
	}

	for i := range selected.Attributes {
		mappingID, ok := c.attributeMappingIDs[selected.Attributes[i].ID]
		if !ok {
			return "", false
		}
		selected.Attributes[i].ID = mappingID

		for j, valueID := range selected.Attributes[i].Values {
			localValueID, ok := c.attributeValueIDs[valueID]
			if !ok {
				return "", false
			}
			selected.Attributes[i].Values[j] = localValueID
		}
	}

	out, err := xml.Marshal(selected)
	if err != nil {
		return "", false
	}
	return string(out), true
}
