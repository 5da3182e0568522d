package exchange

import (
	"encoding/xml"
	"time"
)

// About is the shop metadata document a provider serves to connected peers.
// Consumers show it in the admin UI and use UpdatedProductsCount to decide
// whether a fresh pull is worthwhile.
type About struct {
	XMLName xml.Name `xml:"Content"`

	AppVersion       string    `xml:"AppVersion"`
	UtcTime          time.Time `xml:"UtcTime"`
	ConnectorVersion string    `xml:"ConnectorVersion"`

	StoreName    string `xml:"StoreName"`
	StoreUrl     string `xml:"StoreUrl"`
	StoreCount   int    `xml:"StoreCount"`
	CompanyName  string `xml:"CompanyName,omitempty"`
	StoreLogoUrl string `xml:"StoreLogoUrl,omitempty"`

	// Products changed since the peer's last product call.
	UpdatedProductsCount int64 `xml:"UpdatedProductsCount"`

	Manufacturers []NamedEntity `xml:"Manufacturers>Manufacturer"`
	Categories    []NamedEntity `xml:"Categories>Category"`
}

// NamedEntity is an id/name pair listed in the About document so the peer can
// configure id based filters.
type NamedEntity struct {
	ID   int    `xml:"Id"`
	Name string `xml:"Name"`
}
