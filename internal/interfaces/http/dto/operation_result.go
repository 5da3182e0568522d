package dto

import "encoding/xml"

// OperationResult is the XML body returned to a peer store when an exchange
// request fails, for example on a rejected signature.
type OperationResult struct {
	XMLName      xml.Name `xml:"OperationResultModel"`
	HasError     bool     `xml:"HasError"`
	ShortMessage string   `xml:"ShortMessage"`
	Description  string   `xml:"Description,omitempty"`
}

// NewOperationError builds a failed OperationResult with the given message.
func NewOperationError(message string) OperationResult {
	return OperationResult{
		HasError:     true,
		ShortMessage: message,
	}
}
