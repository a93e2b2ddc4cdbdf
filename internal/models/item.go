package models

// Item is the part of a seller's catalog entry the escrow engine reads and reserves from.
type Item struct {
	ID         string `json:"id" db:"id"`                   // Catalog item identifier
	SellerID   string `json:"seller_id" db:"seller_id"`     // Owner of the item
	SellerName string `json:"seller_name" db:"seller_name"` // Display name of the owner
	Name       string `json:"name" db:"name"`               // Item title
	ImageRef   string `json:"image_ref" db:"image_ref"`     // Primary image reference
	Quantity   int    `json:"quantity" db:"quantity"`       // Units available for new requests
}
