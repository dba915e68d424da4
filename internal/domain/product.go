package domain

// ProductRef is the cart's immutable snapshot of a catalog product. Prices
// are in minor units (cents); the catalog adapter converts decimal euros at
// the boundary.
type ProductRef struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	UnitPrice  int64  `json:"unit_price"`
	ImagePath  string `json:"image_path,omitempty"`
	CategoryID int64  `json:"category_id,omitempty"`
}
