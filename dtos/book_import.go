package dtos

// BookImportRequest is the payload for the batch book import endpoint.
// Books are matched by ISBN: existing rows are updated, new ones created.
type BookImportRequest struct {
	Books []BookImportItem `json:"books" binding:"required,min=1,max=2000"`
}

// BookImportItem is a single book in a batch import.
type BookImportItem struct {
	ISBN          string   `json:"isbn" binding:"required"`
	Name          string   `json:"name" binding:"required"`
	Author        string   `json:"author" binding:"required"`
	Publisher     string   `json:"publisher"`
	Language      string   `json:"language"`
	Pages         int      `json:"pages"`
	Price         float64  `json:"price" binding:"required,min=0.01"`
	DiscountPrice *float64 `json:"discount_price"`
	CategoryName  string   `json:"category_name" binding:"required"`
	Stock         int      `json:"stock" binding:"min=0"`
	Description   string   `json:"description"`
	Featured      bool     `json:"featured"`
	ImageURLs     []string `json:"image_urls"`
}
