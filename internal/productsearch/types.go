package productsearch

// Ответ поиска Walmart affiliate API
type searchResponse struct {
	Query      string       `json:"query"`
	TotalItems int          `json:"totalResults"`
	Items      []searchItem `json:"items"`
}

type searchItem struct {
	ItemID    int64   `json:"itemId"`
	Name      string  `json:"name"`
	SalePrice float64 `json:"salePrice"`
	MSRP      float64 `json:"msrp"`
}
