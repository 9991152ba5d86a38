package models

// Статусы итоговой корзины. CartPartial означает, что часть ингредиентов
// не нашлась в каталоге; CartNoProducts — не нашлось ни одного товара.
const (
	CartComplete   = "complete"
	CartPartial    = "partial"
	CartNoProducts = "no_products_found"
)

// Product описывает товар, найденный во внешнем каталоге.
type Product struct {
	ExternalID string  `json:"external_id"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
}

// Match — результат подбора товара для одного канонического ингредиента.
// Found == false означает валидный исход "ничего не нашлось", транспортные
// ошибки поглощаются на уровне подбора и до корзины не доходят.
type Match struct {
	Found   bool     `json:"found"`
	Product *Product `json:"product,omitempty"`
}

// CartItem связывает ингредиент с результатом подбора товара.
type CartItem struct {
	Ingredient string   `json:"ingredient"`
	Found      bool     `json:"found"`
	Product    *Product `json:"product,omitempty"`
}

// CartResult — итог сборки корзины по рецепту. Не сохраняется в БД.
type CartResult struct {
	Items          []CartItem `json:"items"`
	Unmatched      []string   `json:"unmatched"`
	EstimatedTotal float64    `json:"estimated_total"`
	Coverage       float64    `json:"coverage"`
	Status         string     `json:"status"`
}
