package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	OrderStatusPending   = "pending"
	OrderStatusShipping  = "shipping"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

// ── Group C: Borderline (CHECK constrained in DB) ──

const (
	UserRoleAdmin    = "ADMIN"
	UserRoleCustomer = "USER"
)

// ── Group B: Configurable labels (no DB constraint) ──

const (
	CategorySalad   = "salad"
	CategoryPizza   = "pizza"
	CategorySoup    = "soup"
	CategoryDessert = "dessert"
	CategoryDrinks  = "drinks"
	CategoryPopular = "popular"
	CategorySale    = "sale"
)

// Categories lists every menu category in display order.
var Categories = []string{
	CategorySalad, CategoryPizza, CategorySoup, CategoryDessert,
	CategoryDrinks, CategoryPopular, CategorySale,
}

// IsCategory reports whether c is a known menu category.
func IsCategory(c string) bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

const PaymentMethodCashOnDelivery = "cod"
