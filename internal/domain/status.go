package domain

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCanceled  Status = "CANCELED"
)

type Category string

const (
	CategorySoup    Category = "SOUP"
	CategoryMain    Category = "MAIN"
	CategoryDessert Category = "DESSERT"
	CategoryReserve Category = "RESERVE"
)

// MandatoryCategories must all be present on a daily menu before defaults can
// be placed for that day. RESERVE is optional and included only when offered.
var MandatoryCategories = []Category{CategorySoup, CategoryMain, CategoryDessert}

func (c Category) Valid() bool {
	switch c {
	case CategorySoup, CategoryMain, CategoryDessert, CategoryReserve:
		return true
	}
	return false
}
