package models

// Category classifies a post. CategoryEtc covers posts without one.
type Category string

const (
	CategoryFood        Category = "food"
	CategoryDaily       Category = "daily"
	CategoryBeauty      Category = "beauty"
	CategoryElectronics Category = "electronics"
	CategorySchool      Category = "school"
	CategoryFreemarket  Category = "freemarket"
	CategoryEtc         Category = "etc"

	// CategoryAll is the list filter value that matches every post.
	CategoryAll Category = "all"
)

// Categories lists the enumerated categories, excluding etc.
var Categories = []Category{
	CategoryFood, CategoryDaily, CategoryBeauty,
	CategoryElectronics, CategorySchool, CategoryFreemarket,
}

// Known reports whether c is one of the enumerated categories.
func (c Category) Known() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

// Filterable reports whether c can select posts in a list filter: an
// enumerated category or etc.
func (c Category) Filterable() bool {
	return c == CategoryEtc || c.Known()
}

// NormalizeCategory maps empty and unknown values to etc.
func NormalizeCategory(c Category) Category {
	if c.Known() {
		return c
	}
	return CategoryEtc
}
