package model

// Category is one entry of the fixed listing taxonomy.
type Category struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Subcategories []string `json:"subcategories"`
}

var categories = []Category{
	{
		ID:            "jobs",
		Name:          "Jobs",
		Subcategories: []string{"Full-time", "Part-time", "Freelance", "Internships", "Temporary", "Other"},
	},
	{
		ID:            "real_estate_renting",
		Name:          "Real Estate Renting",
		Subcategories: []string{"Rooms", "Flats", "Houses", "Holiday Rentals", "Offices", "Parking Places", "Garages", "Other"},
	},
	{
		ID:            "real_estate_selling",
		Name:          "Real Estate Selling",
		Subcategories: []string{"Flats", "Houses", "Offices", "Parking Places", "Garages", "Land", "Commercial", "Other"},
	},
	{
		ID:            "vehicles",
		Name:          "Vehicles",
		Subcategories: []string{"Cars", "Trucks", "Boats", "Jet Ski", "Motorcycles", "Bicycles", "Accessories", "Caravans", "Other"},
	},
	{
		ID:            "sales_of_products",
		Name:          "Sales of Products",
		Subcategories: []string{"Electronics", "Furniture", "Clothing", "Books", "Home & Garden", "Sports & Outdoors", "Toys & Games", "Other"},
	},
	{
		ID:            "services",
		Name:          "Services",
		Subcategories: []string{"Home Services", "Professional Services", "Tutoring", "Beauty & Wellness", "Event Services", "Repair Services", "Other"},
	},
}

var categoryIndex = func() map[string]int {
	idx := make(map[string]int, len(categories))
	for i, c := range categories {
		idx[c.ID] = i
	}
	return idx
}()

// Categories returns a copy of the taxonomy in display order.
func Categories() []Category {
	out := make([]Category, len(categories))
	for i, c := range categories {
		subs := make([]string, len(c.Subcategories))
		copy(subs, c.Subcategories)
		out[i] = Category{ID: c.ID, Name: c.Name, Subcategories: subs}
	}
	return out
}

// IsKnownCategory reports whether id is part of the taxonomy.
func IsKnownCategory(id string) bool {
	_, ok := categoryIndex[id]
	return ok
}

// HasSubcategory reports whether sub belongs to category. Unknown categories
// have no subcategories.
func HasSubcategory(category, sub string) bool {
	i, ok := categoryIndex[category]
	if !ok {
		return false
	}
	for _, s := range categories[i].Subcategories {
		if s == sub {
			return true
		}
	}
	return false
}
