package models

// Categories. The set is closed; CategoryOther is the catch-all.
const (
	CategoryDining     = "Dining"
	CategoryHealth     = "Health"
	CategoryFashion    = "Fashion"
	CategoryLeisure    = "Leisure"
	CategoryTransport  = "Transport"
	CategorySports     = "Sports"
	CategoryGroceries  = "Groceries"
	CategoryUtilities  = "Utilities"
	CategoryEducation  = "Education"
	CategoryBanking    = "Banking"
	CategoryTechnology = "Technology"
	CategoryHome       = "Home"
	CategoryBeauty     = "Beauty"
	CategorySalary     = "Salary"
	CategoryRefund     = "Refund"
	CategoryIncome     = "Income"
	CategoryOther      = "Other"
)

// AllCategories lists every allowed category in display order.
var AllCategories = []string{
	CategoryDining, CategoryHealth, CategoryFashion, CategoryLeisure, CategoryTransport,
	CategorySports, CategoryGroceries, CategoryUtilities, CategoryEducation,
	CategoryBanking, CategoryTechnology, CategoryHome, CategoryBeauty,
	CategorySalary, CategoryRefund, CategoryIncome, CategoryOther,
}

// IsValidCategory reports whether name belongs to AllCategories.
func IsValidCategory(name string) bool {
	for _, c := range AllCategories {
		if c == name {
			return true
		}
	}
	return false
}

// File permissions
const (
	PermissionConfigFile = 0600
	PermissionDirectory  = 0750
	PermissionReportFile = 0644
)
