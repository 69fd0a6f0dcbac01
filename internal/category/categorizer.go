// Package category assigns budget categories to item descriptions by
// ordered keyword lookup.
package category

import (
	"strings"

	"github.com/joseph-ayodele/receipt-digitizer/constants"
)

type rule struct {
	category constants.Category
	keywords []string
}

// Table order matters: several keyword sets overlap ("soap", "battery",
// "ticket") and the first matching category wins.
var table = []rule{
	{constants.Groceries, []string{
		"milk", "bread", "cheese", "yogurt", "fruit", "vegetable", "meat", "chicken", "beef", "pork",
		"fish", "egg", "cereal", "pasta", "rice", "flour", "sugar", "coffee", "tea", "juice", "water",
		"snack", "chip", "cookie", "cracker", "nut", "bean", "grain", "produce", "dairy", "bakery",
		"deli", "frozen", "canned", "pantry", "spice", "oil", "vinegar", "sauce", "condiment",
		"paneer", "naan", "tandoori",
	}},
	{constants.Household, []string{
		"paper", "toilet", "tissue", "detergent", "soap", "cleaner", "cleaning", "laundry", "dish",
		"towel", "trash", "garbage", "bag", "battery", "light bulb", "candle", "filter", "storage",
		"container", "foil", "wrap", "ziploc", "vacuum", "broom", "mop", "sponge", "glove", "supply",
	}},
	{constants.PersonalCare, []string{
		"shampoo", "conditioner", "body wash", "soap", "lotion", "cream", "deodorant", "toothpaste",
		"toothbrush", "floss", "mouthwash", "razor", "shaving", "makeup", "cosmetic", "cotton",
		"sanitizer", "medicine", "vitamin", "supplement", "bandage", "sunscreen", "insect repellent",
		"nail", "hair",
	}},
	{constants.Dining, []string{
		"restaurant", "cafe", "coffee shop", "bar", "pub", "fast food", "takeout", "delivery", "pizza",
		"burger", "sandwich", "salad", "breakfast", "lunch", "dinner", "meal", "drink", "beverage",
		"alcohol", "beer", "wine", "liquor", "cocktail", "appetizer", "dessert", "tip", "service charge",
	}},
	{constants.Transportation, []string{
		"gas", "fuel", "parking", "toll", "fare", "ticket", "uber", "lyft", "taxi", "cab", "bus",
		"train", "subway", "rental", "car wash", "oil change", "maintenance", "repair", "tire",
		"battery", "insurance", "registration", "license", "dmv",
	}},
	{constants.Entertainment, []string{
		"movie", "theater", "concert", "show", "event", "ticket", "game", "book", "magazine", "music",
		"video", "streaming", "subscription", "toy", "game", "hobby", "craft", "sport", "fitness",
		"gym", "class", "lesson", "tour", "park", "museum", "attraction",
	}},
}

// Default is returned when no keyword matches.
const Default = constants.Groceries

// Categorize maps a description to a category. Keywords match as
// lower-case substrings. A blank description is Other.
func Categorize(description string) constants.Category {
	d := strings.ToLower(strings.TrimSpace(description))
	if d == "" {
		return constants.Other
	}
	if strings.Contains(d, "bag") && strings.Contains(d, "reusable") {
		return constants.Household
	}
	for _, r := range table {
		for _, kw := range r.keywords {
			if strings.Contains(d, kw) {
				return r.category
			}
		}
	}
	return Default
}
