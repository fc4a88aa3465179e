package models

// UserProfile is the per-session profile collected by the front end.
type UserProfile struct {
	Age                     string   `json:"age"`
	Gender                  string   `json:"gender"`
	FavoriteCategories      []string `json:"favorite_categories"`
	Interests               string   `json:"interests"`
	PreferredShoppingMethod string   `json:"preferred_shopping_method"`
	Location                string   `json:"user_location"`
	BudgetRange             string   `json:"budget_range"`
}

// IsEmpty reports whether the profile has not been filled in yet.
func (u *UserProfile) IsEmpty() bool {
	return u == nil || len(u.FavoriteCategories) == 0
}

// Budget parses the profile's budget range, if any.
func (u *UserProfile) Budget() *BudgetRange {
	if u == nil || u.BudgetRange == "" {
		return nil
	}
	b, ok := ParseBudget(u.BudgetRange)
	if !ok {
		return nil
	}
	return b
}

// ShoppingInput is the free-text request for one recommendation call.
type ShoppingInput struct {
	Occasion        string `json:"occasion"`
	BrandsPreferred string `json:"brandsPreferred"`
	ShoppingInput   string `json:"shoppingInput"`
}

// RecommendationResult is the outcome of one recommendation call.
type RecommendationResult struct {
	Categories         []string            `json:"categories"`
	Products           []ReconciledProduct `json:"products"`
	RawRecommendations string              `json:"ai_recommendations"`
}
