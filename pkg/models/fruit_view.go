package models

// FruitView is the JSON shape of a fruit returned to API consumers. ID and
// VoteCount are null for a fruit that was never stored.
type FruitView struct {
	ID        *uint  `json:"id"`
	Name      string `json:"name"`
	VoteCount *int   `json:"voteCount"`
}

// ToView projects a fruit onto its view.
func ToView(f Fruit) FruitView {
	v := FruitView{Name: f.Name}
	if f.ID != 0 {
		id := f.ID
		v.ID = &id
	}
	if f.VoteCount != nil {
		votes := *f.VoteCount
		v.VoteCount = &votes
	}
	return v
}

// ToViews projects fruits onto views, keeping their order.
func ToViews(fruits []Fruit) []FruitView {
	views := make([]FruitView, 0, len(fruits))
	for _, f := range fruits {
		views = append(views, ToView(f))
	}
	return views
}
