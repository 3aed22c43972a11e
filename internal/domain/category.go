package domain

// DefaultCategoryColor is Discord blurple.
const DefaultCategoryColor = "#5865F2"

// TicketCategory is a named, colored grouping tag for tickets.
type TicketCategory struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Color    string  `json:"color"`
	ServerID *string `json:"serverId"`
}

// CategoryInput is the insert payload for a category.
type CategoryInput struct {
	Name     string
	Color    string
	ServerID *string
}

// DefaultCategories seeds a fresh store.
func DefaultCategories() []CategoryInput {
	return []CategoryInput{
		{Name: "General Support", Color: "#5865F2"},
		{Name: "Bug Reports", Color: "#F04747"},
		{Name: "Feature Requests", Color: "#FAA61A"},
		{Name: "Account Issues", Color: "#43B581"},
	}
}
