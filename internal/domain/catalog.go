package domain

import "sort"

// Categories maps category keys to display labels.
var Categories = map[string]string{
	"ai":              "AI / Machine Learning",
	"productivity":    "Productivity",
	"developer-tools": "Developer Tools",
	"education":       "Education",
	"entertainment":   "Entertainment",
	"finance":         "Finance",
	"gaming":          "Gaming",
	"health":          "Health & Fitness",
	"social":          "Social",
	"community":       "Community",
	"other":           "Other",
}

// StatusOptions lists the profile statuses a builder can advertise, in display order.
var StatusOptions = []StatusOption{
	{Value: "brainstorming", Label: "Brainstorming"},
	{Value: "designing", Label: "Designing"},
	{Value: "coding", Label: "Coding"},
	{Value: "debugging", Label: "Debugging"},
	{Value: "shipping", Label: "Shipping"},
	{Value: "looking-for-feedback", Label: "Looking for Feedback"},
	{Value: "open-to-collab", Label: "Open to Collaboration"},
}

// StatusOption is one selectable profile status.
type StatusOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// CategoryOption is one selectable category.
type CategoryOption struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// CategoryList returns the categories sorted by key.
func CategoryList() []CategoryOption {
	out := make([]CategoryOption, 0, len(Categories))
	for k, v := range Categories {
		out = append(out, CategoryOption{Key: k, Label: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func validStatus(value string) bool {
	for _, opt := range StatusOptions {
		if opt.Value == value {
			return true
		}
	}
	return false
}
