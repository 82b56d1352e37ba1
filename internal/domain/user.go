package domain

import (
	"net/url"
	"strings"
)

const avatarBaseURL = "https://api.dicebear.com/7.x/avataaars/svg?seed="

// UnassignedName is the sentinel assignee for tasks created without one.
const UnassignedName = "Unassigned"

// AvatarURL returns the generated avatar reference for a seed string.
func AvatarURL(seed string) string {
	seed = strings.ToLower(strings.TrimSpace(seed))
	if seed == "" {
		seed = "unassigned"
	}
	if first, _, ok := strings.Cut(seed, " "); ok {
		seed = first
	}
	return avatarBaseURL + url.QueryEscape(seed)
}

// UnassignedAssignee returns the default assignee value.
func UnassignedAssignee() Assignee {
	return Assignee{Name: UnassignedName, Avatar: AvatarURL("unassigned")}
}

// AssigneeRoster lists the people offered by the task form.
func AssigneeRoster() []Assignee {
	names := []string{"Alice Johnson", "Bob Smith", "Carol Davis", "David Wilson", "Eve Brown"}
	out := make([]Assignee, 0, len(names))
	for _, name := range names {
		out = append(out, Assignee{Name: name, Avatar: AvatarURL(name)})
	}
	return out
}

// User is the signed-in identity kept in the session store.
type User struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar"`
}

// Profile extends the session user with details shown on the profile page.
type Profile struct {
	User
	Bio      string
	Location string
	Phone    string
	JoinDate string
}

// DefaultProfile returns the profile details used until the user edits them.
func DefaultProfile() Profile {
	return Profile{
		User: User{
			Name:   "Alex Johnson",
			Email:  "alex.johnson@taskflow.com",
			Avatar: AvatarURL("alex"),
		},
		Bio:      "Senior Product Manager passionate about creating amazing user experiences and leading high-performing teams.",
		Location: "San Francisco, CA",
		Phone:    "+1 (555) 123-4567",
		JoinDate: "January 2023",
	}
}
