package models

// User is the minimal account record the pipeline needs: enough to route
// moderation and removal notifications to a content owner.
type User struct {
	ID    string `json:"id" badgerhold:"key"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}
