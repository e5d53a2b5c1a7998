package model

// UserData is the authenticated identity resolved from a bearer token.
type UserData struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	DisplayName string   `json:"displayName"`
	Email       string   `json:"email"`
	Phone       string   `json:"phone"`
	Roles       []string `json:"roles"`
}

func (u *UserData) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

type UserInfo struct {
	Status string    `json:"status"`
	Msg    string    `json:"msg"`
	Data   *UserData `json:"data"`
}
