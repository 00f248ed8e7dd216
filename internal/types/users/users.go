package users

type SignUpRequest struct {
	Username string   `json:"username" validate:"required"`
	Password string   `json:"password" validate:"required,min=1"`
	Tags     []string `json:"tags" validate:"required,max=5,dive,required"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the session token plus the coordinates of the
// notification multicast group the client should join.
type LoginResponse struct {
	Token     string `json:"token"`
	Multicast string `json:"multicast"`
}

// UserInfo is the public view of a registered user.
type UserInfo struct {
	Username string   `json:"username"`
	Tags     []string `json:"tags"`
}
