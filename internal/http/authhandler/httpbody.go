package authhandler

type CredentialsBody struct {
	Username string `json:"username" binding:"required,min=2,max=64" example:"alice"`
	Password string `json:"password" binding:"required,min=8"        example:"correct-horse"`
} // @name CredentialsRequest

type UserResponse struct {
	Authenticated bool   `json:"authenticated"`
	Username      string `json:"username,omitempty"`
} // @name UserResponse

type ErrorResponse struct {
	Error string `json:"error"`
} // @name AuthErrorResponse
