package dto

type ConnectGoogleRequest struct {
	Code        string `json:"code" binding:"required"`
	RedirectURI string `json:"redirect_uri"`
}

type ConnectIMAPRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Host     string `json:"host" binding:"required"`
	Username string `json:"username"`
	Password string `json:"password" binding:"required"`
}
