package dto

import (
	"anoa.com/labeebacademy/internal/entity"
	"anoa.com/labeebacademy/internal/navigation"
)

type SignupInput struct {
	Name     string `json:"name" binding:"required,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type SignupResponse struct {
	Message     string                 `json:"message"`
	Profile     *entity.Profile        `json:"profile"`
	Destination navigation.Destination `json:"destination"`
}

type AuthResponse struct {
	AccessToken string                 `json:"access_token"`
	TokenType   string                 `json:"token_type"`
	ExpiresIn   int64                  `json:"expires_in"`
	Profile     *entity.Profile        `json:"profile"`
	Destination navigation.Destination `json:"destination"`
}

type SignOutResponse struct {
	Message     string                 `json:"message"`
	Destination navigation.Destination `json:"destination"`
}

type SessionResponse struct {
	Profile   *entity.Profile        `json:"profile"`
	Dashboard navigation.Destination `json:"dashboard"`
}

type RouteAccessRequest struct {
	Route string `form:"route" binding:"required"`
}

type RouteAccessResponse struct {
	Route   navigation.Route `json:"route"`
	Allowed bool             `json:"allowed"`
}
