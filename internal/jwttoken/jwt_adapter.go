package jwttoken

import (
	"egress/internal/platform/middleware"
)

// JWTServiceAdapter bridges the token service to the middleware's validator
// contract without the middleware package importing jwt internals.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*middleware.JWTClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &middleware.JWTClaims{
		UserID:   claims.UserID,
		DeviceID: claims.DeviceID,
	}, nil
}
