package auth

import "errors"

var (
	ErrEmptyToken     = errors.New("empty token")
	ErrInvalidToken   = errors.New("invalid token")
	ErrExpToken       = errors.New("expired token")
	ErrInvalidClaims  = errors.New("invalid token claims")
	ErrWrongTokenType = errors.New("wrong token type")
)
