package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Tokens struct to describe tokens object.
type Tokens struct {
	Access  string
	Refresh string
}

// TokenMetadata struct to describe metadata in JWT.
type TokenMetadata struct {
	Id  string
	Otp bool
	Exp int64
}

// TokenConfig holds signing keys and lifetimes of both token kinds.
type TokenConfig struct {
	AccessKey     string
	AccessExpire  time.Duration
	RefreshKey    string
	RefreshExpire time.Duration
}

var errInvalidClaims = errors.New("invalid token claims")

// GenerateTokens func for generate a new Access & Refresh tokens.
// otp marks a session that still has to pass the second factor.
func GenerateTokens(cfg TokenConfig, id string, otp bool) (*Tokens, error) {
	accessToken, err := generateToken(id, otp, cfg.AccessExpire, cfg.AccessKey)
	if err != nil {
		return nil, err
	}

	refreshToken, err := generateToken(id, otp, cfg.RefreshExpire, cfg.RefreshKey)
	if err != nil {
		return nil, err
	}

	return &Tokens{
		Access:  accessToken,
		Refresh: refreshToken,
	}, nil
}

func generateToken(id string, otp bool, expire time.Duration, key string) (string, error) {
	claims := jwt.MapClaims{
		"id":  id,
		"otp": otp,
		"exp": time.Now().Add(expire).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	return token.SignedString([]byte(key))
}

func CheckAndExtractTokenMetadata(token string, key string) (*TokenMetadata, error) {
	t, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		return []byte(key), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}))
	if err != nil {
		return nil, err
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok || !t.Valid {
		return nil, errInvalidClaims
	}
	id, _ := claims["id"].(string)
	otp, _ := claims["otp"].(bool)
	exp, _ := claims["exp"].(float64)
	if id == "" {
		return nil, errInvalidClaims
	}

	return &TokenMetadata{
		Id:  id,
		Otp: otp,
		Exp: int64(exp),
	}, nil
}
