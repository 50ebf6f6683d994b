package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/trinnux/gallery/internal/model"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrNotAdmin     = errors.New("admin privileges required")
)

// AuthService verifies admin bearer tokens. Tokens are issued elsewhere and
// signed with the shared HS256 secret.
type AuthService struct {
	jwtSecret string
}

func NewAuthService(jwtSecret string) *AuthService {
	return &AuthService{
		jwtSecret: jwtSecret,
	}
}

func (s *AuthService) VerifyJWT(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if ok && token.Valid {
		return claims, nil
	}

	return nil, ErrInvalidToken
}

// VerifyAdmin verifies the token and requires either isAdmin: true or
// role: "admin" among its claims.
func (s *AuthService) VerifyAdmin(tokenString string) (*model.Admin, error) {
	claims, err := s.VerifyJWT(tokenString)
	if err != nil {
		return nil, err
	}

	role, _ := claims["role"].(string)
	isAdmin, _ := claims["isAdmin"].(bool)
	if !isAdmin && !strings.EqualFold(role, "admin") {
		return nil, ErrNotAdmin
	}

	subject, _ := claims.GetSubject()
	if subject == "" {
		// the admin login signs "adminId"; "id" and "user_id" come from
		// other issuers
		for _, key := range []string{"adminId", "id", "user_id"} {
			if v, ok := claims[key]; ok {
				subject = fmt.Sprint(v)
				break
			}
		}
	}

	return &model.Admin{Subject: subject, Role: role}, nil
}
