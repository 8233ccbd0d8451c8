package jwt

import (
	"errors"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"styleswap/internal/styleswap"
)

const AdminTokenExpiration = 12 * time.Hour

// SupabaseClaim is the payload of a Supabase access token.
type SupabaseClaim struct {
	Email        string                 `json:"email"`
	Role         string                 `json:"role"`
	UserMetadata map[string]interface{} `json:"user_metadata"`
	jwt.RegisteredClaims
}

type AdminClaim struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

func keyFunc(env string) jwt.Keyfunc {
	return func(t *jwt.Token) (interface{}, error) {
		secret := os.Getenv(env)
		if secret == "" {
			return nil, errors.New(env + " is not set")
		}
		return []byte(secret), nil
	}
}

// ValidateToken verifies a Supabase access token and returns its subject.
func ValidateToken(signedToken string) (*styleswap.Identity, error) {
	token, err := jwt.ParseWithClaims(signedToken, &SupabaseClaim{}, keyFunc("SUPABASE_JWT_SECRET"),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*SupabaseClaim)
	if !ok {
		return nil, errors.New("error parsing claims")
	}
	if claims.Subject == "" || claims.Role != "authenticated" {
		return nil, errors.New("malformed data")
	}
	identity := &styleswap.Identity{Id: claims.Subject, Email: claims.Email}
	if name, ok := claims.UserMetadata["full_name"].(string); ok {
		identity.FullName = name
	}
	if avatar, ok := claims.UserMetadata["avatar_url"].(string); ok {
		identity.AvatarUrl = avatar
	}
	return identity, nil
}

func GenerateAdminJWT(username string) (string, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return "", errors.New("JWT_SECRET is not set")
	}
	now := time.Now()
	claims := AdminClaim{
		username,
		"admin",
		jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(AdminTokenExpiration)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func ValidateAdminToken(signedToken string) (username string, err error) {
	token, err := jwt.ParseWithClaims(signedToken, &AdminClaim{}, keyFunc("JWT_SECRET"),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(*AdminClaim)
	if !ok {
		return "", errors.New("error parsing claims")
	}
	if claims.Role != "admin" || claims.Username == "" {
		return "", errors.New("malformed data")
	}
	return claims.Username, nil
}
