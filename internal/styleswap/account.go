package styleswap

import (
	"strings"
	"time"
)

// SignupBonusCredits is granted once to an account that has never held credits.
const SignupBonusCredits = 5

type Account struct {
	Id           string    `json:"id" gorm:"primaryKey;size:64"` // Identity provider user id
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null"`
	FullName     string    `json:"full_name"`
	AvatarUrl    string    `json:"avatar_url"`
	Credits      int64     `json:"credits" gorm:"not null;check:credits >= 0"`
	BonusGranted bool      `json:"bonus_granted" gorm:"not null"`
}

// Identity is the authenticated principal as reported by the identity provider.
type Identity struct {
	Id        string `json:"id"`
	Email     string `json:"email"`
	FullName  string `json:"full_name"`
	AvatarUrl string `json:"avatar_url"`
}

// AuthSession is a signed-in session issued by the identity provider.
type AuthSession struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	ExpiresIn    int64    `json:"expires_in"`
	Identity     Identity `json:"user"`
}

// User is the cached view of a signed-in account served to the storefront.
type User struct {
	Id        string `json:"id"`
	Email     string `json:"email"`
	FullName  string `json:"full_name"`
	AvatarUrl string `json:"avatar_url"`
	Credits   int64  `json:"credits"`
}

func (a *Account) User() *User {
	return &User{
		Id:        a.Id,
		Email:     a.Email,
		FullName:  a.FullName,
		AvatarUrl: a.AvatarUrl,
		Credits:   a.Credits,
	}
}

// DisplayName returns name, or the local part of email when name is blank.
func DisplayName(name, email string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	local, _, _ := strings.Cut(email, "@")
	return local
}
