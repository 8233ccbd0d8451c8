package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"styleswap/internal/styleswap"
)

type signupParams struct {
	Email    string `json:"email" binding:"required,email,max=250"`
	Password string `json:"password" binding:"required,max=72"`
	FullName string `json:"full_name" binding:"max=150"`
}

type loginParams struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type resetParams struct {
	Email string `json:"email" binding:"required"`
}

type passwordParams struct {
	Password        string `json:"password" binding:"required,max=72"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

// SignUp registers a new storefront user
// @Success 200 {object} account.Login
// @Router /auth/signup [post]
func SignUp(c *gin.Context) {
	app := c.MustGet("app").(*App)
	var params signupParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	login, err := app.Accounts.SignUp(c, params.Email, params.Password, params.FullName)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, login)
}

// Login signs a user in with email and password
// @Router /auth/login [post]
func Login(c *gin.Context) {
	app := c.MustGet("app").(*App)
	var params loginParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	login, err := app.Accounts.Login(c, params.Email, params.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, login)
}

// RestoreSession is called by the storefront whenever the identity provider
// reports a signed-in session, e.g. after an OAuth redirect or page reload.
func RestoreSession(c *gin.Context) {
	app := c.MustGet("app").(*App)
	identity := c.MustGet("identity").(*styleswap.Identity)
	user, err := app.Accounts.Authenticated(c, *identity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func Logout(c *gin.Context) {
	app := c.MustGet("app").(*App)
	identity := c.MustGet("identity").(*styleswap.Identity)
	if err := app.Accounts.Logout(c, c.GetString("access_token"), identity.Id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func ResetPassword(c *gin.Context) {
	app := c.MustGet("app").(*App)
	var params resetParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := app.Accounts.ResetPassword(c, params.Email); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func UpdatePassword(c *gin.Context) {
	app := c.MustGet("app").(*App)
	var params passwordParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := app.Accounts.UpdatePassword(c, c.GetString("access_token"), params.Password, params.ConfirmPassword)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
