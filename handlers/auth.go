package handlers

import (
	"net/http"
	"strings"

	"critiq/response"
	"critiq/service"

	"github.com/gin-gonic/gin"
)

const (
	accessCookie  = "accessToken"
	refreshCookie = "refreshToken"
)

type LoginRequest struct {
	EmailOrUsername string `json:"emailOrUsername" form:"emailOrUsername"`
	Email           string `json:"email" form:"email"`
	Username        string `json:"username" form:"username"`
	Password        string `json:"password" form:"password"`
}

func (r LoginRequest) identifier() string {
	for _, v := range []string{r.EmailOrUsername, r.Email, r.Username} {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" form:"refreshToken"`
}

func (h *Handler) setCookie(c *gin.Context, name, value string, maxAge int) {
	if h.cookies.Secure {
		c.SetSameSite(http.SameSiteNoneMode)
	} else {
		c.SetSameSite(http.SameSiteLaxMode)
	}
	c.SetCookie(name, value, maxAge, "/", "", h.cookies.Secure, true)
}

func (h *Handler) setSessionCookies(c *gin.Context, session *service.Session) {
	h.setCookie(c, accessCookie, session.AccessToken, int(h.cookies.AccessMaxAge.Seconds()))
	h.setCookie(c, refreshCookie, session.RefreshToken, int(h.cookies.RefreshMaxAge.Seconds()))
}

func (h *Handler) Register(c *gin.Context) {
	ctx, cancel := withTimeout(c, uploadTimeout)
	defer cancel()

	avatar, err := formFile(c, "avatar")
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeFile(avatar)
	cover, err := formFile(c, "coverImage")
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeFile(cover)

	in := service.RegisterInput{
		Username: c.PostForm("username"),
		FullName: c.PostForm("fullName"),
		Email:    c.PostForm("email"),
		Password: c.PostForm("password"),
	}
	if avatar != nil {
		in.Avatar = avatar
	}
	if cover != nil {
		in.CoverImage = cover
	}

	user, err := h.users.Register(ctx, in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusCreated, user, "User Created Successfully")
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, badBody(err))
		return
	}

	ctx, cancel := withTimeout(c, requestTimeout)
	defer cancel()

	session, err := h.users.Login(ctx, req.identifier(), req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setSessionCookies(c, session)
	response.OK(c, http.StatusOK, session, "User logged in successfully")
}

func (h *Handler) RefreshToken(c *gin.Context) {
	token, _ := c.Cookie(refreshCookie)
	if token == "" {
		var req RefreshRequest
		_ = c.ShouldBind(&req)
		token = req.RefreshToken
	}

	ctx, cancel := withTimeout(c, requestTimeout)
	defer cancel()

	session, err := h.users.Refresh(ctx, token)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setSessionCookies(c, session)
	response.OK(c, http.StatusOK, gin.H{
		"accessToken":  session.AccessToken,
		"refreshToken": session.RefreshToken,
	}, "Access token refreshed")
}

func (h *Handler) Logout(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	ctx, cancel := withTimeout(c, requestTimeout)
	defer cancel()

	if err := h.users.Logout(ctx, user.ID); err != nil {
		response.Error(c, err)
		return
	}

	h.setCookie(c, accessCookie, "", -1)
	h.setCookie(c, refreshCookie, "", -1)
	c.Header("Clear-Site-Data", `"cache", "cookies", "storage"`)
	response.OK(c, http.StatusOK, gin.H{}, "User logged out successfully")
}
