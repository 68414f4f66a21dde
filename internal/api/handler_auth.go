package api

import (
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"mechinsight-backend/internal/auth"
	"mechinsight-backend/internal/model"
	"mechinsight-backend/internal/store"
	"mechinsight-backend/internal/validate"
)

// Signup handles POST /signup: validate the payload, reject duplicate
// emails, store a bcrypt hash, and return a session token.
func (h *Handler) Signup(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	req, fieldErrs := validate.Signup(body)
	if fieldErrs != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"errors": fieldErrs})
		return
	}

	exists, err := h.store.EmailExists(c.Request.Context(), req.Email)
	if err != nil {
		log.Printf("Error checking email for signup: %v", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	if exists {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "email id already exists"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Printf("Error hashing password for signup: %v", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	user := model.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Firstname:    req.Firstname,
		Lastname:     req.Lastname,
	}
	if err := h.store.CreateUser(c.Request.Context(), &user); err != nil {
		log.Printf("Error creating user: %v", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	token, err := h.tokens.Issue(user.Username)
	if err != nil {
		log.Printf("Error issuing token for %q: %v", user.Username, err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /login. Unknown usernames and wrong passwords share one
// message so the response does not reveal which accounts exist.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
		return
	}

	user, err := h.store.UserByUsername(c.Request.Context(), req.Username)
	if err != nil && err != store.ErrUserNotFound {
		log.Printf("Login error for %q: %v", req.Username, err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	if err == store.ErrUserNotFound || !auth.CheckPassword(user.PasswordHash, req.Password) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid username or password"})
		return
	}

	token, err := h.tokens.Issue(user.Username)
	if err != nil {
		log.Printf("Error issuing token for %q: %v", user.Username, err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	log.Printf("%s logged in", user.Username)
	c.JSON(http.StatusOK, gin.H{"token": token})
}
