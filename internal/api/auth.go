package api

import (
	"context"  // Wallet writer contract
	"errors"   // Error inspection
	"net/http" // HTTP status codes
	"strings"  // String manipulation
	"time"     // Token lifetime

	"prism/internal/directory"  // Account directory errors
	"prism/internal/domain"     // Importing domain models
	"prism/internal/middleware" // Context keys
	"prism/internal/utils"      // Utility functions

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/google/uuid"     // User ids
	"golang.org/x/crypto/bcrypt" // Password hashing
	"gorm.io/gorm"               // GORM ORM library
)

// Request struct for registration
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`           // Email must be valid
	Password  string `json:"password" binding:"required,min=8,max=64"` // Password length limits
	FirstName string `json:"firstName" binding:"required,max=100"`     // Given name
	LastName  string `json:"lastName" binding:"required,max=100"`      // Family name
}

// Request struct for login
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`    // Email must be provided
	Password string `json:"password" binding:"required"` // Password must be provided
}

// Response struct for authentication
type AuthResponse struct {
	Token string      `json:"token"` // JWT token
	User  domain.User `json:"user"`  // Authenticated user
}

// RegisterHandler creates a user and returns a token for it
func RegisterHandler(db *gorm.DB, jwtSecret string, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			fail(c, http.StatusBadRequest, "Invalid request", err.Error())
			return
		}
		// Hash the password and create the user
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			// If hashing fails, return internal server error
			fail(c, http.StatusInternalServerError, "Failed to hash password", nil)
			return
		}
		// Create user with lowercase email to ensure uniqueness
		user := domain.User{
			ID:        uuid.NewString(),                 // New account id
			Email:     strings.ToLower(req.Email),       // Normalized email
			FirstName: strings.TrimSpace(req.FirstName), // Given name
			LastName:  strings.TrimSpace(req.LastName),  // Family name
			Password:  string(hash),                     // Hashed password
			Role:      "user",                           // Default role
		}
		// Attempt to create the user in the database
		if err := db.WithContext(c.Request.Context()).Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				// Email is taken
				fail(c, http.StatusConflict, "Email already registered", nil)
				return
			}
			fail(c, http.StatusInternalServerError, "Failed to create user", nil)
			return
		}
		// Generate JWT token
		token, err := utils.GenerateJWT(user.ID, jwtSecret, ttl)
		if err != nil {
			fail(c, http.StatusInternalServerError, "Failed to generate token", nil)
			return
		}
		respond(c, http.StatusCreated, "User registered successfully", AuthResponse{Token: token, User: user})
	}
}

// LoginHandler authenticates a user and returns a JWT token
func LoginHandler(db *gorm.DB, jwtSecret string, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			fail(c, http.StatusBadRequest, "Invalid request", err.Error())
			return
		}
		var user domain.User // Fetch user from database
		if err := db.WithContext(c.Request.Context()).Where("email = ?", strings.ToLower(req.Email)).First(&user).Error; err != nil {
			// If user not found, return unauthorized
			fail(c, http.StatusUnauthorized, "Invalid credentials", nil)
			return
		}
		// Compare provided password with stored hash
		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
			fail(c, http.StatusUnauthorized, "Invalid credentials", nil)
			return
		}
		// Generate JWT token
		token, err := utils.GenerateJWT(user.ID, jwtSecret, ttl)
		if err != nil {
			// If token generation fails, return internal server error
			fail(c, http.StatusInternalServerError, "Failed to generate token", nil)
			return
		}
		// Return the token in the response
		respond(c, http.StatusOK, "Login successful", AuthResponse{Token: token, User: user})
	}
}

// MeHandler returns the profile of the authenticated user
func MeHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var user domain.User // Fetch user from database
		if err := db.WithContext(c.Request.Context()).Where("id = ?", c.GetString(middleware.UserIDKey)).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				fail(c, http.StatusNotFound, "User not found", nil)
				return
			}
			fail(c, http.StatusInternalServerError, "Server error", nil)
			return
		}
		respond(c, http.StatusOK, "User retrieved", user)
	}
}

// WalletWriter records a wallet address on a user profile
type WalletWriter interface {
	UpdateWalletAddress(ctx context.Context, accountID, address string) error
}

// UpdateProfileRequest carries the profile fields to change; absent fields stay as they are
type UpdateProfileRequest struct {
	FirstName     *string `json:"firstName" binding:"omitempty,min=1,max=100"` // Given name
	LastName      *string `json:"lastName" binding:"omitempty,min=1,max=100"`  // Family name
	Email         *string `json:"email" binding:"omitempty,email"`             // New email
	WalletAddress *string `json:"walletAddress" binding:"omitempty,eth_addr"`  // Wallet address
}

// ChangePasswordRequest replaces the caller's password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`           // Must match the stored hash
	NewPassword     string `json:"newPassword" binding:"required,min=8,max=64"` // Password length limits
}

// UpdateProfileHandler changes the caller's names, email or wallet address
func UpdateProfileHandler(db *gorm.DB, wallets WalletWriter) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateProfileRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "Invalid request", err.Error())
			return
		}
		ctx := c.Request.Context()                  // Request scoped context
		userID := c.GetString(middleware.UserIDKey) // Caller
		updates := map[string]any{}                 // Columns to change
		for column, value := range map[string]*string{"first_name": req.FirstName, "last_name": req.LastName} {
			if value == nil {
				continue
			}
			name := strings.TrimSpace(*value) // Names may not be blank
			if name == "" {
				fail(c, http.StatusBadRequest, "Names may not be blank", nil)
				return
			}
			updates[column] = name
		}
		if req.Email != nil {
			updates["email"] = strings.ToLower(*req.Email)
		}
		if len(updates) == 0 && req.WalletAddress == nil {
			fail(c, http.StatusBadRequest, "Nothing to update", nil)
			return
		}
		if len(updates) > 0 {
			res := db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", userID).Updates(updates)
			if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
				fail(c, http.StatusConflict, "Email is already in use", nil)
				return
			}
			if res.Error != nil {
				fail(c, http.StatusInternalServerError, "Failed to update profile", nil)
				return
			}
			if res.RowsAffected == 0 {
				fail(c, http.StatusNotFound, "User not found", nil)
				return
			}
		}
		if req.WalletAddress != nil {
			// Same write path the ledger uses when an airdrop names a wallet
			if err := wallets.UpdateWalletAddress(ctx, userID, *req.WalletAddress); err != nil {
				if errors.Is(err, directory.ErrUnknownAccount) {
					fail(c, http.StatusNotFound, "User not found", nil)
					return
				}
				fail(c, http.StatusInternalServerError, "Failed to update wallet address", nil)
				return
			}
		}
		var user domain.User // Reload the stored profile
		if err := db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
			fail(c, http.StatusInternalServerError, "Server error", nil)
			return
		}
		respond(c, http.StatusOK, "Profile updated successfully", gin.H{"user": user})
	}
}

// ChangePasswordHandler verifies the current password and stores a new hash
func ChangePasswordHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ChangePasswordRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "Invalid request", err.Error())
			return
		}
		ctx := c.Request.Context() // Request scoped context
		var user domain.User       // Fetch user from database
		if err := db.WithContext(ctx).Select("id", "password").Where("id = ?", c.GetString(middleware.UserIDKey)).First(&user).Error; err != nil {
			fail(c, http.StatusNotFound, "User not found", nil)
			return
		}
		// Compare provided password with stored hash
		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)); err != nil {
			fail(c, http.StatusUnauthorized, "Current password is incorrect", nil)
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			fail(c, http.StatusInternalServerError, "Failed to hash password", nil)
			return
		}
		if err := db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", user.ID).Update("password", string(hash)).Error; err != nil {
			fail(c, http.StatusInternalServerError, "Failed to update password", nil)
			return
		}
		respond(c, http.StatusOK, "Password changed successfully", nil)
	}
}
