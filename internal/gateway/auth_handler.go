package gateway

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskmesh/a2a-connector/internal/auth"
	"github.com/taskmesh/a2a-connector/internal/models"
)

const tokenLifetime = 24 * time.Hour

// Login godoc
// @Summary User login
// @Description Authenticate user and return JWT token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "Login credentials"
// @Success 200 {object} models.LoginResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var user models.User
	var tenant uuid.UUID
	err := h.pool.QueryRow(c.Request.Context(),
		`SELECT u.id, u.status, u.email, u.first_name, u.last_name, u.hashed_password,
			u.created_at, u.updated_at, tu.tenant_id
		 FROM application_user u
		 JOIN tenant_user tu ON tu.user_id = u.id
		 WHERE u.email = $1`,
		req.Email,
	).Scan(&user.ID, &user.Status, &user.Email, &user.FirstName, &user.LastName,
		&user.HashedPassword, &user.CreatedAt, &user.UpdatedAt, &tenant)
	if err != nil {
		log.Printf(`{"level":"warn","message":"User not found","email":"%s"}`, req.Email)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(req.Password)); err != nil {
		log.Printf(`{"level":"warn","message":"Invalid password","email":"%s"}`, req.Email)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	token, err := h.jwtManager.GenerateToken(c.Request.Context(), user.ID.String(), tenant.String(), user.Email, tokenLifetime)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, models.LoginResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(tokenLifetime),
		User:      user.ToUserInfo(),
	})
}

// RegisterRequest is the payload for creating a user account inside an
// existing tenant.
type RegisterRequest struct {
	TenantID  string  `json:"tenant_id" binding:"required,uuid"`
	Email     string  `json:"email" binding:"required,email"`
	Password  string  `json:"password" binding:"required,min=8"`
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
}

// Register godoc
// @Summary Register a user
// @Description Create a user account inside an existing tenant
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration details"
// @Success 201 {object} models.UserInfo
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /users/register [post]
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	tenant, err := uuid.Parse(req.TenantID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tenant id"})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	tx, err := h.pool.Begin(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	defer tx.Rollback(c.Request.Context())

	var user models.User
	err = tx.QueryRow(c.Request.Context(),
		`INSERT INTO application_user (status, email, first_name, last_name, hashed_password)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, status, email, first_name, last_name, created_at, updated_at`,
		models.UserStatusActive, req.Email, req.FirstName, req.LastName, string(hashed),
	).Scan(&user.ID, &user.Status, &user.Email, &user.FirstName, &user.LastName,
		&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		log.Printf(`{"level":"warn","message":"User registration failed","email":"%s","error":"%v"}`, req.Email, err)
		c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
		return
	}

	_, err = tx.Exec(c.Request.Context(),
		`INSERT INTO tenant_user (tenant_id, user_id) VALUES ($1, $2)`,
		tenant, user.ID,
	)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown tenant"})
		return
	}

	if err := tx.Commit(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit registration"})
		return
	}

	c.JSON(http.StatusCreated, user.ToUserInfo())
}

// Me godoc
// @Summary Current user
// @Description Return the authenticated user's profile
// @Tags auth
// @Produce json
// @Success 200 {object} models.UserInfo
// @Failure 401 {object} map[string]string
// @Security BearerAuth
// @Router /users/me [get]
func (h *Handler) Me(c *gin.Context) {
	userIDVal, exists := c.Get(auth.ContextUserID)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var user models.User
	err := h.pool.QueryRow(c.Request.Context(),
		`SELECT id, status, email, first_name, last_name, created_at, updated_at
		 FROM application_user WHERE id = $1`,
		userIDVal.(string),
	).Scan(&user.ID, &user.Status, &user.Email, &user.FirstName, &user.LastName,
		&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, user.ToUserInfo())
}

// CreateTenantRequest is the payload for creating a tenant.
type CreateTenantRequest struct {
	Name string `json:"name" binding:"required"`
}

// CreateTenant godoc
// @Summary Create a tenant
// @Tags tenants
// @Accept json
// @Produce json
// @Param request body CreateTenantRequest true "Tenant details"
// @Success 201 {object} models.Tenant
// @Failure 400 {object} map[string]string
// @Security BearerAuth
// @Router /tenants [post]
func (h *Handler) CreateTenant(c *gin.Context) {
	var req CreateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var tenant models.Tenant
	err := h.pool.QueryRow(c.Request.Context(),
		`INSERT INTO tenant (name) VALUES ($1)
		 RETURNING id, name, created_at, updated_at`,
		req.Name,
	).Scan(&tenant.ID, &tenant.Name, &tenant.CreatedAt, &tenant.UpdatedAt)
	if err != nil {
		respondError(c, models.StoreError(err, "failed to create tenant"))
		return
	}

	c.JSON(http.StatusCreated, tenant)
}

// MyTenant godoc
// @Summary Current tenant
// @Description Return the authenticated user's tenant
// @Tags tenants
// @Produce json
// @Success 200 {object} models.Tenant
// @Failure 401 {object} map[string]string
// @Security BearerAuth
// @Router /tenants/me [get]
func (h *Handler) MyTenant(c *gin.Context) {
	tenant, ok := tenantID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing tenant scope"})
		return
	}

	var row models.Tenant
	err := h.pool.QueryRow(c.Request.Context(),
		`SELECT id, name, created_at, updated_at FROM tenant WHERE id = $1`,
		tenant,
	).Scan(&row.ID, &row.Name, &row.CreatedAt, &row.UpdatedAt)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tenant not found"})
		return
	}

	c.JSON(http.StatusOK, row)
}

// RefreshToken godoc
// @Summary Refresh JWT token
// @Description Exchange a valid token for a fresh one
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Security BearerAuth
// @Router /auth/refresh [post]
func (h *Handler) RefreshToken(c *gin.Context) {
	const prefix = "Bearer "
	header := c.GetHeader("Authorization")
	if len(header) <= len(prefix) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing authorization header"})
		return
	}

	token, err := h.jwtManager.RefreshToken(c.Request.Context(), header[len(prefix):], tokenLifetime)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}
