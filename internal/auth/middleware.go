package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var middlewareTracer = otel.Tracer("auth-middleware")

// Gin context keys set by the middlewares below.
const (
	// ContextUserID is the authenticated user's id
	ContextUserID = "user_id"
	// ContextAgentID is the calling agent's id (API-key auth)
	ContextAgentID = "agent_id"
	// ContextTenantID is the tenant scope of the request
	ContextTenantID = "tenant_id"
	// ContextCallerID is the optional counterparty identifier header
	ContextCallerID = "caller_id"
)

// CallerIDHeader carries the optional counterparty identifier on agent
// requests.
const CallerIDHeader = "X-Caller-Id"

// APIKeyHeader carries the agent API key.
const APIKeyHeader = "X-Api-Key"

// RequireAuth is a Gin middleware that validates user JWT tokens and
// attaches the user and tenant scope to the request context
func RequireAuth(jwtManager *JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := middlewareTracer.Start(c.Request.Context(), "auth.require_auth")
		defer span.End()

		// Extract token from Authorization header
		token := c.GetHeader("Authorization")
		if token == "" {
			span.SetAttributes(attribute.Bool("auth.token_present", false))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing authorization header"})
			c.Abort()
			return
		}

		// Remove "Bearer " prefix
		const prefix = "Bearer "
		if len(token) < len(prefix) || !strings.HasPrefix(token, prefix) {
			span.SetAttributes(attribute.Bool("auth.token_present", false))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			c.Abort()
			return
		}

		token = strings.TrimSpace(token[len(prefix):])
		span.SetAttributes(attribute.Bool("auth.token_present", true))

		// Validate token
		claims, err := jwtManager.ValidateToken(ctx, token)
		if err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.Bool("auth.token_valid", false))
			log.Printf(`{"level":"warn","message":"Invalid token","error":"%v"}`, err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		span.SetAttributes(
			attribute.Bool("auth.token_valid", true),
			attribute.String("user.id", claims.UserID),
			attribute.String("tenant.id", claims.TenantID),
		)

		// Attach user and tenant scope to Gin context
		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextTenantID, claims.TenantID)

		c.Next()
	}
}

// RequireAgentKey is a Gin middleware that authenticates agent calls via
// the X-Api-Key header. The key is stored hashed; a match attaches the
// agent and tenant scope to the request context
func RequireAgentKey(pool *pgxpool.Pool) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := middlewareTracer.Start(c.Request.Context(), "auth.require_agent_key")
		defer span.End()

		key := c.GetHeader(APIKeyHeader)
		if key == "" {
			span.SetAttributes(attribute.Bool("auth.api_key_present", false))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing API key"})
			c.Abort()
			return
		}

		var tenantID, agentID string
		err := pool.QueryRow(ctx,
			`SELECT tenant_id, agent_id FROM api_key WHERE key_hash = $1`,
			HashAPIKey(key),
		).Scan(&tenantID, &agentID)
		if err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.Bool("auth.api_key_valid", false))
			log.Printf(`{"level":"warn","message":"Unknown API key","path":"%s"}`, c.Request.URL.Path)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
			c.Abort()
			return
		}

		span.SetAttributes(
			attribute.Bool("auth.api_key_valid", true),
			attribute.String("tenant.id", tenantID),
			attribute.String("agent.id", agentID),
		)

		c.Set(ContextTenantID, tenantID)
		c.Set(ContextAgentID, agentID)

		if callerID := c.GetHeader(CallerIDHeader); callerID != "" {
			c.Set(ContextCallerID, callerID)
		}

		c.Next()
	}
}

// HashAPIKey returns the hex sha256 digest under which API keys are stored.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
