package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bitfantasy/nimo-pharmacy/internal/config"
	"github.com/bitfantasy/nimo-pharmacy/internal/database"
	"github.com/bitfantasy/nimo-pharmacy/internal/middleware"
	"github.com/bitfantasy/nimo-pharmacy/internal/purchasing/entity"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	JWTSecret       = "nimo-pharmacy-test-secret"
	DefaultPharmacy = "pharmacy-001"
	DefaultUser     = "test-user-001"
)

var dbSeq atomic.Int64

// TestEnv 测试环境
type TestEnv struct {
	DB     *gorm.DB
	Router *gin.Engine
	T      *testing.T
}

// SetupTestDB 为每个测试创建独立的内存 SQLite 库并完成迁移
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := fmt.Sprintf("pharmacy_test_%d_%d", time.Now().UnixNano(), dbSeq.Add(1))
	db, err := database.Open(config.DatabaseConfig{
		Driver:   "sqlite",
		Path:     fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
		LogLevel: "silent",
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := entity.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate test tables: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// SeedProduct 写入一条商品
func SeedProduct(t *testing.T, db *gorm.DB, id, pharmacyID string, quantity int, costPrice string) *entity.Product {
	t.Helper()
	p := &entity.Product{
		ID:         id,
		PharmacyID: pharmacyID,
		Name:       "Product " + id,
		Quantity:   quantity,
		CostPrice:  decimal.RequireFromString(costPrice),
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("Failed to seed product: %v", err)
	}
	return p
}

// SetupRouter 创建测试用 gin 路由
func SetupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery())
	return r
}

// AuthGroup 创建带 JWT 认证的路由组
func AuthGroup(r *gin.Engine, path string) *gin.RouterGroup {
	return r.Group(path, middleware.JWTAuth(JWTSecret))
}

// GenerateTestToken 生成测试令牌
func GenerateTestToken(userID, pharmacyID string, roles []string) string {
	if roles == nil {
		roles = []string{}
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":         userID,
		"uid":         userID,
		"name":        "Test " + userID,
		"pharmacy_id": pharmacyID,
		"roles":       roles,
		"iss":         "nimo-pharmacy",
		"iat":         now.Unix(),
		"exp":         now.Add(24 * time.Hour).Unix(),
		"jti":         fmt.Sprintf("test-jti-%d", now.UnixNano()),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, _ := token.SignedString([]byte(JWTSecret))
	return tokenString
}

// DefaultTestToken 默认门店管理员令牌
func DefaultTestToken() string {
	return GenerateTestToken(DefaultUser, DefaultPharmacy, []string{middleware.AdminRole})
}

// DoRequest 对测试路由发起请求
func DoRequest(r *gin.Engine, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ParseResponse 解析 {code, message, data} 响应
func ParseResponse(w *httptest.ResponseRecorder) map[string]interface{} {
	var result map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &result)
	return result
}
