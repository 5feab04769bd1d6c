package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/RastislavMadac/angeapp/internal/erp/entity"
	"github.com/RastislavMadac/angeapp/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	TestSchema = "test_stock"
	JWTSecret  = "nimo-stock-jwt-secret-key"
)

// projectRoot returns the project root directory by looking for go.mod
func projectRoot() string {
	_, filename, _, _ := runtime.Caller(0)
	dir := filepath.Dir(filename)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// loadEnv loads .env from the project root
func loadEnv() {
	root := projectRoot()
	if root != "" {
		godotenv.Load(filepath.Join(root, ".env"))
	}
}

// SetupTestDB opens an isolated database for one test. By default this is an
// in-memory SQLite database; TEST_DB_DRIVER=postgres uses a throwaway schema
// on the configured server instead.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	loadEnv()

	var db *gorm.DB
	if getEnv("TEST_DB_DRIVER", "sqlite") == "postgres" {
		db = openPostgres(t)
	} else {
		db = openSQLite(t)
	}
	if err := entity.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate test tables: %v", err)
	}
	return db
}

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("Failed to open sqlite: %v", err)
	}
	// a single connection keeps the in-memory database alive and serializes writers
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func openPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	baseDSN := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		getEnv("DB_HOST", "127.0.0.1"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_USER", "nimo"),
		getEnv("DB_PASSWORD", "nimo123"),
		getEnv("DB_NAME", "nimo_stock"),
	)
	schemaName := fmt.Sprintf("%s_%d", TestSchema, time.Now().UnixNano()%1000000)

	setupDB, err := gorm.Open(postgres.Open(baseDSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to connect to database for schema setup: %v", err)
	}
	setupDB.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schemaName))
	sqlSetup, _ := setupDB.DB()
	sqlSetup.Close()

	db, err := gorm.Open(postgres.Open(fmt.Sprintf("%s search_path=%s", baseDSN, schemaName)), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, _ := db.DB(); sqlDB != nil {
			sqlDB.Close()
		}
		cleanDB, cleanErr := gorm.Open(postgres.Open(baseDSN), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if cleanErr == nil {
			cleanDB.Exec(fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", schemaName))
			if sqlClean, _ := cleanDB.DB(); sqlClean != nil {
				sqlClean.Close()
			}
		}
	})
	return db
}

// SetupRouter creates a gin test router
func SetupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery())
	return r
}

// AuthGroup creates an API group with JWT auth middleware for testing
func AuthGroup(r *gin.Engine, path string) *gin.RouterGroup {
	return r.Group(path, middleware.JWTAuth(JWTSecret))
}

// GenerateTestToken creates a valid JWT token for testing
func GenerateTestToken(userID, name string, roles []string) string {
	if roles == nil {
		roles = []string{}
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   userID,
		"uid":   userID,
		"name":  name,
		"email": userID + "@test.local",
		"roles": roles,
		"perms": []string{},
		"iss":   "nimo-stock",
		"iat":   now.Unix(),
		"exp":   now.Add(24 * time.Hour).Unix(),
		"jti":   fmt.Sprintf("test-jti-%d", now.UnixNano()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, _ := token.SignedString([]byte(JWTSecret))
	return tokenString
}

// DefaultTestToken returns a token for a warehouse manager
func DefaultTestToken() string {
	return GenerateTestToken("test-user-001", "Test Manager", []string{"manager"})
}

// DoRequest executes an HTTP request against the test router
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

// ParseResponse parses the JSON response body into a handler.Response-like map
func ParseResponse(w *httptest.ResponseRecorder) map[string]interface{} {
	var result map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &result)
	return result
}

// ========== Seeds ==========

// SeedItem creates a stock item with zero counters
func SeedItem(t *testing.T, db *gorm.DB, code, itemType string, serialized bool) *entity.StockItem {
	t.Helper()
	item := &entity.StockItem{
		ID:           uuid.New().String(),
		Code:         code,
		Name:         code,
		ItemType:     itemType,
		IsSerialized: serialized,
		Unit:         "pcs",
		UnitPrice:    decimal.NewFromInt(10),
		Total:        decimal.Zero,
		Reserved:     decimal.Zero,
		Free:         decimal.Zero,
	}
	if err := db.Create(item).Error; err != nil {
		t.Fatalf("Failed to seed stock item: %v", err)
	}
	return item
}

// SeedStock sets counters directly, bypassing the movement journal
func SeedStock(t *testing.T, db *gorm.DB, item *entity.StockItem, total, reserved string) {
	t.Helper()
	item.Total = decimal.RequireFromString(total)
	item.Reserved = decimal.RequireFromString(reserved)
	item.Free = item.Total.Sub(item.Reserved)
	err := db.Model(&entity.StockItem{}).Where("id = ?", item.ID).Updates(map[string]interface{}{
		"total":    item.Total,
		"reserved": item.Reserved,
		"free":     item.Free,
	}).Error
	if err != nil {
		t.Fatalf("Failed to seed stock: %v", err)
	}
}

// SeedEdge adds one recipe line
func SeedEdge(t *testing.T, db *gorm.DB, good, ingredient *entity.StockItem, perUnit string) *entity.BOMEdge {
	t.Helper()
	edge := &entity.BOMEdge{
		ID:              uuid.New().String(),
		GoodID:          good.ID,
		IngredientID:    ingredient.ID,
		QuantityPerUnit: decimal.RequireFromString(perUnit),
		CreatedAt:       time.Now(),
	}
	if err := db.Create(edge).Error; err != nil {
		t.Fatalf("Failed to seed bom edge: %v", err)
	}
	return edge
}

// SeedPlanItem creates a plan with one item for good
func SeedPlanItem(t *testing.T, db *gorm.DB, good *entity.StockItem, planned int64) *entity.ProductionPlanItem {
	t.Helper()
	now := time.Now()
	plan := &entity.ProductionPlan{
		ID:        uuid.New().String(),
		Number:    "PLAN-" + uuid.New().String()[:8],
		PlanType:  entity.PlanTypeMonthly,
		StartDate: now,
		EndDate:   now.AddDate(0, 1, 0),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.Create(plan).Error; err != nil {
		t.Fatalf("Failed to seed plan: %v", err)
	}
	item := &entity.ProductionPlanItem{
		ID:              uuid.New().String(),
		PlanID:          plan.ID,
		StockItemID:     good.ID,
		PlannedQuantity: planned,
		Status:          entity.ProductionStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := db.Create(item).Error; err != nil {
		t.Fatalf("Failed to seed plan item: %v", err)
	}
	return item
}

// ReloadItem reads a stock item back from db
func ReloadItem(t *testing.T, db *gorm.DB, id string) *entity.StockItem {
	t.Helper()
	var item entity.StockItem
	if err := db.First(&item, "id = ?", id).Error; err != nil {
		t.Fatalf("Failed to reload stock item: %v", err)
	}
	return &item
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
