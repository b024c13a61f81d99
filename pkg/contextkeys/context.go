package contextkeys

// Кастомный тип, чтобы избежать коллизий в context.Context
type contextKey string

// DBContextKey - ключ, по которому хранится *gorm.DB
const DBContextKey = contextKey("db")

// Ключи gin.Context, которые выставляет AuthMiddleware
const (
	UserIDKey = "userID"
	RoleKey   = "role"
)
