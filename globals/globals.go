package globals

type ContextKey string

const (
	UserIDKey    ContextKey = "userId"
	RequestIDKey ContextKey = "requestId"
)
