package types

import "context"

// contextKey is used for storing values in context.Context.
type contextKey string

const (
	keyRequestID  contextKey = "request_id"
	keyUserID     contextKey = "user_id"
	keyDocumentID contextKey = "document_id"
)

// WithRequestID adds request ID to context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, keyRequestID, requestID)
}

// RequestID extracts request ID from context.
func RequestID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyRequestID).(string)
	return v, ok && v != ""
}

// WithUserID adds user ID to context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, keyUserID, userID)
}

// UserID extracts user ID from context.
func UserID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyUserID).(string)
	return v, ok && v != ""
}

// WithDocumentID adds the document being processed or queried to context.
func WithDocumentID(ctx context.Context, documentID string) context.Context {
	return context.WithValue(ctx, keyDocumentID, documentID)
}

// DocumentID extracts document ID from context.
func DocumentID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyDocumentID).(string)
	return v, ok && v != ""
}
