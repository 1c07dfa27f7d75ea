package internal

import "context"

type ctxKey string

const (
	ContextChatKey    ctxKey = "chatID"
	ContextSubjectKey ctxKey = "subject"
)

// ChatIDFromContext returns the conversation the current unit of work belongs to.
func ChatIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if chatID, ok := ctx.Value(ContextChatKey).(string); ok {
		return chatID
	}
	return ""
}

func ContextWithChatID(ctx context.Context, chatID string) context.Context {
	return context.WithValue(ctx, ContextChatKey, chatID)
}

// SubjectFromContext returns the authenticated gateway client, if any.
func SubjectFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if sub, ok := ctx.Value(ContextSubjectKey).(string); ok {
		return sub
	}
	return ""
}

func ContextWithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, ContextSubjectKey, subject)
}
