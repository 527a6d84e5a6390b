package auth

import (
	"context"
	"net/http"
)

// DefaultCookieName — имя куки, из которой берётся bearer-токен.
const DefaultCookieName = "token"

type tokenKey struct{}

func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// FromContext возвращает токен запроса или "" — отсутствие куки
// это не краш, а ошибка команды на границе бэкенд-клиента.
func FromContext(ctx context.Context) string {
	tok, _ := ctx.Value(tokenKey{}).(string)
	return tok
}

// Middleware перекладывает куку token в контекст запроса.
// Валидацию токена делает сам бэкенд, мы только транспортируем.
func Middleware(cookieName string) func(http.Handler) http.Handler {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
				r = r.WithContext(WithToken(r.Context(), c.Value))
			}
			next.ServeHTTP(w, r)
		})
	}
}
