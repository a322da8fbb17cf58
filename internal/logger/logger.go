// Package logger はlog/slogベースの構造化ロガー。
//
// 本番(GO_ENV=production)はJSON、それ以外はテキストで標準出力に出す。
// リクエスト単位のロガーはミドルウェアがctxに入れ、WithCtxで取り出す。
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
)

var L = New("development", os.Stdout)

// envに応じたハンドラでロガーを作る
func New(env string, w io.Writer) *slog.Logger {
	var handler slog.Handler
	switch env {
	case "production", "prod":
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	default:
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	return slog.New(handler)
}

// 起動時に1回呼ぶ。slogのデフォルトも差し替える
func Init(env string) *slog.Logger {
	L = New(env, os.Stdout)
	slog.SetDefault(L)
	return L
}

type ctxKey struct{}

// request_id付きのロガーをctxに入れる
func InjectLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

// ctxのロガー。無ければベースのロガー
func WithCtx(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if log, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && log != nil {
			return log
		}
	}
	return L
}

// テスト用に出力を捨てるロガー
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
