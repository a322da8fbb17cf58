package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"smartcommerce/internal/config"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

const (
	CtxUserIDKey       = "user_id"       // int64
	CtxUserRoleKey     = "user_role"     // string
	CtxTokenVersionKey = "token_version" // int
)

var errInvalidClaims = errors.New("invalid claims")

// アクセストークンから取り出した本人情報
type Principal struct {
	UserID       int64
	Role         string
	TokenVersion int
}

// bearerAuth用のJWT検証ミドルウェア。
// 発行はこのサービスの外（認証サービス）で、ここでは署名と中身だけ確認する。
func AuthJWT(cfg config.Config) echo.MiddlewareFunc {
	secret := []byte(cfg.JWTSecret)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c.Request().Header.Get("Authorization"))
			if !ok {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			p, err := ParseAccessToken(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			//contextへ保存
			c.Set(CtxUserIDKey, p.UserID)
			c.Set(CtxUserRoleKey, p.Role)
			c.Set(CtxTokenVersionKey, p.TokenVersion)

			return next(c)
		}
	}
}

// "Bearer xxx" からtokenを抜く
func bearerToken(authz string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(authz), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// HS256のみ受け付ける。sub / role / tv が揃っていなければエラー
func ParseAccessToken(secret []byte, raw string) (Principal, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Principal{}, err
	}
	if !token.Valid {
		return Principal{}, errInvalidClaims
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Principal{}, errInvalidClaims
	}

	userID, err := claimInt64(claims["sub"])
	if err != nil || userID <= 0 {
		return Principal{}, errInvalidClaims
	}
	role, ok := claims["role"].(string)
	if !ok || role == "" {
		return Principal{}, errInvalidClaims
	}
	tv, err := claimInt64(claims["tv"])
	if err != nil || tv < 0 {
		return Principal{}, errInvalidClaims
	}

	return Principal{UserID: userID, Role: role, TokenVersion: int(tv)}, nil
}

// JSONの数値はfloat64で来る。文字列のsubも許す
func claimInt64(v interface{}) (int64, error) {
	switch t := v.(type) {
	case float64:
		return int64(t), nil
	case string:
		return strconv.ParseInt(t, 10, 64)
	default:
		return 0, errInvalidClaims
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func errorJSON(msg string) errorResponse {
	return errorResponse{Error: msg}
}
