package auth

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/libman/internal/model"
)

// AnonymousSubject はアクセス制御無効時にVerifyが返す主体。
const AnonymousSubject = "anonymous"

// TokenServiceConfig はトークンサービスの設定。
type TokenServiceConfig struct {
	// Secret はHS256署名に使う共有鍵。
	Secret string
	// Enabled がfalseの場合、Verifyは検証せず常に成功する。
	// 起動時設定として明示的に渡す（プロセス全体のグローバル変数にはしない）。
	Enabled bool
}

// TokenService はベアラートークンの発行と検証を提供する。
// トークンはHS256署名のJWTで、subjectクレームにメールアドレスを載せる。
// 有効期限は設定しない。
type TokenService struct {
	secret  []byte
	enabled bool
}

// NewTokenService はTokenServiceを生成する。
func NewTokenService(config TokenServiceConfig) *TokenService {
	return &TokenService{
		secret:  []byte(config.Secret),
		enabled: config.Enabled,
	}
}

// Issue は指定主体のベアラートークンを発行する。
func (t *TokenService) Issue(subject string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
	})

	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// Verify はAuthorizationヘッダーの値を検証し、トークンの主体を返す。
// 欠落・不正な形式・署名不正・subjectクレームなしのすべてでUNAUTHORIZEDを返す。
// アクセス制御が無効な場合は検証せずAnonymousSubjectを返す。
func (t *TokenService) Verify(header string) (string, error) {
	if !t.enabled {
		return AnonymousSubject, nil
	}

	raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if raw == "" {
		return "", model.NewUnauthorizedError()
	}

	token, err := jwt.Parse(raw, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return "", model.NewUnauthorizedError()
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", model.NewUnauthorizedError()
	}
	subject, _ := claims["sub"].(string)
	if subject == "" {
		return "", model.NewUnauthorizedError()
	}

	return subject, nil
}
