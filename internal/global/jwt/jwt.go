package jwt

import (
	"time"

	"yqpoint-system/config"
	"yqpoint-system/internal/model"

	"github.com/golang-jwt/jwt"
)

// 角色等级，Auth 中间件按最低等级放行
const (
	RolePerson = 1
	RoleOrg    = 2
	RoleAdmin  = 3
)

// Payload 登录后签发的身份信息，签发本身由外部认证服务完成
type Payload struct {
	AccountKind model.AccountKind `json:"account_kind"`
	AccountID   uint              `json:"account_id"`
	RoleID      int               `json:"role_id"`
}

type Claims struct {
	Payload
	jwt.StandardClaims
}

// Ref 当前登录账户的账本引用
func (c *Claims) Ref() model.Ref {
	return model.Ref{Kind: c.AccountKind, ID: c.AccountID}
}

func CreateToken(payload Payload) string {
	cfg := config.Get().JWT
	now := time.Now()
	claims := Claims{
		Payload: payload,
		StandardClaims: jwt.StandardClaims{
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(time.Duration(cfg.AccessExpire) * time.Second).Unix(),
			Issuer:    "yqpoint-system",
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.AccessSecret))
	if err != nil {
		return ""
	}
	return token
}

func ParseToken(token string) (*Claims, bool) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(config.Get().JWT.AccessSecret), nil
	})
	if err != nil || !parsed.Valid {
		return nil, false
	}
	return claims, true
}
