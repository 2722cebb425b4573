package services

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

const (
	TokenTypeSession = "session"
	TokenTypeAdmin   = "admin"
	TokenTypeGrant   = "grant"
)

// TokenService signs and verifies the HS256 tokens carried in cookies:
// user sessions, admin sessions and the short-lived access grant issued
// after a code is redeemed.
type TokenService struct {
	Secret     []byte
	Issuer     string
	SessionTTL time.Duration
	GrantTTL   time.Duration
}

// Claims is the verified content of a token.
type Claims struct {
	Type     string
	Subject  string
	Username string
	Code     string
	IsAdmin  bool
	IssuedAt time.Time
	Expires  time.Time
}

func (t TokenService) HashPassword(raw string) (string, error) {
	return hashArgon2id(raw)
}

// VerifyPassword checks raw against an argon2id hash. bcrypt hashes, such as
// an admin row written by hand with htpasswd, are accepted too.
func (t TokenService) VerifyPassword(raw, hashed string) bool {
	if strings.HasPrefix(hashed, "$argon2") {
		return verifyArgon2id(raw, hashed)
	}
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(raw)) == nil
}

func (t TokenService) CreateSessionToken(userID, username string) (string, time.Time, error) {
	return t.sign(jwt.MapClaims{
		"sub":      userID,
		"typ":      TokenTypeSession,
		"username": username,
	}, t.SessionTTL)
}

func (t TokenService) CreateAdminToken(adminID, username string) (string, time.Time, error) {
	return t.sign(jwt.MapClaims{
		"sub":      adminID,
		"typ":      TokenTypeAdmin,
		"username": username,
		"isAdmin":  true,
	}, t.SessionTTL)
}

func (t TokenService) CreateAccessGrant(code string) (string, time.Time, error) {
	return t.sign(jwt.MapClaims{
		"typ":  TokenTypeGrant,
		"code": code,
	}, t.GrantTTL)
}

func (t TokenService) sign(claims jwt.MapClaims, ttl time.Duration) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims["iss"] = t.Issuer
	claims["iat"] = now.Unix()
	claims["exp"] = exp.Unix()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.Secret)
	return signed, exp, err
}

func (t TokenService) ParseToken(tokenStr string) (*jwt.Token, jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return t.Secret, nil
	}, jwt.WithIssuer(t.Issuer), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	return token, claims, err
}

// Verify parses tokenStr and checks that it is of the wanted type.
func (t TokenService) Verify(tokenStr, wantType string) (Claims, error) {
	token, raw, err := t.ParseToken(tokenStr)
	if err != nil || !token.Valid {
		return Claims{}, ErrUnauthorized(MsgTokenInvalid)
	}
	claims := Claims{}
	claims.Type, _ = raw["typ"].(string)
	claims.Subject, _ = raw["sub"].(string)
	claims.Username, _ = raw["username"].(string)
	claims.Code, _ = raw["code"].(string)
	claims.IsAdmin, _ = raw["isAdmin"].(bool)
	if iat, err := raw.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	}
	if exp, err := raw.GetExpirationTime(); err == nil && exp != nil {
		claims.Expires = exp.Time
	}
	if claims.Type != wantType {
		return Claims{}, ErrUnauthorized(MsgTokenInvalid)
	}
	return claims, nil
}

type argon2Params struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
	saltLength  int
	keyLength   int
}

func hashArgon2id(raw string) (string, error) {
	params := argon2Params{
		memory:      65536,
		iterations:  3,
		parallelism: 1,
		saltLength:  16,
		keyLength:   32,
	}
	salt := make([]byte, params.saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := argon2.IDKey([]byte(raw), salt, params.iterations, params.memory, params.parallelism, uint32(params.keyLength))
	b64Salt := base64.RawStdEncoding.EncodeToString(salt)
	b64Key := base64.RawStdEncoding.EncodeToString(key)
	return "$argon2id$v=19$m=" + strconv.FormatUint(uint64(params.memory), 10) +
		",t=" + strconv.FormatUint(uint64(params.iterations), 10) +
		",p=" + strconv.FormatUint(uint64(params.parallelism), 10) +
		"$" + b64Salt + "$" + b64Key, nil
}

func verifyArgon2id(raw, encoded string) bool {
	params, salt, hash, err := decodeArgon2id(encoded)
	if err != nil {
		return false
	}
	key := argon2.IDKey([]byte(raw), salt, params.iterations, params.memory, params.parallelism, uint32(params.keyLength))
	return subtle.ConstantTimeCompare(hash, key) == 1
}

func decodeArgon2id(encoded string) (argon2Params, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return argon2Params{}, nil, nil, errors.New("invalid hash format")
	}
	var params argon2Params
	if !strings.HasPrefix(parts[1], "argon2") {
		return argon2Params{}, nil, nil, errors.New("invalid hash type")
	}
	paramValues := strings.Split(parts[3], ",")
	for _, kv := range paramValues {
		pair := strings.SplitN(kv, "=", 2)
		if len(pair) != 2 {
			continue
		}
		switch pair[0] {
		case "m":
			value, _ := strconv.ParseUint(pair[1], 10, 32)
			params.memory = uint32(value)
		case "t":
			value, _ := strconv.ParseUint(pair[1], 10, 32)
			params.iterations = uint32(value)
		case "p":
			value, _ := strconv.ParseUint(pair[1], 10, 8)
			params.parallelism = uint8(value)
		}
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return argon2Params{}, nil, nil, err
	}
	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return argon2Params{}, nil, nil, err
	}
	params.saltLength = len(salt)
	params.keyLength = len(hash)
	return params, salt, hash, nil
}
