package auth

import (
	"errors"
	"net/url"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// ScopeTranscriptRead is the only scope transcript links carry.
const ScopeTranscriptRead = "transcript:read"

// TokenManager handles issuing and validating signed transcript links.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Claims describes JWT payload.
type Claims struct {
	TranscriptID string `json:"tid"`
	Scope        string `json:"scope"`
	jwt.RegisteredClaims
}

// GenerateToken signs a read token for one transcript.
func (tm *TokenManager) GenerateToken(transcriptID string) (string, time.Time, error) {
	issuedAt := tm.now()
	expiresAt := issuedAt.Add(tm.ttl)
	claims := &Claims{
		TranscriptID: transcriptID,
		Scope:        ScopeTranscriptRead,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   transcriptID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseToken validates and returns claims.
func (tm *TokenManager) ParseToken(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	}, jwt.WithTimeFunc(tm.now))
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.Scope != ScopeTranscriptRead || claims.TranscriptID == "" {
		return nil, errors.New("token not valid for transcripts")
	}
	return claims, nil
}

// TranscriptLinks renders viewer URLs for archived transcripts.
type TranscriptLinks struct {
	tokens  *TokenManager
	baseURL string
}

// NewTranscriptLinks returns a link builder. An empty baseURL disables links.
func NewTranscriptLinks(tokens *TokenManager, baseURL string) *TranscriptLinks {
	return &TranscriptLinks{tokens: tokens, baseURL: strings.TrimRight(baseURL, "/")}
}

// TranscriptURL returns the signed viewer URL, or "" when links are disabled.
func (l *TranscriptLinks) TranscriptURL(transcriptID string) (string, error) {
	if l == nil || l.baseURL == "" || l.tokens == nil {
		return "", nil
	}
	token, _, err := l.tokens.GenerateToken(transcriptID)
	if err != nil {
		return "", err
	}
	return l.baseURL + "/transcripts/" + url.PathEscape(transcriptID) + "?token=" + url.QueryEscape(token), nil
}
