package auth

import (
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)
	token, expiresAt, err := tm.GenerateToken("tr-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if time.Until(expiresAt) > time.Hour || time.Until(expiresAt) < 59*time.Minute {
		t.Fatalf("unexpected expiry %v", expiresAt)
	}

	claims, err := tm.ParseToken(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.TranscriptID != "tr-1" || claims.Scope != ScopeTranscriptRead {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestTokenManager_RejectsExpired(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)
	issued := time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)
	tm.now = func() time.Time { return issued }
	token, _, err := tm.GenerateToken("tr-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	tm.now = func() time.Time { return issued.Add(2 * time.Hour) }
	if _, err := tm.ParseToken(token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestTokenManager_RejectsOtherSecret(t *testing.T) {
	token, _, err := NewTokenManager("secret", time.Hour).GenerateToken("tr-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := NewTokenManager("other", time.Hour).ParseToken(token); err == nil {
		t.Fatal("expected signature mismatch")
	}
}

func TestTranscriptLinks(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)

	link, err := NewTranscriptLinks(tm, "").TranscriptURL("tr-1")
	if err != nil || link != "" {
		t.Fatalf("expected disabled links, got %q, %v", link, err)
	}

	link, err = NewTranscriptLinks(tm, "https://bot.example/").TranscriptURL("tr-1")
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	if !strings.HasPrefix(link, "https://bot.example/transcripts/tr-1?token=") {
		t.Fatalf("unexpected link %q", link)
	}
	parsed, err := url.Parse(link)
	if err != nil {
		t.Fatalf("parse link: %v", err)
	}
	claims, err := tm.ParseToken(parsed.Query().Get("token"))
	if err != nil || claims.TranscriptID != "tr-1" {
		t.Fatalf("link token invalid: %+v, %v", claims, err)
	}
}
