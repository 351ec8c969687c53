package middleware_test

import (
	"context"
	"crypto/rand"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/pmguide/pkg/adapters/memory"
	"github.com/aretw0/pmguide/pkg/domain"
	"github.com/aretw0/pmguide/pkg/persistence/middleware"
	"github.com/aretw0/pmguide/pkg/ports"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, k); err != nil {
		t.Fatal(err)
	}
	return k
}

func mustEncrypt(t *testing.T, cfg middleware.EncryptionConfig) middleware.Middleware {
	t.Helper()
	mw, err := middleware.NewEncryptionMiddleware(cfg)
	if err != nil {
		t.Fatalf("NewEncryptionMiddleware: %v", err)
	}
	return mw
}

func sampleContext(sessionID, content string) *domain.ConversationContext {
	cc := domain.NewConversationContext(sessionID)
	cc.UserID = "user-1"
	cc.History = append(cc.History,
		domain.Turn{Role: domain.RoleUser, Content: content, Timestamp: time.Unix(100, 0).UTC()},
	)
	cc.Progress.CurrentStep = "document_preparation"
	return cc
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlying := memory.NewStore()
	secure := mustEncrypt(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlying)

	ctx := context.Background()
	sessionID := "test-session"
	original := sampleContext(sessionID, "社内の秘密情報")

	if err := secure.Save(ctx, sessionID, original); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	stored, err := underlying.Load(ctx, sessionID)
	if err != nil {
		t.Fatalf("Underlying load failed: %v", err)
	}
	if len(stored.History) != 0 || stored.UserID != "" {
		t.Fatalf("Expected envelope to hide history and user, got %+v", stored)
	}
	if stored.Progress.CurrentStep != domain.StepInitial {
		t.Errorf("Expected envelope progress to be reset, got %q", stored.Progress.CurrentStep)
	}
	if _, ok := stored.Preferences[middleware.EnvelopeKey]; !ok {
		t.Fatal("Expected envelope key in preferences")
	}

	loaded, err := secure.Load(ctx, sessionID)
	if err != nil {
		t.Fatalf("Load via middleware failed: %v", err)
	}
	if loaded.History[0].Content != "社内の秘密情報" || loaded.UserID != "user-1" {
		t.Errorf("Unexpected decrypted context: %+v", loaded)
	}
	if loaded.Progress.CurrentStep != "document_preparation" {
		t.Errorf("Expected progress to survive, got %q", loaded.Progress.CurrentStep)
	}
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlying := memory.NewStore()
	oldKey := generateKey(t)
	newKey := generateKey(t)

	secureOld := mustEncrypt(t, middleware.EncryptionConfig{ActiveKey: oldKey})(underlying)

	ctx := context.Background()
	sessionID := "rotation-session"

	if err := secureOld.Save(ctx, sessionID, sampleContext(sessionID, "old-key")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	secureNew := mustEncrypt(t, middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})(underlying)

	loaded, err := secureNew.Load(ctx, sessionID)
	if err != nil {
		t.Fatalf("Load with rotated key failed: %v", err)
	}
	if loaded.History[0].Content != "old-key" {
		t.Errorf("Decryption with fallback key failed")
	}

	loaded.History[0].Content = "new-key"
	if err := secureNew.Save(ctx, sessionID, loaded); err != nil {
		t.Fatalf("Save with new key failed: %v", err)
	}

	if _, err := secureOld.Load(ctx, sessionID); err == nil {
		t.Error("Expected failure when loading new-key encryption with old-key middleware")
	}
}

func TestEncryptionMiddleware_PlainContextRejected(t *testing.T) {
	underlying := memory.NewStore()
	secure := mustEncrypt(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlying)

	ctx := context.Background()
	if err := underlying.Save(ctx, "plain", sampleContext("plain", "hello")); err != nil {
		t.Fatal(err)
	}
	if _, err := secure.Load(ctx, "plain"); !errors.Is(err, middleware.ErrNotEncrypted) {
		t.Errorf("Expected ErrNotEncrypted, got %v", err)
	}
	if _, err := secure.Load(ctx, "missing"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	_, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
	if err == nil || !strings.Contains(err.Error(), "32 bytes") {
		t.Errorf("Expected key size error, got %v", err)
	}

	_, err = middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    generateKey(t),
		FallbackKeys: [][]byte{[]byte("short")},
	})
	if err == nil {
		t.Error("Expected error for invalid fallback key")
	}
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	ports.RunContextStoreContract(t, mustEncrypt(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)})(memory.NewStore()))
}
