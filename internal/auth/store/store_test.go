package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/explanner/planner-client/internal/auth/credfile"
	"github.com/explanner/planner-client/internal/auth/model"
	"github.com/explanner/planner-client/internal/auth/token"
)

func accessToken(t *testing.T, sub string, exp time.Time) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": exp.Unix(),
		"iat": time.Now().Unix(),
	}).SignedString([]byte("test-key"))
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

func newFile(t *testing.T) *credfile.File {
	t.Helper()
	return credfile.New(filepath.Join(t.TempDir(), "authTokens.json"))
}

func TestStore_SetDerivesIdentityAndPersists(t *testing.T) {
	file := newFile(t)
	s := New(file, zap.NewNop())
	if s.Authenticated() {
		t.Fatal("fresh store must start unauthenticated")
	}

	pair := model.TokenPair{
		AccessToken:  accessToken(t, "staff01", time.Now().Add(time.Hour)),
		RefreshToken: "refresh-1",
	}
	if err := s.Set(pair); err != nil {
		t.Fatal(err)
	}

	id, ok := s.Identity()
	if !ok || id.Subject != "staff01" {
		t.Fatalf("want identity staff01, got %+v ok=%v", id, ok)
	}
	persisted, err := file.Load()
	if err != nil {
		t.Fatal(err)
	}
	if persisted != pair {
		t.Fatalf("persisted record %+v does not match pair %+v", persisted, pair)
	}
}

func TestStore_RoundTripRehydration(t *testing.T) {
	file := newFile(t)
	pair := model.TokenPair{
		AccessToken:  accessToken(t, "staff01", time.Now().Add(time.Hour)),
		RefreshToken: "refresh-1",
	}

	first := New(file, zap.NewNop())
	if err := first.Set(pair); err != nil {
		t.Fatal(err)
	}

	// A new store built from the same file must yield the same identity as
	// decoding the access token directly.
	second := New(file, zap.NewNop())
	got, ok := second.Identity()
	if !ok {
		t.Fatal("expected rehydrated session")
	}
	want, err := token.Decode(pair.AccessToken)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("want %+v, got %+v", want, got)
	}
}

func TestStore_RehydrationFailsSoft(t *testing.T) {
	path := filepath.Join(t.TempDir(), "authTokens.json")
	if err := os.WriteFile(path, []byte("not json at all"), 0o600); err != nil {
		t.Fatal(err)
	}

	s := New(credfile.New(path), zap.NewNop())
	if s.Authenticated() {
		t.Fatal("malformed persisted data must yield an empty session")
	}
}

func TestStore_RehydrationUndecodableToken(t *testing.T) {
	file := newFile(t)
	if err := file.Save(model.TokenPair{AccessToken: "garbage", RefreshToken: "r"}); err != nil {
		t.Fatal(err)
	}

	s := New(file, zap.NewNop())
	if s.Authenticated() {
		t.Fatal("undecodable access token must yield an empty session")
	}
}

func TestStore_ClearIdempotent(t *testing.T) {
	file := newFile(t)
	s := New(file, zap.NewNop())
	if err := s.Set(model.TokenPair{
		AccessToken:  accessToken(t, "staff01", time.Now().Add(time.Hour)),
		RefreshToken: "refresh-1",
	}); err != nil {
		t.Fatal(err)
	}

	s.Clear()
	s.Clear()

	if s.Authenticated() {
		t.Fatal("store must be empty after clear")
	}
	if _, err := file.Load(); err == nil {
		t.Fatal("persisted record must be gone after clear")
	}
}

func TestStore_SetPanicsOnUndecodableToken(t *testing.T) {
	s := New(newFile(t), zap.NewNop())
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for undecodable access token")
		}
	}()
	_ = s.Set(model.TokenPair{AccessToken: "garbage", RefreshToken: "r"})
}
