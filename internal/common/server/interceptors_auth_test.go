package server

import (
	"context"
	"testing"
	"time"

	"github.com/FreightLink/FreightLink/internal/common/apperrors"
	"github.com/FreightLink/FreightLink/internal/common/config"
	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func signTestToken(t *testing.T, cfg config.AuthConfig, subject string, roles []string) string {
	t.Helper()
	now := time.Now()
	claims := struct {
		Roles []string `json:"roles"`
		jwt.RegisteredClaims
	}{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    cfg.Issuer,
			Audience:  jwt.ClaimStrings{cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestUnaryJWTAuthInterceptorAndRBAC(t *testing.T) {
	authCfg := config.AuthConfig{
		Enabled:   true,
		JWTSecret: "test-secret",
		Issuer:    "freightlink",
		Audience:  "freightlink",
		RBAC: map[string][]string{
			"/freightlink.Marketplace/ApproveBooking": {"admin"},
			"/freightlink.Marketplace/GetBooking":     {},
		},
	}

	authIC := UnaryJWTAuthInterceptor(authCfg, nil)
	rbacIC := UnaryRBACInterceptor(authCfg)
	chain := UnaryChain(authIC, rbacIC)

	tokenStr := signTestToken(t, authCfg, "p-1", []string{"customer", "admin"})
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer "+tokenStr))
	info := &grpc.UnaryServerInfo{FullMethod: "/freightlink.Marketplace/ApproveBooking"}

	_, err := chain(ctx, nil, info, func(ctx context.Context, req any) (any, error) {
		ai, ok := AuthFromContext(ctx)
		if !ok {
			t.Fatalf("missing auth info in ctx")
		}
		if ai.Subject != "p-1" {
			t.Fatalf("subject mismatch: %s", ai.Subject)
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("expected allow, got err=%v", err)
	}

	// 只有 customer 角色的 token，应被 RBAC 拒绝
	tokenStr2 := signTestToken(t, authCfg, "p-2", []string{"customer"})
	ctx2 := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer "+tokenStr2))

	_, err = chain(ctx2, nil, info, func(ctx context.Context, req any) (any, error) {
		return "ok", nil
	})
	if err == nil {
		t.Fatalf("expected permission denied, got nil")
	}

	// 无 token 直接拒绝
	_, err = chain(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
		return "ok", nil
	})
	if err == nil {
		t.Fatalf("expected unauthenticated, got nil")
	}
}

func TestUnaryErrorMappingInterceptor(t *testing.T) {
	ic := UnaryErrorMappingInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/freightlink.Marketplace/GetBooking"}

	cases := []struct {
		err  error
		want codes.Code
	}{
		{apperrors.NotFound("booking.Get", "booking", "b-1"), codes.NotFound},
		{apperrors.Conflict("payment.Release", "payment", "pay-1", "already released"), codes.AlreadyExists},
		{apperrors.InsufficientFunds("wallet.Debit", "acc-1", 100, 1), codes.FailedPrecondition},
		{apperrors.InvalidTransition("booking.Cancel", "booking", "b-1", "DELIVERED", "CANCELLED"), codes.FailedPrecondition},
		{apperrors.Validationf("booking.Create", "amount must be positive"), codes.InvalidArgument},
	}

	for _, tc := range cases {
		_, err := ic(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
			return nil, tc.err
		})
		st, ok := status.FromError(err)
		if !ok {
			t.Fatalf("expected grpc status for %v", tc.err)
		}
		if st.Code() != tc.want {
			t.Fatalf("code mismatch for %v: got %v want %v", tc.err, st.Code(), tc.want)
		}
	}

	// 无错误时原样透传
	resp, err := ic(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
		return "ok", nil
	})
	if err != nil || resp != "ok" {
		t.Fatalf("expected pass-through, got resp=%v err=%v", resp, err)
	}
}
