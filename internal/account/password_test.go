package account

import "testing"

func TestPasswordHashAndVerify(t *testing.T) {
	salt, err := GenerateSaltHex()
	if err != nil {
		t.Fatalf("GenerateSaltHex: %v", err)
	}
	hash, err := HashPassword("s3cret", salt)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !VerifyPassword("s3cret", salt, hash) {
		t.Fatalf("expected verify ok")
	}
	if VerifyPassword("wrong", salt, hash) {
		t.Fatalf("expected verify fail for wrong password")
	}

	otherSalt, err := GenerateSaltHex()
	if err != nil {
		t.Fatalf("GenerateSaltHex: %v", err)
	}
	if VerifyPassword("s3cret", otherSalt, hash) {
		t.Fatalf("expected verify fail for wrong salt")
	}
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	salt, err := GenerateSaltHex()
	if err != nil {
		t.Fatalf("GenerateSaltHex: %v", err)
	}
	if _, err := HashPassword("", salt); err == nil {
		t.Fatalf("expected error for empty password")
	}
	if _, err := HashPassword("x", "zz-not-hex"); err == nil {
		t.Fatalf("expected error for bad salt")
	}
}

func TestRolesRoundTrip(t *testing.T) {
	p := &Participant{Roles: RolesJoin([]string{RoleCustomer, RoleAdmin})}
	got := p.RolesSlice()
	if len(got) != 2 || got[0] != RoleCustomer || got[1] != RoleAdmin {
		t.Fatalf("roles round trip mismatch: %#v", got)
	}
}
