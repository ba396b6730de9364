package enums

import "testing"

func TestParseOrderStatus(t *testing.T) {
	for _, raw := range []string{"unpaid", "paid", "success"} {
		status, err := ParseOrderStatus(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if !status.IsValid() || status.String() != raw {
			t.Fatalf("unexpected status %q", status)
		}
	}
	if _, err := ParseOrderStatus("refunded"); err == nil {
		t.Fatal("expected unknown status to fail")
	}
}

func TestParseGenderIsCaseInsensitive(t *testing.T) {
	g, err := ParseGender(" Female ")
	if err != nil {
		t.Fatalf("parse gender: %v", err)
	}
	if g != GenderFemale {
		t.Fatalf("expected female got %s", g)
	}
	if _, err := ParseGender("unisex"); err == nil {
		t.Fatal("expected unknown gender to fail")
	}
}

func TestParseUserRole(t *testing.T) {
	if r, err := ParseUserRole("admin"); err != nil || r != UserRoleAdmin {
		t.Fatalf("expected admin role, got %q err=%v", r, err)
	}
	if UserRole("owner").IsValid() {
		t.Fatal("owner is not an account role")
	}
}
