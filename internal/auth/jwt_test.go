package auth

import (
	"testing"
	"time"
)

func TestSessionRoundTrip(t *testing.T) {
	token, exp, err := IssueSession("student_T001", RoleStudent, "rollbook", "test-key", time.Hour)
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}
	if time.Until(exp) < 55*time.Minute {
		t.Errorf("expiry too soon: %v", exp)
	}

	claims, err := ParseSession(token, "test-key", "rollbook")
	if err != nil {
		t.Fatalf("ParseSession: %v", err)
	}
	if claims.Username != "student_T001" || claims.Role != "student" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestParseSessionRejects(t *testing.T) {
	token, _, err := IssueSession("u", RoleTutor, "rollbook", "test-key", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := ParseSession(token, "other-key", "rollbook"); err == nil {
		t.Error("wrong key accepted")
	}
	if _, err := ParseSession(token, "test-key", "someone-else"); err == nil {
		t.Error("issuer mismatch accepted")
	}
	if _, err := ParseSession("not.a.token", "test-key", "rollbook"); err == nil {
		t.Error("garbage token accepted")
	}

	expired, _, err := IssueSession("u", RoleTutor, "rollbook", "test-key", -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseSession(expired, "test-key", "rollbook"); err == nil {
		t.Error("expired token accepted")
	}
}
