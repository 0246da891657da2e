package validation

import "testing"

func TestValidateForbiddenKeyword(t *testing.T) {
	c := NewChecker(nil)
	ok, reason := c.Validate("DROP TABLE actor", true)
	if ok {
		t.Fatal("expected DROP TABLE to be rejected")
	}
	if reason != "Possible SQL injection detected" {
		t.Errorf("reason = %q", reason)
	}
}

func TestValidateSQLCommentMarker(t *testing.T) {
	c := NewChecker(nil)
	ok, _ := c.Validate("SELECT * FROM actor WHERE id=1 -- drop rest", true)
	if ok {
		t.Fatal("expected -- comment marker to be rejected")
	}
}

func TestValidateMissingWhere(t *testing.T) {
	c := NewChecker(nil)
	ok, reason := c.Validate("SELECT * FROM actor", true)
	if ok {
		t.Fatal("expected missing WHERE clause to be rejected")
	}
	if reason != "Missing where in query" {
		t.Errorf("reason = %q", reason)
	}
}

func TestValidateDeleteRequiresWhere(t *testing.T) {
	c := NewChecker(nil)
	ok, reason := c.Validate("DELETE FROM actor", true)
	if ok {
		t.Fatal("expected DELETE without WHERE to be rejected")
	}
	if reason != "Missing where in query" {
		t.Errorf("reason = %q", reason)
	}
}

func TestValidateTautology(t *testing.T) {
	c := NewChecker(nil)
	ok, reason := c.Validate("SELECT * FROM actor WHERE 1=1", true)
	if ok {
		t.Fatal("expected tautological condition to be rejected")
	}
	if reason != "Tautological condition 1=1 is prohibited." {
		t.Errorf("reason = %q", reason)
	}
}

func TestValidateNonTautologicalEqualityAllowed(t *testing.T) {
	c := NewChecker(nil)
	ok, reason := c.Validate("SELECT * FROM actor WHERE actor_id=5", true)
	if !ok {
		t.Fatalf("expected actor_id=5 to pass, got rejected: %s", reason)
	}
}

func TestValidateAuthorizationRequired(t *testing.T) {
	c := NewChecker(nil)
	ok, reason := c.Validate("INSERT INTO actor (name) VALUES ('x')", false)
	if ok {
		t.Fatal("expected missing authorization to be rejected")
	}
	if reason != "Authorization required" {
		t.Errorf("reason = %q", reason)
	}
}

func TestValidateLengthCap(t *testing.T) {
	c := NewChecker(nil)
	longQuery := "INSERT INTO actor (name) VALUES ('"
	for len(longQuery) <= maxQueryLength {
		longQuery += "x"
	}
	longQuery += "')"

	ok, reason := c.Validate(longQuery, true)
	if ok {
		t.Fatal("expected over-length query to be rejected")
	}
	if reason != "Query too large" {
		t.Errorf("reason = %q", reason)
	}
}

func TestValidateInsertPasses(t *testing.T) {
	c := NewChecker(nil)
	ok, reason := c.Validate("INSERT INTO actor (name) VALUES ('Bob')", true)
	if !ok {
		t.Fatalf("expected valid insert to pass, got rejected: %s", reason)
	}
}

func TestValidateStats(t *testing.T) {
	c := NewChecker(nil)
	c.Validate("INSERT INTO actor (name) VALUES ('Bob')", true)
	c.Validate("DROP TABLE actor", true)

	inspected, rejected := c.Stats()
	if inspected != 2 {
		t.Errorf("inspected = %d, want 2", inspected)
	}
	if rejected != 1 {
		t.Errorf("rejected = %d, want 1", rejected)
	}
}

func TestValidateRuleOrderingInjectionBeforeAuthorization(t *testing.T) {
	// A forbidden keyword must be caught even when authorization is also
	// missing -- injection screening runs before the authorization check.
	c := NewChecker(nil)
	_, reason := c.Validate("DROP TABLE actor", false)
	if reason != "Possible SQL injection detected" {
		t.Errorf("reason = %q, want injection rejection to take priority", reason)
	}
}
