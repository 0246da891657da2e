package classify

import (
	"testing"

	"github.com/hanzltom/cloud-db/internal/envelope"
)

func TestClassifySelect(t *testing.T) {
	qt, err := Classify("SELECT * FROM actor WHERE id=1")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if qt != envelope.QueryTypeSelect {
		t.Errorf("qt = %q, want select", qt)
	}
}

func TestClassifyInsert(t *testing.T) {
	qt, err := Classify("INSERT INTO actor (name) VALUES ('Bob')")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if qt != envelope.QueryTypeInsert {
		t.Errorf("qt = %q, want insert", qt)
	}
}

func TestClassifyRejectsOtherVerbs(t *testing.T) {
	if _, err := Classify("DELETE FROM actor WHERE id=1"); err != ErrUnclassifiable {
		t.Errorf("err = %v, want ErrUnclassifiable", err)
	}
	if _, err := Classify(""); err != ErrUnclassifiable {
		t.Errorf("err = %v, want ErrUnclassifiable for empty query", err)
	}
}
