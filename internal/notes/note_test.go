package notes

import "testing"

func TestDeterministicNoteIDStable(t *testing.T) {
	a := DeterministicNoteID(11155111, "0xABC123", 4, ActionSwap)
	b := DeterministicNoteID(11155111, "0xabc123", 4, ActionSwap)
	if a != b {
		t.Fatalf("note id must be case-insensitive on tx_hash: %s != %s", a, b)
	}

	c := DeterministicNoteID(11155111, "0xabc123", 5, ActionSwap)
	if a == c {
		t.Fatalf("note id must differ when log_index differs")
	}

	d := DeterministicNoteID(97, "0xabc123", 4, ActionSwap)
	if a == d {
		t.Fatalf("note id must differ when chain_id differs")
	}
}

func TestDeriveTxIDStable(t *testing.T) {
	a := DeriveTxID(11155111, "0xABC123", "note-1")
	b := DeriveTxID(11155111, "0xabc123", "note-1")
	if a != b {
		t.Fatalf("tx id must be case-insensitive on tx_hash: %s != %s", a, b)
	}

	c := DeriveTxID(11155111, "0xabc123", "note-2")
	if a == c {
		t.Fatalf("tx id must differ when note_id differs")
	}
}

func TestValidActionsMembership(t *testing.T) {
	for action := range ValidActions {
		if action == "" {
			t.Fatal("empty action must not be a member")
		}
	}
	if ValidActions["NOT_A_REAL_ACTION"] {
		t.Fatal("unknown action must not be a member")
	}
}

func TestRandomIDUnique(t *testing.T) {
	a := RandomID()
	b := RandomID()
	if a == b {
		t.Fatal("two calls to RandomID must not collide")
	}
}
