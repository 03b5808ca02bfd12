package store

import (
	"testing"

	"github.com/memflow/memflow/memory"
)

func TestFilterMatches(t *testing.T) {
	entry := memory.NewEntry("a fact", memory.TypeSemantic)
	entry.UserID = "alice"
	entry.SessionID = "s1"
	entry.Tags = []string{"work", "preference"}

	if !(Filter{}).Matches(entry) {
		t.Error("Zero filter should match everything")
	}
	if !(Filter{UserID: "alice", SessionID: "s1"}).Matches(entry) {
		t.Error("Matching user and session should pass")
	}
	if (Filter{UserID: "bob"}).Matches(entry) {
		t.Error("Wrong user should not match")
	}
	if !(Filter{Types: []memory.MemoryType{memory.TypeEpisodic, memory.TypeSemantic}}).Matches(entry) {
		t.Error("Any listed type should match")
	}
	if (Filter{Types: []memory.MemoryType{memory.TypeEpisodic}}).Matches(entry) {
		t.Error("Unlisted type should not match")
	}
	if !(Filter{Tags: []string{"work"}}).Matches(entry) {
		t.Error("Subset of tags should match")
	}
	if (Filter{Tags: []string{"work", "missing"}}).Matches(entry) {
		t.Error("Missing tag should not match")
	}
}
