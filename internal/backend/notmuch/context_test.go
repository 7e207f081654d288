package notmuch

import (
	"testing"

	"github.com/fenilsonani/mailcore/internal/model"
)

func TestFlagTagSeenIsInverted(t *testing.T) {
	tag, add := flagTag(model.FlagSeen)
	if tag != "unread" || add {
		t.Errorf("flagTag(Seen) = (%q, %v), want (\"unread\", false)", tag, add)
	}
}

func TestFlagTagRegular(t *testing.T) {
	cases := []struct {
		flag model.Flag
		tag  string
	}{
		{model.FlagAnswered, "replied"},
		{model.FlagFlagged, "flagged"},
		{model.FlagDraft, "draft"},
		{model.FlagDeleted, "deleted"},
	}
	for _, c := range cases {
		tag, add := flagTag(c.flag)
		if tag != c.tag || !add {
			t.Errorf("flagTag(%v) = (%q, %v), want (%q, true)", c.flag, tag, add, c.tag)
		}
	}
}

func TestFlagTagCustomPassesThrough(t *testing.T) {
	tag, add := flagTag(model.FlagCustom("important"))
	if tag != "important" || !add {
		t.Errorf("flagTag(Custom) = (%q, %v), want (\"important\", true)", tag, add)
	}
}

func TestBuilderCloneIsIndependent(t *testing.T) {
	b := NewBuilder("/tmp/nm.db", "/tmp/mail")
	clone := b.Clone().(*Builder)
	if clone.dbPath != b.dbPath || clone.maildirRoot != b.maildirRoot {
		t.Errorf("clone = %+v, want copy of %+v", clone, b)
	}
}

func TestFeatureReturnsNilForUnknown(t *testing.T) {
	b := NewBuilder("/tmp/nm.db", "/tmp/mail")
	if f := b.Feature("not-a-real-feature"); f != nil {
		t.Error("Feature() for unknown name should be nil")
	}
}
