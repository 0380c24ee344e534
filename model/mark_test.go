package model

import "testing"

func namesOf(set []*Mark) []string {
	var names []string
	for _, m := range set {
		names = append(names, m.Type.Name)
	}
	return names
}

func sameNames(a []string, b ...string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestAddToSetOrdering(t *testing.T) {
	if got := namesOf(strong().AddToSet([]*Mark{em()})); !sameNames(got, "em", "strong") {
		t.Errorf("strong added after em: %v", got)
	}
	if got := namesOf(em().AddToSet([]*Mark{strong()})); !sameNames(got, "em", "strong") {
		t.Errorf("em added before strong: %v", got)
	}
	set := []*Mark{em()}
	if got := em().AddToSet(set); len(got) != 1 {
		t.Errorf("adding a present mark changed the set: %v", namesOf(got))
	}
}

func TestAddToSetReplacesSameType(t *testing.T) {
	set := link("x").AddToSet([]*Mark{link("y")})
	if len(set) != 1 || set[0].Attrs["href"] != "x" {
		t.Errorf("adding a link did not replace the existing link: %v", set)
	}
}

func TestAddToSetExcludes(t *testing.T) {
	schema := MustSchema(&SchemaSpec{
		Nodes: []*NodeSpec{
			{Name: "doc", Content: "text*"},
			{Name: "text"},
		},
		Marks: []*MarkSpec{
			{Name: "big", Excludes: strOf("small")},
			{Name: "small"},
		},
	})
	big := schema.Mark("big", nil)
	small := schema.Mark("small", nil)

	if got := namesOf(big.AddToSet([]*Mark{small})); !sameNames(got, "big") {
		t.Errorf("big should displace small: %v", got)
	}
	if got := namesOf(small.AddToSet([]*Mark{big})); !sameNames(got, "big") {
		t.Errorf("small should not enter a set holding big: %v", got)
	}
}

func TestAddToSetReplacesLeadingMark(t *testing.T) {
	set := link("y").AddToSet([]*Mark{link("x"), strong()})
	if !sameNames(namesOf(set), "link", "strong") {
		t.Fatalf("replacing the leading link: %v", namesOf(set))
	}
	if set[0].Attrs["href"] != "y" {
		t.Errorf("old link survived: %v", set[0].Attrs)
	}
}

func TestRemoveFromSet(t *testing.T) {
	set := []*Mark{em(), strong()}
	if got := namesOf(em().RemoveFromSet(set)); !sameNames(got, "strong") {
		t.Errorf("RemoveFromSet = %v", got)
	}
	if got := link("x").RemoveFromSet(set); len(got) != 2 {
		t.Errorf("removing an absent mark changed the set: %v", namesOf(got))
	}
}

func TestIsInSet(t *testing.T) {
	set := []*Mark{em(), link("x")}
	if !em().IsInSet(set) {
		t.Errorf("em missing from its own set")
	}
	if link("y").IsInSet(set) {
		t.Errorf("link with different attrs should not match")
	}
	if !link("x").IsInSet(set) {
		t.Errorf("equal link not found")
	}
}

func TestMarkSetFrom(t *testing.T) {
	if got := namesOf(MarkSetFrom(strong(), em())); !sameNames(got, "em", "strong") {
		t.Errorf("MarkSetFrom did not sort by rank: %v", got)
	}
	if got := MarkSetFrom(); len(got) != 0 {
		t.Errorf("MarkSetFrom() = %v, want empty", got)
	}
}
