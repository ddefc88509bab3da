// SPDX-License-Identifier: MIT

package keyset

import (
	"reflect"
	"testing"
)

func TestSet_WithWithoutHas(t *testing.T) {
	var s Set
	if !s.Empty() {
		t.Fatal("zero Set should be empty")
	}

	s = s.With(Dot1).With(Space)
	if !s.Has(Dot1) || !s.Has(Space) {
		t.Fatalf("expected Dot1 and Space in %v", s)
	}
	if s.Has(Dot2) {
		t.Fatalf("did not expect Dot2 in %v", s)
	}

	s = s.Without(Dot1)
	if s.Has(Dot1) {
		t.Fatalf("expected Dot1 removed from %v", s)
	}
	if !s.Has(Space) {
		t.Fatalf("expected Space to remain in %v", s)
	}
}

func TestSet_UnknownIsNoOp(t *testing.T) {
	s := Of(Unknown)
	if !s.Empty() {
		t.Fatalf("Unknown must not contribute to a Set, got %v", s)
	}
	if s.With(Unknown) != s {
		t.Fatal("With(Unknown) must be a no-op")
	}
	if s.Without(Unknown) != s {
		t.Fatal("Without(Unknown) must be a no-op")
	}
}

func TestSet_Equality(t *testing.T) {
	a := Of(Dot1, Dot2)
	b := Of(Dot2, Dot1)
	if a != b {
		t.Fatalf("set equality must be order-independent: %v != %v", a, b)
	}
}

func TestSet_MembersCanonicalOrder(t *testing.T) {
	s := Of(Space, Dot8, Dot1)
	got := s.Members()
	want := []KeyMember{Dot1, Dot8, Space}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Members() = %v, want %v", got, want)
	}
}

func TestSet_DotsAndSpaceRoundTrip(t *testing.T) {
	cases := []struct {
		dots  uint8
		space bool
	}{
		{0, false},
		{0, true},
		{0xFF, true},
		{1 << 3, false},
	}
	for _, c := range cases {
		s := FromDotsAndSpace(c.dots, c.space)
		gotDots, gotSpace := s.DotsAndSpace()
		if gotDots != c.dots || gotSpace != c.space {
			t.Errorf("round trip (%d,%v) -> (%d,%v)", c.dots, c.space, gotDots, gotSpace)
		}
	}
}

func TestSet_Union(t *testing.T) {
	a := Of(Dot1)
	b := Of(Dot2)
	u := a.Union(b)
	if !u.Has(Dot1) || !u.Has(Dot2) {
		t.Fatalf("union missing members: %v", u)
	}
}

func TestSet_Len(t *testing.T) {
	if Of().Len() != 0 {
		t.Fatal("empty set should have length 0")
	}
	if Of(Dot1, Dot2, Dot3).Len() != 3 {
		t.Fatal("expected length 3")
	}
}

func TestKeyMember_String(t *testing.T) {
	if Dot1.String() != "Dot1" {
		t.Fatalf("got %s", Dot1.String())
	}
	if Unknown.String() != "Unknown" {
		t.Fatalf("got %s", Unknown.String())
	}
}
