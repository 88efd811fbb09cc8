package orders

import "testing"

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusSelesai, true},
		{StatusPending, StatusBatal, true},
		{StatusSelesai, StatusBatal, true},

		{StatusPending, StatusPending, false},
		{StatusSelesai, StatusSelesai, false},
		{StatusSelesai, StatusPending, false},
		{StatusBatal, StatusBatal, false},
		{StatusBatal, StatusSelesai, false},
		{StatusBatal, StatusPending, false},
	}
	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusSelesai, StatusBatal} {
		if !s.Valid() {
			t.Errorf("expected %s to be valid", s)
		}
	}
	if Status("SHIPPED").Valid() {
		t.Error("expected SHIPPED to be invalid")
	}
}

func TestKind(t *testing.T) {
	if !KindGoods.TracksStock() {
		t.Error("goods orders must track stock")
	}
	if KindService.TracksStock() {
		t.Error("service orders must not track stock")
	}
	if Kind("voucher").Valid() {
		t.Error("expected unknown kind to be invalid")
	}
}
