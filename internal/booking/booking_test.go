package booking

import (
	"errors"
	"testing"
	"time"

	"github.com/control-theory/venue/internal/window"
)

func deskForTest() (*Desk, time.Time) {
	start := time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)
	win := window.Window{Start: start, End: start.Add(2 * time.Hour)}
	return NewDesk(win), start
}

func TestSlotsCoverWindowInclusive(t *testing.T) {
	t.Parallel()

	d, start := deskForTest()
	slots := d.Slots()

	// 2h window on a 30m grid: 5 boundaries including both ends.
	if len(slots) != 5 {
		t.Fatalf("expected 5 slots, got %d", len(slots))
	}
	if !slots[0].Equal(start) {
		t.Fatalf("first slot = %v, want %v", slots[0], start)
	}
	if !slots[4].Equal(start.Add(2 * time.Hour)) {
		t.Fatalf("last slot = %v, want window end", slots[4])
	}
}

func TestPriceChargesPerStartedSlot(t *testing.T) {
	t.Parallel()

	d, start := deskForTest()
	cases := []struct {
		minutes int
		amount  int
	}{
		{30, 50},
		{45, 100},
		{60, 100},
		{90, 150},
		{120, 200},
	}
	for _, tc := range cases {
		q := d.Price(Selection{Start: start, End: start.Add(time.Duration(tc.minutes) * time.Minute)})
		if q.Amount != tc.amount {
			t.Fatalf("%d minutes: amount = %d, want %d", tc.minutes, q.Amount, tc.amount)
		}
		if q.DurationMinutes != tc.minutes {
			t.Fatalf("%d minutes: duration = %d", tc.minutes, q.DurationMinutes)
		}
	}
}

func TestValidateRejectsBadSelections(t *testing.T) {
	t.Parallel()

	d, start := deskForTest()
	cases := []struct {
		name string
		sel  Selection
		want error
	}{
		{"end equals start", Selection{start, start}, ErrEndNotAfterStart},
		{"end before start", Selection{start.Add(time.Hour), start}, ErrEndNotAfterStart},
		{"shorter than a slot", Selection{start, start.Add(15 * time.Minute)}, ErrTooShort},
		{"off grid end", Selection{start, start.Add(40 * time.Minute)}, ErrOffGrid},
		{"off grid start", Selection{start.Add(10 * time.Minute), start.Add(40 * time.Minute)}, ErrOffGrid},
		{"beyond window", Selection{start, start.Add(3 * time.Hour)}, ErrOffGrid},
	}
	for _, tc := range cases {
		if err := d.Validate(tc.sel); !errors.Is(err, tc.want) {
			t.Fatalf("%s: err = %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestValidateAcceptsGridSelections(t *testing.T) {
	t.Parallel()

	d, start := deskForTest()
	sel := Selection{Start: start.Add(30 * time.Minute), End: start.Add(90 * time.Minute)}
	if err := d.Validate(sel); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestRegisterInvokesPaymentWithQuote(t *testing.T) {
	t.Parallel()

	d, start := deskForTest()
	sel := Selection{Start: start, End: start.Add(time.Hour)}

	var paid Quote
	q, err := d.Register(sel, func(q Quote) error {
		paid = q
		return nil
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if q.Amount != 100 || paid.Amount != 100 {
		t.Fatalf("amount = %d / %d, want 100", q.Amount, paid.Amount)
	}
}

func TestRegisterRejectsInvalidWithoutPayment(t *testing.T) {
	t.Parallel()

	d, start := deskForTest()
	_, err := d.Register(Selection{start, start}, func(Quote) error {
		t.Fatal("payment must not run for invalid selection")
		return nil
	})
	if !errors.Is(err, ErrEndNotAfterStart) {
		t.Fatalf("err = %v", err)
	}
}

func TestRegisterPropagatesPaymentFailure(t *testing.T) {
	t.Parallel()

	d, start := deskForTest()
	boom := errors.New("declined")
	_, err := d.Register(Selection{start, start.Add(30 * time.Minute)}, func(Quote) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped %v", err, boom)
	}
}

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	cases := map[int]string{
		30:  "30m",
		45:  "45m",
		60:  "1h",
		90:  "1h 30m",
		150: "2h 30m",
	}
	for minutes, want := range cases {
		if got := FormatDuration(minutes); got != want {
			t.Fatalf("FormatDuration(%d) = %q, want %q", minutes, got, want)
		}
	}
}
