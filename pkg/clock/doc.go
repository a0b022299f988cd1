// Package clock provides an injectable source of the current time.
//
// Production code uses System; tests use Mock and move it with Set or Advance:
//
//	clk := clock.NewMock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
//	svc := subscription.NewService(store, gateway, owners, notifier, subscription.WithClock(clk))
//	clk.Advance(38 * 24 * time.Hour)
package clock
