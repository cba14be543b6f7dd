package clock

import (
	"testing"
	"time"
)

func TestFixed(t *testing.T) {
	start := time.Unix(600, 0)
	c := NewFixed(start)

	if !c.Now().Equal(start) {
		t.Fatalf("Now() = %v", c.Now())
	}

	c.Advance(10 * time.Minute)
	if got := c.Now().Unix(); got != 1200 {
		t.Fatalf("after Advance Now() = %d", got)
	}

	c.Set(time.Unix(5, 0))
	if got := c.Now().Unix(); got != 5 {
		t.Fatalf("after Set Now() = %d", got)
	}
}
