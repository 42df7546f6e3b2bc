package tutor

import (
	"testing"
	"time"
)

func exchangeAt(text string, ts time.Time) Exchange {
	return Exchange{
		UserInput:     UserInput{Text: text, Timestamp: ts},
		AgentResponse: ExchangeResponse{Text: "رد", RawResponse: `{"arabic":"رد"}`, Timestamp: ts},
	}
}

func TestConversationContext_AppendIsOrdered(t *testing.T) {
	t.Parallel()

	c := &ConversationContext{UserLevel: LevelBeginner}
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		c.Append(exchangeAt("turn", base.Add(time.Duration(i)*time.Minute)))
	}

	if c.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", c.Len())
	}
	window := c.Window(10)
	for i := 1; i < len(window); i++ {
		prev := window[i-1].AgentResponse.Timestamp
		if window[i].UserInput.Timestamp.Before(prev) {
			t.Errorf("exchange %d timestamp %v precedes %v", i, window[i].UserInput.Timestamp, prev)
		}
	}
}

func TestConversationContext_AppendClampsBackwardsTimestamps(t *testing.T) {
	t.Parallel()

	c := &ConversationContext{}
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	c.Append(exchangeAt("first", base))
	// A clock that jumped backwards must not produce out-of-order history.
	c.Append(exchangeAt("second", base.Add(-time.Hour)))

	window := c.Window(2)
	if got := window[1].UserInput.Timestamp; got.Before(base) {
		t.Errorf("clamped timestamp = %v, want >= %v", got, base)
	}
	if got := window[1].AgentResponse.Timestamp; got.Before(window[1].UserInput.Timestamp) {
		t.Errorf("response timestamp %v precedes its user input %v", got, window[1].UserInput.Timestamp)
	}
}

func TestConversationContext_Window(t *testing.T) {
	t.Parallel()

	c := &ConversationContext{}
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	texts := []string{"a", "b", "c", "d", "e"}
	for i, text := range texts {
		c.Append(exchangeAt(text, base.Add(time.Duration(i)*time.Second)))
	}

	tests := []struct {
		name string
		n    int
		want []string
	}{
		{"last two oldest first", 2, []string{"d", "e"}},
		{"window larger than history", 10, texts},
		{"zero window", 0, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			window := c.Window(tc.n)
			if len(window) != len(tc.want) {
				t.Fatalf("Window(%d) returned %d exchanges, want %d", tc.n, len(window), len(tc.want))
			}
			for i, want := range tc.want {
				if window[i].UserInput.Text != want {
					t.Errorf("Window(%d)[%d].Text = %q, want %q", tc.n, i, window[i].UserInput.Text, want)
				}
			}
		})
	}
}

func TestUserLevel_IsValid(t *testing.T) {
	t.Parallel()

	for _, l := range []UserLevel{LevelBeginner, LevelIntermediate, LevelAdvanced} {
		if !l.IsValid() {
			t.Errorf("IsValid(%q) = false, want true", l)
		}
	}
	if UserLevel("fluent").IsValid() {
		t.Error(`IsValid("fluent") = true, want false`)
	}
}
