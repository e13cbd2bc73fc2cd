package ratelimit

import (
	"testing"
	"time"
)

func TestBudgetState_Remaining(t *testing.T) {
	tests := []struct {
		used, limit, want int
	}{
		{0, 60, 60},
		{59, 60, 1},
		{60, 60, 0},
		{75, 60, 0},
	}

	for _, tt := range tests {
		s := &BudgetState{Used: tt.used, Limit: tt.limit}
		if got := s.Remaining(); got != tt.want {
			t.Errorf("Remaining() with used=%d limit=%d = %d, want %d", tt.used, tt.limit, got, tt.want)
		}
	}
}

func TestBudgetState_Zones(t *testing.T) {
	tests := []struct {
		name           string
		state          BudgetState
		expectBlock    bool
		expectThrottle bool
		expectHealthy  bool
	}{
		{
			name:          "fresh window",
			state:         BudgetState{Used: 1, Limit: 60},
			expectHealthy: true,
		},
		{
			name:  "half used",
			state: BudgetState{Used: 30, Limit: 60},
		},
		{
			name:           "throttling zone",
			state:          BudgetState{Used: 48, Limit: 60},
			expectThrottle: true,
		},
		{
			name:           "last request of the window",
			state:          BudgetState{Used: 60, Limit: 60},
			expectThrottle: true,
		},
		{
			name:        "over budget",
			state:       BudgetState{Used: 61, Limit: 60},
			expectBlock: true,
		},
		{
			name:        "blocked by upstream",
			state:       BudgetState{Used: 1, Limit: 60, BlockedUntil: time.Now().Add(time.Minute)},
			expectBlock: true,
		},
		{
			name:          "expired upstream block",
			state:         BudgetState{Used: 1, Limit: 60, BlockedUntil: time.Now().Add(-time.Minute)},
			expectHealthy: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.state
			s.UpdateHealth()

			if got := s.NeedsCriticalBlock(); got != tt.expectBlock {
				t.Errorf("NeedsCriticalBlock() = %v, want %v", got, tt.expectBlock)
			}
			if got := s.NeedsThrottling(); got != tt.expectThrottle {
				t.Errorf("NeedsThrottling() = %v, want %v", got, tt.expectThrottle)
			}
			if s.IsHealthy != tt.expectHealthy {
				t.Errorf("IsHealthy = %v, want %v", s.IsHealthy, tt.expectHealthy)
			}
		})
	}
}

func TestBudgetState_TimeUntilReset(t *testing.T) {
	s := &BudgetState{ResetAt: time.Now().Add(-time.Second)}
	if d := s.TimeUntilReset(); d != 0 {
		t.Errorf("TimeUntilReset() = %v, want 0", d)
	}

	s = &BudgetState{
		ResetAt:      time.Now().Add(10 * time.Second),
		BlockedUntil: time.Now().Add(30 * time.Second),
	}
	if d := s.TimeUntilReset(); d < 25*time.Second {
		t.Errorf("TimeUntilReset() = %v, want the later upstream block", d)
	}
}
