package card

import (
	"math"
	"testing"
)

func TestRecordResult_Win(t *testing.T) {
	c := New("jockey1")
	c.RecordResult("Grudge Match", 1, 10.54)

	s := c.Snapshot()
	if s.TotalRuns != 1 || s.Wins != 1 || s.Podiums != 1 {
		t.Errorf("expected 1/1/1, got runs=%d wins=%d podiums=%d", s.TotalRuns, s.Wins, s.Podiums)
	}
	if s.BestTime != 10.54 {
		t.Errorf("expected best time 10.54, got %f", s.BestTime)
	}
	if s.AvgTime != 10.54 {
		t.Errorf("first result should set average directly, got %f", s.AvgTime)
	}
}

func TestRecordResult_PodiumButNotWin(t *testing.T) {
	c := New("jockey1")
	c.RecordResult("Qualifier", 3, 11.2)

	s := c.Snapshot()
	if s.Wins != 0 {
		t.Errorf("third place is not a win, got wins=%d", s.Wins)
	}
	if s.Podiums != 1 {
		t.Errorf("third place is a podium, got podiums=%d", s.Podiums)
	}
}

func TestRecordResult_OffPodium(t *testing.T) {
	c := New("jockey1")
	c.RecordResult("Open Challenge", 4, 12.0)

	s := c.Snapshot()
	if s.Wins != 0 || s.Podiums != 0 {
		t.Errorf("fourth place counts nothing, got wins=%d podiums=%d", s.Wins, s.Podiums)
	}
}

func TestRecordResult_RunningAverage(t *testing.T) {
	c := New("jockey1")
	c.RecordResult("r1", 1, 10.0)
	c.RecordResult("r2", 2, 12.0)
	c.RecordResult("r3", 4, 14.0)

	s := c.Snapshot()
	if math.Abs(s.AvgTime-12.0) > 1e-9 {
		t.Errorf("expected running average 12.0, got %f", s.AvgTime)
	}
}

func TestRecordResult_BestTimeIsMinimum(t *testing.T) {
	c := New("jockey1")
	c.RecordResult("r1", 1, 11.0)
	c.RecordResult("r2", 1, 10.2)
	c.RecordResult("r3", 2, 10.9)

	if s := c.Snapshot(); s.BestTime != 10.2 {
		t.Errorf("expected best time 10.2, got %f", s.BestTime)
	}
}

func TestRecordResult_HistoryMostRecentFirst(t *testing.T) {
	c := New("jockey1")
	c.RecordResult("first", 1, 10.0)
	c.RecordResult("second", 2, 11.0)

	s := c.Snapshot()
	if len(s.History) != 2 {
		t.Fatalf("expected 2 history rows, got %d", len(s.History))
	}
	if s.History[0].RunName != "second" {
		t.Errorf("most recent result should be first, got %q", s.History[0].RunName)
	}
	if s.History[1].RunName != "first" {
		t.Errorf("oldest result should be last, got %q", s.History[1].RunName)
	}
}

func TestAdjustTrust_ClampsToBounds(t *testing.T) {
	c := New("jockey1")

	c.AdjustTrust(50)
	if s := c.Snapshot(); s.TrustScore != TrustMax {
		t.Errorf("trust should cap at %f, got %f", TrustMax, s.TrustScore)
	}

	c.AdjustTrust(-250)
	if s := c.Snapshot(); s.TrustScore != TrustMin {
		t.Errorf("trust should floor at %f, got %f", TrustMin, s.TrustScore)
	}
}

func TestAdjustTrust_IncrementalDeltas(t *testing.T) {
	c := New("jockey1")
	c.AdjustTrust(-0.1)
	c.AdjustTrust(-0.1)
	c.AdjustTrust(0.2)

	if s := c.Snapshot(); math.Abs(s.TrustScore-InitialTrust) > 1e-9 {
		t.Errorf("expected trust back at %f, got %f", InitialTrust, s.TrustScore)
	}
}
