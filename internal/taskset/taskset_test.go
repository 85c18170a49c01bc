package taskset

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestValidate_RejectsEmptyAndNonPositive(t *testing.T) {
	if err := (TaskSet{}).Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("empty set: got %v, want ErrInvalidInput", err)
	}
	if err := (TaskSet{{Period: 0, ExecTime: 1}}).Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("zero period: got %v", err)
	}
	if err := (TaskSet{{Period: 10, ExecTime: 0}}).Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("zero exec time: got %v", err)
	}
	neg := int64(-1)
	if err := (TaskSet{{Period: 10, ExecTime: 1, Phase: &neg}}).Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("negative phase: got %v", err)
	}
	// exec > period is accepted
	if err := (TaskSet{{Period: 10, ExecTime: 20}}).Validate(); err != nil {
		t.Fatalf("exec > period: unexpected error %v", err)
	}
}

func TestHorizon(t *testing.T) {
	ts := TaskSet{{Period: 10, ExecTime: 2}, {Period: 15, ExecTime: 3}}
	h, err := ts.Horizon(Offsets{0, 7})
	if err != nil {
		t.Fatalf("Horizon: %v", err)
	}
	if h != 67 {
		t.Fatalf("got %d, want 67", h)
	}
}

func TestHorizon_Overflow(t *testing.T) {
	ts := TaskSet{
		{Period: 1000000007, ExecTime: 1},
		{Period: 1000000009, ExecTime: 1},
		{Period: 998244353, ExecTime: 1},
	}
	if _, err := ts.Horizon(Offsets{0, 0, 0}); !errors.Is(err, ErrResourceLimit) {
		t.Fatalf("got %v, want ErrResourceLimit", err)
	}
}

func TestReduceAndMod(t *testing.T) {
	ts := TaskSet{{Period: 10, ExecTime: 1}, {Period: 4, ExecTime: 1}}
	got := Offsets{23, 4}.Reduce(ts)
	if got[0] != 3 || got[1] != 0 {
		t.Fatalf("got %v, want [3 0]", got)
	}
	if Mod(-3, 10) != 7 {
		t.Fatalf("Mod(-3, 10) = %d, want 7", Mod(-3, 10))
	}
}

func TestCSV_RoundTripKeepsOrderAndPhase(t *testing.T) {
	phase := int64(2)
	ts := TaskSet{
		{Name: "gps", Period: 100, ExecTime: 9},
		{Name: "imu", Period: 20, ExecTime: 3, Phase: &phase},
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, ts); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	got, err := ReadCSV(&buf)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(got) != 2 || got[0].Name != "gps" || got[1].Period != 20 {
		t.Fatalf("unexpected task set %+v", got)
	}
	if got[0].Phase != nil || got[1].Phase == nil || *got[1].Phase != 2 {
		t.Fatalf("phase not preserved: %+v", got)
	}
}

func TestReadCSV_RejectsInvalidRows(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("period,exec_time\n10,x\n"))
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("got %v, want ErrInvalidInput", err)
	}
	_, err = ReadCSV(strings.NewReader("period,exec_time\n"))
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("empty body: got %v, want ErrInvalidInput", err)
	}
}

func TestSetsCSV(t *testing.T) {
	sets := []TaskSet{
		{{Period: 10, ExecTime: 2}, {Period: 15, ExecTime: 3}},
		{{Period: 4, ExecTime: 1}},
	}
	var buf bytes.Buffer
	if err := WriteSetsCSV(&buf, sets); err != nil {
		t.Fatalf("WriteSetsCSV: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "(T1,c1);(T2,c2);...\n(10, 2);(15, 3)\n") {
		t.Fatalf("unexpected output %q", buf.String())
	}
	got, err := ReadSetsCSV(&buf)
	if err != nil {
		t.Fatalf("ReadSetsCSV: %v", err)
	}
	if len(got) != 2 || len(got[0]) != 2 || got[0][1].Period != 15 || got[1][0].ExecTime != 1 {
		t.Fatalf("unexpected sets %+v", got)
	}
}
