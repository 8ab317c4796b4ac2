package exporter

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/node-pulse/apcupsd-exporter/internal/apcaccess"
	"github.com/node-pulse/apcupsd-exporter/internal/state"
)

var sampleSnapshot = apcaccess.Snapshot{
	"APC":      "001,036,0876",
	"HOSTNAME": "nas",
	"UPSNAME":  "rack-ups",
	"VERSION":  "3.14.14 (31 May 2016) debian",
	"CABLE":    "USB Cable",
	"DRIVER":   "USB UPS Driver",
	"UPSMODE":  "Stand Alone",
	"MODEL":    "Back-UPS XS 900U",
	"STATUS":   "ONLINE",
	"LINEV":    "230.0",
	"LOADPCT":  "15.0",
	"BCHARGE":  "100.0",
	"TIMELEFT": "45.5",
	"NUMXFERS": "0",
	"DATE":     "2024-05-01 10:11:12 +0200",
}

func TestMetricName(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"LINEV", "apcupsd_linev"},
		{"BCHARGE", "apcupsd_bcharge"},
		{"END APC", "apcupsd_end_apc"},
		{"X-FER.COUNT", "apcupsd_x_fer_count"},
		{"ALREADY_OK9", "apcupsd_already_ok9"},
		{"TEMPÉ", "apcupsd_temp_"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := MetricName(tt.key); got != tt.want {
				t.Errorf("MetricName(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestCollector_Gauges(t *testing.T) {
	store := state.NewStore()
	store.Swap(sampleSnapshot, time.Now())

	reg, err := NewRegistry(store)
	if err != nil {
		t.Fatalf("NewRegistry() failed: %v", err)
	}

	expected := `
# HELP apcupsd_bcharge APC UPS BCHARGE
# TYPE apcupsd_bcharge gauge
apcupsd_bcharge 100
# HELP apcupsd_linev APC UPS LINEV
# TYPE apcupsd_linev gauge
apcupsd_linev 230
# HELP apcupsd_loadpct APC UPS LOADPCT
# TYPE apcupsd_loadpct gauge
apcupsd_loadpct 15
# HELP apcupsd_numxfers APC UPS NUMXFERS
# TYPE apcupsd_numxfers gauge
apcupsd_numxfers 0
# HELP apcupsd_timeleft APC UPS TIMELEFT
# TYPE apcupsd_timeleft gauge
apcupsd_timeleft 45.5
`
	names := []string{
		"apcupsd_bcharge",
		"apcupsd_linev",
		"apcupsd_loadpct",
		"apcupsd_numxfers",
		"apcupsd_timeleft",
	}
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), names...); err != nil {
		t.Error(err)
	}
}

func TestCollector_Info(t *testing.T) {
	store := state.NewStore()
	store.Swap(sampleSnapshot, time.Now())

	reg, err := NewRegistry(store)
	if err != nil {
		t.Fatalf("NewRegistry() failed: %v", err)
	}

	expected := `
# HELP apcupsd_info APC UPS daemon information
# TYPE apcupsd_info gauge
apcupsd_info{apc="001,036,0876",apcmodel="",cable="USB Cable",driver="USB UPS Driver",hostname="nas",model="Back-UPS XS 900U",upsmode="Stand Alone",upsname="rack-ups",version="3.14.14 (31 May 2016) debian"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "apcupsd_info"); err != nil {
		t.Error(err)
	}
}

func TestCollector_SkipsDescriptiveAndTextValues(t *testing.T) {
	store := state.NewStore()
	store.Swap(apcaccess.Snapshot{
		"APC":     "001",
		"VERSION": "3.14",
		"STATUS":  "ONLINE",
		"LINEV":   "230.0",
	}, time.Now())

	reg, err := NewRegistry(store)
	if err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"apcupsd_apc", "apcupsd_version", "apcupsd_status"} {
		n, err := testutil.GatherAndCount(reg, name)
		if err != nil {
			t.Fatalf("GatherAndCount(%s) failed: %v", name, err)
		}
		if n != 0 {
			t.Errorf("%s exported %d times, want 0", name, n)
		}
	}

	if n, _ := testutil.GatherAndCount(reg, "apcupsd_linev"); n != 1 {
		t.Errorf("apcupsd_linev count = %d, want 1", n)
	}
}

func TestCollector_ClashingNames(t *testing.T) {
	store := state.NewStore()
	store.Swap(apcaccess.Snapshot{
		"A B":  "1",
		"A_B":  "2",
		"INFO": "3",
	}, time.Now())

	reg, err := NewRegistry(store)
	if err != nil {
		t.Fatal(err)
	}

	// Gather would fail outright on a duplicate metric family
	if _, err := reg.Gather(); err != nil {
		t.Fatalf("Gather() failed: %v", err)
	}

	expected := `
# HELP apcupsd_a_b APC UPS A B
# TYPE apcupsd_a_b gauge
apcupsd_a_b 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "apcupsd_a_b"); err != nil {
		t.Error(err)
	}

	if n, _ := testutil.GatherAndCount(reg, "apcupsd_info"); n != 1 {
		t.Errorf("apcupsd_info count = %d, want only the info metric", n)
	}
}

func TestCollector_InvalidInfoLabel(t *testing.T) {
	store := state.NewStore()
	store.Swap(apcaccess.Snapshot{
		"MODEL":   "X\xc3",
		"STATUS":  "ONLINE",
		"LINEV":   "230.0",
		"BCHARGE": "100.0",
	}, time.Now())

	reg, err := NewRegistry(store)
	if err != nil {
		t.Fatal(err)
	}

	if n, err := testutil.GatherAndCount(reg, "apcupsd_info"); err != nil || n != 0 {
		t.Errorf("apcupsd_info count = %d, %v, want 0", n, err)
	}

	expected := `
# HELP apcupsd_linev APC UPS LINEV
# TYPE apcupsd_linev gauge
apcupsd_linev 230
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "apcupsd_linev"); err != nil {
		t.Error(err)
	}
}

func TestCollector_TruncatedResponse(t *testing.T) {
	raw := "\x00\x20STATUS : ONLINE\n\x00\x20LINEV : 230.0\n\x00\x20MODEL : X\u00e9\u00e9\u00e9Z"

	store := state.NewStore()
	store.Swap(apcaccess.Parse(raw, true), time.Now())

	reg, err := NewRegistry(store)
	if err != nil {
		t.Fatal(err)
	}

	if n, err := testutil.GatherAndCount(reg, "apcupsd_info", "apcupsd_linev"); err != nil || n != 2 {
		t.Errorf("count = %d, %v, want 2", n, err)
	}
}

func TestCollector_EmptyStore(t *testing.T) {
	store := state.NewStore()
	reg, err := NewRegistry(store)
	if err != nil {
		t.Fatal(err)
	}

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, mf := range mfs {
		if !strings.HasPrefix(mf.GetName(), "apcupsd_exporter_") {
			t.Errorf("unexpected metric %s before first fetch", mf.GetName())
		}
	}

	expected := `
# HELP apcupsd_exporter_last_success_timestamp_seconds Unix time of the last successful status fetch, 0 if none yet.
# TYPE apcupsd_exporter_last_success_timestamp_seconds gauge
apcupsd_exporter_last_success_timestamp_seconds 0
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "apcupsd_exporter_last_success_timestamp_seconds"); err != nil {
		t.Error(err)
	}
}

func TestCollector_SnapshotReplaced(t *testing.T) {
	store := state.NewStore()
	store.Swap(apcaccess.Snapshot{"LINEV": "230.0", "BCHARGE": "100.0"}, time.Now())

	reg, err := NewRegistry(store)
	if err != nil {
		t.Fatal(err)
	}

	store.Swap(apcaccess.Snapshot{"LINEV": "0.0"}, time.Now())

	if n, _ := testutil.GatherAndCount(reg, "apcupsd_bcharge"); n != 0 {
		t.Error("gauge for a key missing from the new snapshot is still exported")
	}

	expected := `
# HELP apcupsd_linev APC UPS LINEV
# TYPE apcupsd_linev gauge
apcupsd_linev 0
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "apcupsd_linev"); err != nil {
		t.Error(err)
	}
}

func TestSelfMetrics(t *testing.T) {
	store := state.NewStore()
	reg, err := NewRegistry(store)
	if err != nil {
		t.Fatal(err)
	}

	at := time.Unix(1714550000, 0)
	store.RecordFailure(errors.New("refused"), at)
	store.RecordFailure(errors.New("refused"), at)
	store.Swap(apcaccess.Snapshot{"STATUS": "ONLINE"}, at)

	expected := `
# HELP apcupsd_exporter_fetch_failures_total Number of failed status fetches from apcupsd.
# TYPE apcupsd_exporter_fetch_failures_total counter
apcupsd_exporter_fetch_failures_total 2
# HELP apcupsd_exporter_last_success_timestamp_seconds Unix time of the last successful status fetch, 0 if none yet.
# TYPE apcupsd_exporter_last_success_timestamp_seconds gauge
apcupsd_exporter_last_success_timestamp_seconds 1.71455e+09
`
	err = testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"apcupsd_exporter_fetch_failures_total",
		"apcupsd_exporter_last_success_timestamp_seconds")
	if err != nil {
		t.Error(err)
	}
}
