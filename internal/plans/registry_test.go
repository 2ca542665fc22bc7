package plans

import "testing"

func TestNewRegistry(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("load registry: %v", err)
	}

	free, err := r.Get("free")
	if err != nil {
		t.Fatalf("get free: %v", err)
	}
	if free.ID != "free" {
		t.Errorf("id = %q, want backfilled from the map key", free.ID)
	}
	if free.QuotaBytes != 5<<30 {
		t.Errorf("free quota = %d, want 5 GiB", free.QuotaBytes)
	}
	if free.MaxVersions != 5 {
		t.Errorf("free max_versions = %d, want 5", free.MaxVersions)
	}

	team, err := r.Get("team")
	if err != nil {
		t.Fatalf("get team: %v", err)
	}
	if team.MaxVersions != 0 {
		t.Errorf("team max_versions = %d, want 0 (unlimited)", team.MaxVersions)
	}

	if _, err := r.Get("platinum"); err == nil {
		t.Error("unknown plan did not error")
	}
}

func TestQuotaForFallsBack(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("load registry: %v", err)
	}

	tests := []struct {
		name string
		id   string
		want int64
	}{
		{"known plan", "pro", 100 << 30},
		{"empty id", "", 5 << 30},
		{"unknown id", "legacy-gold", 5 << 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.QuotaFor(tt.id); got != tt.want {
				t.Errorf("QuotaFor(%q) = %d, want %d", tt.id, got, tt.want)
			}
		})
	}
}

func TestListOrdersByQuota(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("load registry: %v", err)
	}

	list := r.List()
	if len(list) != 3 {
		t.Fatalf("len = %d, want 3", len(list))
	}
	for i := 1; i < len(list); i++ {
		if list[i-1].QuotaBytes > list[i].QuotaBytes {
			t.Errorf("plans out of order: %s before %s", list[i-1].ID, list[i].ID)
		}
	}
}
