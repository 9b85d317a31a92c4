package scope

import "testing"

func TestResolveExplicitGlobal(t *testing.T) {
	m := NewManager("local")
	if got := m.Resolve("proj", "ds", "global"); got != Global {
		t.Errorf("expected Global, got %s", got)
	}
}

func TestResolveProjectAndDatasetDefaultsLocal(t *testing.T) {
	m := NewManager("local")
	if got := m.Resolve("proj", "ds", ""); got != Local {
		t.Errorf("expected Local, got %s", got)
	}
}

func TestResolveProjectAndDatasetWithProjectRequested(t *testing.T) {
	m := NewManager("local")
	if got := m.Resolve("proj", "ds", "project"); got != Project {
		t.Errorf("expected Project, got %s", got)
	}
}

func TestResolveProjectOnly(t *testing.T) {
	m := NewManager("local")
	if got := m.Resolve("proj", "", ""); got != Project {
		t.Errorf("expected Project, got %s", got)
	}
}

func TestResolveNoContext(t *testing.T) {
	m := NewManager("local")
	if got := m.Resolve("", "", ""); got != Global {
		t.Errorf("expected Global, got %s", got)
	}
}

func TestCollectionNameLocal(t *testing.T) {
	m := NewManager("local")
	name, err := m.CollectionName("My Project", "Data Set!", Local)
	if err != nil {
		t.Fatal(err)
	}
	if name != "project_my_project_dataset_data_set" {
		t.Errorf("unexpected collection name: %q", name)
	}
}

func TestCollectionNameProjectRequiresProject(t *testing.T) {
	m := NewManager("local")
	if _, err := m.CollectionName("", "", Project); err == nil {
		t.Fatal("expected error when project scope has no project name")
	}
}

func TestProjectIDDeterministic(t *testing.T) {
	a := ProjectID("acme")
	b := ProjectID("acme")
	if a != b {
		t.Error("expected deterministic project ID across calls")
	}
	if a == ProjectID("other") {
		t.Error("expected different projects to get different IDs")
	}
}

func TestFilterByScopeLocal(t *testing.T) {
	f, err := FilterByScope(Local, "pid", "did")
	if err != nil {
		t.Fatal(err)
	}
	if f["project_id"] != "pid" || f["dataset_id"] != "did" {
		t.Errorf("unexpected filter: %+v", f)
	}
}

func TestFilterByScopeLocalMissingIDs(t *testing.T) {
	if _, err := FilterByScope(Local, "", ""); err == nil {
		t.Fatal("expected error for missing IDs")
	}
}

func TestAccessibleScopes(t *testing.T) {
	levels := AccessibleScopes("proj", "ds", true)
	want := []Level{Local, Project, Global}
	if len(levels) != len(want) {
		t.Fatalf("got %v, want %v", levels, want)
	}
	for i := range want {
		if levels[i] != want[i] {
			t.Errorf("levels[%d] = %s, want %s", i, levels[i], want[i])
		}
	}
}
