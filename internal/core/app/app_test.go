// # internal/core/app/app_test.go
package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sparrow/internal/core/config"
	"sparrow/internal/core/errors"
	"sparrow/internal/core/ports"
)

const testNodes = `id,labels
100,server
200,server,db
300,client
400,client
`

const testRelationships = `source,target,weight
100,200,1.5
100,300,2.0
200,300,0.5
400,100,3.0
`

func writeDataFiles(t *testing.T, nodes, relationships string) *config.Config {
	t.Helper()
	dir := t.TempDir()

	nodesFile := filepath.Join(dir, "nodes.csv")
	relationshipsFile := filepath.Join(dir, "relationships.csv")
	if err := os.WriteFile(nodesFile, []byte(nodes), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(relationshipsFile, []byte(relationships), 0644); err != nil {
		t.Fatal(err)
	}

	return &config.Config{
		Version: 1,
		Paths: config.Paths{
			NodesFile:         nodesFile,
			RelationshipsFile: relationshipsFile,
		},
		Engine: config.Engine{
			Concurrency:  2,
			PropertyKeys: []string{"weight"},
		},
	}
}

func TestAppInitialBuild(t *testing.T) {
	cfg := writeDataFiles(t, testNodes, testRelationships)
	a, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}

	if err := a.InitialBuild(context.Background()); err != nil {
		t.Fatal(err)
	}

	g := a.Graph()
	if g == nil {
		t.Fatal("expected a graph after the initial build")
	}
	if got := g.NodeCount(); got != 4 {
		t.Errorf("NodeCount = %d, want 4", got)
	}
	if got := g.RelationshipCount(); got != 4 {
		t.Errorf("RelationshipCount = %d, want 4", got)
	}

	source := g.ToMappedNodeID(100)
	if got := g.Degree(source); got != 2 {
		t.Errorf("Degree(node 100) = %d, want 2", got)
	}
}

func TestAppGraphBeforeBuild(t *testing.T) {
	cfg := writeDataFiles(t, testNodes, testRelationships)
	a, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}

	if g := a.Graph(); g != nil {
		t.Errorf("Graph before build = %v, want nil", g)
	}
	if _, err := a.View("anything"); !errors.IsCode(err, errors.CodeNotFound) {
		t.Errorf("View before build error = %v, want NOT_FOUND", err)
	}

	status := a.currentStatus()
	if status.Rebuilds != 0 || status.Summary.Nodes != 0 {
		t.Errorf("status before build = %+v, want zero", status)
	}
}

func TestAppViews(t *testing.T) {
	cfg := writeDataFiles(t, testNodes, testRelationships)
	cfg.Views = []config.View{
		{Name: "servers", Labels: []string{"serv*"}},
		{Name: "picked", NodeIDs: []int64{100, 300}},
	}
	a, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := a.InitialBuild(context.Background()); err != nil {
		t.Fatal(err)
	}

	names := a.ViewNames()
	if len(names) != 2 || names[0] != "servers" || names[1] != "picked" {
		t.Fatalf("ViewNames = %v, want [servers picked]", names)
	}

	servers, err := a.View("servers")
	if err != nil {
		t.Fatal(err)
	}
	if got := servers.NodeCount(); got != 2 {
		t.Errorf("servers NodeCount = %d, want 2", got)
	}
	if got := servers.RelationshipCount(); got != 1 {
		t.Errorf("servers RelationshipCount = %d, want 1", got)
	}

	picked, err := a.View("picked")
	if err != nil {
		t.Fatal(err)
	}
	if got := picked.NodeCount(); got != 2 {
		t.Errorf("picked NodeCount = %d, want 2", got)
	}
	if got := picked.RelationshipCount(); got != 1 {
		t.Errorf("picked RelationshipCount = %d, want 1", got)
	}

	if _, err := a.View("missing"); !errors.IsCode(err, errors.CodeNotFound) {
		t.Errorf("View(missing) error = %v, want NOT_FOUND", err)
	}
}

func TestAppViewUnknownNodeID(t *testing.T) {
	cfg := writeDataFiles(t, testNodes, testRelationships)
	cfg.Views = []config.View{{Name: "ghost", NodeIDs: []int64{999}}}
	a, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}

	err = a.InitialBuild(context.Background())
	if !errors.IsCode(err, errors.CodeValidationError) {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
	if !strings.Contains(err.Error(), "ghost") || !strings.Contains(err.Error(), "999") {
		t.Errorf("error should name the view and the id, got %v", err)
	}
}

func TestAppInvalidViewSelector(t *testing.T) {
	cfg := writeDataFiles(t, testNodes, testRelationships)
	cfg.Views = []config.View{{Name: "bad", Labels: []string{"[unclosed"}}}

	if _, err := New(cfg); !errors.IsCode(err, errors.CodeValidationError) {
		t.Fatalf("expected VALIDATION_ERROR for bad selector, got %v", err)
	}
}

func TestAppRebuildSwapsGraph(t *testing.T) {
	cfg := writeDataFiles(t, testNodes, testRelationships)
	a, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}

	updates := make(chan ports.StatusReport, 4)
	a.SetUpdateHandler(func(report ports.StatusReport) {
		updates <- report
	})

	if err := a.InitialBuild(context.Background()); err != nil {
		t.Fatal(err)
	}
	first := <-updates
	if first.Summary.Nodes != 4 || first.Rebuilds != 1 {
		t.Fatalf("first update = %+v, want 4 nodes after 1 build", first)
	}

	extended := testRelationships + "300,400,9.0\n"
	if err := os.WriteFile(cfg.Paths.RelationshipsFile, []byte(extended), 0644); err != nil {
		t.Fatal(err)
	}

	a.HandleChanges([]string{cfg.Paths.RelationshipsFile})

	second := <-updates
	if second.Summary.Relationships != 5 || second.Rebuilds != 2 {
		t.Fatalf("second update = %+v, want 5 relationships after 2 builds", second)
	}
	if got := a.Graph().RelationshipCount(); got != 5 {
		t.Errorf("RelationshipCount after rebuild = %d, want 5", got)
	}
}

func TestAppRebuildFailureKeepsGraph(t *testing.T) {
	cfg := writeDataFiles(t, testNodes, testRelationships)
	a, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := a.InitialBuild(context.Background()); err != nil {
		t.Fatal(err)
	}
	previous := a.Graph()

	broken := testRelationships + "100,999,1.0\n"
	if err := os.WriteFile(cfg.Paths.RelationshipsFile, []byte(broken), 0644); err != nil {
		t.Fatal(err)
	}

	a.HandleChanges([]string{cfg.Paths.RelationshipsFile})

	if got := a.Graph(); got != previous {
		t.Error("failed rebuild must keep the previous graph serving")
	}
	if got := a.Graph().RelationshipCount(); got != 4 {
		t.Errorf("RelationshipCount = %d, want the pre-failure 4", got)
	}
}

func TestAppStrictDanglingFails(t *testing.T) {
	relationships := testRelationships + "100,999,1.0\n"
	cfg := writeDataFiles(t, testNodes, relationships)
	a, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}

	err = a.InitialBuild(context.Background())
	if !errors.IsCode(err, errors.CodeValidationError) {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
	if !strings.Contains(err.Error(), "999") {
		t.Errorf("error should name the unregistered id, got %v", err)
	}
}

func TestAppSkipDangling(t *testing.T) {
	relationships := testRelationships + "100,999,1.0\n"
	cfg := writeDataFiles(t, testNodes, relationships)
	cfg.Engine.SkipDanglingRelationships = true
	a, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}

	if err := a.InitialBuild(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := a.Graph().RelationshipCount(); got != 4 {
		t.Errorf("RelationshipCount = %d, want 4 with the dangling row dropped", got)
	}
}

func TestAppApplyConfig(t *testing.T) {
	cfg := writeDataFiles(t, testNodes, testRelationships)
	a, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := a.InitialBuild(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := a.ViewNames(); len(got) != 0 {
		t.Fatalf("ViewNames = %v, want none", got)
	}

	reloaded := *cfg
	reloaded.Views = []config.View{{Name: "servers", Labels: []string{"server"}}}
	if err := a.ApplyConfig(context.Background(), &reloaded); err != nil {
		t.Fatal(err)
	}

	if got := a.ViewNames(); len(got) != 1 || got[0] != "servers" {
		t.Errorf("ViewNames after reload = %v, want [servers]", got)
	}

	bad := reloaded
	bad.Views = []config.View{{Name: "bad", Labels: []string{"[oops"}}}
	if err := a.ApplyConfig(context.Background(), &bad); !errors.IsCode(err, errors.CodeValidationError) {
		t.Fatalf("expected VALIDATION_ERROR for bad selector, got %v", err)
	}
	if got := a.ViewNames(); len(got) != 1 {
		t.Errorf("rejected config must keep the previous views, got %v", got)
	}
}

func TestHealthService(t *testing.T) {
	cfg := writeDataFiles(t, testNodes, testRelationships)
	a, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	health := NewHealthService(a)

	before := health.Check(context.Background())
	if before.Status != "degraded" {
		t.Errorf("status before build = %q, want degraded", before.Status)
	}
	if before.Components["graph"] != "not built" {
		t.Errorf("graph component = %q, want not built", before.Components["graph"])
	}

	if err := a.InitialBuild(context.Background()); err != nil {
		t.Fatal(err)
	}

	after := health.Check(context.Background())
	if after.Status != "up" {
		t.Errorf("status after build = %q, want up", after.Status)
	}
	if !strings.Contains(after.Components["graph"], "4 nodes") {
		t.Errorf("graph component = %q, want node count", after.Components["graph"])
	}
	if _, ok := after.Components["heap"]; !ok {
		t.Error("expected a heap component")
	}
}

func TestEngineService(t *testing.T) {
	cfg := writeDataFiles(t, testNodes, testRelationships)
	cfg.Views = []config.View{{Name: "servers", Labels: []string{"server"}}}
	a, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	service := a.EngineService()
	ctx := context.Background()

	status, err := service.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if status.Rebuilds != 0 {
		t.Errorf("Rebuilds before build = %d, want 0", status.Rebuilds)
	}

	result, err := service.Rebuild(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if result.Nodes != 4 || result.Relationships != 4 || result.Views != 1 {
		t.Errorf("BuildResult = %+v, want 4 nodes, 4 relationships, 1 view", result)
	}

	status, err = service.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(status.Views) != 1 || status.Views[0].Nodes != 2 {
		t.Errorf("view status = %+v, want servers with 2 nodes", status.Views)
	}

	if _, err := service.View("servers"); err != nil {
		t.Errorf("View(servers) = %v, want ok", err)
	}
	if err := service.Close(ctx); err != nil {
		t.Errorf("Close = %v, want nil", err)
	}
}
