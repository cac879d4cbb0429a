package loader

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"aci2netbox/internal/domain"
	"github.com/stretchr/testify/require"
)

type call struct {
	query  string
	params map[string]any
	raw    bool
}

type recordingExecutor struct {
	calls  []call
	failOn string
}

func (r *recordingExecutor) RunWrite(_ context.Context, query string, params map[string]any) error {
	r.calls = append(r.calls, call{query: query, params: params})
	if r.failOn != "" && strings.Contains(query, r.failOn) {
		return errors.New("neo4j down")
	}
	return nil
}

func (r *recordingExecutor) RunRaw(_ context.Context, query string, params map[string]any) error {
	r.calls = append(r.calls, call{query: query, params: params, raw: true})
	return nil
}

func nodeRows(label string, n int) []domain.NodeRow {
	rows := make([]domain.NodeRow, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, domain.NodeRow{
			Key:        domain.MakeKey("X", i),
			Labels:     []string{label, domain.LabelACI},
			Properties: map[string]any{"name": i},
			RunID:      "run-1",
			UpdatedAt:  time.Unix(0, 0),
		})
	}
	return rows
}

func TestUpsertNodesGroupsByLabelAndBatches(t *testing.T) {
	exec := &recordingExecutor{}
	rows := append(nodeRows(domain.LabelTenant, 3), nodeRows(domain.LabelVRF, 1)...)

	err := NewNodeUpserter(exec, 2).UpsertNodes(context.Background(), rows)
	require.NoError(t, err)
	require.Len(t, exec.calls, 3)
	require.Contains(t, exec.calls[0].query, "MERGE (n:ACI:Tenant {aci_key: row.aci_key})")
	require.Len(t, exec.calls[0].params["rows"], 2)
	require.Len(t, exec.calls[1].params["rows"], 1)
	require.Contains(t, exec.calls[2].query, ":ACI:VRF")

	first := exec.calls[0].params["rows"].([]map[string]any)[0]
	require.Equal(t, "X_0", first["aci_key"])
	require.Equal(t, "run-1", first["run_id"])
}

func TestUpsertNodesWrapsError(t *testing.T) {
	exec := &recordingExecutor{failOn: "MERGE"}
	err := NewNodeUpserter(exec, 0).UpsertNodes(context.Background(), nodeRows(domain.LabelPod, 1))
	require.ErrorContains(t, err, "labels=ACI:Pod")
}

func TestUpsertRelsGroupsByTypeAndLabels(t *testing.T) {
	exec := &recordingExecutor{}
	rows := []domain.RelRow{
		{StartKey: "BD_a", StartLabel: domain.LabelBridgeDomain, EndKey: "CTX_a", EndLabel: domain.LabelVRF, Type: domain.RelInVRF, RunID: "r"},
		{StartKey: "ESG_a", StartLabel: domain.LabelESG, EndKey: "CTX_a", EndLabel: domain.LabelVRF, Type: domain.RelInVRF, RunID: "r"},
		{StartKey: "BD_b", StartLabel: domain.LabelBridgeDomain, EndKey: "CTX_b", EndLabel: domain.LabelVRF, Type: domain.RelInVRF, RunID: "r"},
	}
	require.NoError(t, NewRelUpserter(exec, 10).UpsertRels(context.Background(), rows))
	require.Len(t, exec.calls, 2)
	require.Contains(t, exec.calls[0].query, "MATCH (s:BridgeDomain {aci_key: row.start_key})")
	require.Contains(t, exec.calls[0].query, "[r:IN_VRF]")
	require.Len(t, exec.calls[0].params["rows"], 2)
	require.Contains(t, exec.calls[1].query, "MATCH (s:ESG")

	params := exec.calls[1].params["rows"].([]map[string]any)[0]
	require.Equal(t, map[string]any{}, params["properties"])
}

func TestEmptyRowsSkipWrites(t *testing.T) {
	exec := &recordingExecutor{}
	require.NoError(t, NewNodeUpserter(exec, 1).UpsertNodes(context.Background(), nil))
	require.NoError(t, NewRelUpserter(exec, 1).UpsertRels(context.Background(), nil))
	require.Empty(t, exec.calls)
}

func TestSchemaEnsureRunsOnce(t *testing.T) {
	exec := &recordingExecutor{}
	schema := NewSchemaManager(exec)
	require.NoError(t, schema.Ensure(context.Background()))
	require.NoError(t, schema.Ensure(context.Background()))
	require.Len(t, exec.calls, 13)
	for _, c := range exec.calls {
		require.True(t, c.raw)
	}
}

func TestCleanerUsesCurrentRun(t *testing.T) {
	exec := &recordingExecutor{}
	cleaner := NewCleaner(exec)
	require.NoError(t, cleaner.DeleteStaleRelationships(context.Background(), "lab", "run-2"))
	require.NoError(t, cleaner.DeleteStaleNodes(context.Background(), "lab", "run-2"))
	require.Len(t, exec.calls, 2)
	require.Contains(t, exec.calls[0].query, "DELETE r")
	require.Contains(t, exec.calls[1].query, "DETACH DELETE n")
	require.Equal(t, "run-2", exec.calls[1].params["run_id"])
	require.Equal(t, "lab", exec.calls[1].params["fabric"])
}

func TestNeo4jRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	client, err := NewClient(ctx, Config{
		URI:      "bolt://localhost:7687",
		Username: "neo4j",
		Password: "StrongPassw0rd",
		Database: "neo4j",
	})
	if err != nil {
		t.Skipf("neo4j not available: %v", err)
	}
	defer client.Close(ctx)

	require.NoError(t, NewSchemaManager(client).Ensure(ctx))
	require.NoError(t, NewNodeUpserter(client, 50).UpsertNodes(ctx, nodeRows(domain.LabelTenant, 2)))
	require.NoError(t, NewCleaner(client).DeleteStaleNodes(ctx, "it-fabric", "run-1"))

	records, err := client.RunRead(ctx, "MATCH (n:Tenant {last_seen_run_id: 'run-1'}) RETURN count(n) AS c", nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.EqualValues(t, 2, records[0]["c"])
}
