package dashboard

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/persys-dev/workflow-watch/internal/models"
	"github.com/persys-dev/workflow-watch/internal/store"
)

func strPtr(s string) *string { return &s }
func i64Ptr(n int64) *int64   { return &n }

func seedRun(t *testing.T, st *store.Store, workflowID int64, conclusion string) *models.WorkflowRun {
	t.Helper()
	run := &models.WorkflowRun{
		RepositoryName:     "o/r",
		WorkflowID:         workflowID,
		WorkflowName:       "CI",
		WorkflowConclusion: strPtr(conclusion),
		RunID:              i64Ptr(workflowID),
	}
	require.NoError(t, st.Upsert(run))
	return run
}

func dialTestHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ws", hub.ServeWS)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) serverFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var frame serverFrame
	require.NoError(t, json.Unmarshal(raw, &frame))
	return frame
}

func TestConnectSendsInitialWorkflows(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "workflows.db"))
	require.NoError(t, err)
	seedRun(t, st, 1, models.ConclusionSuccess)
	seedRun(t, st, 2, models.ConclusionFailed)

	conn := dialTestHub(t, NewHub(st))

	frame := readFrame(t, conn)
	assert.Equal(t, frameInitialWorkflows, frame.Type)
	assert.Len(t, frame.Workflows, 2)
}

func TestGetWorkflowsFilterRoundTrip(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "workflows.db"))
	require.NoError(t, err)
	failed := seedRun(t, st, 1, models.ConclusionFailed)
	succeeded := seedRun(t, st, 2, models.ConclusionSuccess)
	seedRun(t, st, 3, models.ConclusionPending)

	conn := dialTestHub(t, NewHub(st))
	readFrame(t, conn) // initial view

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":              "get_workflows",
		"time_filter":       "all",
		"conclusion_filter": "failed",
		"include_ids":       []int64{},
		"timezone_offset":   0,
	}))

	frame := readFrame(t, conn)
	require.Equal(t, frameInitialWorkflows, frame.Type)
	require.Len(t, frame.Workflows, 1)
	assert.Equal(t, failed.ID, frame.Workflows[0].ID)
	assert.Equal(t, StatusCompleted, frame.Workflows[0].Status)

	// Sticky rule: an include_ids row stays visible despite not matching.
	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":              "get_workflows",
		"time_filter":       "all",
		"conclusion_filter": "failed",
		"include_ids":       []int64{succeeded.ID},
		"timezone_offset":   0,
	}))

	frame = readFrame(t, conn)
	require.Equal(t, frameInitialWorkflows, frame.Type)
	assert.Len(t, frame.Workflows, 2)
}

func TestMalformedFrameIsIgnored(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "workflows.db"))
	require.NoError(t, err)
	seedRun(t, st, 1, models.ConclusionSuccess)

	conn := dialTestHub(t, NewHub(st))
	readFrame(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))

	// The connection survives and still answers the next request.
	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type": "get_workflows",
	}))
	frame := readFrame(t, conn)
	assert.Equal(t, frameInitialWorkflows, frame.Type)
	assert.Len(t, frame.Workflows, 1)
}

func TestMonitorBroadcastsOnChange(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "workflows.db"))
	require.NoError(t, err)
	seedRun(t, st, 1, models.ConclusionPending)

	hub := NewHub(st)
	conn := dialTestHub(t, hub)
	readFrame(t, conn) // initial view

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	monitor := NewMonitor(st, hub.Publisher(), 50*time.Millisecond)
	go monitor.Run(ctx)

	// Let the poller record its baseline before mutating the store.
	time.Sleep(200 * time.Millisecond)

	seedRun(t, st, 1, models.ConclusionSuccess)

	frame := readFrame(t, conn)
	require.Equal(t, frameWorkflowUpdate, frame.Type)
	require.Len(t, frame.Workflows, 1)
	assert.Equal(t, models.ConclusionSuccess, *frame.Workflows[0].Conclusion)
	assert.Equal(t, StatusCompleted, frame.Workflows[0].Status)
}
