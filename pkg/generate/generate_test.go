package generate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apiforge/console-core/pkg/httpclient"
)

func TestFilterValues(t *testing.T) {
	v := Filter{UserID: "uid-1", Status: "pending", DataType: "csv"}.Values()

	assert.Equal(t, "uid-1", v.Get("user_id"), "user scope is always sent")
	assert.Equal(t, "pending", v.Get("status"))
	assert.Equal(t, "csv", v.Get("data_type"))

	assert.Equal(t, "uid-1", UserValues("uid-1").Get("user_id"))
}

func TestStore_ExecuteUpdatesJobInPlace(t *testing.T) {
	var executePath string
	var executeBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet:
			_, _ = w.Write([]byte(`{"generates":[
				{"id":"g-1","name":"leads","data_type":"json","count":50,"status":"pending","user_id":"uid-1"}
			]}`))
		case r.Method == http.MethodPost:
			executePath = r.URL.Path
			_ = json.NewDecoder(r.Body).Decode(&executeBody)
			_, _ = w.Write([]byte(`{
				"data":{"id":"g-1","status":"completed","output_data":[{"email":"a@b.c"}]},
				"message":"Generate task executed successfully"
			}`))
		}
	}))
	defer srv.Close()

	st, err := NewStore(httpclient.New(), srv.URL)
	require.NoError(t, err)

	_, err = st.List(context.Background(), Filter{UserID: "uid-1"}.Values())
	require.NoError(t, err)

	job, err := st.Execute(context.Background(), "g-1", "uid-1")
	require.NoError(t, err)
	assert.Equal(t, "/generate/v1/g-1/execute", executePath)
	assert.Equal(t, "uid-1", executeBody["user_id"])

	assert.Equal(t, "completed", job.Status)
	assert.Equal(t, "leads", job.Name, "fields absent from the response survive the overlay")
	assert.NotNil(t, job.OutputData)

	snap := st.Snapshot()
	require.Len(t, snap.Items, 1)
	assert.Equal(t, "completed", snap.Items[0].Status)
	assert.Equal(t, "Generate task executed successfully", snap.SuccessMessage)
}
