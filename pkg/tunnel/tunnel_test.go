package tunnel

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apiforge/console-core/pkg/httpclient"
)

func TestFilterValues(t *testing.T) {
	enabled := true
	v := Filter{
		Status:   "active",
		Protocol: "https",
		Enabled:  &enabled,
		Page:     2,
		Limit:    25,
	}.Values()

	assert.Equal(t, "active", v.Get("status"))
	assert.Equal(t, "https", v.Get("protocol"))
	assert.Equal(t, "true", v.Get("enabled"))
	assert.Equal(t, "2", v.Get("page"))
	assert.Equal(t, "25", v.Get("limit"))
	assert.False(t, v.Has("offset"), "zero-valued fields stay out of the query")

	assert.Empty(t, Filter{}.Values(), "empty filter produces no parameters")
}

func TestStore_ListAcceptsLegacyTunnelsKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/tunnels/v1/", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"tunnels":[
			{"id":"t-1","name":"edge","endpoint":"10.0.0.1","port":8443,"protocol":"https","status":"active","enabled":true}
		]}`))
	}))
	defer srv.Close()

	st, err := NewStore(httpclient.New(), srv.URL)
	require.NoError(t, err)

	items, err := st.List(context.Background(), Filter{}.Values())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "t-1", items[0].ID)
	assert.Equal(t, "edge", items[0].Name)
	assert.Equal(t, 8443, items[0].Port)
	assert.True(t, items[0].Enabled)
}
